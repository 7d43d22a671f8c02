package local

import (
	"os"
	"path/filepath"

	"github.com/u20024804/heron/config"
)

// Config accessors for the local scheduler. Keys may live in either the
// static config or the per-launch runtime config; these helpers centralize
// the defaults.

const (
	coreReleaseFileName     = "heron-core.tar.gz"
	topologyPackageFileName = "topology.tar.gz"
)

func Cluster(c *config.Config) string {
	return c.StringOrDefault(config.KeyCluster, "local")
}

func Role(c *config.Config) string {
	return c.StringOrDefault(config.KeyRole, defaultUser())
}

func Environ(c *config.Config) string {
	return c.StringOrDefault(config.KeyEnviron, "default")
}

func TopologyName(c *config.Config) string {
	return c.StringOrDefault(config.KeyTopologyName, "")
}

// WorkingDirectory is where the launcher assembles the topology's runtime
// files and where the scheduler and executors run.
func WorkingDirectory(c *config.Config) string {
	if dir, ok := c.GetString(config.KeyWorkingDirectory); ok {
		return dir
	}
	return filepath.Join(os.TempDir(), "heron", Cluster(c), TopologyName(c))
}

func CorePackageURI(c *config.Config) string {
	return c.StringOrDefault(config.KeyCorePackageURI, "")
}

func TopologyPackageURI(c *config.Config) string {
	return c.StringOrDefault(config.KeyTopologyPackageURI, "")
}

func StateManagerRoot(c *config.Config) string {
	if root, ok := c.GetString(config.KeyStateManagerRoot); ok {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".herondata", "repository", "state", "local")
}

// SchedulerBinary defaults to the binary shipped inside the extracted core
// release.
func SchedulerBinary(c *config.Config) string {
	if bin, ok := c.GetString(config.KeySchedulerBinary); ok {
		return bin
	}
	return filepath.Join("heron-core", "bin", "heron-scheduler")
}

// ExecutorBinary defaults likewise.
func ExecutorBinary(c *config.Config) string {
	if bin, ok := c.GetString(config.KeyExecutorBinary); ok {
		return bin
	}
	return filepath.Join("heron-core", "bin", "heron-executor")
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "heron"
}
