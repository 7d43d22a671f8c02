// Package local launches and schedules topologies on the machine the
// submission runs on. The launcher stages the platform core and topology
// packages into a working directory and spawns the scheduler; the scheduler
// supervises one executor process per container.
package local

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/u20024804/heron/common/netutil"
	"github.com/u20024804/heron/common/stats"
	"github.com/u20024804/heron/config"
	"github.com/u20024804/heron/packages"
	"github.com/u20024804/heron/runner/execer"
	execos "github.com/u20024804/heron/runner/execer/os"
	"github.com/u20024804/heron/spi/packing"
	"github.com/u20024804/heron/spi/scheduler"
)

// Launcher launches a topology locally to a working directory.
type Launcher struct {
	cfg     *config.Config
	runtime *config.Config

	topologyWorkingDirectory  string
	coreReleasePackage        string
	targetCoreReleaseFile     string
	targetTopologyPackageFile string

	// Seams for tests; production values set by NewLauncher.
	fetcherFor  func(uri string) (packages.Fetcher, error)
	extract     func(archive, destDir string) error
	exec        execer.Execer
	freePort    func() (int, error)
	waitForPort func(port int) error
	stat        stats.StatsReceiver
}

var _ scheduler.Launcher = (*Launcher)(nil)

func NewLauncher(stat stats.StatsReceiver) *Launcher {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &Launcher{
		fetcherFor:  packages.ForURI,
		extract:     packages.ExtractTarGz,
		exec:        execos.NewExecer(),
		freePort:    netutil.GetFreePort,
		waitForPort: netutil.WaitForPort,
		stat:        stat.Scope("launcher"),
	}
}

// Initialize binds the working directory, the remote package uris, and the
// target local archive paths.
func (l *Launcher) Initialize(cfg, runtime *config.Config) error {
	l.cfg = cfg
	l.runtime = runtime

	l.topologyWorkingDirectory = WorkingDirectory(l.merged())
	l.coreReleasePackage = CorePackageURI(cfg)
	if l.coreReleasePackage == "" {
		return fmt.Errorf("no core package uri configured (%s)", config.KeyCorePackageURI)
	}
	l.targetCoreReleaseFile = filepath.Join(l.topologyWorkingDirectory, coreReleaseFileName)
	l.targetTopologyPackageFile = filepath.Join(l.topologyWorkingDirectory, topologyPackageFileName)
	return nil
}

// PrepareLaunch runs readiness checks before launch, such as whether the
// topology is already running. The local launcher has none.
func (l *Launcher) PrepareLaunch(plan *packing.PackingPlan) error {
	return nil
}

// Launch stages the packages and spawns the scheduler for plan's topology.
func (l *Launcher) Launch(plan *packing.PackingPlan) error {
	log.Infof("Launching topology for local cluster %s", Cluster(l.cfg))
	defer l.stat.Latency("launchLatency_ns").Time().Stop()

	topologyName := TopologyName(l.runtime)
	if topologyName == "" {
		topologyName = plan.TopologyName
	}
	if topologyName != plan.TopologyName {
		return fmt.Errorf("packing plan is for %q, runtime says %q", plan.TopologyName, topologyName)
	}

	if err := l.downloadAndExtractPackages(); err != nil {
		l.stat.Counter("launchFailures").Inc(1)
		return errors.Wrap(err, "staging the core and topology packages")
	}

	// A configured port pins the scheduler; otherwise ask the kernel.
	port := l.merged().IntOrDefault(config.KeySchedulerHTTPPort, 0)
	if port == 0 {
		var err error
		if port, err = l.freePort(); err != nil {
			l.stat.Counter("launchFailures").Inc(1)
			return errors.Wrap(err, "allocating scheduler http port")
		}
	}

	if err := l.spawnScheduler(topologyName, port); err != nil {
		l.stat.Counter("launchFailures").Inc(1)
		return err
	}

	l.stat.Counter("launches").Inc(1)
	log.Infof("For checking the status and logs of the topology, use the working directory %s",
		l.topologyWorkingDirectory)
	return nil
}

// PostLaunch runs completion hooks after a successful launch. The local
// launcher has none.
func (l *Launcher) PostLaunch(plan *packing.PackingPlan) error {
	return nil
}

func (l *Launcher) Close() error {
	return nil
}

// downloadAndExtractPackages stages the core release and the topology
// package into the topology working directory. Archives already in the
// working directory are overwritten.
func (l *Launcher) downloadAndExtractPackages() error {
	if err := os.MkdirAll(l.topologyWorkingDirectory, 0755); err != nil {
		return errors.Wrapf(err, "creating working directory %s", l.topologyWorkingDirectory)
	}

	log.Infof("Fetching heron core release %s", l.coreReleasePackage)
	if err := l.stagePackage(l.coreReleasePackage, l.targetCoreReleaseFile); err != nil {
		return errors.Wrap(err, "staging the heron core release package")
	}

	topologyPackage := TopologyPackageURI(l.runtime)
	if topologyPackage == "" {
		return fmt.Errorf("no topology package uri configured (%s)", config.KeyTopologyPackageURI)
	}
	log.Infof("Fetching topology package %s", topologyPackage)
	if err := l.stagePackage(topologyPackage, l.targetTopologyPackageFile); err != nil {
		return errors.Wrap(err, "staging the topology package")
	}
	return nil
}

// stagePackage fetches uri to targetFile, extracts it into the working
// directory, and removes the archive. A failed removal only warns; the
// extracted tree is already in place.
func (l *Launcher) stagePackage(uri, targetFile string) error {
	fetcher, err := l.fetcherFor(uri)
	if err != nil {
		return err
	}
	if err := fetcher.Fetch(uri, targetFile); err != nil {
		return err
	}
	if err := l.extract(targetFile, l.topologyWorkingDirectory); err != nil {
		return err
	}
	if err := os.Remove(targetFile); err != nil {
		log.Warnf("Unable to delete the package file %s: %v", targetFile, err)
	}
	return nil
}

// spawnScheduler starts the scheduler binary asynchronously in the working
// directory, logging to files there.
func (l *Launcher) spawnScheduler(topologyName string, port int) error {
	merged := l.merged()
	argv := []string{
		SchedulerBinary(merged),
		"--cluster", Cluster(l.cfg),
		"--role", Role(l.cfg),
		"--environ", Environ(l.cfg),
		"--topology_name", topologyName,
		"--topology_package", TopologyPackageURI(l.runtime),
		"--http_port", strconv.Itoa(port),
		"--state_root", StateManagerRoot(merged),
		"--executor_bin", ExecutorBinary(merged),
		"--working_dir", l.topologyWorkingDirectory,
	}
	if overrides := merged.StringOrDefault(config.KeyExecutorOverrides, ""); overrides != "" {
		argv = append(argv, "--overrides", config.EncodeOverrides(overrides))
	}
	log.Debugf("Scheduler command line: %v", argv)

	stdout, err := os.Create(filepath.Join(l.topologyWorkingDirectory, "scheduler.stdout"))
	if err != nil {
		return errors.Wrap(err, "creating scheduler stdout log")
	}
	stderr, err := os.Create(filepath.Join(l.topologyWorkingDirectory, "scheduler.stderr"))
	if err != nil {
		stdout.Close()
		return errors.Wrap(err, "creating scheduler stderr log")
	}

	proc, err := l.exec.Exec(execer.Command{
		Argv:   argv,
		Dir:    l.topologyWorkingDirectory,
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		stdout.Close()
		stderr.Close()
		return errors.Wrapf(err, "starting scheduler using %v", argv)
	}

	// Launch doesn't block on the scheduler being ready, but report whether
	// its http port ever came up.
	go func() {
		if err := l.waitForPort(port); err != nil {
			log.Warnf("Scheduler for %s never served on port %d: %v", topologyName, port, err)
			l.stat.Counter("schedulerPortTimeouts").Inc(1)
		}
	}()

	// The scheduler outlives the launcher; reap it if it exits while we're
	// still around so it can't zombie under us.
	go func() {
		defer stdout.Close()
		defer stderr.Close()
		status := proc.Wait()
		log.WithFields(log.Fields{
			"topology": topologyName,
			"pid":      proc.Pid(),
			"status":   status.State.String(),
			"exitCode": status.ExitCode,
		}).Info("Scheduler process finished")
	}()
	return nil
}

// merged overlays the runtime config on the static config.
func (l *Launcher) merged() *config.Config {
	return config.NewBuilder().PutAll(l.cfg).PutAll(l.runtime).Build()
}
