package config

// Well-known configuration keys. The flat dotted naming mirrors the cluster
// yaml files these are loaded from.
const (
	// Identity of the deployment.
	KeyCluster = "heron.config.cluster"
	KeyRole    = "heron.config.role"
	KeyEnviron = "heron.config.environ"

	// Topology being launched.
	KeyTopologyName       = "heron.topology.name"
	KeyTopologyPackageURI = "heron.topology.package.uri"

	// Platform core release package.
	KeyCorePackageURI = "heron.core.package.uri"

	// Where the launcher assembles the topology's runtime files.
	KeyWorkingDirectory = "heron.scheduler.local.working.directory"

	// Root path for the localfs state manager.
	KeyStateManagerRoot = "heron.statemgr.root.path"

	// Binaries the launcher and scheduler spawn.
	KeySchedulerBinary = "heron.scheduler.binary"
	KeyExecutorBinary  = "heron.executor.binary"

	// Port the spawned scheduler serves http on.
	KeySchedulerHTTPPort = "heron.scheduler.http.port"

	// Opaque overrides passed through to executors, base64 encoded.
	KeyExecutorOverrides = "heron.executor.overrides"
)
