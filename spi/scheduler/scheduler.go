// Package scheduler defines the lifecycle contracts between the submission
// client, the launcher, and the scheduler process it spawns. Launchers and
// schedulers are pluggable; the local implementations live under
// scheduler/local.
package scheduler

import (
	"github.com/u20024804/heron/config"
	"github.com/u20024804/heron/spi/packing"
)

// Launcher drives a topology from submitted package to running scheduler
// process. Lifecycle: Initialize, PrepareLaunch, Launch, PostLaunch, Close.
type Launcher interface {
	// Initialize binds static config and per-launch runtime config.
	Initialize(cfg, runtime *config.Config) error

	// PrepareLaunch runs readiness checks before any resources are touched,
	// such as whether the topology is already running.
	PrepareLaunch(plan *packing.PackingPlan) error

	// Launch stages the topology's packages and starts the scheduler.
	Launch(plan *packing.PackingPlan) error

	// PostLaunch runs completion hooks after a successful Launch.
	PostLaunch(plan *packing.PackingPlan) error

	Close() error
}

// AllContainers addresses every container of a topology in kill/restart
// requests.
const AllContainers = -1

type KillRequest struct {
	TopologyName string `json:"topologyName"`
}

type RestartRequest struct {
	TopologyName string `json:"topologyName"`
	ContainerID  int    `json:"containerId"`
}

// Scheduler supervises a running topology's containers. It runs inside the
// process the Launcher spawned.
type Scheduler interface {
	Initialize(cfg, runtime *config.Config) error

	// OnSchedule brings up the containers of a freshly launched topology.
	OnSchedule(plan *packing.PackingPlan) error

	// OnKill tears the topology down and removes its state.
	OnKill(req KillRequest) error

	// OnRestart restarts one container, or all if req.ContainerID is
	// AllContainers.
	OnRestart(req RestartRequest) error

	Close() error
}
