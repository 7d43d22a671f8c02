package local

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/u20024804/heron/common/stats"
	"github.com/u20024804/heron/config"
	"github.com/u20024804/heron/runner/execer"
	"github.com/u20024804/heron/spi/packing"
	"github.com/u20024804/heron/spi/scheduler"
	"github.com/u20024804/heron/spi/statemgr"
)

// Scheduler supervises a running topology: one executor process per
// container in the packing plan. Executors that exit on their own are
// restarted; executors aborted by a kill stay down.
type Scheduler struct {
	cfg     *config.Config
	runtime *config.Config

	exec     execer.Execer
	stateMgr statemgr.StateManager
	stat     stats.StatsReceiver

	topologyName   string
	executorBinary string
	workingDir     string
	overrides      string

	mu         sync.Mutex
	killed     bool
	generation map[int]int            // containerID -> restart generation
	processes  map[int]execer.Process // containerID -> live process
	plan       *packing.PackingPlan
	wg         sync.WaitGroup
}

var _ scheduler.Scheduler = (*Scheduler)(nil)

func NewScheduler(exec execer.Execer, stateMgr statemgr.StateManager, stat stats.StatsReceiver) *Scheduler {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &Scheduler{
		exec:       exec,
		stateMgr:   stateMgr,
		stat:       stat.Scope("scheduler"),
		generation: make(map[int]int),
		processes:  make(map[int]execer.Process),
	}
}

func (s *Scheduler) Initialize(cfg, runtime *config.Config) error {
	s.cfg = cfg
	s.runtime = runtime
	merged := config.NewBuilder().PutAll(cfg).PutAll(runtime).Build()
	s.topologyName = TopologyName(merged)
	if s.topologyName == "" {
		return fmt.Errorf("no topology name configured (%s)", config.KeyTopologyName)
	}
	s.executorBinary = ExecutorBinary(merged)
	s.workingDir = WorkingDirectory(merged)
	s.overrides = merged.StringOrDefault(config.KeyExecutorOverrides, "")
	return nil
}

// OnSchedule brings up every container of the plan.
func (s *Scheduler) OnSchedule(plan *packing.PackingPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if plan.TopologyName != s.topologyName {
		return fmt.Errorf("packing plan is for %q, scheduler is for %q", plan.TopologyName, s.topologyName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.killed {
		return fmt.Errorf("scheduler for %s is already killed", s.topologyName)
	}
	s.plan = plan

	log.Infof("Starting %d containers for topology %s", len(plan.Containers), s.topologyName)
	for _, id := range plan.ContainerIDs() {
		if err := s.startContainerLocked(id); err != nil {
			return err
		}
	}
	return nil
}

// OnKill aborts every container and deletes the topology's state records.
func (s *Scheduler) OnKill(req scheduler.KillRequest) error {
	if req.TopologyName != s.topologyName {
		return fmt.Errorf("kill request for %q, scheduler is for %q", req.TopologyName, s.topologyName)
	}
	log.Infof("Killing topology %s", s.topologyName)

	s.abortAll()
	s.wg.Wait()

	if s.stateMgr != nil {
		var firstErr error
		for _, del := range []func(string) error{
			s.stateMgr.DeleteSchedulerLocation,
			s.stateMgr.DeletePackingPlan,
			s.stateMgr.DeleteExecutionState,
		} {
			if err := del(s.topologyName); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if firstErr != nil {
			return errors.Wrap(firstErr, "removing topology state")
		}
	}
	s.stat.Counter("kills").Inc(1)
	return nil
}

// OnRestart aborts the requested container (or all of them); the monitors
// bring replacements up.
func (s *Scheduler) OnRestart(req scheduler.RestartRequest) error {
	if req.TopologyName != s.topologyName {
		return fmt.Errorf("restart request for %q, scheduler is for %q", req.TopologyName, s.topologyName)
	}

	s.mu.Lock()
	if s.killed {
		s.mu.Unlock()
		return fmt.Errorf("topology %s is killed", s.topologyName)
	}

	var procs []execer.Process
	if req.ContainerID == scheduler.AllContainers {
		for _, p := range s.processes {
			procs = append(procs, p)
		}
	} else {
		p, ok := s.processes[req.ContainerID]
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("no container %d in topology %s", req.ContainerID, s.topologyName)
		}
		procs = append(procs, p)
	}
	s.mu.Unlock()

	log.Infof("Restarting container %d of topology %s", req.ContainerID, s.topologyName)
	for _, p := range procs {
		p.Abort()
	}
	s.stat.Counter("restartRequests").Inc(1)
	return nil
}

// Close aborts the containers without touching the topology's state, so a
// scheduler restart can pick it back up.
func (s *Scheduler) Close() error {
	s.abortAll()
	s.wg.Wait()
	return nil
}

// LiveContainers reports how many containers currently have a process.
func (s *Scheduler) LiveContainers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processes)
}

func (s *Scheduler) abortAll() {
	s.mu.Lock()
	s.killed = true
	procs := make([]execer.Process, 0, len(s.processes))
	for _, p := range s.processes {
		procs = append(procs, p)
	}
	s.mu.Unlock()

	for _, p := range procs {
		p.Abort()
	}
}

// startContainerLocked starts the executor for container id and a monitor
// that restarts it if it exits while the topology is alive. Caller holds
// s.mu.
func (s *Scheduler) startContainerLocked(id int) error {
	argv := []string{
		s.executorBinary,
		"--topology_name", s.topologyName,
		"--shard", strconv.Itoa(id),
	}
	if s.overrides != "" {
		argv = append(argv, "--override_args", config.EncodeOverrides(s.overrides))
	}
	proc, err := s.exec.Exec(execer.Command{Argv: argv, Dir: s.workingDir})
	if err != nil {
		return errors.Wrapf(err, "starting executor for container %d", id)
	}
	s.processes[id] = proc
	s.generation[id]++
	gen := s.generation[id]
	s.stat.Gauge("containers").Update(int64(len(s.processes)))

	s.wg.Add(1)
	go s.monitor(id, gen, proc)
	return nil
}

// monitor waits on a container's process. If it exits while the topology is
// still alive the container is restarted; a newer generation means someone
// already replaced it.
func (s *Scheduler) monitor(id, gen int, proc execer.Process) {
	defer s.wg.Done()
	status := proc.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.killed || s.generation[id] != gen {
		return
	}
	delete(s.processes, id)
	s.stat.Gauge("containers").Update(int64(len(s.processes)))

	log.WithFields(log.Fields{
		"topology":  s.topologyName,
		"container": id,
		"status":    status.State.String(),
		"exitCode":  status.ExitCode,
	}).Warn("Executor exited, restarting container")
	s.stat.Counter("restarts").Inc(1)

	if err := s.startContainerLocked(id); err != nil {
		log.WithFields(log.Fields{
			"topology":  s.topologyName,
			"container": id,
			"error":     err,
		}).Error("Failed to restart container")
	}
}
