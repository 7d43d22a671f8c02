package local

import (
	"strings"
	"testing"
	"time"

	"github.com/u20024804/heron/common/stats"
	"github.com/u20024804/heron/config"
	"github.com/u20024804/heron/runner/execer/execers"
	"github.com/u20024804/heron/spi/packing"
	"github.com/u20024804/heron/spi/scheduler"
	"github.com/u20024804/heron/spi/statemgr"
	"github.com/u20024804/heron/statemgr/localfs"
)

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func twoPlan(name string) *packing.PackingPlan {
	return &packing.PackingPlan{
		TopologyName: name,
		Containers: map[int]packing.ContainerPlan{
			1: {ID: 1, Required: packing.Resource{CPU: 1, RAMMB: 256, DiskMB: 256}},
			2: {ID: 2, Required: packing.Resource{CPU: 1, RAMMB: 256, DiskMB: 256}},
		},
	}
}

func newSchedulerFixture(t *testing.T) (*Scheduler, *execers.FakeExecer, statemgr.StateManager) {
	exec := execers.NewFakeExecer()
	sm, err := localfs.NewStateManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := NewScheduler(exec, sm, stats.NilStatsReceiver())

	cfg := config.NewBuilder().
		Put(config.KeyExecutorBinary, "heron-executor").
		Put(config.KeyWorkingDirectory, t.TempDir()).
		Build()
	runtime := config.NewBuilder().Put(config.KeyTopologyName, "wc").Build()
	if err := s.Initialize(cfg, runtime); err != nil {
		t.Fatal(err)
	}
	return s, exec, sm
}

func scheduleTwo(t *testing.T, s *Scheduler, sm statemgr.StateManager) {
	t.Helper()
	plan := twoPlan("wc")
	if err := sm.SetPackingPlan(plan); err != nil {
		t.Fatal(err)
	}
	if err := sm.SetExecutionState(&statemgr.ExecutionState{TopologyName: "wc"}); err != nil {
		t.Fatal(err)
	}
	if err := sm.SetSchedulerLocation(&statemgr.SchedulerLocation{TopologyName: "wc", HTTPEndpoint: "localhost:1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.OnSchedule(plan); err != nil {
		t.Fatal(err)
	}
}

func TestOnScheduleStartsEveryContainer(t *testing.T) {
	s, exec, sm := newSchedulerFixture(t)
	scheduleTwo(t, s, sm)

	cmds := exec.Commands()
	if len(cmds) != 2 {
		t.Fatalf("expected 2 executors, got %d", len(cmds))
	}
	// Containers are started in ascending id order.
	for i, want := range []string{"--shard 1", "--shard 2"} {
		argv := strings.Join(cmds[i].Argv, " ")
		if cmds[i].Argv[0] != "heron-executor" || !strings.Contains(argv, want) {
			t.Fatalf("executor %d argv unexpected: %v", i, cmds[i].Argv)
		}
		if !strings.Contains(argv, "--topology_name wc") {
			t.Fatalf("executor %d argv missing topology name: %v", i, cmds[i].Argv)
		}
	}
}

func TestExecutorGetsEncodedOverrides(t *testing.T) {
	exec := execers.NewFakeExecer()
	s := NewScheduler(exec, nil, stats.NilStatsReceiver())

	cfg := config.NewBuilder().
		Put(config.KeyExecutorBinary, "heron-executor").
		Put(config.KeyWorkingDirectory, t.TempDir()).
		Put(config.KeyExecutorOverrides, "-Dkey=value").
		Build()
	runtime := config.NewBuilder().Put(config.KeyTopologyName, "wc").Build()
	if err := s.Initialize(cfg, runtime); err != nil {
		t.Fatal(err)
	}
	if err := s.OnSchedule(twoPlan("wc")); err != nil {
		t.Fatal(err)
	}

	want := "--override_args " + config.EncodeOverrides("-Dkey=value")
	for i, cmd := range exec.Commands() {
		argv := strings.Join(cmd.Argv, " ")
		if !strings.Contains(argv, want) {
			t.Fatalf("executor %d argv missing %q: %v", i, want, cmd.Argv)
		}
	}
}

func TestOnScheduleRejectsWrongPlan(t *testing.T) {
	s, _, _ := newSchedulerFixture(t)
	if err := s.OnSchedule(twoPlan("other")); err == nil {
		t.Fatal("expected plan for another topology to be rejected")
	}
	if err := s.OnSchedule(&packing.PackingPlan{TopologyName: "wc"}); err == nil {
		t.Fatal("expected empty plan to be rejected")
	}
}

func TestDeadExecutorIsRestarted(t *testing.T) {
	s, exec, sm := newSchedulerFixture(t)
	scheduleTwo(t, s, sm)

	// Container 1's executor dies on its own.
	p, err := exec.Proc(0)
	if err != nil {
		t.Fatal(err)
	}
	p.Complete(1)

	waitUntil(t, "restarted executor", func() bool { return len(exec.Commands()) == 3 })
	argv := strings.Join(exec.Commands()[2].Argv, " ")
	if !strings.Contains(argv, "--shard 1") {
		t.Fatalf("restart should be for container 1: %v", exec.Commands()[2].Argv)
	}
	if s.LiveContainers() != 2 {
		t.Fatalf("expected 2 live containers, got %d", s.LiveContainers())
	}
}

func TestOnKill(t *testing.T) {
	s, exec, sm := newSchedulerFixture(t)
	scheduleTwo(t, s, sm)

	if err := s.OnKill(scheduler.KillRequest{TopologyName: "wc"}); err != nil {
		t.Fatal(err)
	}

	// Both processes aborted, none restarted.
	for i := 0; i < 2; i++ {
		p, err := exec.Proc(i)
		if err != nil {
			t.Fatal(err)
		}
		if !p.Aborted() {
			t.Fatalf("process %d not aborted by kill", i)
		}
	}
	if len(exec.Commands()) != 2 {
		t.Fatalf("killed containers must not restart, got %d commands", len(exec.Commands()))
	}

	// State records are gone.
	if _, err := sm.GetPackingPlan("wc"); err == nil {
		t.Fatal("packing plan should be deleted")
	}
	if _, err := sm.GetExecutionState("wc"); err == nil {
		t.Fatal("execution state should be deleted")
	}
	if _, err := sm.GetSchedulerLocation("wc"); err == nil {
		t.Fatal("scheduler location should be deleted")
	}
}

func TestOnKillWrongTopology(t *testing.T) {
	s, _, sm := newSchedulerFixture(t)
	scheduleTwo(t, s, sm)
	if err := s.OnKill(scheduler.KillRequest{TopologyName: "not-wc"}); err == nil {
		t.Fatal("expected kill for another topology to be rejected")
	}
}

func TestOnRestartSingleContainer(t *testing.T) {
	s, exec, sm := newSchedulerFixture(t)
	scheduleTwo(t, s, sm)

	if err := s.OnRestart(scheduler.RestartRequest{TopologyName: "wc", ContainerID: 2}); err != nil {
		t.Fatal(err)
	}
	waitUntil(t, "container 2 restart", func() bool { return len(exec.Commands()) == 3 })
	argv := strings.Join(exec.Commands()[2].Argv, " ")
	if !strings.Contains(argv, "--shard 2") {
		t.Fatalf("restart should be for container 2: %v", exec.Commands()[2].Argv)
	}
}

func TestOnRestartAllContainers(t *testing.T) {
	s, exec, sm := newSchedulerFixture(t)
	scheduleTwo(t, s, sm)

	if err := s.OnRestart(scheduler.RestartRequest{
		TopologyName: "wc",
		ContainerID:  scheduler.AllContainers,
	}); err != nil {
		t.Fatal(err)
	}
	waitUntil(t, "all containers restart", func() bool { return len(exec.Commands()) == 4 })
}

func TestOnRestartUnknownContainer(t *testing.T) {
	s, _, sm := newSchedulerFixture(t)
	scheduleTwo(t, s, sm)
	if err := s.OnRestart(scheduler.RestartRequest{TopologyName: "wc", ContainerID: 7}); err == nil {
		t.Fatal("expected unknown container to be rejected")
	}
}

func TestCloseKeepsState(t *testing.T) {
	s, exec, sm := newSchedulerFixture(t)
	scheduleTwo(t, s, sm)

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	p, err := exec.Proc(0)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Aborted() {
		t.Fatal("close should abort executors")
	}
	if _, err := sm.GetPackingPlan("wc"); err != nil {
		t.Fatal("close must keep the packing plan for a scheduler restart")
	}
}
