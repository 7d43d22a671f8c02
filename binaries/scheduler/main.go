// The scheduler binary runs one topology: it reads the packing plan from the
// state manager, brings up an executor per container, and serves kill and
// restart requests over http. The local launcher spawns it with these flags.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/u20024804/heron/common/log/hooks"
	"github.com/u20024804/heron/common/stats"
	"github.com/u20024804/heron/config"
	execos "github.com/u20024804/heron/runner/execer/os"
	"github.com/u20024804/heron/scheduler/local"
	"github.com/u20024804/heron/scheduler/server"
	"github.com/u20024804/heron/statemgr/localfs"
)

var cluster = flag.String("cluster", "local", "cluster this topology runs in")
var role = flag.String("role", "", "role that submitted the topology")
var environ = flag.String("environ", "default", "deploy environment")
var topologyName = flag.String("topology_name", "", "name of the topology to schedule")
var topologyPackage = flag.String("topology_package", "", "uri of the topology package")
var httpPort = flag.Int("http_port", 0, "port to serve scheduler http on")
var stateRoot = flag.String("state_root", "", "state manager root path")
var executorBin = flag.String("executor_bin", "", "executor binary to spawn per container")
var workingDir = flag.String("working_dir", "", "topology working directory")
var overrides = flag.String("overrides", "", "encoded executor overrides, as produced by the launcher")
var logLevel = flag.String("log_level", "info", "log everything at this level and above (error|info|debug)")

func main() {
	log.AddHook(hooks.NewContextHook())
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Error(err)
		os.Exit(2)
	}
	log.SetLevel(level)

	if *topologyName == "" {
		log.Fatal("a topology_name is required")
	}
	log.Infof("Starting scheduler for topology %s", *topologyName)

	cfgBuilder := config.NewBuilder().
		Put(config.KeyCluster, *cluster).
		Put(config.KeyRole, *role).
		Put(config.KeyEnviron, *environ).
		Put(config.KeyStateManagerRoot, *stateRoot).
		Put(config.KeyExecutorBinary, *executorBin).
		Put(config.KeyWorkingDirectory, *workingDir)
	if *overrides != "" {
		decoded, err := config.DecodeOverrides(*overrides)
		if err != nil {
			log.Fatal("Error decoding executor overrides: ", err)
		}
		cfgBuilder.Put(config.KeyExecutorOverrides, decoded)
	}
	cfg := cfgBuilder.Build()
	runtime := config.NewBuilder().
		Put(config.KeyTopologyName, *topologyName).
		Put(config.KeyTopologyPackageURI, *topologyPackage).
		Build()

	stat := stats.DefaultStatsReceiver().Scope("heron")
	stats.CurrentStatsReceiver = stat

	sm, err := localfs.NewStateManager(local.StateManagerRoot(cfg))
	if err != nil {
		log.Fatal("Error creating state manager: ", err)
	}
	defer sm.Close()

	plan, err := sm.GetPackingPlan(*topologyName)
	if err != nil {
		log.Fatal("Error reading packing plan: ", err)
	}

	sched := local.NewScheduler(execos.NewExecer(), sm, stat)
	if err := sched.Initialize(cfg, runtime); err != nil {
		log.Fatal("Error initializing scheduler: ", err)
	}
	if err := sched.OnSchedule(plan); err != nil {
		log.Fatal("Error scheduling topology: ", err)
	}

	addr := fmt.Sprintf("localhost:%d", *httpPort)
	srv := server.NewServer(addr, *topologyName, sched, stat)
	srv.OnKilled = func() {
		// Give the kill response time to flush before the process goes away.
		time.Sleep(100 * time.Millisecond)
		log.Infof("Topology %s killed, scheduler exiting", *topologyName)
		os.Exit(0)
	}

	// A previous scheduler for this topology may have left its location
	// behind; replace it.
	sm.DeleteSchedulerLocation(*topologyName)
	if err := srv.RegisterLocation(sm); err != nil {
		log.Fatal("Error registering scheduler location: ", err)
	}

	log.Fatal(srv.Serve())
}
