package submitter

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	uuid "github.com/nu7hatch/gouuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/u20024804/heron/common/stats"
	"github.com/u20024804/heron/config"
	"github.com/u20024804/heron/scheduler/local"
	"github.com/u20024804/heron/spi/packing"
	"github.com/u20024804/heron/spi/statemgr"
)

type submitCmd struct {
	topologyPackage string
	corePackage     string
	packingPlanPath string
	workingDir      string
}

func (c *submitCmd) registerFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "submit <topology-name>",
		Short: "submit a topology: store its state and launch its scheduler",
	}
	r.Flags().StringVar(&c.topologyPackage, "topology_package", "", "uri of the topology package")
	r.Flags().StringVar(&c.corePackage, "core_package", "", "uri of the heron core release package")
	r.Flags().StringVar(&c.packingPlanPath, "packing_plan", "", "json file holding the topology's packing plan")
	r.Flags().StringVar(&c.workingDir, "working_dir", "", "topology working directory")
	return r
}

func (c *submitCmd) run(cl *simpleCLIClient, cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("submit needs exactly one topology name, got %v", args)
	}
	topologyName := args[0]
	if c.topologyPackage == "" || c.packingPlanPath == "" {
		return fmt.Errorf("submit needs --topology_package and --packing_plan")
	}

	cfg, err := cl.loadConfig()
	if err != nil {
		return err
	}
	cfgBuilder := config.NewBuilder().PutAll(cfg)
	if c.corePackage != "" {
		cfgBuilder.Put(config.KeyCorePackageURI, c.corePackage)
	}
	if c.workingDir != "" {
		cfgBuilder.Put(config.KeyWorkingDirectory, c.workingDir)
	}
	cfg = cfgBuilder.Build()

	runtime := config.NewBuilder().
		Put(config.KeyTopologyName, topologyName).
		Put(config.KeyTopologyPackageURI, c.topologyPackage).
		Build()

	plan, err := readPackingPlan(c.packingPlanPath, topologyName)
	if err != nil {
		return err
	}

	sm, err := cl.stateManager(cfg)
	if err != nil {
		return err
	}
	defer sm.Close()

	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	es := &statemgr.ExecutionState{
		TopologyName:   topologyName,
		TopologyID:     fmt.Sprintf("%s-%s", topologyName, id.String()),
		Cluster:        local.Cluster(cfg),
		Role:           local.Role(cfg),
		Environ:        local.Environ(cfg),
		SubmissionUser: os.Getenv("USER"),
		SubmissionTime: time.Now().UTC(),
	}
	if err := sm.SetExecutionState(es); err != nil {
		return err
	}
	if err := sm.SetPackingPlan(plan); err != nil {
		sm.DeleteExecutionState(topologyName)
		return err
	}

	launcher := local.NewLauncher(stats.CurrentStatsReceiver)
	if err := c.launch(launcher, cfg, runtime, plan); err != nil {
		// Roll the records back so a fixed submission can retry.
		sm.DeletePackingPlan(topologyName)
		sm.DeleteExecutionState(topologyName)
		return err
	}

	log.Infof("Submitted topology %s (%s)", topologyName, es.TopologyID)
	return nil
}

func (c *submitCmd) launch(launcher *local.Launcher, cfg, runtime *config.Config, plan *packing.PackingPlan) error {
	if err := launcher.Initialize(cfg, runtime); err != nil {
		return err
	}
	defer launcher.Close()
	if err := launcher.PrepareLaunch(plan); err != nil {
		return err
	}
	if err := launcher.Launch(plan); err != nil {
		return err
	}
	return launcher.PostLaunch(plan)
}

func readPackingPlan(path, topologyName string) (*packing.PackingPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading packing plan %s: %v", path, err)
	}
	plan := &packing.PackingPlan{}
	if err := json.Unmarshal(data, plan); err != nil {
		return nil, fmt.Errorf("parsing packing plan %s: %v", path, err)
	}
	if plan.TopologyName == "" {
		plan.TopologyName = topologyName
	}
	if plan.TopologyName != topologyName {
		return nil, fmt.Errorf("packing plan is for %q, submitting %q", plan.TopologyName, topologyName)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}
