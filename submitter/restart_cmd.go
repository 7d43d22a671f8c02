package submitter

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/u20024804/heron/spi/scheduler"
)

type restartCmd struct {
	containerID int
}

func (c *restartCmd) registerFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "restart <topology-name>",
		Short: "restart a topology's containers",
	}
	r.Flags().IntVar(&c.containerID, "container", scheduler.AllContainers,
		"container to restart (default: all containers)")
	return r
}

func (c *restartCmd) run(cl *simpleCLIClient, cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("restart needs exactly one topology name, got %v", args)
	}
	topologyName := args[0]

	cfg, err := cl.loadConfig()
	if err != nil {
		return err
	}
	sm, err := cl.stateManager(cfg)
	if err != nil {
		return err
	}
	defer sm.Close()

	loc, err := sm.GetSchedulerLocation(topologyName)
	if err != nil {
		return fmt.Errorf("no scheduler found for %s: %v", topologyName, err)
	}

	if err := postToScheduler(loc.HTTPEndpoint, "/restart",
		scheduler.RestartRequest{TopologyName: topologyName, ContainerID: c.containerID}); err != nil {
		return err
	}
	log.Infof("Restarted topology %s (container %d)", topologyName, c.containerID)
	return nil
}
