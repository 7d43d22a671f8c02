package submitter

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/u20024804/heron/spi/scheduler"
)

type killCmd struct{}

func (c *killCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <topology-name>",
		Short: "kill a running topology",
	}
}

func (c *killCmd) run(cl *simpleCLIClient, cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("kill needs exactly one topology name, got %v", args)
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

	if err := postToScheduler(loc.HTTPEndpoint, "/kill",
		scheduler.KillRequest{TopologyName: topologyName}); err != nil {
		return err
	}
	log.Infof("Killed topology %s", topologyName)
	return nil
}
