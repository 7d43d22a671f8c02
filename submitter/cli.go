// Package submitter is the command-line client that submits, kills, and
// restarts topologies. Submission stores the topology's records in the state
// manager and drives the launcher lifecycle; kill and restart talk to the
// scheduler's http endpoint recorded there.
package submitter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/u20024804/heron/config"
	"github.com/u20024804/heron/packages"
	"github.com/u20024804/heron/scheduler/local"
	"github.com/u20024804/heron/statemgr/localfs"
)

// CLIClient handles the submitter's command line.
type CLIClient interface {
	Exec() error
}

// Implements CLIClient - basic
type simpleCLIClient struct {
	rootCmd *cobra.Command

	configPath string
	stateRoot  string
	cluster    string
	role       string
	environ    string
}

func (c *simpleCLIClient) Exec() error {
	return c.rootCmd.Execute()
}

func NewSimpleCLIClient() (CLIClient, error) {
	c := &simpleCLIClient{}

	c.rootCmd = &cobra.Command{
		Use:   "heron-submitter",
		Short: "heron-submitter is a command-line client to manage local topologies",
		Run:   func(*cobra.Command, []string) {},
	}
	c.rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "cluster yaml config file")
	c.rootCmd.PersistentFlags().StringVar(&c.stateRoot, "state_root", "", "state manager root path")
	c.rootCmd.PersistentFlags().StringVar(&c.cluster, "cluster", "", "cluster name")
	c.rootCmd.PersistentFlags().StringVar(&c.role, "role", "", "role submitting the topology")
	c.rootCmd.PersistentFlags().StringVar(&c.environ, "environ", "", "deploy environment")

	c.addCmd(&submitCmd{})
	c.addCmd(&killCmd{})
	c.addCmd(&restartCmd{})

	return c, nil
}

func (c *simpleCLIClient) addCmd(cmd command) {
	cobraCmd := cmd.registerFlags()
	cobraCmd.RunE = func(innerCmd *cobra.Command, args []string) error {
		return cmd.run(c, innerCmd, args)
	}
	c.rootCmd.AddCommand(cobraCmd)
}

type command interface {
	registerFlags() *cobra.Command
	run(cl *simpleCLIClient, cmd *cobra.Command, args []string) error
}

// loadConfig layers the yaml config file (if given) under the command-line
// overrides.
func (c *simpleCLIClient) loadConfig() (*config.Config, error) {
	b := config.NewBuilder()
	if c.configPath != "" {
		fileCfg, err := config.LoadYAMLFile(c.configPath)
		if err != nil {
			return nil, err
		}
		b.PutAll(fileCfg)
	}
	if c.cluster != "" {
		b.Put(config.KeyCluster, c.cluster)
	}
	if c.role != "" {
		b.Put(config.KeyRole, c.role)
	}
	if c.environ != "" {
		b.Put(config.KeyEnviron, c.environ)
	}
	if c.stateRoot != "" {
		b.Put(config.KeyStateManagerRoot, c.stateRoot)
	}
	return b.Build(), nil
}

func (c *simpleCLIClient) stateManager(cfg *config.Config) (*localfs.StateManager, error) {
	return localfs.NewStateManager(local.StateManagerRoot(cfg))
}

// postToScheduler sends a JSON request to the topology's scheduler endpoint
// with retries.
func postToScheduler(endpoint, path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("http://%s%s", endpoint, path)
	client := packages.MakePesterClient()
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("posting to scheduler at %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scheduler at %s returned %s", url, resp.Status)
	}
	return nil
}
