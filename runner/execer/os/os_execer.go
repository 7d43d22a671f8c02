// Package os implements execer.Execer over os/exec. Each spawned command
// gets its own process group so Abort can take down the whole subtree.
package os

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/u20024804/heron/runner/execer"
)

func NewExecer() *osExecer {
	return &osExecer{}
}

type osExecer struct{}

// Exec starts command asynchronously and returns a Process wrapper for it.
func (e *osExecer) Exec(command execer.Command) (execer.Process, error) {
	if len(command.Argv) == 0 {
		return nil, fmt.Errorf("No command specified.")
	}

	cmd := exec.Command(command.Argv[0], command.Argv[1:]...)
	cmd.Dir = command.Dir

	// Use the parent environment plus whatever additional env vars are provided.
	cmd.Env = os.Environ()
	for k, v := range command.EnvVars {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	// Sets pgid of all child processes to cmd's pid.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var wg sync.WaitGroup
	if command.Stdout != nil {
		// Use pipes due to possible hang in process.Wait().
		// See: https://github.com/noxiouz/stout/commit/42cc533a0bece540f2424faff2a960876b21ffd2
		stdOutPipe, err := cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			io.Copy(command.Stdout, stdOutPipe)
		}()
	}
	if command.Stderr != nil {
		stdErrPipe, err := cmd.StderrPipe()
		if err != nil {
			return nil, err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			io.Copy(command.Stderr, stdErrPipe)
		}()
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"pid":  cmd.Process.Pid,
		"argv": command.Argv,
		"dir":  command.Dir,
	}).Info("Started process")

	return &process{cmd: cmd, wg: &wg}, nil
}
