package os

import (
	"os/exec"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/u20024804/heron/runner/execer"
)

// How long Abort waits after SIGTERM before escalating to SIGKILL.
var AbortGracePeriod = 3 * time.Second

// Implements execer.Process.
type process struct {
	cmd    *exec.Cmd
	wg     *sync.WaitGroup
	result *execer.ProcessStatus
	mutex  sync.Mutex
}

func (p *process) Pid() int {
	return p.cmd.Process.Pid
}

// Wait for the process to finish.
// If the command finishes without error return COMPLETE and exit code 0.
// If the command fails with a recoverable exit code, return COMPLETE with
// that exit code. Otherwise return FAILED and the error that prevented
// getting an exit code. An Abort that raced Wait wins: its status is
// returned.
func (p *process) Wait() execer.ProcessStatus {
	// Wait for the output goroutines to finish, then wait on the process
	// itself to release resources.
	p.wg.Wait()
	pid := p.cmd.Process.Pid

	err := p.cmd.Wait()
	log.WithFields(log.Fields{"pid": pid}).Info("Finished waiting for process")

	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.result != nil {
		return *p.result
	}

	var result execer.ProcessStatus
	if err == nil {
		result.State = execer.COMPLETE
		result.ExitCode = 0
	} else if exitErr, ok := err.(*exec.ExitError); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			result.State = execer.COMPLETE
			result.ExitCode = status.ExitStatus()
		} else {
			result.State = execer.FAILED
			result.Error = "Could not find WaitStatus from exiterr.Sys()"
		}
	} else {
		result.State = execer.FAILED
		result.Error = err.Error()
	}
	p.result = &result
	return result
}

// Abort SIGTERMs the process group, allowing for graceful exit, and SIGKILLs
// it if the process is still around after the grace period.
func (p *process) Abort() execer.ProcessStatus {
	p.mutex.Lock()
	if p.result != nil {
		defer p.mutex.Unlock()
		return *p.result
	}
	result := execer.ProcessStatus{State: execer.FAILED, ExitCode: -1, Error: "Aborted"}
	p.result = &result
	p.mutex.Unlock()

	pid := p.cmd.Process.Pid
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		log.WithFields(log.Fields{"pid": pid, "error": err}).Error("Error finding pgid")
		pgid = pid
	}

	log.WithFields(log.Fields{"pid": pid, "pgid": pgid}).Info("Aborting process via SIGTERM")
	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		log.WithFields(log.Fields{"pgid": pgid, "error": err}).Error("Error aborting via SIGTERM")
	}

	// cmd.Wait is owned by whoever called Wait(); poll its ProcessState
	// instead of calling Wait a second time.
	deadline := time.Now().Add(AbortGracePeriod)
	for time.Now().Before(deadline) {
		if p.cmd.ProcessState != nil {
			return result
		}
		time.Sleep(10 * time.Millisecond)
	}

	log.WithFields(log.Fields{"pid": pid, "pgid": pgid}).Info("SIGKILL: process group")
	if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil {
		log.WithFields(log.Fields{"pgid": pgid, "error": err}).Error("Error cleaning up pgid")
	}
	return result
}
