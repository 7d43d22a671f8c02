// Package execer lets you run one Unix command. It's at the level of
// os/exec, not exec-as-a-service: the launcher and scheduler use it to spawn
// and supervise the processes they own (the scheduler binary, executors).
package execer

import "io"

type Command struct {
	Argv    []string
	Dir     string
	EnvVars map[string]string
	Stdout  io.Writer
	Stderr  io.Writer
}

type ProcessState int

const (
	UNKNOWN ProcessState = iota
	RUNNING
	COMPLETE
	FAILED
)

func (s ProcessState) IsDone() bool {
	return s == COMPLETE || s == FAILED
}

func (s ProcessState) String() string {
	switch s {
	case RUNNING:
		return "RUNNING"
	case COMPLETE:
		return "COMPLETE"
	case FAILED:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

type Execer interface {
	Exec(command Command) (Process, error)
}

type Process interface {
	// Wait blocks until the process is done.
	Wait() ProcessStatus
	// Abort kills the process and its process group.
	Abort() ProcessStatus
	// Pid of the started process.
	Pid() int
}

type ProcessStatus struct {
	State    ProcessState
	ExitCode int
	Error    string
}
