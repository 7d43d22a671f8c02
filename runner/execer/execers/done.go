package execers

import (
	"github.com/u20024804/heron/runner/execer"
)

// NewDoneExecer creates an execer whose processes finish as soon as they run.
func NewDoneExecer() execer.Execer {
	return &doneExecer{}
}

type doneExecer struct{}

func (e *doneExecer) Exec(command execer.Command) (execer.Process, error) {
	return e, nil
}

var completeStatus = execer.ProcessStatus{
	State:    execer.COMPLETE,
	ExitCode: 0,
}

func (e *doneExecer) Wait() execer.ProcessStatus {
	return completeStatus
}

func (e *doneExecer) Abort() execer.ProcessStatus {
	return completeStatus
}

func (e *doneExecer) Pid() int {
	return 0
}
