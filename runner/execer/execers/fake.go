// Package execers provides fake execers for tests: processes that finish
// immediately, or that the test drives to completion explicitly.
package execers

import (
	"fmt"
	"sync"

	"github.com/u20024804/heron/runner/execer"
)

// NewFakeExecer returns an execer that records every command and hands back
// processes the test completes (or aborts) explicitly.
func NewFakeExecer() *FakeExecer {
	return &FakeExecer{}
}

type FakeExecer struct {
	mu       sync.Mutex
	commands []execer.Command
	procs    []*FakeProcess

	// ExecErr, if set, fails every Exec call.
	ExecErr error
}

func (e *FakeExecer) Exec(command execer.Command) (execer.Process, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ExecErr != nil {
		return nil, e.ExecErr
	}
	p := &FakeProcess{pid: len(e.procs) + 1}
	p.done = sync.NewCond(&p.mu)
	p.status.State = execer.RUNNING
	e.commands = append(e.commands, command)
	e.procs = append(e.procs, p)
	return p, nil
}

// Commands returns a copy of every command exec'd so far.
func (e *FakeExecer) Commands() []execer.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]execer.Command{}, e.commands...)
}

// Proc returns the i'th started process, or an error if it doesn't exist yet.
func (e *FakeExecer) Proc(i int) (*FakeProcess, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.procs) {
		return nil, fmt.Errorf("no process %d (have %d)", i, len(e.procs))
	}
	return e.procs[i], nil
}

type FakeProcess struct {
	pid     int
	status  execer.ProcessStatus
	aborted bool
	done    *sync.Cond
	mu      sync.Mutex
}

func (p *FakeProcess) Pid() int { return p.pid }

func (p *FakeProcess) Wait() execer.ProcessStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.status.State.IsDone() {
		p.done.Wait()
	}
	return p.status
}

func (p *FakeProcess) Abort() execer.ProcessStatus {
	p.mu.Lock()
	p.aborted = true
	p.mu.Unlock()
	return p.complete(execer.ProcessStatus{State: execer.FAILED, ExitCode: -1, Error: "Aborted"})
}

// Complete finishes the process with the given exit code, as if it exited on
// its own.
func (p *FakeProcess) Complete(exitCode int) execer.ProcessStatus {
	return p.complete(execer.ProcessStatus{State: execer.COMPLETE, ExitCode: exitCode})
}

// Aborted reports whether Abort was called.
func (p *FakeProcess) Aborted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aborted
}

func (p *FakeProcess) complete(status execer.ProcessStatus) execer.ProcessStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.status.State.IsDone() {
		p.status = status
		p.done.Broadcast()
	}
	return p.status
}
