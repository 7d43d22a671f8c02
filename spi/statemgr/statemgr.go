// Package statemgr defines the coordination store the launcher and scheduler
// share: execution state recorded at submission, the packing plan the
// scheduler consumes, and the scheduler's http location for clients.
package statemgr

import (
	"time"

	"github.com/u20024804/heron/spi/packing"
)

// ExecutionState is written once at submission and describes who launched
// what, where.
type ExecutionState struct {
	TopologyName   string    `json:"topologyName"`
	TopologyID     string    `json:"topologyId"`
	Cluster        string    `json:"cluster"`
	Role           string    `json:"role"`
	Environ        string    `json:"environ"`
	SubmissionUser string    `json:"submissionUser"`
	SubmissionTime time.Time `json:"submissionTime"`
}

// SchedulerLocation tells clients where a topology's scheduler serves http.
type SchedulerLocation struct {
	TopologyName string `json:"topologyName"`
	HTTPEndpoint string `json:"httpEndpoint"`
}

// StateManager stores per-topology records. Set fails if the record already
// exists; Delete and Get fail if it doesn't. Implementations must be safe
// for concurrent use.
type StateManager interface {
	SetExecutionState(es *ExecutionState) error
	GetExecutionState(topologyName string) (*ExecutionState, error)
	DeleteExecutionState(topologyName string) error

	SetPackingPlan(plan *packing.PackingPlan) error
	GetPackingPlan(topologyName string) (*packing.PackingPlan, error)
	DeletePackingPlan(topologyName string) error

	SetSchedulerLocation(loc *SchedulerLocation) error
	GetSchedulerLocation(topologyName string) (*SchedulerLocation, error)
	DeleteSchedulerLocation(topologyName string) error

	Close() error
}
