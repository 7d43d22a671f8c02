// Package localfs is the single-node StateManager: each record is a JSON
// file under a fixed directory layout,
//
//	<root>/executionstate/<topology>
//	<root>/packingplans/<topology>
//	<root>/schedulers/<topology>
//
// Writes are exclusive-create so a double submission fails loudly instead of
// clobbering a running topology's records.
package localfs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/u20024804/heron/spi/packing"
	"github.com/u20024804/heron/spi/statemgr"
)

const (
	executionStateDir    = "executionstate"
	packingPlansDir      = "packingplans"
	schedulerLocationDir = "schedulers"
)

type StateManager struct {
	root string
	mu   sync.Mutex
}

var _ statemgr.StateManager = (*StateManager)(nil)

// NewStateManager creates the record directories under root.
func NewStateManager(root string) (*StateManager, error) {
	for _, sub := range []string{executionStateDir, packingPlansDir, schedulerLocationDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0755); err != nil {
			return nil, errors.Wrapf(err, "creating state dir %s", sub)
		}
	}
	log.Infof("Localfs state manager rooted at %s", root)
	return &StateManager{root: root}, nil
}

func (s *StateManager) SetExecutionState(es *statemgr.ExecutionState) error {
	return s.set(executionStateDir, es.TopologyName, es)
}

func (s *StateManager) GetExecutionState(topologyName string) (*statemgr.ExecutionState, error) {
	es := &statemgr.ExecutionState{}
	if err := s.get(executionStateDir, topologyName, es); err != nil {
		return nil, err
	}
	return es, nil
}

func (s *StateManager) DeleteExecutionState(topologyName string) error {
	return s.delete(executionStateDir, topologyName)
}

func (s *StateManager) SetPackingPlan(plan *packing.PackingPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	return s.set(packingPlansDir, plan.TopologyName, plan)
}

func (s *StateManager) GetPackingPlan(topologyName string) (*packing.PackingPlan, error) {
	plan := &packing.PackingPlan{}
	if err := s.get(packingPlansDir, topologyName, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *StateManager) DeletePackingPlan(topologyName string) error {
	return s.delete(packingPlansDir, topologyName)
}

func (s *StateManager) SetSchedulerLocation(loc *statemgr.SchedulerLocation) error {
	return s.set(schedulerLocationDir, loc.TopologyName, loc)
}

func (s *StateManager) GetSchedulerLocation(topologyName string) (*statemgr.SchedulerLocation, error) {
	loc := &statemgr.SchedulerLocation{}
	if err := s.get(schedulerLocationDir, topologyName, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

func (s *StateManager) DeleteSchedulerLocation(topologyName string) error {
	return s.delete(schedulerLocationDir, topologyName)
}

func (s *StateManager) Close() error {
	return nil
}

func (s *StateManager) path(kind, topologyName string) string {
	return filepath.Join(s.root, kind, topologyName)
}

func (s *StateManager) set(kind, topologyName string, record interface{}) error {
	if topologyName == "" {
		return errors.Errorf("cannot store %s record without a topology name", kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshaling %s record for %s", kind, topologyName)
	}
	// O_EXCL: an existing record means the topology is already submitted.
	f, err := os.OpenFile(s.path(kind, topologyName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errors.Wrapf(err, "storing %s record for %s", kind, topologyName)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return errors.Wrapf(err, "writing %s record for %s", kind, topologyName)
	}
	return nil
}

func (s *StateManager) get(kind, topologyName string, record interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(kind, topologyName))
	if err != nil {
		return errors.Wrapf(err, "reading %s record for %s", kind, topologyName)
	}
	if err := json.Unmarshal(data, record); err != nil {
		return errors.Wrapf(err, "parsing %s record for %s", kind, topologyName)
	}
	return nil
}

func (s *StateManager) delete(kind, topologyName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(kind, topologyName)); err != nil {
		return errors.Wrapf(err, "deleting %s record for %s", kind, topologyName)
	}
	return nil
}
