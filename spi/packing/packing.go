// Package packing defines the resource-allocation plan the scheduler
// consumes: which instances run in which container, and what each container
// requires. Plans are produced elsewhere (by a packing algorithm) and travel
// through the state manager; this package only models and validates them.
package packing

import (
	"fmt"
	"sort"
)

// Resource is a container's resource envelope.
type Resource struct {
	CPU    float64 `json:"cpu"`
	RAMMB  int64   `json:"ramMB"`
	DiskMB int64   `json:"diskMB"`
}

// Add returns the component-wise sum of r and other.
func (r Resource) Add(other Resource) Resource {
	return Resource{
		CPU:    r.CPU + other.CPU,
		RAMMB:  r.RAMMB + other.RAMMB,
		DiskMB: r.DiskMB + other.DiskMB,
	}
}

// LessOrEqual reports whether r fits within other on every dimension.
func (r Resource) LessOrEqual(other Resource) bool {
	return r.CPU <= other.CPU && r.RAMMB <= other.RAMMB && r.DiskMB <= other.DiskMB
}

// InstancePlan places one instance of a topology component.
type InstancePlan struct {
	ComponentName  string   `json:"componentName"`
	TaskID         int      `json:"taskId"`
	ComponentIndex int      `json:"componentIndex"`
	Resource       Resource `json:"resource"`
}

// ContainerPlan groups the instances assigned to one container.
type ContainerPlan struct {
	ID        int            `json:"id"`
	Instances []InstancePlan `json:"instances"`
	Required  Resource       `json:"required"`
}

// PackingPlan assigns a topology's instances to containers, keyed by
// container id.
type PackingPlan struct {
	TopologyName string                `json:"topologyName"`
	Containers   map[int]ContainerPlan `json:"containers"`
}

// ContainerIDs returns the plan's container ids in ascending order.
func (p *PackingPlan) ContainerIDs() []int {
	ids := make([]int, 0, len(p.Containers))
	for id := range p.Containers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// TotalResources sums the required resources across all containers.
func (p *PackingPlan) TotalResources() Resource {
	var total Resource
	for _, c := range p.Containers {
		total = total.Add(c.Required)
	}
	return total
}

// Validate checks the structural invariants the scheduler relies on: the
// map key matches each container's id, and ids are non-negative.
func (p *PackingPlan) Validate() error {
	if p.TopologyName == "" {
		return fmt.Errorf("packing plan has no topology name")
	}
	if len(p.Containers) == 0 {
		return fmt.Errorf("packing plan for %s has no containers", p.TopologyName)
	}
	for id, c := range p.Containers {
		if id != c.ID {
			return fmt.Errorf("container key %d does not match container id %d", id, c.ID)
		}
		if id < 0 {
			return fmt.Errorf("container id %d is negative", id)
		}
	}
	return nil
}

// Equal reports whether two plans describe the same assignment.
func (p *PackingPlan) Equal(other *PackingPlan) bool {
	if p.TopologyName != other.TopologyName || len(p.Containers) != len(other.Containers) {
		return false
	}
	for id, c := range p.Containers {
		oc, ok := other.Containers[id]
		if !ok || c.ID != oc.ID || c.Required != oc.Required || len(c.Instances) != len(oc.Instances) {
			return false
		}
		for i := range c.Instances {
			if c.Instances[i] != oc.Instances[i] {
				return false
			}
		}
	}
	return true
}
