package dispatch

import (
	"sync"
	"sync/atomic"
)

// Registry is the rendezvous map between submitters/subscribers and
// executing worker sessions: task id to live progress cell. Entries are
// inserted on enqueue and removed once the task reaches a terminal state.
type Registry struct {
	m   sync.Map
	len atomic.Int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Insert registers a progress cell for a task, replacing any previous one.
func (r *Registry) Insert(taskID string, progress *Progress) {
	if _, loaded := r.m.Swap(taskID, progress); !loaded {
		r.len.Add(1)
	}
}

// Lookup returns the live progress cell for a task.
func (r *Registry) Lookup(taskID string) (*Progress, bool) {
	v, ok := r.m.Load(taskID)
	if !ok {
		return nil, false
	}
	return v.(*Progress), true
}

// Remove drops a task's entry.
func (r *Registry) Remove(taskID string) {
	if _, loaded := r.m.LoadAndDelete(taskID); loaded {
		r.len.Add(-1)
	}
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	return int(r.len.Load())
}
