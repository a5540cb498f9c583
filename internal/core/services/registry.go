package services

import (
	"sync/atomic"

	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
)

// IndexRegistry publishes per-document index snapshots.
//
// The registry holds an atomic reference to an immutable map; readers
// load one consistent view and never observe a partially built index.
// Publishing copies the map, swaps the pointer, and leaves concurrent
// queries serving whichever view they already loaded.
type IndexRegistry struct {
	snapshots atomic.Pointer[map[string]driven.IndexSnapshot]
}

// NewIndexRegistry creates an empty registry.
func NewIndexRegistry() *IndexRegistry {
	r := &IndexRegistry{}
	empty := make(map[string]driven.IndexSnapshot)
	r.snapshots.Store(&empty)
	return r
}

// Get returns the published snapshot for a document, or false when the
// document has no index.
func (r *IndexRegistry) Get(documentID string) (driven.IndexSnapshot, bool) {
	m := *r.snapshots.Load()
	snap, ok := m[documentID]
	return snap, ok
}

// Publish atomically replaces the snapshot for a document.
func (r *IndexRegistry) Publish(documentID string, snap driven.IndexSnapshot) {
	for {
		old := r.snapshots.Load()
		next := make(map[string]driven.IndexSnapshot, len(*old)+1)
		for k, v := range *old {
			next[k] = v
		}
		next[documentID] = snap
		if r.snapshots.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Remove atomically drops the snapshot for a document.
func (r *IndexRegistry) Remove(documentID string) {
	for {
		old := r.snapshots.Load()
		if _, ok := (*old)[documentID]; !ok {
			return
		}
		next := make(map[string]driven.IndexSnapshot, len(*old))
		for k, v := range *old {
			if k != documentID {
				next[k] = v
			}
		}
		if r.snapshots.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Any returns an arbitrary published snapshot, or false when none exist.
// The keepalive loop uses it for its trivial warm-up query.
func (r *IndexRegistry) Any() (driven.IndexSnapshot, bool) {
	m := *r.snapshots.Load()
	for _, snap := range m {
		return snap, true
	}
	return nil, false
}

// Len returns the number of published snapshots.
func (r *IndexRegistry) Len() int {
	return len(*r.snapshots.Load())
}
