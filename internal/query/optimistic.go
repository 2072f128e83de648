package query

import (
	"fmt"
	"sync"
)

// MutationState is the progress of an Optimistic mutation.
type MutationState int

const (
	// MutationSnapshotted: in-flight reads are canceled and the value saved.
	MutationSnapshotted MutationState = iota
	// MutationApplied: the local change is visible to readers.
	MutationApplied
	// MutationCommitted: the server accepted the change.
	MutationCommitted
	// MutationRolledBack: the server rejected it and the snapshot is back.
	MutationRolledBack
	// MutationSettled: the key is invalidated for reconciliation.
	MutationSettled
)

func (s MutationState) String() string {
	switch s {
	case MutationSnapshotted:
		return "snapshotted"
	case MutationApplied:
		return "applied"
	case MutationCommitted:
		return "committed"
	case MutationRolledBack:
		return "rolled-back"
	case MutationSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Optimistic drives a local change of one key ahead of server confirmation:
//
//	snapshot -> apply -> commit | rollback -> settle
//
// Each step is valid only from its predecessor.
type Optimistic struct {
	mu    sync.Mutex
	cache *Cache
	snap  Snapshot
	state MutationState
}

// BeginOptimistic cancels the reads in flight for key, so their responses
// cannot overwrite the local change, and snapshots its value.
func (c *Cache) BeginOptimistic(key Key) *Optimistic {
	c.Cancel(key)
	return &Optimistic{cache: c, snap: c.Snapshot(key)}
}

// State returns the current step.
func (o *Optimistic) State() MutationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns the value saved when the mutation began.
func (o *Optimistic) Snapshot() Snapshot {
	return o.snap
}

// Apply writes the local change through update, see Cache.SetData.
func (o *Optimistic) Apply(update func(old any, ok bool) (any, bool)) error {
	if err := o.step(MutationSnapshotted, MutationApplied); err != nil {
		return err
	}
	o.cache.SetData(o.snap.Key, update)
	return nil
}

// Commit records that the server accepted the change.
func (o *Optimistic) Commit() error {
	return o.step(MutationApplied, MutationCommitted)
}

// Rollback restores the snapshot.
func (o *Optimistic) Rollback() error {
	if err := o.step(MutationApplied, MutationRolledBack); err != nil {
		return err
	}
	o.cache.Restore(o.snap)
	return nil
}

// Settle invalidates the key so the next read reconciles with the server.
func (o *Optimistic) Settle() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != MutationCommitted && o.state != MutationRolledBack {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.state, MutationSettled)
	}
	o.state = MutationSettled
	o.cache.Invalidate(o.snap.Key)
	return nil
}

func (o *Optimistic) step(from, to MutationState) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.state, to)
	}
	o.state = to
	return nil
}
