// Package query caches the results of remote requests. It collapses
// concurrent identical requests, retries failed reads, tracks staleness and
// supports optimistic local updates that can be rolled back.
package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Config holds the retry policy of reads. Writes are never retried.
type Config struct {
	// Retry is the number of additional attempts after a failed read. Errors
	// whose Temporary method reports false are not retried.
	Retry int `yaml:"retry"`
	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// DefaultConfig retries a failed read once.
func DefaultConfig() Config {
	return Config{Retry: 1, RetryDelay: 500 * time.Millisecond}
}

// FetchFunc performs the request behind a key.
type FetchFunc func(ctx context.Context) (any, error)

// Cache holds one entry per Key. Cached values are shared between readers
// and must be treated as immutable; SetData replaces them.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group
	nextID  uint64

	cfg Config
	log *zap.Logger
	now func() time.Time
}

// New initializes an empty cache.
func New(cfg Config, log *zap.Logger) *Cache {
	if cfg.Retry < 0 {
		cfg.Retry = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		entries: make(map[Key]*entry),
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// entryLocked returns the entry of key, creating an idle one. c.mu must be held.
func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{flights: make(map[uint64]func())}
		c.entries[key] = e
	}
	return e
}

// Fetch returns the value of key. A fresh entry is served from memory;
// otherwise fn runs, shared with any concurrent caller of the same key, and
// its outcome is stored on the entry. The request outlives ctx: a caller that
// gives up does not abort it for the others.
//
// A reader whose request is canceled while it waits gets whatever replaced
// the canceled response, or a fresh request when nothing did.
func (c *Cache) Fetch(ctx context.Context, key Key, fn FetchFunc) (any, error) {
	for {
		c.mu.Lock()
		e := c.entryLocked(key)
		if e.status == StatusSuccess && !e.stale {
			data := e.data
			c.mu.Unlock()
			return data, nil
		}
		c.mu.Unlock()

		ch := c.group.DoChan(key.flightKey(), func() (any, error) {
			return c.run(ctx, key, fn)
		})

		select {
		case res := <-ch:
			if res.Shared {
				c.log.Debug("shared in-flight request", zap.Stringer("key", key))
			}
			if !errors.Is(res.Err, ErrCanceled) {
				return res.Val, res.Err
			}
			if data, ok := c.GetData(key); ok {
				return data, nil
			}
			c.log.Debug("request canceled with nothing cached, fetching again", zap.Stringer("key", key))
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// run executes one flight for key with the configured retry policy.
func (c *Cache) run(ctx context.Context, key Key, fn FetchFunc) (any, error) {
	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	c.mu.Lock()
	e := c.entryLocked(key)
	gen := e.gen
	id := c.nextID
	c.nextID++
	e.flights[id] = cancel
	e.status = StatusLoading
	e.fetches++
	c.mu.Unlock()

	c.log.Debug("fetching", zap.Stringer("key", key))

	var (
		val      any
		err      error
		attempts int
	)
	for attempts < c.cfg.Retry+1 {
		if attempts > 0 {
			c.log.Debug("retrying", zap.Stringer("key", key), zap.Int("attempt", attempts+1), zap.Error(err))
			select {
			case <-time.After(c.cfg.RetryDelay):
			case <-fctx.Done():
			}
			if fctx.Err() != nil {
				break
			}
		}
		attempts++
		val, err = fn(fctx)
		if err == nil || fctx.Err() != nil || !retryable(err) {
			break
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(e.flights, id)
	if e.gen != gen || c.entries[key] != e {
		c.log.Debug("dropped response of canceled request", zap.Stringer("key", key))
		return nil, ErrCanceled
	}

	if err != nil {
		ferr := &FetchError{Key: key, Attempts: attempts, Err: err}
		e.status = StatusError
		e.err = ferr
		c.log.Warn("fetch failed", zap.Stringer("key", key), zap.Int("attempts", attempts), zap.Error(err))
		return nil, ferr
	}

	// Responses apply in completion order. A request that was already in
	// flight when the entry was invalidated still overwrites it here.
	e.data = val
	e.hasData = true
	e.status = StatusSuccess
	e.stale = false
	e.err = nil
	e.updatedAt = c.now()
	return val, nil
}

// GetData returns the last known-good value of key, whatever its status.
func (c *Cache) GetData(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !e.hasData {
		return nil, false
	}
	return e.data, true
}

// SetData replaces the value of key with the result of update, which gets
// the current value. When update reports false the entry is left untouched.
// A written entry is successful and fresh.
func (c *Cache) SetData(key Key, update func(old any, ok bool) (any, bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)
	next, keep := update(e.data, e.hasData)
	if !keep {
		return
	}
	e.data = next
	e.hasData = true
	e.status = StatusSuccess
	e.stale = false
	e.err = nil
	e.updatedAt = c.now()
}

// Invalidate marks key stale so the next Fetch refetches it. A request
// already in flight is detached from de-duplication but keeps running.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidateLocked(key)
}

// InvalidateResource invalidates every key of resource.
func (c *Cache) InvalidateResource(resource string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if key.Resource == resource {
			c.invalidateLocked(key)
		}
	}
}

func (c *Cache) invalidateLocked(key Key) {
	if e, ok := c.entries[key]; ok {
		e.stale = true
	}
	c.group.Forget(key.flightKey())
	c.log.Debug("invalidated", zap.Stringer("key", key))
}

// Cancel aborts the requests in flight for key and drops their responses.
// The entry returns to the state its data allows.
func (c *Cache) Cancel(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	c.cancelLocked(key, e)
	e.settle()
}

func (c *Cache) cancelLocked(key Key, e *entry) {
	e.gen++
	for id, cancel := range e.flights {
		cancel()
		delete(e.flights, id)
	}
	c.group.Forget(key.flightKey())
}

// Remove cancels key and forgets its entry.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	c.cancelLocked(key, e)
	delete(c.entries, key)
}

// State reports the state of key. Unknown keys are idle.
func (c *Cache) State(key Key) EntryState {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return EntryState{Status: StatusIdle}
	}
	return e.state()
}

// Snapshot captures the value of key for a later Restore.
type Snapshot struct {
	Key     Key
	Data    any
	Present bool
}

// Snapshot returns the current value of key.
func (c *Cache) Snapshot(key Key) Snapshot {
	data, ok := c.GetData(key)
	return Snapshot{Key: key, Data: data, Present: ok}
}

// Restore puts a snapshot back. Restoring an absent snapshot clears the
// entry's data.
func (c *Cache) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(s.Key)
	if !s.Present {
		e.data = nil
		e.hasData = false
		if e.status == StatusSuccess {
			e.status = StatusIdle
		}
		return
	}
	e.data = s.Data
	e.hasData = true
	e.status = StatusSuccess
	e.err = nil
	e.updatedAt = c.now()
}

// retryable reports whether err is worth another attempt. Errors that know
// they are permanent say so through a Temporary method.
func retryable(err error) bool {
	var t interface{ Temporary() bool }
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return true
}
