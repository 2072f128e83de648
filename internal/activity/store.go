// Package activity keeps the dashboard's activity log: a persisted,
// newest-first list of what the operator did.
package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-dash/internal/engine"
	"github.com/celerix-dev/celerix-dash/pkg/schema"
)

// persisted is the layout of the logs-storage record.
type persisted struct {
	Logs []schema.LogEntry `json:"logs"`
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now as the source of entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs replaces the UUID generator used for entry ids.
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// Store is the activity log. Entries are kept newest first; the store itself
// enforces no size limit.
type Store struct {
	mu     sync.RWMutex
	logs   []schema.LogEntry
	record *engine.Record[persisted]
	log    *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewStore rehydrates the activity log from b.
func NewStore(ctx context.Context, b engine.Backend, log *zap.Logger, opts ...Option) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{
		record: engine.NewRecord[persisted](b, engine.LogsRecord),
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	data, _, err := s.record.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load activity log: %w", err)
	}
	s.logs = data.Logs

	return s, nil
}

// Entries returns a copy of the log, newest first.
func (s *Store) Entries() []schema.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]schema.LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs)
}

// Append records an action. The new entry goes to the front of the log.
func (s *Store) Append(ctx context.Context, action, details, page string) (schema.LogEntry, error) {
	entry := schema.LogEntry{
		ID:        s.newID(),
		Action:    action,
		Timestamp: s.now(),
		Details:   details,
		Page:      page,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]schema.LogEntry, 0, len(s.logs)+1)
	next = append(next, entry)
	next = append(next, s.logs...)

	if err := s.record.Save(ctx, persisted{Logs: next}); err != nil {
		return schema.LogEntry{}, fmt.Errorf("save activity log: %w", err)
	}
	s.logs = next

	s.log.Debug("activity appended",
		zap.String("action", action),
		zap.String("page", page),
		zap.String("details", details))
	return entry, nil
}

// Record is Append for callers that only want the failure logged.
func (s *Store) Record(ctx context.Context, action, details, page string) {
	if _, err := s.Append(ctx, action, details, page); err != nil {
		s.log.Error("append activity", zap.String("action", action), zap.Error(err))
	}
}

// ClearAll empties the log and deletes its persisted record.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record.Remove(ctx); err != nil {
		return fmt.Errorf("remove activity log: %w", err)
	}
	s.logs = nil

	s.log.Info("activity log cleared")
	return nil
}
