// Package auth holds the dashboard's authentication state and the stand-in
// identity provider that issues its tokens.
package auth

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-dash/internal/engine"
	"github.com/celerix-dev/celerix-dash/pkg/schema"
)

// Store is the process-wide auth session. It is rehydrated from the
// auth-storage record once, in NewStore, and written back on every mutation.
type Store struct {
	mu      sync.RWMutex
	session schema.AuthSession
	record  *engine.Record[schema.AuthSession]
	log     *zap.Logger
}

// NewStore loads the persisted session from b.
func NewStore(ctx context.Context, b engine.Backend, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	record := engine.NewRecord[schema.AuthSession](b, engine.AuthRecord)
	session, ok, err := record.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load auth session: %w", err)
	}
	if ok {
		normalized := session.Normalize()
		if normalized.IsAuthenticated != session.IsAuthenticated {
			log.Warn("persisted auth session was inconsistent, normalized",
				zap.Bool("isAuthenticated", normalized.IsAuthenticated))
		}
		session = normalized
	}

	return &Store{session: session, record: record, log: log}, nil
}

// Session returns a copy of the current session.
func (s *Store) Session() schema.AuthSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.session
	if out.Token != nil {
		token := *out.Token
		out.Token = &token
	}
	return out
}

// IsAuthenticated reports whether a token is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.IsAuthenticated
}

// Token returns the held token, if any.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session.Token == nil {
		return "", false
	}
	return *s.session.Token, true
}

// Login stores token and marks the session authenticated. The token is not
// inspected: whoever obtained one is trusted.
func (s *Store) Login(ctx context.Context, token string) error {
	return s.set(ctx, schema.AuthSession{Token: &token, IsAuthenticated: true})
}

// Logout clears the token.
func (s *Store) Logout(ctx context.Context) error {
	return s.set(ctx, schema.AuthSession{})
}

// set persists next before publishing it, so memory never runs ahead of disk.
func (s *Store) set(ctx context.Context, next schema.AuthSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record.Save(ctx, next); err != nil {
		return fmt.Errorf("save auth session: %w", err)
	}
	s.session = next

	s.log.Debug("auth session changed", zap.Bool("isAuthenticated", next.IsAuthenticated))
	return nil
}
