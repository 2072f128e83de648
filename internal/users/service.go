// Package users implements the user operations of the dashboard on top of
// the remote users API and the query cache. Mutations are recorded in the
// activity log.
package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-dash/internal/query"
	"github.com/celerix-dev/celerix-dash/internal/remote"
	"github.com/celerix-dev/celerix-dash/pkg/schema"
)

// ErrEmptyPatch is returned by Update when the patch changes nothing.
var ErrEmptyPatch = errors.New("empty patch")

// ListKey caches the users collection.
var ListKey = query.Key{Resource: "users"}

// DetailKey caches a single user.
func DetailKey(id int) query.Key {
	return query.Key{Resource: "user", Param: strconv.Itoa(id)}
}

// Recorder receives activity entries. *activity.Store implements it.
type Recorder interface {
	Record(ctx context.Context, action, details, page string)
}

// Service exposes the users collection to the web layer.
type Service struct {
	api      remote.UsersAPI
	cache    *query.Cache
	activity Recorder
	log      *zap.Logger
}

// NewService wires a Service.
func NewService(api remote.UsersAPI, cache *query.Cache, activity Recorder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, cache: cache, activity: activity, log: log}
}

// List returns the users collection, cached.
func (s *Service) List(ctx context.Context) ([]schema.User, error) {
	return query.Fetch(ctx, s.cache, ListKey, s.api.ListUsers)
}

// Get returns one user, cached.
func (s *Service) Get(ctx context.Context, id int) (schema.User, error) {
	return query.Fetch(ctx, s.cache, DetailKey(id), func(ctx context.Context) (schema.User, error) {
		return s.api.GetUser(ctx, id)
	})
}

// ListState reports the cache state of the collection.
func (s *Service) ListState() query.EntryState {
	return s.cache.State(ListKey)
}

// Delete removes a user optimistically: the user disappears from the cached
// collection before the server answers and comes back if the server fails.
// Either way the collection is refetched on its next read.
func (s *Service) Delete(ctx context.Context, id int) error {
	m := s.cache.BeginOptimistic(ListKey)
	if err := m.Apply(withoutUser(id)); err != nil {
		return err
	}
	s.activity.Record(ctx, schema.ActionUserDelete, fmt.Sprintf("Deleted user ID: %d", id), schema.PageUsers)

	if err := s.api.DeleteUser(ctx, id); err != nil {
		if rbErr := m.Rollback(); rbErr != nil {
			s.log.Error("rollback delete", zap.Int("id", id), zap.Error(rbErr))
		}
		s.activity.Record(ctx, schema.ActionUserDeleteFailed, fmt.Sprintf("Failed to delete user ID: %d", id), schema.PageUsers)
		s.settle(m)
		s.log.Warn("delete user failed", zap.Int("id", id), zap.Error(err))
		return fmt.Errorf("delete user %d: %w", id, err)
	}

	if err := m.Commit(); err != nil {
		s.log.Error("commit delete", zap.Int("id", id), zap.Error(err))
	}
	s.cache.Remove(DetailKey(id))
	s.settle(m)
	s.log.Info("user deleted", zap.Int("id", id))
	return nil
}

func (s *Service) settle(m *query.Optimistic) {
	if err := m.Settle(); err != nil {
		s.log.Error("settle mutation", zap.Error(err))
	}
}

// withoutUser drops the user with id from a cached collection. A missing
// collection stays missing.
func withoutUser(id int) func(any, bool) (any, bool) {
	return func(old any, ok bool) (any, bool) {
		list, isList := old.([]schema.User)
		if !ok || !isList {
			return nil, false
		}
		next := make([]schema.User, 0, len(list))
		for _, u := range list {
			if u.ID != id {
				next = append(next, u)
			}
		}
		return next, true
	}
}

// Update sends patch to the server. The answer is accepted as-is: the cache
// is left alone whether the update succeeds or fails.
func (s *Service) Update(ctx context.Context, id int, patch schema.UserPatch) (schema.User, error) {
	if patch.IsEmpty() {
		return schema.User{}, ErrEmptyPatch
	}

	u, err := s.api.UpdateUser(ctx, id, patch)
	if err != nil {
		s.activity.Record(ctx, schema.ActionUserUpdateFailed, fmt.Sprintf("Failed to update user ID: %d", id), schema.PageUsers)
		s.log.Warn("update user failed", zap.Int("id", id), zap.Error(err))
		return schema.User{}, fmt.Errorf("update user %d: %w", id, err)
	}

	name := u.Name
	if name == "" && patch.Name != nil {
		name = *patch.Name
	}
	s.activity.Record(ctx, schema.ActionUserUpdate, "Updated user: "+name, schema.PageUsers)
	return u, nil
}
