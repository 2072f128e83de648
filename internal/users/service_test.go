package users

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-dash/internal/activity"
	"github.com/celerix-dev/celerix-dash/internal/engine"
	"github.com/celerix-dev/celerix-dash/internal/query"
	"github.com/celerix-dev/celerix-dash/internal/remote"
	"github.com/celerix-dev/celerix-dash/pkg/schema"
)

type fakeAPI struct {
	mu        sync.Mutex
	users     []schema.User
	listCalls int
	getCalls  int
	deleteErr error
	updateErr error
	// onDelete runs inside DeleteUser before it answers.
	onDelete func()
	// listGate, when set, blocks ListUsers until closed.
	listGate chan struct{}
}

func (f *fakeAPI) ListUsers(ctx context.Context) ([]schema.User, error) {
	f.mu.Lock()
	gate := f.listGate
	f.listCalls++
	out := append([]schema.User(nil), f.users...)
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return out, nil
}

func (f *fakeAPI) GetUser(ctx context.Context, id int) (schema.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return schema.User{}, &remote.Error{Op: "get user", Status: 404, Err: remote.ErrNotFound}
}

func (f *fakeAPI) UpdateUser(ctx context.Context, id int, patch schema.UserPatch) (schema.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return schema.User{}, f.updateErr
	}
	for _, u := range f.users {
		if u.ID == id {
			return patch.Apply(u), nil
		}
	}
	return schema.User{}, &remote.Error{Op: "update user", Status: 404, Err: remote.ErrNotFound}
}

func (f *fakeAPI) DeleteUser(ctx context.Context, id int) error {
	if f.onDelete != nil {
		f.onDelete()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func abc() []schema.User {
	return []schema.User{
		{ID: 1, Name: "A", Email: "a@example.com"},
		{ID: 2, Name: "B", Email: "b@example.com"},
		{ID: 3, Name: "C", Email: "c@example.com"},
	}
}

func ids(users []schema.User) []int {
	out := make([]int, len(users))
	for i, u := range users {
		out[i] = u.ID
	}
	return out
}

func newTestService(t *testing.T, api *fakeAPI) (*Service, *query.Cache, *activity.Store) {
	t.Helper()
	log, err := activity.NewStore(context.Background(), engine.NewMemBackend(nil), nil)
	require.NoError(t, err)
	cache := query.New(query.Config{Retry: 1, RetryDelay: time.Millisecond}, nil)
	return NewService(api, cache, log, nil), cache, log
}

func TestService_ListIsCached(t *testing.T) {
	api := &fakeAPI{users: abc()}
	svc, _, _ := newTestService(t, api)

	users, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids(users))

	_, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls())
	assert.True(t, svc.ListState().Fresh())
}

func TestService_Get(t *testing.T) {
	api := &fakeAPI{users: abc()}
	svc, _, _ := newTestService(t, api)

	u, err := svc.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "B", u.Name)

	_, err = svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, remote.ErrNotFound)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, 2, api.getCalls, "not found is not retried")
}

func TestService_DeleteRemovesLocallyFirst(t *testing.T) {
	api := &fakeAPI{users: abc()}
	svc, cache, log := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)

	api.onDelete = func() {
		during, ok := query.GetData[[]schema.User](cache, ListKey)
		assert.True(t, ok)
		assert.Equal(t, []int{1, 3}, ids(during), "user is gone before the server answers")
	}

	require.NoError(t, svc.Delete(ctx, 2))

	after, ok := query.GetData[[]schema.User](cache, ListKey)
	require.True(t, ok)
	assert.Equal(t, []int{1, 3}, ids(after))
	assert.True(t, cache.State(ListKey).Stale, "collection is refetched on next read")

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, schema.ActionUserDelete, entries[0].Action)
	assert.Equal(t, "Deleted user ID: 2", entries[0].Details)
	assert.Equal(t, schema.PageUsers, entries[0].Page)

	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls())
}

func TestService_DeleteFailureRestoresSnapshot(t *testing.T) {
	api := &fakeAPI{users: abc(), deleteErr: &remote.Error{Op: "delete user 2", Status: 500, Err: errors.New("boom")}}
	svc, cache, log := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)

	err = svc.Delete(ctx, 2)
	require.Error(t, err)
	assert.Equal(t, 500, remote.StatusOf(err))

	after, ok := query.GetData[[]schema.User](cache, ListKey)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, ids(after))
	assert.True(t, cache.State(ListKey).Stale)

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, schema.ActionUserDeleteFailed, entries[0].Action)
	assert.Equal(t, "Failed to delete user ID: 2", entries[0].Details)
	assert.Equal(t, schema.ActionUserDelete, entries[1].Action)
}

func TestService_DeleteWithoutCachedList(t *testing.T) {
	api := &fakeAPI{users: abc()}
	svc, cache, _ := newTestService(t, api)

	require.NoError(t, svc.Delete(context.Background(), 1))

	_, ok := cache.GetData(ListKey)
	assert.False(t, ok)
}

func TestService_DeleteCancelsInFlightList(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{users: abc()}
	svc, cache, _ := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)
	cache.Invalidate(ListKey)

	api.mu.Lock()
	api.listGate = gate
	api.mu.Unlock()

	done := make(chan []schema.User)
	go func() {
		users, err := svc.List(ctx)
		assert.NoError(t, err)
		done <- users
	}()
	require.Eventually(t, func() bool { return api.calls() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, svc.Delete(ctx, 2))
	close(gate)

	// The response carrying user 2 was dropped.
	assert.Equal(t, []int{1, 3}, ids(<-done))
	after, _ := query.GetData[[]schema.User](cache, ListKey)
	assert.Equal(t, []int{1, 3}, ids(after))
}

func TestService_DeleteDuringFirstListLoad(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{users: abc(), listGate: gate}
	api.onDelete = func() {
		api.mu.Lock()
		api.users = []schema.User{api.users[0], api.users[2]}
		api.mu.Unlock()
	}
	svc, cache, _ := newTestService(t, api)
	ctx := context.Background()

	type result struct {
		users []schema.User
		err   error
	}
	done := make(chan result, 1)
	go func() {
		users, err := svc.List(ctx)
		done <- result{users, err}
	}()
	require.Eventually(t, func() bool { return api.calls() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, svc.Delete(ctx, 2))
	close(gate)

	// The first response was dropped and the list loaded again.
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, []int{1, 3}, ids(res.users))
	assert.Equal(t, 2, api.calls())
	assert.True(t, cache.State(ListKey).Fresh())
}

func TestService_Update(t *testing.T) {
	api := &fakeAPI{users: abc()}
	svc, cache, log := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)

	name := "Bee"
	u, err := svc.Update(ctx, 2, schema.UserPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Bee", u.Name)

	// The cached collection is left as it was.
	assert.True(t, cache.State(ListKey).Fresh())
	list, _ := query.GetData[[]schema.User](cache, ListKey)
	assert.Equal(t, "B", list[1].Name)
	assert.Equal(t, 1, api.calls())

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, schema.ActionUserUpdate, entries[0].Action)
	assert.Equal(t, "Updated user: Bee", entries[0].Details)
}

func TestService_UpdateFailure(t *testing.T) {
	api := &fakeAPI{users: abc(), updateErr: errors.New("offline")}
	svc, cache, log := newTestService(t, api)
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)

	name := "Bee"
	_, err = svc.Update(ctx, 2, schema.UserPatch{Name: &name})
	require.Error(t, err)

	list, _ := query.GetData[[]schema.User](cache, ListKey)
	assert.Equal(t, "B", list[1].Name, "no local change on failure")
	assert.False(t, cache.State(ListKey).Stale)

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, schema.ActionUserUpdateFailed, entries[0].Action)
	assert.Equal(t, "Failed to update user ID: 2", entries[0].Details)
}

func TestService_UpdateEmptyPatch(t *testing.T) {
	svc, _, log := newTestService(t, &fakeAPI{users: abc()})

	_, err := svc.Update(context.Background(), 1, schema.UserPatch{})
	assert.ErrorIs(t, err, ErrEmptyPatch)
	assert.Equal(t, 0, log.Len())
}
