package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-dash/internal/engine"
)

var errDiskFull = errors.New("disk full")

type failingBackend struct {
	engine.Backend
	fail bool
}

func (f *failingBackend) Save(ctx context.Context, name string, payload []byte) error {
	if f.fail {
		return errDiskFull
	}
	return f.Backend.Save(ctx, name, payload)
}

func TestStore_LoginLogout(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, engine.NewMemBackend(nil), nil)
	require.NoError(t, err)

	assert.False(t, s.IsAuthenticated())
	_, ok := s.Token()
	assert.False(t, ok)

	require.NoError(t, s.Login(ctx, "anything goes"))
	assert.True(t, s.IsAuthenticated())
	token, ok := s.Token()
	require.True(t, ok)
	assert.Equal(t, "anything goes", token)

	require.NoError(t, s.Logout(ctx))
	sess := s.Session()
	assert.False(t, sess.IsAuthenticated)
	assert.Nil(t, sess.Token)
}

func TestStore_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	b, err := engine.NewFileBackend(t.TempDir())
	require.NoError(t, err)

	s, err := NewStore(ctx, b, nil)
	require.NoError(t, err)
	require.NoError(t, s.Login(ctx, "tok"))

	s2, err := NewStore(ctx, b, nil)
	require.NoError(t, err)
	assert.True(t, s2.IsAuthenticated())
	token, _ := s2.Token()
	assert.Equal(t, "tok", token)

	raw, ok, err := b.Load(ctx, engine.AuthRecord)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"token":"tok","isAuthenticated":true}`, string(raw))

	require.NoError(t, s2.Logout(ctx))
	raw, _, _ = b.Load(ctx, engine.AuthRecord)
	assert.JSONEq(t, `{"token":null,"isAuthenticated":false}`, string(raw))
}

func TestStore_NormalizesInconsistentRecord(t *testing.T) {
	ctx := context.Background()

	b := engine.NewMemBackend(map[string][]byte{
		engine.AuthRecord: []byte(`{"token":null,"isAuthenticated":true}`),
	})
	s, err := NewStore(ctx, b, nil)
	require.NoError(t, err)
	assert.False(t, s.IsAuthenticated())

	b = engine.NewMemBackend(map[string][]byte{
		engine.AuthRecord: []byte(`{"token":"t","isAuthenticated":false}`),
	})
	s, err = NewStore(ctx, b, nil)
	require.NoError(t, err)
	assert.True(t, s.IsAuthenticated())
}

func TestStore_CorruptRecord(t *testing.T) {
	b := engine.NewMemBackend(map[string][]byte{engine.AuthRecord: []byte("{")})
	_, err := NewStore(context.Background(), b, nil)
	assert.Error(t, err)
}

func TestStore_PersistFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	b := &failingBackend{Backend: engine.NewMemBackend(nil)}
	s, err := NewStore(ctx, b, nil)
	require.NoError(t, err)

	b.fail = true
	err = s.Login(ctx, "tok")
	assert.ErrorIs(t, err, errDiskFull)
	assert.False(t, s.IsAuthenticated(), "memory must not run ahead of the persisted copy")
}

func TestStore_SessionIsACopy(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, engine.NewMemBackend(nil), nil)
	require.NoError(t, err)
	require.NoError(t, s.Login(ctx, "tok"))

	sess := s.Session()
	*sess.Token = "changed"

	token, _ := s.Token()
	assert.Equal(t, "tok", token)
}

func TestMockAuthenticator(t *testing.T) {
	ctx := context.Background()
	m := &MockAuthenticator{Email: DemoEmail, Password: DemoPassword, Delay: 20 * time.Millisecond}

	start := time.Now()
	token, err := m.Authenticate(ctx, DemoEmail, DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com/password123", token)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	cases := []struct{ email, password string }{
		{DemoEmail, "password124"},
		{"other@example.com", DemoPassword},
		{"User@example.com", DemoPassword},
		{DemoEmail + " ", DemoPassword},
		{"", ""},
	}
	for _, c := range cases {
		start := time.Now()
		_, err := m.Authenticate(ctx, c.email, c.password)
		assert.ErrorIs(t, err, ErrInvalidCredentials, "%q/%q", c.email, c.password)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond, "failure must wait the same delay")
	}
}

func TestMockAuthenticator_Cancelled(t *testing.T) {
	m := &MockAuthenticator{Email: DemoEmail, Password: DemoPassword, Delay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Authenticate(ctx, DemoEmail, DemoPassword)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewMockAuthenticator(t *testing.T) {
	m := NewMockAuthenticator()
	assert.Equal(t, DemoEmail, m.Email)
	assert.Equal(t, DemoPassword, m.Password)
	assert.Equal(t, time.Second, m.Delay)
}
