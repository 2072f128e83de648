package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// backendContract runs the behaviour every driver must share.
func backendContract(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := b.Load(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Save(ctx, "rec-a", []byte(`{"v":1}`)))
	require.NoError(t, b.Save(ctx, "rec-b", []byte(`{"v":2}`)))
	require.NoError(t, b.Save(ctx, "rec-a", []byte(`{"v":3}`)))

	got, ok, err := b.Load(ctx, "rec-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"v":3}`, string(got))

	names, err := b.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rec-a", "rec-b"}, names)

	require.NoError(t, b.Remove(ctx, "rec-a"))
	require.NoError(t, b.Remove(ctx, "rec-a"), "removing a missing record is not an error")

	_, ok, err = b.Load(ctx, "rec-a")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, b.Save(ctx, "../escape", []byte("x")), ErrInvalidRecordName)
}

func TestMemBackend(t *testing.T) {
	backendContract(t, NewMemBackend(nil))
}

func TestMemBackend_CopiesPayloads(t *testing.T) {
	ctx := context.Background()
	b := NewMemBackend(nil)

	payload := []byte("abc")
	require.NoError(t, b.Save(ctx, "r", payload))
	payload[0] = 'z'

	got, _, err := b.Load(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[0] = 'y'
	again, _, _ := b.Load(ctx, "r")
	assert.Equal(t, "abc", string(again))
}

func TestFileBackend(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	backendContract(t, b)
}

func TestFileBackend_AtomicWriteLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	require.NoError(t, b.Save(context.Background(), AuthRecord, []byte(`{}`)))

	_, err = os.Stat(filepath.Join(dir, "auth-storage.json"))
	require.NoError(t, err, "record file was not created")
	_, err = os.Stat(filepath.Join(dir, "auth-storage.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file should have been renamed")
}

func TestFileBackend_ListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))
	require.NoError(t, b.Save(context.Background(), LogsRecord, []byte(`{"logs":[]}`)))

	names, err := b.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{LogsRecord}, names)
}

func TestSQLiteBackend(t *testing.T) {
	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "nested", "dash.db"), nil)
	require.NoError(t, err)
	defer b.Close()

	backendContract(t, b)
}

func TestSQLiteBackend_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dash.db")
	ctx := context.Background()

	b, err := NewSQLiteBackend(path, nil)
	require.NoError(t, err)
	require.NoError(t, b.Save(ctx, LogsRecord, []byte(`{"logs":[]}`)))
	require.NoError(t, b.Close())

	b2, err := NewSQLiteBackend(path, nil)
	require.NoError(t, err)
	defer b2.Close()

	got, ok, err := b2.Load(ctx, LogsRecord)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"logs":[]}`, string(got))
}

func TestRedisBackend(t *testing.T) {
	addr := os.Getenv("CELERIX_DASH_TEST_REDIS")
	if addr == "" {
		t.Skip("CELERIX_DASH_TEST_REDIS not set")
	}

	ctx := context.Background()
	b, err := NewRedisBackend(ctx, RedisConfig{Addr: addr, Prefix: fmt.Sprintf("dash-test-%s:", t.Name())}, nil)
	require.NoError(t, err)
	defer b.Close()

	backendContract(t, b)
	require.NoError(t, b.Remove(ctx, "rec-b"))
}

func TestSealedBackend(t *testing.T) {
	ctx := context.Background()
	inner := NewMemBackend(nil)

	key := []byte("thisis32byteslongsecretkey123456")
	sealed, err := NewSealedBackend(inner, key)
	require.NoError(t, err)

	backendContract(t, sealed)

	require.NoError(t, sealed.Save(ctx, AuthRecord, []byte(`{"token":"secret-token"}`)))

	raw, ok, err := inner.Load(ctx, AuthRecord)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, string(raw), "secret-token")

	wrong, err := NewSealedBackend(inner, []byte("another32byteslongsecretkey65432"))
	require.NoError(t, err)
	_, _, err = wrong.Load(ctx, AuthRecord)
	assert.Error(t, err)

	_, err = NewSealedBackend(inner, []byte("short"))
	assert.Error(t, err)
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	rec := NewRecord[testDoc](NewMemBackend(nil), "doc")

	_, ok, err := rec.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	want := testDoc{Name: "n", Items: []string{"a", "b"}}
	require.NoError(t, rec.Save(ctx, want))

	got, ok, err := rec.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, rec.Remove(ctx))
	_, ok, err = rec.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecord_CorruptPayload(t *testing.T) {
	b := NewMemBackend(map[string][]byte{"doc": []byte("{not json")})
	_, ok, err := NewRecord[testDoc](b, "doc").Load(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	src := NewMemBackend(map[string][]byte{
		AuthRecord: []byte(`{"token":null,"isAuthenticated":false}`),
		LogsRecord: []byte(`{"logs":[]}`),
	})
	dst, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	copied, err := Migrate(ctx, src, dst)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{AuthRecord, LogsRecord}, copied)

	got, ok, err := dst.Load(ctx, LogsRecord)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"logs":[]}`, string(got))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := Open(ctx, Config{Driver: DriverFile, Dir: dir}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)

	b, err = Open(ctx, Config{Driver: DriverSQLite, Dir: dir}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBackend{}, b)
	require.NoError(t, b.Close())
	_, err = os.Stat(filepath.Join(dir, "dash.db"))
	assert.NoError(t, err)

	b, err = Open(ctx, Config{Driver: DriverMemory, Passphrase: "pw"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SealedBackend{}, b)

	_, err = Open(ctx, Config{Driver: "etcd"}, nil)
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

type closeErrBackend struct {
	*MemBackend
	closed bool
}

var errClose = errors.New("close failed")

func (b *closeErrBackend) Close() error {
	b.closed = true
	return errClose
}

func TestSeal_ClosesBackendOnFailure(t *testing.T) {
	b := &closeErrBackend{MemBackend: NewMemBackend(nil)}

	_, err := seal(b, []byte("short"))
	require.Error(t, err)
	assert.True(t, b.closed)
	assert.ErrorIs(t, err, errClose, "the close error is kept")
	assert.Contains(t, err.Error(), "sealing key must be 32 bytes")

	sealed, err := seal(NewMemBackend(nil), []byte("thisis32byteslongsecretkey123456"))
	require.NoError(t, err)
	assert.IsType(t, &SealedBackend{}, sealed)
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"auth-storage", "logs_storage", "a.b", "X9"} {
		assert.NoError(t, ValidateName(name), name)
	}
	for _, name := range []string{"", ".hidden", "a/b", `a\b`, "a b", "ü"} {
		assert.ErrorIs(t, ValidateName(name), ErrInvalidRecordName, name)
	}
}

func TestFileBackend_Concurrent(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	const (
		numGoroutines = 8
		numOps        = 25
	)
	var wg sync.WaitGroup

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			name := fmt.Sprintf("rec-%d", id)
			for j := 0; j < numOps; j++ {
				assert.NoError(t, b.Save(ctx, name, []byte(fmt.Sprintf(`{"n":%d}`, j))))
			}
		}(i)
	}
	wg.Wait()

	names, err := b.List(ctx)
	require.NoError(t, err)
	assert.Len(t, names, numGoroutines)
}
