package vault

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	key := []byte("thisis32byteslongsecretkey123456") // 32 bytes for AES-256
	plaintext := []byte(`{"token":"user@example.com/password123","isAuthenticated":true}`)

	sealed, err := Seal(plaintext, key)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, []byte("password123")), "sealed payload leaks plaintext")

	opened, err := Open(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestSealUsesFreshNonce(t *testing.T) {
	key := []byte("thisis32byteslongsecretkey123456")

	a, err := Seal([]byte("same"), key)
	require.NoError(t, err)
	b, err := Seal([]byte("same"), key)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestOpenWithWrongKey(t *testing.T) {
	key1 := []byte("thisis32byteslongsecretkey123456")
	key2 := []byte("another32byteslongsecretkey65432")

	sealed, err := Seal([]byte("Secret message"), key1)
	require.NoError(t, err)

	_, err = Open(sealed, key2)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestInvalidKeySize(t *testing.T) {
	_, err := Seal([]byte("test"), []byte("shortkey"))
	assert.Error(t, err)
}

func TestOpenShortPayload(t *testing.T) {
	key := []byte("thisis32byteslongsecretkey123456")

	_, err := Open([]byte("abcd"), key)
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	_, err = Open([]byte("not hex"), key)
	assert.Error(t, err)
}

func TestDeriveKey(t *testing.T) {
	k1, err := DeriveKey("correct horse")
	require.NoError(t, err)
	assert.Len(t, k1, KeySize)

	k2, err := DeriveKey("correct horse")
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "derivation must be deterministic")

	k3, err := DeriveKey("battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	_, err = DeriveKey("")
	assert.ErrorIs(t, err, ErrEmptyPassphrase)
}
