package engine

import (
	"context"
	"fmt"

	"github.com/celerix-dev/celerix-dash/internal/vault"
)

// SealedBackend encrypts payloads before handing them to the wrapped backend
// and decrypts them on the way back.
type SealedBackend struct {
	Backend
	key []byte
}

// NewSealedBackend wraps inner with AES-GCM sealing under key.
func NewSealedBackend(inner Backend, key []byte) (*SealedBackend, error) {
	if len(key) != vault.KeySize {
		return nil, fmt.Errorf("sealing key must be %d bytes, got %d", vault.KeySize, len(key))
	}
	return &SealedBackend{Backend: inner, key: key}, nil
}

func (s *SealedBackend) Load(ctx context.Context, name string) ([]byte, bool, error) {
	sealed, ok, err := s.Backend.Load(ctx, name)
	if err != nil || !ok {
		return nil, ok, err
	}

	payload, err := vault.Open(sealed, s.key)
	if err != nil {
		return nil, false, fmt.Errorf("open record %s: %w", name, err)
	}
	return payload, true, nil
}

func (s *SealedBackend) Save(ctx context.Context, name string, payload []byte) error {
	sealed, err := vault.Seal(payload, s.key)
	if err != nil {
		return fmt.Errorf("seal record %s: %w", name, err)
	}
	return s.Backend.Save(ctx, name, sealed)
}
