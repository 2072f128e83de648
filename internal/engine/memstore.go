package engine

import (
	"context"
	"sort"
	"sync"
)

// MemBackend keeps records in process memory. It backs the "memory" driver and
// the tests of the stores built on top of the engine.
type MemBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ Backend = (*MemBackend)(nil)

// NewMemBackend initializes an in-memory backend, optionally seeded with records.
func NewMemBackend(initial map[string][]byte) *MemBackend {
	data := make(map[string][]byte, len(initial))
	for name, payload := range initial {
		data[name] = clone(payload)
	}
	return &MemBackend{data: data}
}

func (m *MemBackend) Load(_ context.Context, name string) ([]byte, bool, error) {
	if err := ValidateName(name); err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.data[name]
	if !ok {
		return nil, false, nil
	}
	// Return a copy to prevent external mutation of the internal map
	return clone(payload), true, nil
}

func (m *MemBackend) Save(_ context.Context, name string, payload []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[name] = clone(payload)
	return nil
}

func (m *MemBackend) Remove(_ context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, name)
	return nil
}

func (m *MemBackend) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.data))
	for name := range m.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemBackend) Close() error {
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
