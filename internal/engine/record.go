package engine

import (
	"context"
	"encoding/json"
	"fmt"
)

// Record is a typed handle on one named record of a Backend.
// The value is (de)serialized as a whole on every call.
type Record[T any] struct {
	backend Backend
	name    string
}

// NewRecord returns a handle on the record called name.
func NewRecord[T any](b Backend, name string) *Record[T] {
	return &Record[T]{backend: b, name: name}
}

// Load decodes the stored value. The boolean is false when nothing is stored yet.
func (r *Record[T]) Load(ctx context.Context) (T, bool, error) {
	var v T

	payload, ok, err := r.backend.Load(ctx, r.name)
	if err != nil || !ok {
		return v, false, err
	}

	if err := json.Unmarshal(payload, &v); err != nil {
		return v, false, fmt.Errorf("decode record %s: %w", r.name, err)
	}
	return v, true, nil
}

// Save encodes v and replaces the stored value.
func (r *Record[T]) Save(ctx context.Context, v T) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", r.name, err)
	}
	return r.backend.Save(ctx, r.name, payload)
}

// Remove deletes the stored value entirely.
func (r *Record[T]) Remove(ctx context.Context) error {
	return r.backend.Remove(ctx, r.name)
}
