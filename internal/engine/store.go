// Package engine persists the dashboard's named state records.
//
// A record is a small JSON document (the auth session, the activity log) that is
// written as a whole on every mutation and read back once at startup. Backends
// only move opaque payloads around; typed access goes through Record.
package engine

import (
	"context"
	"errors"
)

var (
	// ErrRecordNotFound is returned when a requested record does not exist.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidRecordName is returned for names that cannot be stored safely.
	ErrInvalidRecordName = errors.New("invalid record name")
	// ErrUnknownDriver is returned by Open for an unsupported storage driver.
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Record names used by the dashboard.
const (
	AuthRecord = "auth-storage"
	LogsRecord = "logs-storage"
)

// Backend is the storage contract every persistence driver implements.
type Backend interface {
	// Load returns the payload of a record. The boolean is false if the
	// record does not exist, in which case the error is nil.
	Load(ctx context.Context, name string) ([]byte, bool, error)
	// Save replaces the payload of a record atomically.
	Save(ctx context.Context, name string, payload []byte) error
	// Remove deletes a record. Removing a missing record is not an error.
	Remove(ctx context.Context, name string) error
	// List returns the names of all stored records.
	List(ctx context.Context) ([]string, error)
	// Close releases the resources held by the backend.
	Close() error
}

// ValidateName rejects record names that would escape a directory or key prefix.
func ValidateName(name string) error {
	if name == "" || len(name) > 128 {
		return ErrInvalidRecordName
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return ErrInvalidRecordName
		}
	}
	if name[0] == '.' {
		return ErrInvalidRecordName
	}
	return nil
}
