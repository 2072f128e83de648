package query

import (
	"errors"
	"fmt"
)

var (
	// ErrCanceled is returned to callers of a flight dropped by Cancel or Remove.
	ErrCanceled = errors.New("query canceled")
	// ErrType is returned by the typed helpers when the cached value has another type.
	ErrType = errors.New("cached value has unexpected type")
	// ErrInvalidTransition is returned when an Optimistic step is taken out of order.
	ErrInvalidTransition = errors.New("invalid mutation transition")
)

// FetchError is stored on an entry whose request failed after all attempts.
type FetchError struct {
	Key      Key
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.Key, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
