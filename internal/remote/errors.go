package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is matched by errors.Is when the API answered 404.
var ErrNotFound = errors.New("not found")

// Error describes a failed call to the users API.
// Status is 0 when no response was received.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %d %s: %v", e.Op, e.Status, http.StatusText(e.Status), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Temporary reports whether repeating the call could succeed:
// transport failures and 5xx/429 answers.
func (e *Error) Temporary() bool {
	return e.Status == 0 || e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var re *Error
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}
