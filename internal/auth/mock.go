package auth

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidCredentials is returned when an email/password pair is rejected.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Demo credentials accepted by the default MockAuthenticator.
const (
	DemoEmail    = "user@example.com"
	DemoPassword = "password123"
	DemoDelay    = time.Second
)

// Authenticator exchanges credentials for an opaque token.
// Implementations either return a token or an error, nothing in between.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (string, error)
}

// MockAuthenticator accepts exactly one hardcoded credential pair after a
// fixed delay. It stands in for a real identity provider.
type MockAuthenticator struct {
	Email    string
	Password string
	Delay    time.Duration
}

var _ Authenticator = (*MockAuthenticator)(nil)

// NewMockAuthenticator returns the authenticator for the demo credentials.
func NewMockAuthenticator() *MockAuthenticator {
	return &MockAuthenticator{Email: DemoEmail, Password: DemoPassword, Delay: DemoDelay}
}

// Authenticate waits Delay and then accepts the configured pair only. The token
// is "<email>/<password>". The wait is abandoned if ctx is done.
func (m *MockAuthenticator) Authenticate(ctx context.Context, email, password string) (string, error) {
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if email != m.Email || password != m.Password {
		return "", ErrInvalidCredentials
	}
	return email + "/" + password, nil
}
