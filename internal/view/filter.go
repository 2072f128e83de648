// Package view holds the state a page derives from raw data and UI
// parameters: filtering, pagination, the inline edit buffer and one-shot
// notices. The derivations are pure functions.
package view

import (
	"strings"

	"github.com/celerix-dev/celerix-dash/pkg/schema"
)

// FilterUsers returns the users whose name or email contains q, ignoring
// case. An empty (or blank) q returns users unchanged.
func FilterUsers(users []schema.User, q string) []schema.User {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return users
	}

	out := make([]schema.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, u)
		}
	}
	return out
}
