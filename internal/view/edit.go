package view

import (
	"fmt"
	"sync"

	"github.com/celerix-dev/celerix-dash/pkg/schema"
)

// Fields the inline editor can change.
const (
	FieldName     = "name"
	FieldUsername = "username"
	FieldEmail    = "email"
)

// EditBuffer holds the draft of the single row being edited inline.
// Beginning an edit replaces any previous draft.
type EditBuffer struct {
	mu      sync.Mutex
	editing bool
	id      int
	draft   map[string]string
}

// Begin starts editing u, seeding the draft with its current values.
func (b *EditBuffer) Begin(u schema.User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.editing = true
	b.id = u.ID
	b.draft = map[string]string{
		FieldName:     u.Name,
		FieldUsername: u.Username,
		FieldEmail:    u.Email,
	}
}

// Editing returns the id of the row being edited.
func (b *EditBuffer) Editing() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id, b.editing
}

// Draft returns a copy of the draft values.
func (b *EditBuffer) Draft() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]string, len(b.draft))
	for k, v := range b.draft {
		out[k] = v
	}
	return out
}

// Set changes one field of the draft.
func (b *EditBuffer) Set(field, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.editing {
		return fmt.Errorf("set %s: no row is being edited", field)
	}
	switch field {
	case FieldName, FieldUsername, FieldEmail:
		b.draft[field] = value
		return nil
	default:
		return fmt.Errorf("set %s: field is not editable", field)
	}
}

// Patch turns the draft into an update carrying every editable field.
func (b *EditBuffer) Patch() schema.UserPatch {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.editing {
		return schema.UserPatch{}
	}
	name, username, email := b.draft[FieldName], b.draft[FieldUsername], b.draft[FieldEmail]
	return schema.UserPatch{Name: &name, Username: &username, Email: &email}
}

// Discard drops the draft.
func (b *EditBuffer) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.editing = false
	b.id = 0
	b.draft = nil
}
