package view

import "sync"

// Notice kinds.
const (
	KindSuccess = "success"
	KindError   = "error"
)

// Notice is a message shown once.
type Notice struct {
	Kind    string
	Message string
}

// Flash holds at most one pending notice. Take consumes it.
type Flash struct {
	mu      sync.Mutex
	pending *Notice
}

func (f *Flash) Success(msg string) { f.set(Notice{Kind: KindSuccess, Message: msg}) }
func (f *Flash) Error(msg string)   { f.set(Notice{Kind: KindError, Message: msg}) }

func (f *Flash) set(n Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = &n
}

// Take returns the pending notice and clears it.
func (f *Flash) Take() (Notice, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pending == nil {
		return Notice{}, false
	}
	n := *f.pending
	f.pending = nil
	return n, true
}
