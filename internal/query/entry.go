package query

import "time"

// Key identifies one cached request. Entries with different keys are
// independent.
type Key struct {
	Resource string
	Param    string
}

func (k Key) String() string {
	if k.Param == "" {
		return k.Resource
	}
	return k.Resource + "/" + k.Param
}

// flightKey is the de-duplication key; it cannot collide across fields.
func (k Key) flightKey() string {
	return k.Resource + "\x00" + k.Param
}

// Status is the lifecycle state of an entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// EntryState is a read-only view of an entry.
type EntryState struct {
	Status    Status
	Stale     bool
	HasData   bool
	Err       error
	UpdatedAt time.Time
	// Fetches counts the requests started for the entry, retries excluded.
	Fetches int
}

// Fresh reports whether a read can be served without a request.
func (s EntryState) Fresh() bool {
	return s.Status == StatusSuccess && !s.Stale
}

type entry struct {
	data      any
	hasData   bool
	status    Status
	stale     bool
	err       error
	updatedAt time.Time
	fetches   int

	// gen is bumped by Cancel; flights started under an older generation
	// have their results dropped.
	gen     uint64
	flights map[uint64]func()
}

func (e *entry) state() EntryState {
	return EntryState{
		Status:    e.status,
		Stale:     e.stale,
		HasData:   e.hasData,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
		Fetches:   e.fetches,
	}
}

// settle moves a loading entry back to the state its data allows.
func (e *entry) settle() {
	if e.status != StatusLoading {
		return
	}
	if e.hasData {
		e.status = StatusSuccess
	} else {
		e.status = StatusIdle
	}
}
