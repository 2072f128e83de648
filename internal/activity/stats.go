package activity

import "github.com/celerix-dev/celerix-dash/pkg/schema"

// RecentLimit is how many entries the dashboard shows as recent activity.
const RecentLimit = 5

// Stats are the dashboard counters derived from the log.
type Stats struct {
	TotalLogs      int               `json:"totalLogs"`
	UserActions    int               `json:"userActions"`
	PageViews      int               `json:"pageViews"`
	RecentActivity int               `json:"recentActivity"`
	Recent         []schema.LogEntry `json:"recent"`
}

// ComputeStats derives the dashboard counters from entries (newest first).
func ComputeStats(entries []schema.LogEntry) Stats {
	st := Stats{TotalLogs: len(entries)}
	for _, e := range entries {
		if e.Page == schema.PageUsers {
			st.UserActions++
		}
		if e.Action == schema.ActionPageView {
			st.PageViews++
		}
	}

	n := min(RecentLimit, len(entries))
	st.RecentActivity = n
	st.Recent = make([]schema.LogEntry, n)
	copy(st.Recent, entries[:n])
	return st
}

// Stats computes the counters over the current log.
func (s *Store) Stats() Stats {
	return ComputeStats(s.Entries())
}
