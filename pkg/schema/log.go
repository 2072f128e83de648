package schema

import "time"

// Activity log action tags.
const (
	ActionPageView         = "PAGE_VIEW"
	ActionLogin            = "LOGIN"
	ActionLoginFailed      = "LOGIN_FAILED"
	ActionLogout           = "LOGOUT"
	ActionUserView         = "USER_VIEW"
	ActionUserDelete       = "USER_DELETE"
	ActionUserDeleteFailed = "USER_DELETE_FAILED"
	ActionUserUpdate       = "USER_UPDATE"
	ActionUserUpdateFailed = "USER_UPDATE_FAILED"
)

// Pages an activity can originate from.
const (
	PageApp        = "App"
	PageAuth       = "Auth"
	PageDashboard  = "Dashboard"
	PageUsers      = "Users"
	PageUserDetail = "UserDetail"
	PageLogs       = "Logs"
)

// LogEntry is one record of the activity log. Entries are created by appends
// and never modified afterwards.
type LogEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details"`
	Page      string    `json:"page"`
}
