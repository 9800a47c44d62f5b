package domain

import "time"

// Auth event types recorded in the audit trail.
const (
	EventRegister      = "register"
	EventLoginOK       = "login_ok"
	EventLoginFailed   = "login_failed"
	EventRefreshOK     = "refresh_ok"
	EventRefreshDenied = "refresh_denied"
	EventLogout        = "logout"
)

// AuthEvent is a single entry in the authentication audit trail.
// Events are recorded asynchronously and best-effort.
type AuthEvent struct {
	Type   string
	UserID string
	Email  string
	At     time.Time
}
