package model

import "time"

// Session is a server-side session: an opaque ID handed to the browser plus
// the cached upstream user record. The record is replaced wholesale on each
// background refresh; stale data is deliberately kept when a refresh fails.
type Session struct {
	ID          string     `json:"id"`
	User        UserRecord `json:"user"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RefreshedAt time.Time  `json:"refreshed_at"`
	Console     bool       `json:"console,omitempty"` // break-glass console login
}

// IsExpired reports whether the session has outlived its TTL.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsAdmin reports whether the cached record clears the admin threshold.
// Console sessions are always admin.
func (s *Session) IsAdmin() bool {
	return s.Console || s.User.IsAdmin()
}
