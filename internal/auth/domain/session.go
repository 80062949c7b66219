package domain

import "time"

// Session is a signed-in browser or CLI. Only the fingerprint of the opaque
// session token is stored.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	IPAddress string
	UserAgent string
}

// IsExpired returns true if the session can no longer be used.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NeedsRefresh returns true once updateAge has passed since the last refresh.
func (s *Session) NeedsRefresh(now time.Time, updateAge time.Duration) bool {
	return now.Sub(s.UpdatedAt) >= updateAge
}
