package domain

import (
	"time"
)

// Session represents an authenticated session issued by the sign-in flow.
// The token is the bearer credential presented on authenticated requests.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
