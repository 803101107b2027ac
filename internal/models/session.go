package models

import "time"

// Session states. At most one session per user may be active at any time;
// the repository enforces the invariant transactionally.
const (
	SessionActive      = "active"
	SessionDeactivated = "deactivated"
)

// GeoLocation is the resolved origin of a session. Nil when the resolver is
// unavailable; that is recorded, not treated as an error.
type GeoLocation struct {
	Country  string  `json:"country"`
	Region   string  `json:"region"`
	City     string  `json:"city"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Timezone string  `json:"timezone"`
}

type Session struct {
	ID           string
	UserID       string
	Name         string
	Email        string
	IP           string
	Location     *GeoLocation
	Token        string
	State        string // "active" or "deactivated"
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time
	Duration     time.Duration
}

// Expired reports whether the session's window has elapsed without it having
// been explicitly deactivated.
func (s *Session) Expired(now time.Time) bool {
	return s.State == SessionActive && !now.Before(s.ExpiresAt)
}
