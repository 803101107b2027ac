package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the payload of a signed session credential.
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// OTPChallenge is a live second-factor challenge for a login in flight.
// At most one per email; a new login supersedes any previous challenge.
type OTPChallenge struct {
	Email     string
	Code      string // 6 digits
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (c *OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
