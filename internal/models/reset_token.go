package models

import "time"

// ResetToken is an opaque one-shot credential for the password-reset flow.
// Admin accounts get a short-lived token carrying an additional OTP; standard
// accounts get a plain 15-minute token. OTP is nil for the standard flow.
type ResetToken struct {
	Token     string
	Email     string
	OTP       *string // 6-digit code, admin flow only
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RequiresOTP reports whether the token must pass OTP verification before it
// can be exchanged for a plain reset token.
func (t *ResetToken) RequiresOTP() bool {
	return t.OTP != nil
}

func (t *ResetToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
