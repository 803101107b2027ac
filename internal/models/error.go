package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Challenge-step errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIncorrectOTP       = errors.New("incorrect otp")
	ErrOTPExpired         = errors.New("otp expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrEmailMismatch      = errors.New("email does not match token")

	// Recovered internally, never surfaced to clients. ErrStoreUnavailable
	// switches the pipeline to the offline caches; ErrDeliveryFailed switches
	// to the inline-disclosure fallback.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	ErrDeliveryFailed   = errors.New("mail delivery failed")
)

// BlockedError reports an active lockout window. RetryAfter is how long the
// caller must wait before another attempt is accepted.
type BlockedError struct {
	RetryAfter time.Duration
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("account blocked, retry in %ds", int(e.RetryAfter.Seconds()))
}

// Is lets errors.Is match any BlockedError regardless of the window length.
func (e *BlockedError) Is(target error) bool {
	_, ok := target.(*BlockedError)
	return ok
}
