package auth

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// OTPGenerator produces the 6-digit codes used for login challenges and the
// admin reset flow. Codes are derived from a fresh random secret on every
// call with a wide TOTP step, so a code stays stable for the step window but
// is not guessable from earlier ones.
type OTPGenerator struct {
	step time.Duration
}

// NewOTPGenerator creates a generator with the given step window.
func NewOTPGenerator(step time.Duration) *OTPGenerator {
	return &OTPGenerator{step: step}
}

// Generate returns a 6-digit numeric code.
func (g *OTPGenerator) Generate() (string, error) {
	secret := make([]byte, 20)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to generate otp secret: %w", err)
	}

	code, err := totp.GenerateCodeCustom(
		base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret),
		time.Now(),
		totp.ValidateOpts{
			Period:    uint(g.step.Seconds()),
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp code: %w", err)
	}

	return code, nil
}

// ValidCodeFormat reports whether code looks like a 6-digit OTP.
func ValidCodeFormat(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
