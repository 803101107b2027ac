package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost       = 12
	ResetTokenBytes  = 32 // 256 bits
	MinPasswordLen   = 8
	MinResetPassword = 6 // reset flow accepts a shorter minimum
	MaxPasswordLen   = 128
)

// PasswordValidationError carries the individual policy failures. Callers
// surface only the generic message; the details stay server-side.
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return "invalid password"
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// GenerateResetToken returns a hex-encoded 256-bit random token.
func GenerateResetToken() (string, error) {
	bytes := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

var characterClasses = []struct {
	name string
	is   func(rune) bool
}{
	{"uppercase letter", unicode.IsUpper},
	{"lowercase letter", unicode.IsLower},
	{"digit", unicode.IsDigit},
	{"special character", func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) }},
}

// ValidatePassword enforces the account-provisioning password policy: length
// bounds plus one rune from each character class.
func ValidatePassword(password string) error {
	var errs []string

	if len(password) < MinPasswordLen {
		errs = append(errs, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		errs = append(errs, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	for _, class := range characterClasses {
		found := false
		for _, r := range password {
			if class.is(r) {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, "must contain at least one "+class.name)
		}
	}

	if len(errs) > 0 {
		return &PasswordValidationError{Errors: errs}
	}

	return nil
}

// ValidateResetPassword enforces the weaker policy accepted when a password
// is replaced through the reset flow.
func ValidateResetPassword(password string) error {
	if len(password) < MinResetPassword {
		return &PasswordValidationError{Errors: []string{
			fmt.Sprintf("must be at least %d characters", MinResetPassword),
		}}
	}
	if len(password) > MaxPasswordLen {
		return &PasswordValidationError{Errors: []string{
			fmt.Sprintf("must be at most %d characters", MaxPasswordLen),
		}}
	}
	return nil
}
