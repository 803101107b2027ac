package models

import (
	"time"
)

// Roles assignable to a user account.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleReader = "reader"
)

type User struct {
	ID           string
	Name         string
	Email        string // unique, stored lower-cased
	PasswordHash string
	Role         string // "admin", "editor" or "reader"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the account follows the reinforced (OTP-gated)
// recovery flow.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
