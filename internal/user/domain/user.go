package domain

import (
	"errors"
	"strings"
	"time"
)

// User is an account that can log in with a password.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string // bcrypt; never logged
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// NormalizeEmail lower-cases and trims an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

// CanLogin reports whether the account may start new sessions.
func (u *User) CanLogin() bool {
	return u.Status == UserStatusActive && u.PasswordHash != ""
}
