package domain

import (
	"strings"
	"time"
)

// Role enumerates account privilege levels.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User is the domain model for an account. Email is stored lower-cased and
// trimmed; uniqueness is enforced at write time. The two ephemeral token
// pairs live inline on the record: at most one pending token of each kind,
// reissuing overwrites the prior one.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role

	IsEmailVerified          bool
	EmailVerificationToken   *string
	EmailVerificationExpires *time.Time
	PasswordResetToken       *string
	PasswordResetExpires     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeEmail canonicalizes an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
