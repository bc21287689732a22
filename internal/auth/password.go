package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch signals the plaintext does not match the stored digest.
var ErrPasswordMismatch = errors.New("password mismatch")

// ErrCorruptDigest signals the stored digest is not a valid bcrypt hash.
// Distinct from a mismatch: this means the record itself is damaged.
var ErrCorruptDigest = errors.New("corrupt password digest")

// HashPassword hashes a plaintext password with the configured cost. The
// salt is generated per call and embedded in the output.
func HashPassword(password string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value in constant
// time. Returns ErrPasswordMismatch on a wrong password and ErrCorruptDigest
// when the stored value is not a bcrypt digest at all.
func ComparePassword(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return ErrCorruptDigest
}
