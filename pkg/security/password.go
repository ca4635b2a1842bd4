package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password length limits. bcrypt ignores input past 72 bytes, so longer
// passwords are refused instead of silently truncated.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

var (
	ErrPasswordShort    = errors.New("password too short")
	ErrPasswordLong     = errors.New("password too long")
	ErrPasswordMismatch = errors.New("password does not match")
)

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt hasher. Out-of-range costs fall back to
// bcrypt.DefaultCost.
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

// CheckPolicy reports whether password meets the length limits.
func CheckPolicy(password string) error {
	switch {
	case len(password) < MinPasswordLen:
		return ErrPasswordShort
	case len(password) > MaxPasswordLen:
		return ErrPasswordLong
	}
	return nil
}

// PolicyMessage turns a policy error into a message for the client. ok is
// false for any other error.
func PolicyMessage(err error) (msg string, ok bool) {
	switch {
	case errors.Is(err, ErrPasswordShort):
		return fmt.Sprintf("password must be at least %d characters", MinPasswordLen), true
	case errors.Is(err, ErrPasswordLong):
		return fmt.Sprintf("password must be at most %d bytes", MaxPasswordLen), true
	}
	return "", false
}

func (b *bcryptHasher) Hash(password string) (string, error) {
	if err := CheckPolicy(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Compare returns ErrPasswordMismatch when password does not produce
// hashedPassword.
func (b *bcryptHasher) Compare(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
