package entity

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxFailedAttempts is the consecutive-failure count that triggers a lockout.
	MaxFailedAttempts = 5
	// LockoutDuration is how long an identity stays locked after the threshold.
	LockoutDuration = 10 * time.Minute

	// PasswordMinLength and PasswordMaxLength bound the accepted password policy.
	PasswordMinLength = 8
	PasswordMaxLength = 255
)

// AuthIdentity is the aggregate root for credential verification. It is
// independent of the business profile (tenant/customer/employee) an identity
// is linked to; (Email, AccountType) is unique.
type AuthIdentity struct {
	ID             string
	Email          string
	PasswordHash   string
	AccountType    AccountType
	IsActive       bool
	EmailVerified  bool
	LastLoginAt    *time.Time
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewAuthIdentity creates a fresh identity with the given pre-hashed password.
// Email format is validated here; password policy is enforced before hashing
// by the caller.
func NewAuthIdentity(email string, passwordHash string, accountType AccountType) (*AuthIdentity, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	now := time.Now()
	return &AuthIdentity{
		ID:             uuid.NewString(),
		Email:          email,
		PasswordHash:   passwordHash,
		AccountType:    accountType,
		IsActive:       true,
		EmailVerified:  false,
		FailedAttempts: 0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ValidateEmail checks RFC 5322 address syntax.
func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the length policy on a plaintext password.
func ValidatePassword(password string) error {
	if len(password) < PasswordMinLength || len(password) > PasswordMaxLength {
		return ErrInvalidPassword
	}
	return nil
}

// IsLocked reports whether the identity is in the Locked state at the given
// instant. Lockout is derived from LockedUntil, never stored as a flag; once
// the window passes the identity behaves as Active again without any write.
func (a *AuthIdentity) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// LoginSucceeded resets the failure counter, clears any lockout, and stamps
// the login time.
func (a *AuthIdentity) LoginSucceeded() {
	now := time.Now()
	a.FailedAttempts = 0
	a.LockedUntil = nil
	a.LastLoginAt = &now
	a.UpdatedAt = now
}

// LoginFailed increments the failure counter and, on reaching the threshold,
// sets the lockout window. The counter does not reset on failures short of
// the threshold.
func (a *AuthIdentity) LoginFailed() {
	now := time.Now()
	a.FailedAttempts++
	if a.FailedAttempts >= MaxFailedAttempts {
		until := now.Add(LockoutDuration)
		a.LockedUntil = &until
	}
	a.UpdatedAt = now
}

// VerifyEmail marks the email address as confirmed.
func (a *AuthIdentity) VerifyEmail() {
	a.EmailVerified = true
	a.UpdatedAt = time.Now()
}

// Deactivate soft-disables the identity. Identities are never hard-deleted.
func (a *AuthIdentity) Deactivate() {
	a.IsActive = false
	a.UpdatedAt = time.Now()
}

// SetPasswordHash replaces the stored hash (password reset flow).
func (a *AuthIdentity) SetPasswordHash(hash string) {
	a.PasswordHash = hash
	a.UpdatedAt = time.Now()
}
