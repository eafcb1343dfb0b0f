package application

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials covers both unknown identity and wrong password;
	// the two are deliberately indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked means the lockout window is active.
	ErrAccountLocked = errors.New("account is temporarily locked")
	// ErrAccountInactive means the identity was deactivated.
	ErrAccountInactive = errors.New("account is deactivated")
	// ErrEmailTaken means the (email, account type) pair is already registered.
	ErrEmailTaken = errors.New("email is already registered for this account type")
	// ErrIdentityNotFound means the identity referenced by valid claims is gone.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrInvalidResetToken is the generic failure for the update-password
	// flow; it does not reveal which check failed.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	// ErrProfileNotFound signals a data-integrity violation: an identity with
	// no linked profile for its account type.
	ErrProfileNotFound = errors.New("linked profile not found")
)

// RateLimitExceededError carries how long the caller has to wait before the
// reset window opens again.
type RateLimitExceededError struct {
	MinutesUntilReset int
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("too many password reset requests, try again in %d minutes", e.MinutesUntilReset)
}
