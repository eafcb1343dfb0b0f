package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrBlacklisted means the token was explicitly invalidated (logout or
	// consumed reset). Checked before signature and expiry are trusted.
	ErrBlacklisted = errors.New("token has been invalidated")
	// ErrInvalidSignature means the signature does not match the server secret.
	ErrInvalidSignature = errors.New("token signature is invalid")
	// ErrExpired means the token is past its expiry.
	ErrExpired = errors.New("token has expired")
	// ErrNotYetValid means the token carries a future not-before/issued-at.
	ErrNotYetValid = errors.New("token is not valid yet")
	// ErrWrongPurpose means the token was minted for a different use.
	ErrWrongPurpose = errors.New("token purpose mismatch")
	// ErrMalformed covers tokens that cannot be parsed at all.
	ErrMalformed = errors.New("token is malformed")
)

// classify maps jwt/v5 parse errors onto the package's error kinds.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return ErrInvalidSignature
	}
}
