// Package token issues and verifies the three token kinds used by the
// identity core: access, refresh, and password-reset. All are HS256-signed
// with the server secret; reset tokens additionally carry a purpose
// discriminator and a fixed fifteen-minute lifetime.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResetTTL is the non-configurable lifetime of password-reset tokens.
const ResetTTL = 15 * time.Minute

// Service signs and validates tokens and consults the revocation blacklist.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	blacklist  Blacklist
}

func NewService(secret string, accessTTL, refreshTTL time.Duration, blacklist Blacklist) *Service {
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		blacklist:  blacklist,
	}
}

// IssueAccess signs an access token for the given claim set.
func (s *Service) IssueAccess(c AccessClaims) (string, time.Time, error) {
	return s.issue(c, s.accessTTL)
}

// IssueRefresh signs a refresh token carrying the same claim set with the
// long-lived TTL.
func (s *Service) IssueRefresh(c AccessClaims) (string, time.Time, error) {
	return s.issue(c, s.refreshTTL)
}

func (s *Service) issue(c AccessClaims, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(exp)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &c)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// IssueReset signs a password-reset token for the identity.
func (s *Service) IssueReset(email, authIdentityID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ResetTTL)
	c := ResetClaims{
		Email:          email,
		AuthIdentityID: authIdentityID,
		Purpose:        PurposePasswordReset,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &c)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign reset token: %w", err)
	}
	return signed, exp, nil
}

// Verify validates an access or refresh token. Revocation membership is
// checked before the signature and expiry are trusted for use.
func (s *Service) Verify(ctx context.Context, tokenStr string) (*AccessClaims, error) {
	if err := s.checkBlacklist(ctx, tokenStr); err != nil {
		return nil, err
	}
	claims := &AccessClaims{}
	if err := s.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

// VerifyReset validates a password-reset token, including its purpose
// discriminator: a token lacking the purpose, or carrying another value,
// is rejected even with a valid signature and expiry.
func (s *Service) VerifyReset(ctx context.Context, tokenStr string) (*ResetClaims, error) {
	if err := s.checkBlacklist(ctx, tokenStr); err != nil {
		return nil, err
	}
	claims := &ResetClaims{}
	if err := s.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Purpose != PurposePasswordReset {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

// Invalidate adds the raw token string to the revocation blacklist, keyed by
// the token's own remaining lifetime so entries expire with the token.
func (s *Service) Invalidate(ctx context.Context, tokenStr string) error {
	ttl := s.refreshTTL // upper bound when the expiry cannot be read
	if exp, err := tokenExpiry(tokenStr); err == nil {
		ttl = time.Until(exp)
		if ttl <= 0 {
			return nil
		}
	}
	return s.blacklist.Add(ctx, tokenStr, ttl)
}

func (s *Service) checkBlacklist(ctx context.Context, tokenStr string) error {
	revoked, err := s.blacklist.Contains(ctx, tokenStr)
	if err != nil {
		return fmt.Errorf("blacklist lookup: %w", err)
	}
	if revoked {
		return ErrBlacklisted
	}
	return nil
}

func (s *Service) parse(tokenStr string, claims jwt.Claims) error {
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return classify(err)
	}
	if !tkn.Valid {
		return ErrInvalidSignature
	}
	return nil
}

// tokenExpiry reads the expiry from a token without validating it. The
// result is only used to bound blacklist entry lifetime.
func tokenExpiry(tokenStr string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, errors.New("no expiry claim")
	}
	return exp.Time, nil
}
