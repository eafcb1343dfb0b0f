package token

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func newTestService() *Service {
	return NewService(testSecret, time.Hour, 24*time.Hour, NewMemoryBlacklist())
}

func TestIssueAndVerifyAccess(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	signed, exp, err := svc.IssueAccess(AccessClaims{
		Email:          "owner@acme.test",
		AuthIdentityID: "id-1",
		TenantID:       "tenant-1",
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Second)

	claims, err := svc.Verify(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.test", claims.Email)
	assert.Equal(t, "id-1", claims.AuthIdentityID)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Empty(t, claims.Purpose)
}

func TestRefreshTTLIsLonger(t *testing.T) {
	svc := newTestService()

	_, accessExp, err := svc.IssueAccess(AccessClaims{AuthIdentityID: "id-1"})
	require.NoError(t, err)
	_, refreshExp, err := svc.IssueRefresh(AccessClaims{AuthIdentityID: "id-1"})
	require.NoError(t, err)

	assert.True(t, refreshExp.After(accessExp))
}

func TestVerifyRejectsResetToken(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	reset, _, err := svc.IssueReset("owner@acme.test", "id-1")
	require.NoError(t, err)

	// A reset token is well-signed and unexpired but must never pass as an
	// access token.
	_, err = svc.Verify(ctx, reset)
	assert.ErrorIs(t, err, ErrWrongPurpose)
}

func TestVerifyResetRejectsAccessToken(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	access, _, err := svc.IssueAccess(AccessClaims{Email: "owner@acme.test", AuthIdentityID: "id-1"})
	require.NoError(t, err)

	_, err = svc.VerifyReset(ctx, access)
	assert.ErrorIs(t, err, ErrWrongPurpose)
}

func TestVerifyResetRoundTrip(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	reset, exp, err := svc.IssueReset("owner@acme.test", "id-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(ResetTTL), exp, time.Second)

	claims, err := svc.VerifyReset(ctx, reset)
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.test", claims.Email)
	assert.Equal(t, "id-1", claims.AuthIdentityID)
	assert.Equal(t, PurposePasswordReset, claims.Purpose)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	svc := newTestService()
	other := NewService("a-different-secret", time.Hour, 24*time.Hour, NewMemoryBlacklist())
	ctx := context.Background()

	signed, _, err := other.IssueAccess(AccessClaims{AuthIdentityID: "id-1"})
	require.NoError(t, err)

	_, err = svc.Verify(ctx, signed)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc := NewService(testSecret, -time.Minute, 24*time.Hour, NewMemoryBlacklist())
	ctx := context.Background()

	signed, _, err := svc.IssueAccess(AccessClaims{AuthIdentityID: "id-1"})
	require.NoError(t, err)

	_, err = svc.Verify(ctx, signed)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	svc := newTestService()
	_, err := svc.Verify(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	// alg=none must never be accepted.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &AccessClaims{AuthIdentityID: "id-1"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, raw)
	assert.Error(t, err)
}

func TestInvalidateBlocksBeforeSignatureCheck(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	signed, _, err := svc.IssueAccess(AccessClaims{AuthIdentityID: "id-1"})
	require.NoError(t, err)

	_, err = svc.Verify(ctx, signed)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(ctx, signed))

	_, err = svc.Verify(ctx, signed)
	assert.ErrorIs(t, err, ErrBlacklisted)
}

func TestInvalidateResetTokenSingleUse(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	reset, _, err := svc.IssueReset("owner@acme.test", "id-1")
	require.NoError(t, err)

	_, err = svc.VerifyReset(ctx, reset)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(ctx, reset))

	_, err = svc.VerifyReset(ctx, reset)
	assert.ErrorIs(t, err, ErrBlacklisted)
}

func TestInvalidateExpiredTokenIsNoop(t *testing.T) {
	svc := NewService(testSecret, -time.Minute, 24*time.Hour, NewMemoryBlacklist())
	ctx := context.Background()

	signed, _, err := svc.IssueAccess(AccessClaims{AuthIdentityID: "id-1"})
	require.NoError(t, err)

	// The token already expired, so there is nothing worth blacklisting.
	require.NoError(t, svc.Invalidate(ctx, signed))
	bl := svc.blacklist.(*MemoryBlacklist)
	revoked, err := bl.Contains(ctx, signed)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryBlacklistSweep(t *testing.T) {
	bl := NewMemoryBlacklist()
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, "live", time.Hour))
	require.NoError(t, bl.Add(ctx, "dead", -time.Second))

	assert.Equal(t, 1, bl.Sweep())

	revoked, err := bl.Contains(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = bl.Contains(ctx, "dead")
	require.NoError(t, err)
	assert.False(t, revoked)
}
