package application

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vendra/identity-core/internal/domain/entity"
	repo "github.com/vendra/identity-core/internal/domain/repository"
	"github.com/vendra/identity-core/pkg/mailer"
	"github.com/vendra/identity-core/pkg/password"
	"github.com/vendra/identity-core/pkg/ratelimit"
	"github.com/vendra/identity-core/pkg/token"
)

type fakeIdentityRepo struct {
	mu         sync.Mutex
	byID       map[string]*entity.AuthIdentity
	failCreate error
}

func newFakeIdentityRepo() *fakeIdentityRepo {
	return &fakeIdentityRepo{byID: make(map[string]*entity.AuthIdentity)}
}

func (r *fakeIdentityRepo) Create(_ context.Context, a *entity.AuthIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	for _, existing := range r.byID {
		if existing.Email == a.Email && existing.AccountType == a.AccountType {
			return repo.ErrDuplicate
		}
	}
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *fakeIdentityRepo) FindByID(_ context.Context, id string) (*entity.AuthIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeIdentityRepo) FindByEmailAndType(_ context.Context, email string, accountType entity.AccountType) (*entity.AuthIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == email && a.AccountType == accountType {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *fakeIdentityRepo) Update(_ context.Context, a *entity.AuthIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; !ok {
		return repo.ErrNotFound
	}
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *fakeIdentityRepo) UpdatePasswordHash(_ context.Context, id string, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	a.PasswordHash = hash
	a.UpdatedAt = time.Now()
	return nil
}

func (r *fakeIdentityRepo) RecordLoginFailure(_ context.Context, id string) (int, *time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return 0, nil, repo.ErrNotFound
	}
	a.FailedAttempts++
	if a.FailedAttempts >= entity.MaxFailedAttempts {
		until := time.Now().Add(entity.LockoutDuration)
		a.LockedUntil = &until
	}
	return a.FailedAttempts, a.LockedUntil, nil
}

var _ repo.AuthIdentityRepository = (*fakeIdentityRepo)(nil)

type fakeTenantRepo struct{ byIdentity map[string]*entity.Tenant }

func (r *fakeTenantRepo) FindByAuthIdentityID(_ context.Context, id string) (*entity.Tenant, error) {
	t, ok := r.byIdentity[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return t, nil
}

type fakeCustomerRepo struct{ byIdentity map[string]*entity.Customer }

func (r *fakeCustomerRepo) FindByAuthIdentityID(_ context.Context, id string) (*entity.Customer, error) {
	c, ok := r.byIdentity[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return c, nil
}

type fakeEmployeeRepo struct{ byIdentity map[string]*entity.Employee }

func (r *fakeEmployeeRepo) FindByAuthIdentityID(_ context.Context, id string) (*entity.Employee, error) {
	e, ok := r.byIdentity[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return e, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []any
}

func (p *fakePublisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, body)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

// brokenBlacklist verifies like a healthy store but refuses writes, the shape
// of a revocation backend outage.
type brokenBlacklist struct {
	inner *token.MemoryBlacklist
}

func (b *brokenBlacklist) Add(context.Context, string, time.Duration) error {
	return errors.New("blacklist store unavailable")
}

func (b *brokenBlacklist) Contains(ctx context.Context, tok string) (bool, error) {
	return b.inner.Contains(ctx, tok)
}

type authFixture struct {
	svc        *AuthService
	identities *fakeIdentityRepo
	tenants    *fakeTenantRepo
	customers  *fakeCustomerRepo
	emailPub   *fakePublisher
	eventPub   *fakePublisher
	limiter    *ratelimit.MemoryLimiter
	tokens     *token.Service
	hasher     *password.Hasher
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	return newAuthFixtureWithBlacklist(t, token.NewMemoryBlacklist())
}

func newAuthFixtureWithBlacklist(t *testing.T, blacklist token.Blacklist) *authFixture {
	t.Helper()
	identities := newFakeIdentityRepo()
	tenants := &fakeTenantRepo{byIdentity: make(map[string]*entity.Tenant)}
	customers := &fakeCustomerRepo{byIdentity: make(map[string]*entity.Customer)}
	employees := &fakeEmployeeRepo{byIdentity: make(map[string]*entity.Employee)}
	resolver := NewAccountResolver(tenants, customers, employees)

	tokens := token.NewService("test-secret", time.Hour, 24*time.Hour, blacklist)
	hasher := password.NewHasher(bcrypt.MinCost)
	limiter := ratelimit.NewMemoryLimiter(3, time.Hour)
	emailPub := &fakePublisher{}
	eventPub := &fakePublisher{}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := NewAuthService(identities, resolver, tokens, hasher, limiter, emailPub, eventPub, nil, logger, "https://app.test/reset-password")
	return &authFixture{
		svc:        svc,
		identities: identities,
		tenants:    tenants,
		customers:  customers,
		emailPub:   emailPub,
		eventPub:   eventPub,
		limiter:    limiter,
		tokens:     tokens,
		hasher:     hasher,
	}
}

// seedTenant registers a tenant identity with the given password and links a
// tenant profile, returning the identity.
func (f *authFixture) seedTenant(t *testing.T, email, plain string) *entity.AuthIdentity {
	t.Helper()
	identity, err := f.svc.Register(context.Background(), email, plain, entity.AccountTypeTenant)
	require.NoError(t, err)
	f.tenants.byIdentity[identity.ID] = &entity.Tenant{ID: "tenant-" + identity.ID, AuthIdentityID: identity.ID, Name: "Test Tenant"}
	return identity
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	identity, err := f.svc.Register(ctx, "owner@acme.test", "s3cret-pass", entity.AccountTypeTenant)
	require.NoError(t, err)

	assert.True(t, identity.IsActive)
	assert.False(t, identity.EmailVerified)
	assert.Zero(t, identity.FailedAttempts)
	assert.NotEqual(t, "s3cret-pass", identity.PasswordHash)
	assert.True(t, f.hasher.Verify("s3cret-pass", identity.PasswordHash))

	require.Equal(t, 1, f.eventPub.count())
	ev, ok := f.eventPub.messages[0].(RegisteredEvent)
	require.True(t, ok)
	assert.Equal(t, "identity.registered", ev.Event)
	assert.Equal(t, identity.ID, ev.AuthIdentityID)
	assert.Equal(t, "TENANT", ev.AccountType)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "owner@acme.test", "s3cret-pass", entity.AccountTypeTenant)
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "owner@acme.test", "another-pass", entity.AccountTypeTenant)
	assert.ErrorIs(t, err, ErrEmailTaken)

	// The same email under a different account type is a distinct identity.
	_, err = f.svc.Register(ctx, "owner@acme.test", "another-pass", entity.AccountTypeCustomer)
	assert.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "not-an-email", "s3cret-pass", entity.AccountTypeTenant)
	assert.ErrorIs(t, err, entity.ErrInvalidEmail)

	_, err = f.svc.Register(ctx, "owner@acme.test", "short", entity.AccountTypeTenant)
	assert.ErrorIs(t, err, entity.ErrInvalidPassword)
}

func TestLoginSuccess(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	pair, err := f.svc.Login(ctx, "owner@acme.test", "s3cret-pass", entity.AccountTypeTenant)
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.True(t, pair.RefreshTokenExpiry.After(pair.AccessTokenExpiry))

	claims, err := f.tokens.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, claims.AuthIdentityID)
	assert.Equal(t, "tenant-"+identity.ID, claims.TenantID)
	assert.Empty(t, claims.CustomerID)

	stored, err := f.identities.FindByID(ctx, identity.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
	assert.Zero(t, stored.FailedAttempts)
}

func TestLoginCustomerClaims(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	identity, err := f.svc.Register(ctx, "buyer@acme.test", "s3cret-pass", entity.AccountTypeCustomer)
	require.NoError(t, err)
	f.customers.byIdentity[identity.ID] = &entity.Customer{ID: "cust-1", AuthIdentityID: identity.ID, TenantID: "tenant-9"}

	pair, err := f.svc.Login(ctx, "buyer@acme.test", "s3cret-pass", entity.AccountTypeCustomer)
	require.NoError(t, err)

	claims, err := f.tokens.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", claims.CustomerID)
	assert.Equal(t, "tenant-9", claims.TenantID)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Login(context.Background(), "ghost@acme.test", "whatever-pass", entity.AccountTypeTenant)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	_, err := f.svc.Login(ctx, "owner@acme.test", "wrong-pass", entity.AccountTypeTenant)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	stored, err := f.identities.FindByID(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FailedAttempts)
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	for i := 0; i < entity.MaxFailedAttempts; i++ {
		_, err := f.svc.Login(ctx, "owner@acme.test", "wrong-pass", entity.AccountTypeTenant)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Even the correct password is refused while the lockout window holds.
	_, err := f.svc.Login(ctx, "owner@acme.test", "s3cret-pass", entity.AccountTypeTenant)
	assert.ErrorIs(t, err, ErrAccountLocked)

	stored, err := f.identities.FindByID(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MaxFailedAttempts, stored.FailedAttempts)
	require.NotNil(t, stored.LockedUntil)
}

func TestLoginAfterLockoutExpires(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	// Simulate an elapsed lockout window.
	past := time.Now().Add(-time.Second)
	f.identities.byID[identity.ID].FailedAttempts = entity.MaxFailedAttempts
	f.identities.byID[identity.ID].LockedUntil = &past

	pair, err := f.svc.Login(ctx, "owner@acme.test", "s3cret-pass", entity.AccountTypeTenant)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	stored, err := f.identities.FindByID(ctx, identity.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.FailedAttempts)
	assert.Nil(t, stored.LockedUntil)
}

func TestLoginInactiveIdentity(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	f.identities.byID[identity.ID].IsActive = false

	_, err := f.svc.Login(ctx, "owner@acme.test", "s3cret-pass", entity.AccountTypeTenant)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginMissingProfile(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "owner@acme.test", "s3cret-pass", entity.AccountTypeTenant)
	require.NoError(t, err)
	// No tenant profile linked.

	_, err = f.svc.Login(ctx, "owner@acme.test", "s3cret-pass", entity.AccountTypeTenant)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestForgotPasswordKnownEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	require.NoError(t, f.svc.ForgotPassword(ctx, "owner@acme.test", entity.AccountTypeTenant))

	require.Equal(t, 1, f.emailPub.count())
	job, ok := f.emailPub.messages[0].(mailer.EmailJob)
	require.True(t, ok)
	assert.Equal(t, "owner@acme.test", job.To)
	assert.Equal(t, mailer.TemplatePasswordReset, job.Template)
	assert.Contains(t, job.Data["ResetURL"], "https://app.test/reset-password?token=")
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	// Indistinguishable from the known-email case at the API surface.
	require.NoError(t, f.svc.ForgotPassword(ctx, "ghost@acme.test", entity.AccountTypeTenant))
	assert.Zero(t, f.emailPub.count())

	// The attempt still consumes rate-limit budget.
	mins, err := f.limiter.MinutesUntilReset(ctx, "ghost@acme.test")
	require.NoError(t, err)
	assert.Positive(t, mins)
}

func TestForgotPasswordRateLimited(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.ForgotPassword(ctx, "owner@acme.test", entity.AccountTypeTenant))
	}

	err := f.svc.ForgotPassword(ctx, "owner@acme.test", entity.AccountTypeTenant)
	var rle *RateLimitExceededError
	require.ErrorAs(t, err, &rle)
	assert.Positive(t, rle.MinutesUntilReset)

	// No email was dispatched for the limited attempt.
	assert.Equal(t, 3, f.emailPub.count())
}

func TestUpdatePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	resetToken, _, err := f.tokens.IssueReset(identity.Email, identity.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdatePassword(ctx, resetToken, "new-s3cret-pass"))

	// Old password out, new password in.
	_, err = f.svc.Login(ctx, "owner@acme.test", "s3cret-pass", entity.AccountTypeTenant)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "owner@acme.test", "new-s3cret-pass", entity.AccountTypeTenant)
	assert.NoError(t, err)
}

func TestUpdatePasswordTokenIsSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	resetToken, _, err := f.tokens.IssueReset(identity.Email, identity.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdatePassword(ctx, resetToken, "new-s3cret-pass"))

	err = f.svc.UpdatePassword(ctx, resetToken, "even-newer-pass")
	assert.ErrorIs(t, err, token.ErrBlacklisted)
}

func TestUpdatePasswordRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	pair, err := f.svc.Login(ctx, "owner@acme.test", "s3cret-pass", entity.AccountTypeTenant)
	require.NoError(t, err)

	err = f.svc.UpdatePassword(ctx, pair.AccessToken, "new-s3cret-pass")
	assert.ErrorIs(t, err, token.ErrWrongPurpose)
}

func TestUpdatePasswordEmailMismatch(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	resetToken, _, err := f.tokens.IssueReset(identity.Email, identity.ID)
	require.NoError(t, err)

	// The address changed after the token was issued; the binding is gone.
	f.identities.byID[identity.ID].Email = "renamed@acme.test"

	err = f.svc.UpdatePassword(ctx, resetToken, "new-s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestUpdatePasswordClearsResetAttempts(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.ForgotPassword(ctx, "owner@acme.test", entity.AccountTypeTenant))
	}
	limited, err := f.limiter.IsRateLimited(ctx, "owner@acme.test")
	require.NoError(t, err)
	require.True(t, limited)

	resetToken, _, err := f.tokens.IssueReset(identity.Email, identity.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdatePassword(ctx, resetToken, "new-s3cret-pass"))

	limited, err = f.limiter.IsRateLimited(ctx, "owner@acme.test")
	require.NoError(t, err)
	assert.False(t, limited)
}

func TestUpdatePasswordFailsWhenRevocationFails(t *testing.T) {
	f := newAuthFixtureWithBlacklist(t, &brokenBlacklist{inner: token.NewMemoryBlacklist()})
	ctx := context.Background()
	identity := f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	resetToken, _, err := f.tokens.IssueReset(identity.Email, identity.ID)
	require.NoError(t, err)

	// If the token cannot be revoked it is not single-use; the flow must
	// surface the failure rather than report success.
	err = f.svc.UpdatePassword(ctx, resetToken, "new-s3cret-pass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalidate consumed reset token")
}

func TestRefreshFailsWhenRevocationFails(t *testing.T) {
	f := newAuthFixtureWithBlacklist(t, &brokenBlacklist{inner: token.NewMemoryBlacklist()})
	ctx := context.Background()
	identity := f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	refresh, _, err := f.tokens.IssueRefresh(token.AccessClaims{
		Email:          identity.Email,
		AuthIdentityID: identity.ID,
		TenantID:       "tenant-" + identity.ID,
	})
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, refresh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalidate rotated refresh token")
}

func TestRefreshRotatesTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	pair, err := f.svc.Login(ctx, "owner@acme.test", "s3cret-pass", entity.AccountTypeTenant)
	require.NoError(t, err)

	fresh, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)

	// The consumed refresh token cannot be replayed.
	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, token.ErrBlacklisted)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	pair, err := f.svc.Login(ctx, "owner@acme.test", "s3cret-pass", entity.AccountTypeTenant)
	require.NoError(t, err)

	assert.True(t, f.svc.ValidateToken(ctx, pair.AccessToken))
	require.NoError(t, f.svc.Logout(ctx, pair.AccessToken))
	assert.False(t, f.svc.ValidateToken(ctx, pair.AccessToken))
}

func TestValidateToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedTenant(t, "owner@acme.test", "s3cret-pass")

	assert.False(t, f.svc.ValidateToken(ctx, "garbage"))

	pair, err := f.svc.Login(ctx, "owner@acme.test", "s3cret-pass", entity.AccountTypeTenant)
	require.NoError(t, err)
	assert.True(t, f.svc.ValidateToken(ctx, pair.AccessToken))
}
