package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vendra/identity-core/internal/audit"
	"github.com/vendra/identity-core/internal/domain/entity"
	repo "github.com/vendra/identity-core/internal/domain/repository"
	"github.com/vendra/identity-core/pkg/mailer"
	"github.com/vendra/identity-core/pkg/password"
	"github.com/vendra/identity-core/pkg/ratelimit"
	"github.com/vendra/identity-core/pkg/token"
)

// ForgotPasswordMessage is returned by ForgotPassword whether or not the
// email is registered, so responses cannot be used to enumerate accounts.
const ForgotPasswordMessage = "If the email exists, a password reset link has been sent"

// Publisher abstracts a message queue the service emits onto.
// helpers.RabbitPublisher satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// RegisteredEvent is published after a successful registration so profile
// provisioning collaborators can create the linked tenant/customer/employee
// record.
type RegisteredEvent struct {
	Event          string `json:"event"`
	AuthIdentityID string `json:"auth_identity_id"`
	Email          string `json:"email"`
	AccountType    string `json:"account_type"`
	RegisteredAt   string `json:"registered_at"`
}

// TokenPair carries a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// AuthService composes the identity aggregate, credential verifier, account
// resolver, token service, and reset rate limiter into the exposed flows.
type AuthService struct {
	Identities   repo.AuthIdentityRepository
	Resolver     *AccountResolver
	Tokens       *token.Service
	Hasher       *password.Hasher
	ResetLimiter ratelimit.Limiter
	EmailPub     Publisher
	EventPub     Publisher
	Audit        *audit.Recorder
	Logger       *logrus.Logger
	ResetURL     string
}

func NewAuthService(
	identities repo.AuthIdentityRepository,
	resolver *AccountResolver,
	tokens *token.Service,
	hasher *password.Hasher,
	resetLimiter ratelimit.Limiter,
	emailPub Publisher,
	eventPub Publisher,
	auditRec *audit.Recorder,
	logger *logrus.Logger,
	resetURL string,
) *AuthService {
	return &AuthService{
		Identities:   identities,
		Resolver:     resolver,
		Tokens:       tokens,
		Hasher:       hasher,
		ResetLimiter: resetLimiter,
		EmailPub:     emailPub,
		EventPub:     eventPub,
		Audit:        auditRec,
		Logger:       logger,
		ResetURL:     resetURL,
	}
}

// Register creates a new identity and announces it for profile provisioning.
func (s *AuthService) Register(ctx context.Context, email, plainPassword string, accountType entity.AccountType) (*entity.AuthIdentity, error) {
	if err := entity.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := entity.ValidatePassword(plainPassword); err != nil {
		return nil, err
	}

	hash, err := s.Hasher.Hash(plainPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	identity, err := entity.NewAuthIdentity(email, hash, accountType)
	if err != nil {
		return nil, err
	}
	if err := s.Identities.Create(ctx, identity); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	if s.EventPub != nil {
		ev := RegisteredEvent{
			Event:          "identity.registered",
			AuthIdentityID: identity.ID,
			Email:          identity.Email,
			AccountType:    identity.AccountType.String(),
			RegisteredAt:   identity.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if pErr := s.EventPub.PublishJSON(ctx, ev); pErr != nil && s.Logger != nil {
			s.Logger.WithError(pErr).WithField("email", email).Warn("publish registered event failed")
		}
	}
	s.Audit.Record(ctx, audit.ActionRegistered, identity.ID, identity.Email, map[string]any{
		"account_type": identity.AccountType.String(),
	})
	return identity, nil
}

// Login verifies credentials and issues an access/refresh pair bound to the
// identity's tenant-scoped profile.
func (s *AuthService) Login(ctx context.Context, email, plainPassword string, accountType entity.AccountType) (*TokenPair, error) {
	identity, err := s.Identities.FindByEmailAndType(ctx, email, accountType)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Burn the same hashing cost as a real comparison so unknown
			// users cannot be told apart from wrong passwords by latency.
			s.Hasher.DummyCompare(plainPassword)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}

	now := time.Now()
	if identity.IsLocked(now) {
		return nil, ErrAccountLocked
	}
	if !identity.IsActive {
		s.Hasher.DummyCompare(plainPassword)
		return nil, ErrInvalidCredentials
	}

	if !s.Hasher.Verify(plainPassword, identity.PasswordHash) {
		attempts, lockedUntil, rErr := s.Identities.RecordLoginFailure(ctx, identity.ID)
		if rErr != nil {
			return nil, fmt.Errorf("record login failure: %w", rErr)
		}
		fields := map[string]any{"failed_attempts": attempts}
		s.Audit.Record(ctx, audit.ActionLoginFailure, identity.ID, identity.Email, fields)
		if lockedUntil != nil && now.Before(*lockedUntil) {
			s.Audit.Record(ctx, audit.ActionAccountLocked, identity.ID, identity.Email, map[string]any{
				"locked_until": lockedUntil.UTC().Format(time.RFC3339),
			})
		}
		return nil, ErrInvalidCredentials
	}

	identity.LoginSucceeded()
	if err := s.Identities.Update(ctx, identity); err != nil {
		return nil, fmt.Errorf("persist login: %w", err)
	}

	pair, err := s.issuePair(ctx, identity)
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, audit.ActionLoginSuccess, identity.ID, identity.Email, nil)
	return pair, nil
}

func (s *AuthService) issuePair(ctx context.Context, identity *entity.AuthIdentity) (*TokenPair, error) {
	acc, err := s.Resolver.Resolve(ctx, identity.AccountType, identity.ID)
	if err != nil {
		return nil, err
	}
	claims := token.AccessClaims{
		Email:          identity.Email,
		AuthIdentityID: identity.ID,
		TenantID:       acc.TenantID,
	}
	switch identity.AccountType {
	case entity.AccountTypeCustomer:
		claims.CustomerID = acc.ProfileID
	case entity.AccountTypeEmployee:
		claims.EmployeeID = acc.ProfileID
	}

	access, aexp, err := s.Tokens.IssueAccess(claims)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, rexp, err := s.Tokens.IssueRefresh(claims)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:        access,
		AccessTokenExpiry:  aexp,
		RefreshToken:       refresh,
		RefreshTokenExpiry: rexp,
	}, nil
}

// Refresh rotates a valid refresh token into a fresh pair. The consumed
// refresh token is invalidated so it cannot be replayed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.Tokens.Verify(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	identity, err := s.Identities.FindByID(ctx, claims.AuthIdentityID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	if !identity.IsActive {
		return nil, ErrInvalidCredentials
	}
	pair, err := s.issuePair(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := s.Tokens.Invalidate(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("invalidate rotated refresh token: %w", err)
	}
	return pair, nil
}

// ForgotPassword issues a reset token and dispatches the reset email. The
// rate limit is checked before any lookup, the attempt is recorded whether or
// not the identity exists, and the response is identical either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, accountType entity.AccountType) error {
	limited, err := s.ResetLimiter.IsRateLimited(ctx, email)
	if err != nil {
		return fmt.Errorf("rate limit check: %w", err)
	}
	if limited {
		mins, mErr := s.ResetLimiter.MinutesUntilReset(ctx, email)
		if mErr != nil {
			mins = 1
		}
		return &RateLimitExceededError{MinutesUntilReset: mins}
	}

	identity, err := s.Identities.FindByEmailAndType(ctx, email, accountType)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("find identity: %w", err)
	}

	// Counted regardless of whether the lookup hit, so probing unknown
	// addresses costs the same budget as real ones.
	if rErr := s.ResetLimiter.RecordAttempt(ctx, email); rErr != nil {
		return fmt.Errorf("record reset attempt: %w", rErr)
	}

	if identity == nil {
		return nil
	}

	resetToken, exp, err := s.Tokens.IssueReset(identity.Email, identity.ID)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	if s.EmailPub != nil {
		job := mailer.EmailJob{
			To:       identity.Email,
			Template: mailer.TemplatePasswordReset,
			Data: map[string]any{
				"Email":     identity.Email,
				"ResetURL":  s.ResetURL + "?token=" + resetToken,
				"ExpiresAt": exp.UTC().Format(time.RFC3339),
			},
		}
		if pErr := s.EmailPub.PublishJSON(ctx, job); pErr != nil && s.Logger != nil {
			s.Logger.WithError(pErr).WithField("email", identity.Email).Warn("enqueue reset email failed")
		}
	}
	s.Audit.Record(ctx, audit.ActionResetRequested, identity.ID, identity.Email, nil)
	return nil
}

// UpdatePassword consumes a reset token and replaces the identity's password
// hash. The token is invalidated afterwards so it is single-use, and the
// email's reset attempts are cleared.
func (s *AuthService) UpdatePassword(ctx context.Context, resetToken, newPassword string) error {
	claims, err := s.Tokens.VerifyReset(ctx, resetToken)
	if err != nil {
		return err
	}
	if err := entity.ValidatePassword(newPassword); err != nil {
		return err
	}

	identity, err := s.Identities.FindByID(ctx, claims.AuthIdentityID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return fmt.Errorf("find identity: %w", err)
	}
	// The claims were signed against the email at issue time; a mismatch
	// means the address changed since, and the token no longer binds.
	if identity.Email != claims.Email {
		return ErrInvalidResetToken
	}

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Identities.UpdatePasswordHash(ctx, identity.ID, hash); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}

	// Revocation must hold or the token is not single-use; this cannot be
	// best-effort.
	if err := s.Tokens.Invalidate(ctx, resetToken); err != nil {
		return fmt.Errorf("invalidate consumed reset token: %w", err)
	}
	if cErr := s.ResetLimiter.ClearAttempts(ctx, identity.Email); cErr != nil && s.Logger != nil {
		s.Logger.WithError(cErr).WithField("email", identity.Email).Warn("clear reset attempts failed")
	}
	s.Audit.Record(ctx, audit.ActionResetConsumed, identity.ID, identity.Email, nil)
	return nil
}

// Logout invalidates the access token, independent of identity state.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.Tokens.Verify(ctx, accessToken)
	if err != nil {
		return err
	}
	if err := s.Tokens.Invalidate(ctx, accessToken); err != nil {
		return fmt.Errorf("invalidate token: %w", err)
	}
	s.Audit.Record(ctx, audit.ActionLogout, claims.AuthIdentityID, claims.Email, nil)
	return nil
}

// ValidateToken reports whether the token verifies. It never returns an
// error; it backs lightweight liveness checks.
func (s *AuthService) ValidateToken(ctx context.Context, tokenStr string) bool {
	_, err := s.Tokens.Verify(ctx, tokenStr)
	return err == nil
}
