package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendra/identity-core/internal/domain/entity"
	"github.com/vendra/identity-core/internal/domain/repository"
)

const uniqueViolation = "23505"

type AuthIdentityRepository struct {
	pool *pgxpool.Pool
}

func NewAuthIdentityRepository(pool *pgxpool.Pool) *AuthIdentityRepository {
	return &AuthIdentityRepository{pool: pool}
}

func (r *AuthIdentityRepository) Create(ctx context.Context, a *entity.AuthIdentity) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auth_identities
			(id, email, password_hash, account_type, is_active, email_verified,
			 failed_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, a.ID, a.Email, a.PasswordHash, a.AccountType.String(), a.IsActive, a.EmailVerified,
		a.FailedAttempts, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert auth identity: %w", err)
	}
	return nil
}

func (r *AuthIdentityRepository) FindByID(ctx context.Context, id string) (*entity.AuthIdentity, error) {
	row := r.pool.QueryRow(ctx, selectIdentity+` WHERE id = $1`, id)
	return scanIdentity(row)
}

func (r *AuthIdentityRepository) FindByEmailAndType(ctx context.Context, email string, accountType entity.AccountType) (*entity.AuthIdentity, error) {
	row := r.pool.QueryRow(ctx, selectIdentity+` WHERE email = $1 AND account_type = $2`, email, accountType.String())
	return scanIdentity(row)
}

func (r *AuthIdentityRepository) Update(ctx context.Context, a *entity.AuthIdentity) error {
	a.UpdatedAt = time.Now()
	res, err := r.pool.Exec(ctx, `
		UPDATE auth_identities
		SET is_active = $1, email_verified = $2, last_login_at = $3,
		    failed_attempts = $4, locked_until = $5, updated_at = $6
		WHERE id = $7
	`, a.IsActive, a.EmailVerified, a.LastLoginAt, a.FailedAttempts, a.LockedUntil, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update auth identity: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AuthIdentityRepository) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE auth_identities
		SET password_hash = $1, updated_at = now()
		WHERE id = $2
	`, hash, id)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RecordLoginFailure does the increment and the threshold check in one
// statement so two concurrent failures cannot both read the same counter and
// lose an increment; lockout-at-threshold stays exact.
func (r *AuthIdentityRepository) RecordLoginFailure(ctx context.Context, id string) (int, *time.Time, error) {
	var attempts int
	var lockedUntil *time.Time
	err := r.pool.QueryRow(ctx, `
		UPDATE auth_identities
		SET failed_attempts = failed_attempts + 1,
		    locked_until = CASE
		        WHEN failed_attempts + 1 >= $2 THEN now() + $3
		        ELSE locked_until
		    END,
		    updated_at = now()
		WHERE id = $1
		RETURNING failed_attempts, locked_until
	`, id, entity.MaxFailedAttempts, entity.LockoutDuration).Scan(&attempts, &lockedUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, repository.ErrNotFound
		}
		return 0, nil, fmt.Errorf("record login failure: %w", err)
	}
	return attempts, lockedUntil, nil
}

const selectIdentity = `
	SELECT id, email, password_hash, account_type, is_active, email_verified,
	       last_login_at, failed_attempts, locked_until, created_at, updated_at
	FROM auth_identities`

func scanIdentity(row pgx.Row) (*entity.AuthIdentity, error) {
	a := &entity.AuthIdentity{}
	var accountType string
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &accountType, &a.IsActive, &a.EmailVerified,
		&a.LastLoginAt, &a.FailedAttempts, &a.LockedUntil, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan auth identity: %w", err)
	}
	a.AccountType = entity.AccountType(accountType)
	return a, nil
}

var _ repository.AuthIdentityRepository = (*AuthIdentityRepository)(nil)
