package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vendra/identity-core/internal/domain/entity"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a create violates the
	// (email, account_type) uniqueness constraint.
	ErrDuplicate = errors.New("already exists")
)

// AuthIdentityRepository defines persistence for the AuthIdentity aggregate.
type AuthIdentityRepository interface {
	Create(ctx context.Context, a *entity.AuthIdentity) error
	FindByID(ctx context.Context, id string) (*entity.AuthIdentity, error)
	FindByEmailAndType(ctx context.Context, email string, accountType entity.AccountType) (*entity.AuthIdentity, error)
	Update(ctx context.Context, a *entity.AuthIdentity) error
	UpdatePasswordHash(ctx context.Context, id string, hash string) error

	// RecordLoginFailure increments the failure counter and applies the
	// lockout window atomically at the storage layer, so two concurrent
	// failures cannot lose an increment. It returns the post-increment
	// counter and lockout deadline.
	RecordLoginFailure(ctx context.Context, id string) (failedAttempts int, lockedUntil *time.Time, err error)
}
