package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/vendra/identity-core/internal/domain/entity"
	repo "github.com/vendra/identity-core/internal/domain/repository"
)

// ResolvedAccount is the tenant-scoped profile behind an identity, used to
// build token claims.
type ResolvedAccount struct {
	ProfileID string
	TenantID  string
}

type resolveFunc func(ctx context.Context, authIdentityID string) (*ResolvedAccount, error)

// AccountResolver dispatches by account type through a lookup table, so
// supporting a new type is a table entry rather than a branch.
type AccountResolver struct {
	table map[entity.AccountType]resolveFunc
}

func NewAccountResolver(tenants repo.TenantRepository, customers repo.CustomerRepository, employees repo.EmployeeRepository) *AccountResolver {
	return &AccountResolver{
		table: map[entity.AccountType]resolveFunc{
			entity.AccountTypeTenant: func(ctx context.Context, id string) (*ResolvedAccount, error) {
				t, err := tenants.FindByAuthIdentityID(ctx, id)
				if err != nil {
					return nil, err
				}
				// The tenant record is its own scope.
				return &ResolvedAccount{ProfileID: t.ID, TenantID: t.ID}, nil
			},
			entity.AccountTypeCustomer: func(ctx context.Context, id string) (*ResolvedAccount, error) {
				c, err := customers.FindByAuthIdentityID(ctx, id)
				if err != nil {
					return nil, err
				}
				return &ResolvedAccount{ProfileID: c.ID, TenantID: c.TenantID}, nil
			},
			entity.AccountTypeEmployee: func(ctx context.Context, id string) (*ResolvedAccount, error) {
				e, err := employees.FindByAuthIdentityID(ctx, id)
				if err != nil {
					return nil, err
				}
				return &ResolvedAccount{ProfileID: e.ID, TenantID: e.TenantID}, nil
			},
		},
	}
}

// Resolve maps an identity to its tenant-scoped profile. Every non-revoked
// identity of a given type must have exactly one linked profile; a miss is a
// data-integrity failure, not a user error.
func (r *AccountResolver) Resolve(ctx context.Context, accountType entity.AccountType, authIdentityID string) (*ResolvedAccount, error) {
	fn, ok := r.table[accountType]
	if !ok {
		return nil, fmt.Errorf("resolve account: unknown account type %q", accountType)
	}
	acc, err := fn(ctx, authIdentityID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("resolve %s profile: %w", accountType, err)
	}
	return acc, nil
}
