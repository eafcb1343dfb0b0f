package repository

import (
	"context"

	"github.com/vendra/identity-core/internal/domain/entity"
)

// TenantRepository resolves the tenant profile linked to an identity.
type TenantRepository interface {
	FindByAuthIdentityID(ctx context.Context, authIdentityID string) (*entity.Tenant, error)
}

// CustomerRepository resolves the customer profile linked to an identity.
type CustomerRepository interface {
	FindByAuthIdentityID(ctx context.Context, authIdentityID string) (*entity.Customer, error)
}

// EmployeeRepository resolves the employee profile linked to an identity.
type EmployeeRepository interface {
	FindByAuthIdentityID(ctx context.Context, authIdentityID string) (*entity.Employee, error)
}
