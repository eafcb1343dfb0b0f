package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendra/identity-core/internal/domain/entity"
	"github.com/vendra/identity-core/internal/domain/repository"
)

type TenantRepository struct {
	pool *pgxpool.Pool
}

func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

func (r *TenantRepository) FindByAuthIdentityID(ctx context.Context, authIdentityID string) (*entity.Tenant, error) {
	t := &entity.Tenant{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, auth_identity_id, name, created_at, updated_at
		FROM tenants
		WHERE auth_identity_id = $1
	`, authIdentityID)
	if err := row.Scan(&t.ID, &t.AuthIdentityID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	return t, nil
}

type CustomerRepository struct {
	pool *pgxpool.Pool
}

func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

func (r *CustomerRepository) FindByAuthIdentityID(ctx context.Context, authIdentityID string) (*entity.Customer, error) {
	c := &entity.Customer{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, auth_identity_id, tenant_id, first_name, last_name, created_at, updated_at
		FROM customers
		WHERE auth_identity_id = $1
	`, authIdentityID)
	if err := row.Scan(&c.ID, &c.AuthIdentityID, &c.TenantID, &c.FirstName, &c.LastName, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return c, nil
}

type EmployeeRepository struct {
	pool *pgxpool.Pool
}

func NewEmployeeRepository(pool *pgxpool.Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func (r *EmployeeRepository) FindByAuthIdentityID(ctx context.Context, authIdentityID string) (*entity.Employee, error) {
	e := &entity.Employee{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, auth_identity_id, tenant_id, first_name, last_name, created_at, updated_at
		FROM employees
		WHERE auth_identity_id = $1
	`, authIdentityID)
	if err := row.Scan(&e.ID, &e.AuthIdentityID, &e.TenantID, &e.FirstName, &e.LastName, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan employee: %w", err)
	}
	return e, nil
}

var (
	_ repository.TenantRepository   = (*TenantRepository)(nil)
	_ repository.CustomerRepository = (*CustomerRepository)(nil)
	_ repository.EmployeeRepository = (*EmployeeRepository)(nil)
)
