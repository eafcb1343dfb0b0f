package entity

import "time"

// Tenant is the root business profile. For tenant identities the profile id
// and the tenant id are the same record.
type Tenant struct {
	ID             string
	AuthIdentityID string
	Name           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Customer is a buyer profile scoped to a tenant.
type Customer struct {
	ID             string
	AuthIdentityID string
	TenantID       string
	FirstName      string
	LastName       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Employee is a staff profile scoped to a tenant.
type Employee struct {
	ID             string
	AuthIdentityID string
	TenantID       string
	FirstName      string
	LastName       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
