package main

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/vendra/identity-core/config"
	"github.com/vendra/identity-core/pkg/password"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	hasher := password.NewHasher(cfg.BcryptCost)

	tenantEmail := "owner@demo-tenant.test"
	customerEmail := "customer@demo-tenant.test"
	plain := "password123"

	hash, err := hasher.Hash(plain)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var tenantIdentityID string
	err = db.QueryRow(`
		INSERT INTO auth_identities (id, email, password_hash, account_type, email_verified)
		VALUES ($1, $2, $3, 'TENANT', TRUE)
		ON CONFLICT (email, account_type) DO UPDATE SET updated_at = now()
		RETURNING id
	`, uuid.NewString(), tenantEmail, hash).Scan(&tenantIdentityID)
	if err != nil {
		log.Fatalf("failed to seed tenant identity: %v", err)
	}

	var tenantID string
	err = db.QueryRow(`
		INSERT INTO tenants (auth_identity_id, name)
		VALUES ($1, 'Demo Tenant')
		ON CONFLICT (auth_identity_id) DO UPDATE SET updated_at = now()
		RETURNING id
	`, tenantIdentityID).Scan(&tenantID)
	if err != nil {
		log.Fatalf("failed to seed tenant profile: %v", err)
	}
	fmt.Printf("seeded tenant: id=%s email=%s password=%s\n", tenantID, tenantEmail, plain)

	var customerIdentityID string
	err = db.QueryRow(`
		INSERT INTO auth_identities (id, email, password_hash, account_type, email_verified)
		VALUES ($1, $2, $3, 'CUSTOMER', TRUE)
		ON CONFLICT (email, account_type) DO UPDATE SET updated_at = now()
		RETURNING id
	`, uuid.NewString(), customerEmail, hash).Scan(&customerIdentityID)
	if err != nil {
		log.Fatalf("failed to seed customer identity: %v", err)
	}

	if _, err := db.Exec(`
		INSERT INTO customers (auth_identity_id, tenant_id, first_name, last_name)
		VALUES ($1, $2, 'Demo', 'Customer')
		ON CONFLICT (auth_identity_id) DO UPDATE SET updated_at = now()
	`, customerIdentityID, tenantID); err != nil {
		log.Fatalf("failed to seed customer profile: %v", err)
	}
	fmt.Printf("seeded customer: email=%s password=%s tenant=%s\n", customerEmail, plain, tenantID)
}
