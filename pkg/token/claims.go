package token

import "github.com/golang-jwt/jwt/v5"

// PurposePasswordReset is the purpose discriminator carried by reset tokens.
const PurposePasswordReset = "password_reset"

// AccessClaims is the payload of access and refresh tokens. Purpose is empty
// for both kinds; a non-empty value means the token was minted for another
// use and must be rejected here.
type AccessClaims struct {
	Email          string `json:"email"`
	AuthIdentityID string `json:"auth_identity_id"`
	TenantID       string `json:"tenant_id"`
	CustomerID     string `json:"customer_id,omitempty"`
	EmployeeID     string `json:"employee_id,omitempty"`
	Purpose        string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// ResetClaims is the payload of password-reset tokens. Purpose must equal
// PurposePasswordReset; the type distinction keeps reset claims from being
// passed where access claims are expected, and the runtime check backs that
// up at the wire boundary.
type ResetClaims struct {
	Email          string `json:"email"`
	AuthIdentityID string `json:"auth_identity_id"`
	Purpose        string `json:"purpose"`
	jwt.RegisteredClaims
}
