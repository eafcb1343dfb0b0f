package entity

import "fmt"

// AccountType is the closed set of profile kinds an identity can be linked to.
type AccountType string

const (
	AccountTypeTenant   AccountType = "TENANT"
	AccountTypeCustomer AccountType = "CUSTOMER"
	AccountTypeEmployee AccountType = "EMPLOYEE"
)

// ParseAccountType validates and normalizes the string form of an account type.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(s) {
	case AccountTypeTenant, AccountTypeCustomer, AccountTypeEmployee:
		return AccountType(s), nil
	default:
		return "", fmt.Errorf("unknown account type %q", s)
	}
}

func (t AccountType) String() string { return string(t) }
