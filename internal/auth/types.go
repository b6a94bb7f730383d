package auth

import "errors"

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleUser is an end customer: reads their own devices and reports.
	RoleUser Role = "user"

	// RoleAdmin operates the device fleet: full registry control,
	// associations and reports for any user.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RoleUser, RoleAdmin}

// IsValidRole returns true if the role is one VoltWatch recognises.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Sentinel errors for auth operations.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrForbidden    = errors.New("insufficient permissions")
)
