// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # Operator Roles

// UserRole is the authorization level carried by an operator token.
type UserRole string

const (
	// Full control, including token minting policy
	RoleAdmin UserRole = "admin"

	// May trigger sync runs
	RoleOperator UserRole = "operator"

	// Read-only access to sync status
	RoleViewer UserRole = "viewer"
)

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r.level() > 0
}

func (r UserRole) level() int {
	switch r {
	case RoleAdmin:
		return 30
	case RoleOperator:
		return 20
	case RoleViewer:
		return 10
	default:
		return 0
	}
}
