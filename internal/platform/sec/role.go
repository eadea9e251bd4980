// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an identity.
type UserRole string

const (
	// Full administrative access. Exactly one seat holder gets this role.
	RoleAdmin UserRole = "admin"

	// Administrative access granted to every seat holder after the first.
	RoleSubadmin UserRole = "subadmin"

	// Default role for standard registered customers
	RoleUser UserRole = "user"
)

// PrivilegedRoles lists the roles that occupy an admin seat.
var PrivilegedRoles = []UserRole{RoleAdmin, RoleSubadmin}

// # Role Membership

// IsPrivileged reports whether the role occupies an admin seat.
func (r UserRole) IsPrivileged() bool {
	return r.In(PrivilegedRoles...)
}

// In reports whether the role is one of allowed.
func (r UserRole) In(allowed ...UserRole) bool {
	for _, candidate := range allowed {
		if r == candidate {
			return true
		}
	}
	return false
}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r.In(RoleAdmin, RoleSubadmin, RoleUser)
}
