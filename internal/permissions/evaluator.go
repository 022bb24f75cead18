package permissions

// HasPermission reports whether role grants perm. Unknown roles grant nothing.
func HasPermission(role Role, perm Permission) bool {
	set, ok := roleTable[role]
	if !ok {
		return false
	}
	_, granted := set[perm]
	return granted
}

// HasAny reports whether role grants at least one of perms.
func HasAny(role Role, perms ...Permission) bool {
	for _, perm := range perms {
		if HasPermission(role, perm) {
			return true
		}
	}
	return false
}

// HasAll reports whether role grants every one of perms. An empty list is
// vacuously satisfied.
func HasAll(role Role, perms ...Permission) bool {
	for _, perm := range perms {
		if !HasPermission(role, perm) {
			return false
		}
	}
	return true
}

// RolePermissions returns the permissions granted to role in registry order.
func RolePermissions(role Role) []Permission {
	set, ok := roleTable[role]
	if !ok {
		return []Permission{}
	}
	out := make([]Permission, 0, len(set))
	for _, perm := range All() {
		if _, granted := set[perm]; granted {
			out = append(out, perm)
		}
	}
	return out
}
