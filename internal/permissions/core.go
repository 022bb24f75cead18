package permissions

import (
	"fmt"
	"strings"
)

// Role determines the permission set a member holds within one organization.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Roles lists every role in descending privilege order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleMember}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleTable[r]
	return ok
}

// ParseRole normalises a role token. Matching is case-insensitive.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", fmt.Errorf("permission: unknown role %q", value)
	}
	return role, nil
}

type permissionSet map[Permission]struct{}

func newPermissionSet(perms ...Permission) permissionSet {
	set := make(permissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// roleTable is the single source of truth for role grants. It is built once and
// never mutated; adding a role means editing this table.
var roleTable = map[Role]permissionSet{
	RoleAdmin: newPermissionSet(All()...),
	RoleMember: newPermissionSet(
		OrgView,
		MemberView,
		ExpenseCreate,
		ExpenseViewOwn,
		ExpenseUpdateOwn,
		ExpenseDeleteOwn,
		PolicyView,
	),
}

func init() {
	if err := validateRegistry(); err != nil {
		panic(err)
	}
}

// validateRegistry ensures definitions line up with the enumeration and that
// every role holding a permission also holds what it depends on.
func validateRegistry() error {
	if len(definitions) != int(permissionSentinel)-1 {
		return fmt.Errorf("permission: %d definitions for %d permissions", len(definitions), int(permissionSentinel)-1)
	}
	seen := make(map[string]struct{}, len(definitions))
	for i, def := range definitions {
		if def.Permission != Permission(i+1) {
			return fmt.Errorf("permission: definition %s out of order", def.ID)
		}
		if _, dup := seen[def.ID]; dup {
			return fmt.Errorf("permission: duplicate id %s", def.ID)
		}
		seen[def.ID] = struct{}{}
		for _, dep := range def.DependsOn {
			if dep == def.Permission {
				return fmt.Errorf("permission: %s cannot depend on itself", def.ID)
			}
		}
	}

	for role, set := range roleTable {
		for perm := range set {
			def, ok := Get(perm)
			if !ok {
				return fmt.Errorf("permission: role %s grants unknown permission %d", role, uint8(perm))
			}
			for _, dep := range def.DependsOn {
				if _, ok := set[dep]; !ok {
					return fmt.Errorf("permission: role %s grants %s without dependency %s", role, def.ID, dep)
				}
			}
		}
	}
	return nil
}
