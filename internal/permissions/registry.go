package permissions

import (
	"errors"
	"fmt"
	"strings"
)

// Permission is a fine-grained capability checked against a role. The set is
// closed: values outside the declared constants are never granted.
type Permission uint8

const (
	permissionInvalid Permission = iota

	OrgView
	OrgUpdate
	OrgDelete

	MemberView
	MemberInvite
	MemberUpdateRole
	MemberRemove

	ExpenseCreate
	ExpenseViewOwn
	ExpenseViewAll
	ExpenseUpdateOwn
	ExpenseUpdateAll
	ExpenseDeleteOwn
	ExpenseDeleteAll

	PolicyView
	PolicyCreate
	PolicyUpdate
	PolicyDelete

	permissionSentinel
)

// Definition describes a registered permission.
type Definition struct {
	Permission  Permission
	ID          string
	Resource    string
	DependsOn   []Permission
	Description string
}

// ErrUnknownPermission indicates a permission token is not part of the registry.
var ErrUnknownPermission = errors.New("permission: unknown permission")

var definitions = [...]Definition{
	{Permission: OrgView, ID: "org:view", Resource: "organization", Description: "View organization details"},
	{Permission: OrgUpdate, ID: "org:update", Resource: "organization", DependsOn: []Permission{OrgView}, Description: "Update organization details"},
	{Permission: OrgDelete, ID: "org:delete", Resource: "organization", DependsOn: []Permission{OrgView}, Description: "Delete the organization"},

	{Permission: MemberView, ID: "member:view", Resource: "member", Description: "View organization members"},
	{Permission: MemberInvite, ID: "member:invite", Resource: "member", DependsOn: []Permission{MemberView}, Description: "Add members to the organization"},
	{Permission: MemberUpdateRole, ID: "member:update_role", Resource: "member", DependsOn: []Permission{MemberView}, Description: "Change member roles"},
	{Permission: MemberRemove, ID: "member:remove", Resource: "member", DependsOn: []Permission{MemberView}, Description: "Remove members from the organization"},

	{Permission: ExpenseCreate, ID: "expense:create", Resource: "expense", Description: "Submit expenses"},
	{Permission: ExpenseViewOwn, ID: "expense:view_own", Resource: "expense", Description: "View own expenses"},
	{Permission: ExpenseViewAll, ID: "expense:view_all", Resource: "expense", DependsOn: []Permission{ExpenseViewOwn}, Description: "View all expenses"},
	{Permission: ExpenseUpdateOwn, ID: "expense:update_own", Resource: "expense", DependsOn: []Permission{ExpenseViewOwn}, Description: "Update own expenses"},
	{Permission: ExpenseUpdateAll, ID: "expense:update_all", Resource: "expense", DependsOn: []Permission{ExpenseViewAll}, Description: "Update any expense"},
	{Permission: ExpenseDeleteOwn, ID: "expense:delete_own", Resource: "expense", DependsOn: []Permission{ExpenseViewOwn}, Description: "Delete own expenses"},
	{Permission: ExpenseDeleteAll, ID: "expense:delete_all", Resource: "expense", DependsOn: []Permission{ExpenseViewAll}, Description: "Delete any expense"},

	{Permission: PolicyView, ID: "policy:view", Resource: "policy", Description: "View expense policies"},
	{Permission: PolicyCreate, ID: "policy:create", Resource: "policy", DependsOn: []Permission{PolicyView}, Description: "Create expense policies"},
	{Permission: PolicyUpdate, ID: "policy:update", Resource: "policy", DependsOn: []Permission{PolicyView}, Description: "Update expense policies"},
	{Permission: PolicyDelete, ID: "policy:delete", Resource: "policy", DependsOn: []Permission{PolicyView}, Description: "Delete expense policies"},
}

var byID = func() map[string]Permission {
	out := make(map[string]Permission, len(definitions))
	for _, def := range definitions {
		out[def.ID] = def.Permission
	}
	return out
}()

// Valid reports whether p is a registered permission.
func (p Permission) Valid() bool {
	return p > permissionInvalid && p < permissionSentinel
}

// String returns the wire token, e.g. "member:remove".
func (p Permission) String() string {
	if !p.Valid() {
		return fmt.Sprintf("permission(%d)", uint8(p))
	}
	return definitions[p-1].ID
}

// MarshalText encodes the permission as its token.
func (p Permission) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w %d", ErrUnknownPermission, uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a permission token.
func (p *Permission) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Parse converts a token into a Permission.
func Parse(token string) (Permission, error) {
	perm, ok := byID[strings.TrimSpace(token)]
	if !ok {
		return permissionInvalid, fmt.Errorf("%w %q", ErrUnknownPermission, token)
	}
	return perm, nil
}

// All returns every registered permission in declaration order.
func All() []Permission {
	out := make([]Permission, 0, len(definitions))
	for _, def := range definitions {
		out = append(out, def.Permission)
	}
	return out
}

// Get returns a copy of the definition for p.
func Get(p Permission) (Definition, bool) {
	if !p.Valid() {
		return Definition{}, false
	}
	def := definitions[p-1]
	def.DependsOn = append([]Permission(nil), def.DependsOn...)
	return def, true
}

// Definitions returns copies of every definition in declaration order.
func Definitions() []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, p := range All() {
		def, _ := Get(p)
		out = append(out, def)
	}
	return out
}

// ByResource groups permissions under the given resource namespace.
func ByResource(resource string) []Permission {
	resource = strings.TrimSpace(resource)
	var out []Permission
	for _, def := range definitions {
		if def.Resource == resource {
			out = append(out, def.Permission)
		}
	}
	return out
}

// Tokens renders permissions as their wire tokens.
func Tokens(perms []Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if p.Valid() {
			out = append(out, p.String())
		}
	}
	return out
}
