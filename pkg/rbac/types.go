package rbac

// Role is the caller's role. The set is closed; only the constants below are
// valid.
type Role string

const (
	Admin    Role = "admin"
	Customer Role = "customer"
)

// Roles returns every valid role.
func Roles() []Role {
	return []Role{Admin, Customer}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case Admin, Customer:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole converts s to a Role, returning ErrInvalidRole for unknown names.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// Capability is an action a role may perform on the gateway.
type Capability string

const (
	// InvokeAPI lets a caller consume metered APIs for themself.
	InvokeAPI Capability = "api.invoke"
	// ReadOwnUsage lets a caller read their own counters.
	ReadOwnUsage Capability = "usage.read"
	// ReadAnyUsage lets a caller read any user's counters.
	ReadAnyUsage Capability = "usage.read.any"
	// ResetUsage lets a caller reset any user's counters.
	ResetUsage Capability = "usage.reset"
)

var grants = map[Role]map[Capability]struct{}{
	Admin: {
		InvokeAPI:    {},
		ReadOwnUsage: {},
		ReadAnyUsage: {},
		ResetUsage:   {},
	},
	Customer: {
		InvokeAPI:    {},
		ReadOwnUsage: {},
	},
}

// Can returns nil when role holds capability, ErrInvalidRole for an unknown
// role and ErrInsufficientPermissions otherwise.
func Can(role Role, capability Capability) error {
	caps, ok := grants[role]
	if !ok {
		return ErrInvalidRole
	}
	if _, ok := caps[capability]; !ok {
		return ErrInsufficientPermissions
	}
	return nil
}
