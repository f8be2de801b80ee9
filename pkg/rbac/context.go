package rbac

import "context"

type roleCtxKey struct{}

// WithRole stores the caller's role in ctx.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleCtxKey{}, role)
}

// RoleFromContext returns the role stored by WithRole.
func RoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(roleCtxKey{}).(Role)
	return role, ok
}

// CanFromContext checks capability against the role in ctx.
func CanFromContext(ctx context.Context, capability Capability) error {
	role, ok := RoleFromContext(ctx)
	if !ok {
		return ErrRoleNotInContext
	}
	return Can(role, capability)
}
