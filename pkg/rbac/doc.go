// Package rbac defines the gateway's closed set of roles and what each may do.
//
// There are two roles, Admin and Customer, and four capabilities. Customers
// may invoke APIs and read their own usage; admins may additionally read and
// reset anyone's usage. Role names arriving from outside are validated with
// ParseRole, so a typo fails loudly instead of silently granting nothing.
//
//	if err := rbac.Can(principal.Role, rbac.ResetUsage); err != nil {
//		// errors.Is(err, rbac.ErrInsufficientPermissions)
//	}
//
// WithRole and CanFromContext carry the role through a request context.
package rbac
