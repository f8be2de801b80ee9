package rbac_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accessgate/pkg/rbac"
)

func TestCan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role rbac.Role
		cap  rbac.Capability
		want error
	}{
		{rbac.Admin, rbac.InvokeAPI, nil},
		{rbac.Admin, rbac.ReadOwnUsage, nil},
		{rbac.Admin, rbac.ReadAnyUsage, nil},
		{rbac.Admin, rbac.ResetUsage, nil},
		{rbac.Customer, rbac.InvokeAPI, nil},
		{rbac.Customer, rbac.ReadOwnUsage, nil},
		{rbac.Customer, rbac.ReadAnyUsage, rbac.ErrInsufficientPermissions},
		{rbac.Customer, rbac.ResetUsage, rbac.ErrInsufficientPermissions},
		{rbac.Admin, rbac.Capability("billing.refund"), rbac.ErrInsufficientPermissions},
		{rbac.Role("superuser"), rbac.InvokeAPI, rbac.ErrInvalidRole},
		{rbac.Role(""), rbac.InvokeAPI, rbac.ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.cap), func(t *testing.T) {
			t.Parallel()
			err := rbac.Can(tt.role, tt.cap)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	for _, r := range rbac.Roles() {
		got, err := rbac.ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
		assert.True(t, got.Valid())
	}

	_, err := rbac.ParseRole("Admin")
	assert.ErrorIs(t, err, rbac.ErrInvalidRole)
	assert.False(t, rbac.Role("root").Valid())
}

func TestContext(t *testing.T) {
	t.Parallel()

	_, ok := rbac.RoleFromContext(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, rbac.CanFromContext(context.Background(), rbac.InvokeAPI), rbac.ErrRoleNotInContext)

	ctx := rbac.WithRole(context.Background(), rbac.Customer)
	role, ok := rbac.RoleFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, rbac.Customer, role)
	assert.NoError(t, rbac.CanFromContext(ctx, rbac.ReadOwnUsage))
	assert.ErrorIs(t, rbac.CanFromContext(ctx, rbac.ResetUsage), rbac.ErrInsufficientPermissions)
}
