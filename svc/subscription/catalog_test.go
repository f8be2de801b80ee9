package subscription_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accessgate/pkg/quota"
	"github.com/dmitrymomot/accessgate/svc/subscription"
)

func seededCatalog(t *testing.T) *subscription.MemoryCatalog {
	t.Helper()
	ctx := context.Background()
	c := subscription.NewMemoryCatalog()
	for _, name := range []string{"storage", "compute"} {
		require.NoError(t, c.SavePermission(ctx, subscription.Permission{Name: name}))
	}
	return c
}

func TestMemoryCatalog_Permissions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := seededCatalog(t)

	p, err := c.GetPermission(ctx, "storage")
	require.NoError(t, err)
	assert.Equal(t, "storage", p.Name)

	_, err = c.GetPermission(ctx, "missing")
	assert.ErrorIs(t, err, subscription.ErrPermissionNotFound)

	list, err := c.ListPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "compute", list[0].Name)
	assert.Equal(t, "storage", list[1].Name)

	for _, bad := range []string{"", "storage.v2", "$where"} {
		err = c.SavePermission(ctx, subscription.Permission{Name: bad})
		assert.ErrorIs(t, err, subscription.ErrInvalidPermission, bad)
	}

	require.NoError(t, c.DeletePermission(ctx, "compute"))
	assert.ErrorIs(t, c.DeletePermission(ctx, "compute"), subscription.ErrPermissionNotFound)
}

func TestMemoryCatalog_SavePlan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name    string
		plan    quota.Plan
		wantErr error
	}{
		{
			name: "valid",
			plan: quota.Plan{ID: "basic", APIPermissions: []string{"storage"}, APILimits: map[string]int64{"storage": 2}},
		},
		{
			name: "zero limit",
			plan: quota.Plan{ID: "frozen", APIPermissions: []string{"storage"}, APILimits: map[string]int64{"storage": 0}},
		},
		{
			name:    "empty id",
			plan:    quota.Plan{APIPermissions: []string{"storage"}},
			wantErr: subscription.ErrInvalidPlan,
		},
		{
			name:    "negative limit",
			plan:    quota.Plan{ID: "neg", APIPermissions: []string{"storage"}, APILimits: map[string]int64{"storage": -1}},
			wantErr: subscription.ErrInvalidPlan,
		},
		{
			name:    "unknown permission",
			plan:    quota.Plan{ID: "bad", APIPermissions: []string{"teleport"}},
			wantErr: subscription.ErrPermissionNotFound,
		},
		{
			name:    "unknown limited api",
			plan:    quota.Plan{ID: "bad", APIPermissions: []string{"storage"}, APILimits: map[string]int64{"teleport": 1}},
			wantErr: subscription.ErrPermissionNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := seededCatalog(t).SavePlan(ctx, tt.plan)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMemoryCatalog_Plans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := seededCatalog(t)

	input := quota.Plan{
		ID:             "basic",
		APIPermissions: []string{"storage", "compute", "storage"},
		APILimits:      map[string]int64{"storage": 2},
	}
	require.NoError(t, c.SavePlan(ctx, input))
	require.NoError(t, c.SavePlan(ctx, quota.Plan{ID: "alpha", APIPermissions: []string{"compute"}}))

	got, err := c.GetPlan(ctx, "basic")
	require.NoError(t, err)
	assert.Equal(t, []string{"compute", "storage"}, got.APIPermissions)

	// returned plans are copies
	got.APILimits["storage"] = 1000
	again, err := c.GetPlan(ctx, "basic")
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.APILimits["storage"])

	plans, err := c.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "alpha", plans[0].ID)
	assert.Equal(t, "basic", plans[1].ID)

	err = c.DeletePermission(ctx, "storage")
	assert.ErrorIs(t, err, subscription.ErrPermissionInUse)

	require.NoError(t, c.DeletePlan(ctx, "basic"))
	_, err = c.GetPlan(ctx, "basic")
	assert.ErrorIs(t, err, subscription.ErrPlanNotFound)
	assert.ErrorIs(t, c.DeletePlan(ctx, "basic"), subscription.ErrPlanNotFound)

	assert.NoError(t, c.DeletePermission(ctx, "storage"))
}
