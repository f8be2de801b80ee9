package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accessgate/pkg/quota"
	"github.com/dmitrymomot/accessgate/svc/subscription"
)

var (
	jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb1 = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
)

type brokenStore struct{ subscription.Store }

func (brokenStore) Get(context.Context, string) (subscription.Subscription, error) {
	return subscription.Subscription{}, errors.New("connection reset")
}

func TestSubscription_IsActiveAt(t *testing.T) {
	t.Parallel()
	sub := subscription.Subscription{UserID: "u", PlanID: "p", StartDate: jan1, EndDate: &feb1}

	assert.False(t, sub.IsActiveAt(jan1.Add(-time.Nanosecond)))
	assert.True(t, sub.IsActiveAt(jan1))
	assert.True(t, sub.IsActiveAt(feb1.Add(-time.Nanosecond)))
	assert.False(t, sub.IsActiveAt(feb1))

	assert.Equal(t, subscription.StatusPending, sub.StatusAt(jan1.Add(-time.Second)))
	assert.Equal(t, subscription.StatusExpired, sub.StatusAt(feb1))

	unbounded := subscription.Subscription{UserID: "u", PlanID: "p", StartDate: jan1}
	assert.True(t, unbounded.IsActiveAt(jan1.AddDate(50, 0, 0)))
	assert.False(t, unbounded.IsActiveAt(jan1.Add(-time.Second)))
}

func TestSubscription_Validate(t *testing.T) {
	t.Parallel()

	valid := subscription.Subscription{UserID: "u", PlanID: "p", StartDate: jan1, EndDate: &feb1}
	require.NoError(t, valid.Validate())
	valid.EndDate = nil
	require.NoError(t, valid.Validate())

	for name, sub := range map[string]subscription.Subscription{
		"no user":      {PlanID: "p", StartDate: jan1, EndDate: &feb1},
		"no plan":      {UserID: "u", StartDate: jan1, EndDate: &feb1},
		"empty period": {UserID: "u", PlanID: "p", StartDate: jan1, EndDate: &jan1},
		"reversed":     {UserID: "u", PlanID: "p", StartDate: feb1, EndDate: &jan1},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, sub.Validate(), subscription.ErrInvalidSubscription)
		})
	}
}

func TestRegistry_GetActivePlan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	catalog := seededCatalog(t)
	require.NoError(t, catalog.SavePlan(ctx, quota.Plan{
		ID:             "basic",
		APIPermissions: []string{"storage"},
		APILimits:      map[string]int64{"storage": 2},
	}))

	subs := subscription.NewMemoryStore(
		subscription.Subscription{UserID: "active", PlanID: "basic", StartDate: jan1, EndDate: &feb1},
		subscription.Subscription{UserID: "dangling", PlanID: "gone", StartDate: jan1, EndDate: &feb1},
	)
	reg := subscription.NewRegistry(subs, catalog)
	mid := jan1.Add(10 * 24 * time.Hour)

	plan, found, err := reg.GetActivePlan(ctx, "active", mid)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "basic", plan.ID)

	tests := []struct {
		name string
		user string
		now  time.Time
	}{
		{"no subscription", "nobody", mid},
		{"before start", "active", jan1.Add(-time.Second)},
		{"at end", "active", feb1},
		{"dangling plan", "dangling", mid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, found, err := reg.GetActivePlan(ctx, tt.user, tt.now)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}

	_, _, err = subscription.NewRegistry(brokenStore{}, catalog).GetActivePlan(ctx, "active", mid)
	assert.Error(t, err)
}

func TestRegistry_DrivesEngine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	catalog := seededCatalog(t)
	require.NoError(t, catalog.SavePlan(ctx, quota.Plan{
		ID:             "basic",
		APIPermissions: []string{"storage"},
		APILimits:      map[string]int64{"storage": 1},
	}))
	subs := subscription.NewMemoryStore(
		subscription.Subscription{UserID: "u1", PlanID: "basic", StartDate: jan1, EndDate: &feb1},
	)

	engine, err := quota.NewEngine(subscription.NewRegistry(subs, catalog), quota.NewMemoryStore())
	require.NoError(t, err)

	now := jan1.Add(time.Hour)
	assert.True(t, engine.CheckAndConsume(ctx, "u1", "storage", now).Allowed)
	assert.Equal(t, quota.ReasonLimitExceeded, engine.CheckAndConsume(ctx, "u1", "storage", now).Reason)
	assert.Equal(t, quota.ReasonPermissionDenied, engine.CheckAndConsume(ctx, "u1", "compute", now).Reason)
	assert.Equal(t, quota.ReasonNoSubscription, engine.CheckAndConsume(ctx, "u1", "storage", feb1).Reason)
}

func TestNewRegistry_Panics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { subscription.NewRegistry(nil, subscription.NewMemoryCatalog()) })
	assert.Panics(t, func() { subscription.NewRegistry(subscription.NewMemoryStore(), nil) })
}
