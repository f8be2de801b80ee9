package access_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accessgate/pkg/quota"
	"github.com/dmitrymomot/accessgate/pkg/rbac"
	"github.com/dmitrymomot/accessgate/svc/access"
	"github.com/dmitrymomot/accessgate/svc/subscription"
)

const window = time.Hour

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// clock is a manually advanced time source.
type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var tokens = access.StaticTokens{
	"admin-token": {UserID: "admin1", Role: rbac.Admin},
	"user-token":  {UserID: "user1", Role: rbac.Customer},
	"user2-token": {UserID: "user2", Role: rbac.Customer},
}

// newEngine builds an engine with:
//   - plan p1: storage limited to 2, compute unlimited
//   - user1 subscribed to p1; user2 and admin1 unsubscribed
func newEngine(t *testing.T, usage quota.UsageStore) *quota.Engine {
	t.Helper()
	ctx := context.Background()

	catalog := subscription.NewMemoryCatalog()
	for _, name := range []string{"storage", "compute", "analytics"} {
		require.NoError(t, catalog.SavePermission(ctx, subscription.Permission{Name: name}))
	}
	require.NoError(t, catalog.SavePlan(ctx, quota.Plan{
		ID:             "p1",
		APIPermissions: []string{"storage", "compute"},
		APILimits:      map[string]int64{"storage": 2},
	}))
	subs := subscription.NewMemoryStore(subscription.Subscription{
		UserID:    "user1",
		PlanID:    "p1",
		StartDate: t0.Add(-24 * time.Hour),
	})

	engine, err := quota.NewEngine(subscription.NewRegistry(subs, catalog), usage, quota.WithWindow(window))
	require.NoError(t, err)
	return engine
}

// failingStore fails every call as an unreachable backend would.
type failingStore struct{ err error }

func (s failingStore) ConsumeIfUnderLimit(context.Context, string, string, int64, time.Duration, time.Time) (bool, quota.UsageCounter, error) {
	return false, quota.UsageCounter{}, s.err
}

func (s failingStore) Get(context.Context, string, string) (quota.UsageCounter, error) {
	return quota.UsageCounter{}, s.err
}

func (s failingStore) Reset(context.Context, string, string) error { return s.err }
