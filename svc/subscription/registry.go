package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/accessgate/pkg/logger"
	"github.com/dmitrymomot/accessgate/pkg/quota"
)

// Registry resolves a user's active plan from a Store and a Catalog.
type Registry struct {
	subs    Store
	catalog Catalog
	log     *slog.Logger
}

var _ quota.PlanRegistry = (*Registry)(nil)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger for lookup misses.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry returns a Registry. Panics if either dependency is nil.
func NewRegistry(subs Store, catalog Catalog, opts ...RegistryOption) *Registry {
	if subs == nil {
		panic("subscription: Store is required")
	}
	if catalog == nil {
		panic("subscription: Catalog is required")
	}
	r := &Registry{
		subs:    subs,
		catalog: catalog,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetActivePlan returns the plan of the user's subscription when it is active
// at now. A missing subscription, an inactive one and a dangling plan id all
// report found=false; only backend failures return an error.
func (r *Registry) GetActivePlan(ctx context.Context, userID string, now time.Time) (quota.Plan, bool, error) {
	sub, err := r.subs.Get(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return r.miss(ctx, userID, "", "no_subscription")
	}
	if err != nil {
		return quota.Plan{}, false, err
	}

	if status := sub.StatusAt(now); status != StatusActive {
		return r.miss(ctx, userID, sub.PlanID, status)
	}

	plan, err := r.catalog.GetPlan(ctx, sub.PlanID)
	if errors.Is(err, ErrPlanNotFound) {
		r.log.WarnContext(ctx, "subscription references unknown plan",
			logger.UserID(userID),
			logger.PlanID(sub.PlanID),
			slog.String("why", "plan_not_found"),
		)
		return quota.Plan{}, false, nil
	}
	if err != nil {
		return quota.Plan{}, false, err
	}
	return plan, true, nil
}

func (r *Registry) miss(ctx context.Context, userID, planID, why string) (quota.Plan, bool, error) {
	r.log.DebugContext(ctx, "no active plan",
		logger.UserID(userID),
		logger.PlanID(planID),
		slog.String("why", why),
	)
	return quota.Plan{}, false, nil
}
