package quota

import (
	"context"
	"time"
)

// UsageStore owns usage counters keyed by (userID, apiName).
//
// ConsumeIfUnderLimit must run Admit as one atomic unit per key: two calls on
// the same key behave as if executed in some total order, each observing the
// effects of all prior ones. Calls on different keys must not block each other.
type UsageStore interface {
	// ConsumeIfUnderLimit loads the counter (creating it with count 0 and
	// window start now when absent), rolls the window over when it has elapsed,
	// and increments the count unless it already reached limit.
	// A negative limit never denies.
	ConsumeIfUnderLimit(ctx context.Context, userID, apiName string, limit int64, window time.Duration, now time.Time) (allowed bool, counter UsageCounter, err error)

	// Get returns the stored counter without modifying it.
	// Returns ErrCounterNotFound if no counter exists.
	Get(ctx context.Context, userID, apiName string) (UsageCounter, error)

	// Reset deletes the counter. Administrative, outside the admission path.
	// Returns ErrCounterNotFound if no counter exists.
	Reset(ctx context.Context, userID, apiName string) error
}

// PlanRegistry resolves the plan a user is currently entitled to.
type PlanRegistry interface {
	// GetActivePlan returns found=false when the user has no subscription, the
	// subscription is not active at now, or the referenced plan does not exist.
	// A non-nil error means the registry could not be consulted.
	GetActivePlan(ctx context.Context, userID string, now time.Time) (plan Plan, found bool, err error)
}
