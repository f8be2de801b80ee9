package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/accessgate/pkg/logger"
)

// Engine makes admission decisions for (user, API) pairs.
// It keeps no state between calls; counters live in the UsageStore.
type Engine struct {
	plans  PlanRegistry
	usage  UsageStore
	window time.Duration
	log    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWindow sets the usage window. Defaults to 24h.
func WithWindow(d time.Duration) Option {
	return func(e *Engine) { e.window = d }
}

// WithLogger sets the logger used for decision diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine returns an Engine backed by the given registry and usage store.
// Panics if either is nil.
func NewEngine(plans PlanRegistry, usage UsageStore, opts ...Option) (*Engine, error) {
	if plans == nil {
		panic("quota: PlanRegistry is required")
	}
	if usage == nil {
		panic("quota: UsageStore is required")
	}

	e := &Engine{
		plans:  plans,
		usage:  usage,
		window: 24 * time.Hour,
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %v", ErrInvalidConfig, e.window)
	}

	return e, nil
}

// NewEngineFromConfig is NewEngine with the window taken from cfg.
// Options given explicitly take precedence.
func NewEngineFromConfig(cfg Config, plans PlanRegistry, usage UsageStore, opts ...Option) (*Engine, error) {
	return NewEngine(plans, usage, append([]Option{WithWindow(cfg.Window)}, opts...)...)
}

// Window returns the configured usage window.
func (e *Engine) Window() time.Duration {
	return e.window
}

// CheckAndConsume resolves the user's plan, checks the API permission and
// atomically consumes one call from the quota, in that order. Permission
// denials and missing subscriptions never touch usage state.
func (e *Engine) CheckAndConsume(ctx context.Context, userID, apiName string, now time.Time) Decision {
	d := Decision{UserID: userID, APIName: apiName}

	plan, found, err := e.plans.GetActivePlan(ctx, userID, now)
	if err != nil {
		return e.unavailable(ctx, d, err)
	}
	if !found {
		return e.deny(ctx, d, ReasonNoSubscription)
	}
	d.PlanID = plan.ID

	if !plan.PermissionGranted(apiName) {
		return e.deny(ctx, d, ReasonPermissionDenied)
	}

	limit, hasLimit := plan.LimitFor(apiName)
	if !hasLimit || limit < 0 {
		limit = Unlimited
	}
	d.Limit = limit

	allowed, counter, err := e.usage.ConsumeIfUnderLimit(ctx, userID, apiName, limit, e.window, now)
	if err != nil {
		return e.unavailable(ctx, d, err)
	}

	d.Count = counter.Count
	d.Remaining = Remaining(limit, counter.Count)
	d.ResetAt = counter.ResetAt(e.window)

	if !allowed {
		return e.deny(ctx, d, ReasonLimitExceeded)
	}

	d.Allowed = true
	return d
}

// Usage returns the stored counter for reporting. It never creates one.
func (e *Engine) Usage(ctx context.Context, userID, apiName string) (UsageCounter, error) {
	c, err := e.usage.Get(ctx, userID, apiName)
	if err != nil && !errors.Is(err, ErrCounterNotFound) {
		return UsageCounter{}, errors.Join(ErrStoreUnavailable, err)
	}
	return c, err
}

// ResetUsage deletes the counter for the key.
func (e *Engine) ResetUsage(ctx context.Context, userID, apiName string) error {
	err := e.usage.Reset(ctx, userID, apiName)
	if err != nil && !errors.Is(err, ErrCounterNotFound) {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if err == nil {
		e.log.InfoContext(ctx, "usage counter reset",
			logger.UserID(userID),
			logger.API(apiName),
		)
	}
	return err
}

func (e *Engine) deny(ctx context.Context, d Decision, reason Reason) Decision {
	d.Allowed = false
	d.Reason = reason
	e.log.DebugContext(ctx, "access denied",
		logger.UserID(d.UserID),
		logger.API(d.APIName),
		logger.PlanID(d.PlanID),
		logger.Reason(string(reason)),
	)
	return d
}

func (e *Engine) unavailable(ctx context.Context, d Decision, err error) Decision {
	d.Allowed = false
	d.Reason = ReasonStoreUnavailable
	d.Err = errors.Join(ErrStoreUnavailable, err)
	e.log.ErrorContext(ctx, "admission decision failed",
		logger.UserID(d.UserID),
		logger.API(d.APIName),
		logger.Error(err),
	)
	return d
}
