package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/accessgate/pkg/logger"
	"github.com/dmitrymomot/accessgate/pkg/quota"
)

// Downstream is the capability guarded by the gateway.
type Downstream func(ctx context.Context) (any, error)

// Facade puts the quota engine in front of downstream calls.
type Facade struct {
	engine  *quota.Engine
	now     func() time.Time
	log     *slog.Logger
	metrics *Metrics
}

// Option configures a Facade.
type Option func(*Facade)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *Facade) {
		if now != nil {
			f.now = now
		}
	}
}

// WithLogger sets the facade logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Facade) {
		if l != nil {
			f.log = l
		}
	}
}

// WithMetrics records every decision in m.
func WithMetrics(m *Metrics) Option {
	return func(f *Facade) { f.metrics = m }
}

// NewFacade wraps engine. Panics if engine is nil.
func NewFacade(engine *quota.Engine, opts ...Option) *Facade {
	if engine == nil {
		panic("access: quota engine is required")
	}
	f := &Facade{
		engine: engine,
		now:    time.Now,
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CheckAndConsume decides at the facade's current time and records the
// outcome.
func (f *Facade) CheckAndConsume(ctx context.Context, userID, apiName string) quota.Decision {
	start := time.Now()
	d := f.engine.CheckAndConsume(ctx, userID, apiName, f.now().UTC())
	took := time.Since(start)
	f.metrics.observe(d, took)

	if !d.Allowed {
		attrs := []any{
			logger.UserID(userID),
			logger.API(apiName),
			logger.Reason(d.Reason.String()),
			slog.Int("status", StatusCode(d.Reason)),
			logger.Duration(took),
		}
		if d.Reason == quota.ReasonLimitExceeded {
			attrs = append(attrs, logger.Group("quota",
				slog.Int64("limit", d.Limit),
				slog.Int64("count", d.Count),
				slog.Time("reset_at", d.ResetAt),
			))
		}
		f.log.InfoContext(ctx, "api call denied", attrs...)
	}
	return d
}

// Invoke calls next only when the decision allows it. A denied call returns
// ErrDenied, joined with the store error for StoreUnavailable decisions.
func (f *Facade) Invoke(ctx context.Context, userID, apiName string, next Downstream) (any, quota.Decision, error) {
	d := f.CheckAndConsume(ctx, userID, apiName)
	if !d.Allowed {
		if d.Err != nil {
			return nil, d, errors.Join(ErrDenied, d.Err)
		}
		return nil, d, ErrDenied
	}
	res, err := next(ctx)
	return res, d, err
}

// Usage returns the stored counter. quota.ErrCounterNotFound when none.
func (f *Facade) Usage(ctx context.Context, userID, apiName string) (quota.UsageCounter, error) {
	return f.engine.Usage(ctx, userID, apiName)
}

// ResetUsage deletes the counter. quota.ErrCounterNotFound when none.
func (f *Facade) ResetUsage(ctx context.Context, userID, apiName string) error {
	return f.engine.ResetUsage(ctx, userID, apiName)
}

// Window is the engine's usage window.
func (f *Facade) Window() time.Duration {
	return f.engine.Window()
}

// StatusCode maps a denial reason to its HTTP status.
func StatusCode(r quota.Reason) int {
	switch r {
	case quota.ReasonNone:
		return http.StatusOK
	case quota.ReasonNoSubscription:
		return http.StatusPaymentRequired
	case quota.ReasonPermissionDenied:
		return http.StatusForbidden
	case quota.ReasonLimitExceeded:
		return http.StatusTooManyRequests
	case quota.ReasonStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
