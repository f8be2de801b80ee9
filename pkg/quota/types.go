package quota

import "time"

// Unlimited marks an API without a configured limit. Used both as the limit
// passed to ConsumeIfUnderLimit and as the Remaining value of such decisions.
const Unlimited int64 = -1

// Reason identifies why an admission decision was denied.
type Reason string

// Closed set of denial reasons. A missing or dangling plan reference is
// reported as ReasonNoSubscription.
const (
	ReasonNone             Reason = ""
	ReasonNoSubscription   Reason = "no_subscription"
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonLimitExceeded    Reason = "limit_exceeded"
	ReasonStoreUnavailable Reason = "store_unavailable"
)

// Reasons lists every denial reason.
func Reasons() []Reason {
	return []Reason{
		ReasonNoSubscription,
		ReasonPermissionDenied,
		ReasonLimitExceeded,
		ReasonStoreUnavailable,
	}
}

// Valid reports whether r is a known denial reason.
func (r Reason) Valid() bool {
	switch r {
	case ReasonNoSubscription, ReasonPermissionDenied, ReasonLimitExceeded, ReasonStoreUnavailable:
		return true
	}
	return false
}

func (r Reason) String() string { return string(r) }

// UsageCounter is the per-user-per-API call tally within the current window.
type UsageCounter struct {
	UserID      string    `json:"user_id"`
	APIName     string    `json:"api_name"`
	Count       int64     `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// ResetAt returns when the counter's current window rolls over.
func (c UsageCounter) ResetAt(window time.Duration) time.Time {
	return c.WindowStart.Add(window)
}

// Decision is the engine's admission outcome.
type Decision struct {
	Allowed bool
	Reason  Reason // empty when Allowed

	UserID  string
	APIName string
	PlanID  string

	Limit     int64 // Unlimited when the plan sets no limit
	Count     int64 // counter value after this call
	Remaining int64 // Unlimited when the plan sets no limit
	ResetAt   time.Time

	// Err carries the infrastructure failure behind ReasonStoreUnavailable.
	Err error
}

// Retryable reports whether an outer policy may retry the call.
// Only infrastructure failures qualify; business denials are final.
func (d Decision) Retryable() bool {
	return d.Reason == ReasonStoreUnavailable
}

// Unbounded reports whether the decision was made without a limit.
func (d Decision) Unbounded() bool {
	return d.Limit == Unlimited
}
