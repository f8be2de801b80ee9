package quota

import "time"

// NewCounter returns the lazily created counter for a key seen for the first time.
func NewCounter(userID, apiName string, now time.Time) UsageCounter {
	return UsageCounter{
		UserID:      userID,
		APIName:     apiName,
		Count:       0,
		WindowStart: now,
	}
}

// Admit applies the admission rule to c at now and returns the resulting
// counter, whether the call is admitted, and whether the counter changed and
// must be persisted.
//
// The window rolls over when now-WindowStart >= window, resetting the count
// before the limit is checked. A denied call leaves the count untouched.
// A negative limit never denies.
func Admit(c UsageCounter, limit int64, window time.Duration, now time.Time) (next UsageCounter, allowed, changed bool) {
	next = c

	if now.Sub(c.WindowStart) >= window {
		next.Count = 0
		next.WindowStart = now
		changed = true
	}

	if limit >= 0 && next.Count >= limit {
		return next, false, changed
	}

	next.Count++
	return next, true, true
}

// Remaining returns how many calls are left in the window, or Unlimited.
func Remaining(limit, count int64) int64 {
	if limit < 0 {
		return Unlimited
	}
	return max(limit-count, 0)
}
