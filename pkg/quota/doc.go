// Package quota decides whether a user may call a downstream API and meters
// the call against the per-window limit of the user's plan.
//
// An admission decision is made in three strictly ordered steps: resolve the
// user's active plan, check that the plan grants the API, then consume one call
// from the usage counter. The last step is a single atomic store primitive
// (UsageStore.ConsumeIfUnderLimit), so concurrent callers can never be admitted
// beyond the limit.
//
// # Usage
//
//	store := quota.NewMemoryStore()
//	engine, err := quota.NewEngine(registry, store, quota.WithWindow(time.Hour))
//	if err != nil {
//		return err
//	}
//
//	d := engine.CheckAndConsume(ctx, "user-1", "storage", time.Now())
//	if !d.Allowed {
//		switch d.Reason {
//		case quota.ReasonLimitExceeded:
//			// retry after d.ResetAt
//		case quota.ReasonStoreUnavailable:
//			// infrastructure failure, d.Err holds the cause
//		}
//	}
//
// # Windows
//
// Each counter carries the time its window started. The first call at or after
// WindowStart+window resets the count to zero and restarts the window at the
// call time, even when the previous count was at or above the limit.
//
// # Backends
//
// MemoryStore guards each key with its own mutex. Durable backends live in the
// redisstore (Lua script), pgstore (row-locking transaction) and mongostore
// (compare-and-set) subpackages; all of them apply the same Admit rule.
package quota
