package quota

import (
	"context"
	"sync"
	"time"
)

type counterKey struct {
	userID  string
	apiName string
}

// entry guards a single counter. dead is set when Reset removes the entry from
// the map, so a consumer that grabbed it before removal retries on a fresh one.
type entry struct {
	mu      sync.Mutex
	counter UsageCounter
	dead    bool
}

// MemoryStore implements UsageStore in process memory.
// The map lock is held only for lookup and insertion; admission runs under a
// per-key mutex so different keys never contend.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[counterKey]*entry
}

var _ UsageStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[counterKey]*entry),
	}
}

// ConsumeIfUnderLimit atomically applies Admit to the counter for the key.
func (ms *MemoryStore) ConsumeIfUnderLimit(ctx context.Context, userID, apiName string, limit int64, window time.Duration, now time.Time) (bool, UsageCounter, error) {
	if userID == "" || apiName == "" {
		return false, UsageCounter{}, ErrInvalidKey
	}

	key := counterKey{userID: userID, apiName: apiName}
	for {
		if err := ctx.Err(); err != nil {
			return false, UsageCounter{}, err
		}

		e := ms.getOrCreate(key, now)

		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		next, allowed, changed := Admit(e.counter, limit, window, now)
		if changed {
			e.counter = next
		}
		e.mu.Unlock()

		return allowed, next, nil
	}
}

// Get returns a copy of the stored counter.
func (ms *MemoryStore) Get(ctx context.Context, userID, apiName string) (UsageCounter, error) {
	ms.mu.RLock()
	e, ok := ms.entries[counterKey{userID: userID, apiName: apiName}]
	ms.mu.RUnlock()
	if !ok {
		return UsageCounter{}, ErrCounterNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return UsageCounter{}, ErrCounterNotFound
	}
	return e.counter, nil
}

// Reset removes the counter for the key.
func (ms *MemoryStore) Reset(ctx context.Context, userID, apiName string) error {
	key := counterKey{userID: userID, apiName: apiName}

	ms.mu.Lock()
	e, ok := ms.entries[key]
	if ok {
		delete(ms.entries, key)
	}
	ms.mu.Unlock()

	if !ok {
		return ErrCounterNotFound
	}

	e.mu.Lock()
	e.dead = true
	e.mu.Unlock()
	return nil
}

// Len returns the number of stored counters.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.entries)
}

func (ms *MemoryStore) getOrCreate(key counterKey, now time.Time) *entry {
	ms.mu.RLock()
	e, ok := ms.entries[key]
	ms.mu.RUnlock()
	if ok {
		return e
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	// Another goroutine may have created it between the locks.
	if e, ok = ms.entries[key]; ok {
		return e
	}
	e = &entry{counter: NewCounter(key.userID, key.apiName, now)}
	ms.entries[key] = e
	return e
}
