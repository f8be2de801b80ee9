package quota

import "errors"

// Domain errors for quota operations.
var (
	// ErrCounterNotFound is returned by Get and Reset when no usage counter exists for the key.
	ErrCounterNotFound = errors.New("quota.errors.counter_not_found")

	// ErrInvalidConfig indicates an engine configuration that cannot enforce a window.
	ErrInvalidConfig = errors.New("quota.errors.invalid_config")

	// ErrInvalidKey is returned when the user ID or API name is empty.
	ErrInvalidKey = errors.New("quota.errors.invalid_key")

	// ErrStoreUnavailable wraps infrastructure failures from registries and usage stores.
	ErrStoreUnavailable = errors.New("quota.errors.store_unavailable")

	// ErrContention is returned by optimistic stores that ran out of compare-and-set attempts.
	ErrContention = errors.New("quota.errors.contention")
)
