package quota

import "time"

// Config holds engine settings loaded from the environment.
type Config struct {
	Window time.Duration `env:"QUOTA_WINDOW" envDefault:"24h"` // Window is the span after which usage counters reset.
}
