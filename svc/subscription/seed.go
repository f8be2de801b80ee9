package subscription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/accessgate/pkg/logger"
	"github.com/dmitrymomot/accessgate/pkg/quota"
)

// Seed is the catalog and subscription data loaded at startup.
//
//	permissions:
//	  - name: storage
//	    endpoint: /cloudapi/storage
//	plans:
//	  - id: basic
//	    api_permissions: [storage]
//	    api_limits: {storage: 2}
//	subscriptions:
//	  - user_id: u1
//	    plan_id: basic
//	    start_date: 2024-01-01T00:00:00Z
//	    end_date: 2025-01-01T00:00:00Z # optional
type Seed struct {
	Permissions   []Permission   `yaml:"permissions"`
	Plans         []quota.Plan   `yaml:"plans"`
	Subscriptions []Subscription `yaml:"subscriptions"`
}

// LoadSeedFile reads and decodes a YAML seed file.
func LoadSeedFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return DecodeSeed(f)
}

// DecodeSeed decodes a YAML seed document. Unknown keys are rejected.
func DecodeSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return Seed{}, errors.Join(ErrInvalidSeed, err)
	}
	return seed, nil
}

// ApplyOption configures Seed.Apply.
type ApplyOption func(*applyConfig)

type applyConfig struct {
	log *slog.Logger
}

// WithSeedLogger reports plans whose limits name APIs they do not grant.
func WithSeedLogger(l *slog.Logger) ApplyOption {
	return func(c *applyConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// Apply writes permissions, then plans, then subscriptions. Subscriptions
// must reference a plan that exists after the plans are saved.
func (s Seed) Apply(ctx context.Context, catalog Catalog, subs Store, opts ...ApplyOption) error {
	cfg := applyConfig{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}

	for _, p := range s.Permissions {
		if err := catalog.SavePermission(ctx, p); err != nil {
			return fmt.Errorf("seed permission %q: %w", p.Name, err)
		}
	}
	for _, plan := range s.Plans {
		if err := catalog.SavePlan(ctx, plan); err != nil {
			return fmt.Errorf("seed plan %q: %w", plan.ID, err)
		}
		if apis := plan.UnreachableLimits(); len(apis) > 0 {
			cfg.log.WarnContext(ctx, "plan limits APIs it does not grant",
				logger.PlanID(plan.ID),
				slog.Any("apis", apis),
			)
		}
	}
	for _, sub := range s.Subscriptions {
		if _, err := catalog.GetPlan(ctx, sub.PlanID); err != nil {
			return fmt.Errorf("seed subscription for %q: %w", sub.UserID, errors.Join(ErrInvalidSeed, err))
		}
		if err := subs.Save(ctx, sub); err != nil {
			return fmt.Errorf("seed subscription for %q: %w", sub.UserID, err)
		}
	}
	return nil
}
