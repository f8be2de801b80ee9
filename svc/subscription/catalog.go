package subscription

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrymomot/accessgate/pkg/quota"
)

// Catalog stores permissions and the plans built from them.
type Catalog interface {
	SavePermission(ctx context.Context, p Permission) error
	GetPermission(ctx context.Context, name string) (Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	// DeletePermission fails with ErrPermissionInUse while a plan grants or
	// limits it.
	DeletePermission(ctx context.Context, name string) error

	// SavePlan upserts a plan after ValidatePlan and normalisation.
	SavePlan(ctx context.Context, plan quota.Plan) error
	GetPlan(ctx context.Context, id string) (quota.Plan, error)
	ListPlans(ctx context.Context) ([]quota.Plan, error)
	DeletePlan(ctx context.Context, id string) error
}

// ValidatePlan checks the plan is well formed and every API it names is a
// known permission. exists reports whether a permission name is defined.
func ValidatePlan(plan quota.Plan, exists func(name string) (bool, error)) error {
	if plan.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidPlan)
	}

	names := slices.Clone(plan.APIPermissions)
	for api, limit := range plan.APILimits {
		if limit < 0 {
			return fmt.Errorf("%w: plan %q: negative limit %d for %q", ErrInvalidPlan, plan.ID, limit, api)
		}
		names = append(names, api)
	}
	slices.Sort(names)

	for _, name := range slices.Compact(names) {
		ok, err := exists(name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: plan %q references %q", ErrPermissionNotFound, plan.ID, name)
		}
	}
	return nil
}

// MemoryCatalog is a Catalog held in process memory.
type MemoryCatalog struct {
	mu          sync.RWMutex
	permissions map[string]Permission
	plans       map[string]quota.Plan
}

var _ Catalog = (*MemoryCatalog)(nil)

// NewMemoryCatalog returns an empty MemoryCatalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		permissions: make(map[string]Permission),
		plans:       make(map[string]quota.Plan),
	}
}

// SavePermission validates and upserts p by name.
func (c *MemoryCatalog) SavePermission(_ context.Context, p Permission) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permissions[p.Name] = p
	return nil
}

// GetPermission returns ErrPermissionNotFound for unknown names.
func (c *MemoryCatalog) GetPermission(_ context.Context, name string) (Permission, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.permissions[name]
	if !ok {
		return Permission{}, ErrPermissionNotFound
	}
	return p, nil
}

// ListPermissions returns all permissions sorted by name.
func (c *MemoryCatalog) ListPermissions(_ context.Context) ([]Permission, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := slices.Collect(maps.Values(c.permissions))
	slices.SortFunc(out, func(a, b Permission) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// DeletePermission removes the permission unless a plan grants or limits it.
func (c *MemoryCatalog) DeletePermission(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.permissions[name]; !ok {
		return ErrPermissionNotFound
	}
	for _, plan := range c.plans {
		if _, limited := plan.APILimits[name]; limited || plan.PermissionGranted(name) {
			return fmt.Errorf("%w: %q is used by plan %q", ErrPermissionInUse, name, plan.ID)
		}
	}
	delete(c.permissions, name)
	return nil
}

// SavePlan validates plan against the stored permissions and upserts it.
func (c *MemoryCatalog) SavePlan(_ context.Context, plan quota.Plan) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := ValidatePlan(plan, func(name string) (bool, error) {
		_, ok := c.permissions[name]
		return ok, nil
	})
	if err != nil {
		return err
	}
	c.plans[plan.ID] = plan.Normalize()
	return nil
}

// GetPlan returns ErrPlanNotFound for unknown ids.
func (c *MemoryCatalog) GetPlan(_ context.Context, id string) (quota.Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	plan, ok := c.plans[id]
	if !ok {
		return quota.Plan{}, ErrPlanNotFound
	}
	return plan.Normalize(), nil
}

// ListPlans returns all plans sorted by id.
func (c *MemoryCatalog) ListPlans(_ context.Context) ([]quota.Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]quota.Plan, 0, len(c.plans))
	for _, plan := range c.plans {
		out = append(out, plan.Normalize())
	}
	slices.SortFunc(out, func(a, b quota.Plan) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// DeletePlan removes the plan. Subscriptions pointing at it stop resolving.
func (c *MemoryCatalog) DeletePlan(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.plans[id]; !ok {
		return ErrPlanNotFound
	}
	delete(c.plans, id)
	return nil
}
