package quota

import (
	"maps"
	"slices"
)

// Plan is a named bundle of allowed APIs and their per-window call limits.
type Plan struct {
	ID             string           `json:"id" yaml:"id"`
	Name           string           `json:"name" yaml:"name"`
	Description    string           `json:"description" yaml:"description"`
	APIPermissions []string         `json:"api_permissions" yaml:"api_permissions"` // set of API names
	APILimits      map[string]int64 `json:"api_limits" yaml:"api_limits"`           // calls per window; absent means unlimited
}

// PermissionGranted reports whether apiName is a member of the plan's permission set.
func (p Plan) PermissionGranted(apiName string) bool {
	return slices.Contains(p.APIPermissions, apiName)
}

// LimitFor returns the per-window limit for apiName.
// hasLimit is false when the plan sets no limit, which means unlimited.
func (p Plan) LimitFor(apiName string) (limit int64, hasLimit bool) {
	limit, hasLimit = p.APILimits[apiName]
	return limit, hasLimit
}

// UnreachableLimits returns API names that carry a limit but no permission.
// The engine never admits calls to them.
func (p Plan) UnreachableLimits() []string {
	var out []string
	for api := range p.APILimits {
		if !p.PermissionGranted(api) {
			out = append(out, api)
		}
	}
	slices.Sort(out)
	return out
}

// Normalize returns a deep copy with a sorted, de-duplicated permission set.
func (p Plan) Normalize() Plan {
	perms := slices.Clone(p.APIPermissions)
	slices.Sort(perms)
	perms = slices.Compact(perms)

	limits := maps.Clone(p.APILimits)
	if limits == nil {
		limits = make(map[string]int64)
	}

	return Plan{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		APIPermissions: perms,
		APILimits:      limits,
	}
}
