// Package subscription stores the catalog (permissions and plans) and the
// user subscriptions that the quota engine consults.
//
// Registry implements quota.PlanRegistry: it returns the plan of a user's
// subscription when the subscription is active at the given instant, and
// reports "not found" for a missing subscription, an inactive one, or one
// that names a plan the catalog does not have.
//
// Catalog and Store each have an in-memory and a MongoDB implementation.
// Catalog.SavePlan rejects plans that name unknown permissions or carry
// negative limits, and DeletePermission refuses while a plan still uses it.
//
// Seed data is loaded from YAML with LoadSeedFile and written with Seed.Apply.
package subscription
