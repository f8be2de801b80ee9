package subscription

import "errors"

var (
	ErrPlanNotFound         = errors.New("subscription.plan_not_found")
	ErrPermissionNotFound   = errors.New("subscription.permission_not_found")
	ErrSubscriptionNotFound = errors.New("subscription.not_found")

	ErrInvalidPlan         = errors.New("subscription.invalid_plan")
	ErrInvalidPermission   = errors.New("subscription.invalid_permission")
	ErrInvalidSubscription = errors.New("subscription.invalid_subscription")
	ErrPermissionInUse     = errors.New("subscription.permission_in_use")

	ErrInvalidSeed = errors.New("subscription.invalid_seed")
)
