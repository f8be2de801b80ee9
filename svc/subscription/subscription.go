package subscription

import (
	"fmt"
	"strings"
	"time"
)

// Subscription binds a user to a plan from StartDate until EndDate, or
// indefinitely when EndDate is nil. Each user has at most one subscription;
// UserID is the key.
type Subscription struct {
	UserID    string     `json:"user_id" yaml:"user_id"`
	PlanID    string     `json:"plan_id" yaml:"plan_id"`
	StartDate time.Time  `json:"start_date" yaml:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty" yaml:"end_date,omitempty"`
}

// Status values reported by Subscription.StatusAt.
const (
	StatusActive  = "active"
	StatusPending = "subscription_pending"
	StatusExpired = "subscription_expired"
)

// StatusAt classifies the subscription at now.
func (s Subscription) StatusAt(now time.Time) string {
	switch {
	case now.Before(s.StartDate):
		return StatusPending
	case s.EndDate != nil && !now.Before(*s.EndDate):
		return StatusExpired
	default:
		return StatusActive
	}
}

// IsActiveAt reports whether now falls inside [StartDate, EndDate).
func (s Subscription) IsActiveAt(now time.Time) bool {
	return s.StatusAt(now) == StatusActive
}

// Validate checks the subscription has a user, a plan and, when bounded, a
// non-empty period.
func (s Subscription) Validate() error {
	switch {
	case s.UserID == "":
		return fmt.Errorf("%w: empty user id", ErrInvalidSubscription)
	case s.PlanID == "":
		return fmt.Errorf("%w: empty plan id for user %q", ErrInvalidSubscription, s.UserID)
	case s.EndDate != nil && !s.EndDate.After(s.StartDate):
		return fmt.Errorf("%w: end date must be after start date for user %q", ErrInvalidSubscription, s.UserID)
	}
	return nil
}

// Permission is an API that plans can grant. Plans refer to it by Name,
// which is the API name checked at admission time.
type Permission struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string `json:"name" yaml:"name"`
	Endpoint    string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate requires a name. Names become document keys in plan limits, so
// '.' and '$' are rejected.
func (p Permission) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPermission)
	}
	if strings.ContainsAny(p.Name, ".$") {
		return fmt.Errorf("%w: name %q must not contain '.' or '$'", ErrInvalidPermission, p.Name)
	}
	return nil
}
