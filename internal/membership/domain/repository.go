package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrPlanNotFound       = errors.New("membership_plan_not_found")
	ErrMembershipNotFound = errors.New("membership_not_found")
	// ErrEventLimitReached is the Forbidden-class outcome of a failed
	// quota decrement.
	ErrEventLimitReached = errors.New("EventLimitReachedForCurrentMembership")
)

type Repository interface {
	InsertPlan(ctx context.Context, db *gorm.DB, plan *MembershipPlan) error
	FindPlanByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MembershipPlan, error)
	ListPlans(ctx context.Context, db *gorm.DB) ([]MembershipPlan, error)
	// FindActiveByUser returns the membership whose validity window
	// covers now, or ErrMembershipNotFound.
	FindActiveByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, now time.Time) (*UserMembership, error)
	// EnsureDefault lazily creates the default-policy membership row,
	// idempotent under the unique user index.
	EnsureDefault(ctx context.Context, db *gorm.DB, id snowflake.ID, userID snowflake.ID, quota int, now time.Time) error
	// Demote converts an expired paid membership back to the default
	// policy. No-op when the row is absent or still valid.
	Demote(ctx context.Context, db *gorm.DB, userID snowflake.ID, quota int, now time.Time) (bool, error)
	InsertMembership(ctx context.Context, db *gorm.DB, membership *UserMembership) error
	// Activate upserts the user's membership onto a purchased plan with
	// a fresh validity window and full quota.
	Activate(ctx context.Context, db *gorm.DB, id snowflake.ID, userID, planID snowflake.ID, start time.Time, end time.Time, quota int) error
	// ResetQuota grants a new month's allowance. The observed
	// lastResetAt guards the write so concurrent resets collapse to one.
	ResetQuota(ctx context.Context, db *gorm.DB, id snowflake.ID, quota int, observedResetAt, now time.Time) (bool, error)
	// ConsumeQuota decrements remaining_event_quota by one iff it is
	// still positive, in a single conditional update.
	ConsumeQuota(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
}

// Gate guards quota-consuming actions. Consume takes the caller's
// transaction handle so a failed triggering action rolls the decrement
// back with it.
type Gate interface {
	Consume(ctx context.Context, db *gorm.DB, userID snowflake.ID) error
}

type Service interface {
	ListPlans(ctx context.Context) ([]MembershipPlan, error)
	GetActive(ctx context.Context, userID snowflake.ID) (*UserMembership, error)
}
