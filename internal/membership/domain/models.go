package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UnlimitedEvents is the sentinel plan limit meaning no monthly cap.
const UnlimitedEvents = -1

// MembershipPlan is a catalog entity: how many events a member may
// create per month, at what price, for how long.
type MembershipPlan struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	Code              string       `json:"code" gorm:"type:text;not null;uniqueIndex:ux_membership_plans_code"`
	Name              string       `json:"name" gorm:"type:text;not null"`
	MonthlyEventLimit int          `json:"monthly_event_limit" gorm:"not null"`
	PriceCents        int64        `json:"price_cents" gorm:"not null;check:price_cents >= 0"`
	DurationMonths    int          `json:"duration_months" gorm:"not null"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null"`
}

func (MembershipPlan) TableName() string { return "membership_plans" }

// UserMembership tracks one user's plan and the monthly event-creation
// allowance. PlanID is null for the default policy applied to users with
// no purchased membership; EndDate is null for open-ended windows.
// LastResetAt marks the last month for which quota was granted.
type UserMembership struct {
	ID                  snowflake.ID  `json:"id" gorm:"primaryKey"`
	UserID              snowflake.ID  `json:"user_id" gorm:"not null;uniqueIndex:ux_user_memberships_user"`
	PlanID              *snowflake.ID `json:"plan_id"`
	StartDate           time.Time     `json:"start_date" gorm:"not null"`
	EndDate             *time.Time    `json:"end_date"`
	RemainingEventQuota int           `json:"remaining_event_quota" gorm:"not null;check:remaining_event_quota >= 0"`
	LastResetAt         time.Time     `json:"last_reset_at" gorm:"not null"`
	CreatedAt           time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt           time.Time     `json:"updated_at" gorm:"not null"`
}

func (UserMembership) TableName() string { return "user_memberships" }

// ResetDue reports whether the membership's quota belongs to an earlier
// calendar month than now.
func (m *UserMembership) ResetDue(now time.Time) bool {
	last := m.LastResetAt.UTC()
	now = now.UTC()
	return last.Year() != now.Year() || last.Month() != now.Month()
}
