package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	membershipdomain "github.com/unihub/unihub/internal/membership/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() membershipdomain.Repository {
	return &repo{}
}

func (r *repo) InsertPlan(ctx context.Context, db *gorm.DB, plan *membershipdomain.MembershipPlan) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO membership_plans (id, code, name, monthly_event_limit, price_cents, duration_months, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (code) DO NOTHING`,
		plan.ID,
		plan.Code,
		plan.Name,
		plan.MonthlyEventLimit,
		plan.PriceCents,
		plan.DurationMonths,
		plan.CreatedAt,
	).Error
}

func (r *repo) FindPlanByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*membershipdomain.MembershipPlan, error) {
	var plan membershipdomain.MembershipPlan
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, membershipdomain.ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) ListPlans(ctx context.Context, db *gorm.DB) ([]membershipdomain.MembershipPlan, error) {
	var plans []membershipdomain.MembershipPlan
	err := db.WithContext(ctx).
		Order("price_cents ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repo) FindActiveByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, now time.Time) (*membershipdomain.UserMembership, error) {
	var membership membershipdomain.UserMembership
	err := db.WithContext(ctx).
		Where("user_id = ? AND start_date <= ? AND (end_date IS NULL OR end_date > ?)", userID, now, now).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, membershipdomain.ErrMembershipNotFound
		}
		return nil, err
	}
	return &membership, nil
}

func (r *repo) EnsureDefault(ctx context.Context, db *gorm.DB, id snowflake.ID, userID snowflake.ID, quota int, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO user_memberships (
			id, user_id, plan_id, start_date, end_date, remaining_event_quota,
			last_reset_at, created_at, updated_at
		) VALUES (?, ?, NULL, ?, NULL, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO NOTHING`,
		id,
		userID,
		now,
		quota,
		now,
		now,
		now,
	).Error
}

func (r *repo) Demote(ctx context.Context, db *gorm.DB, userID snowflake.ID, quota int, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE user_memberships
		 SET plan_id = NULL, start_date = ?, end_date = NULL,
			remaining_event_quota = ?, last_reset_at = ?, updated_at = ?
		 WHERE user_id = ? AND end_date IS NOT NULL AND end_date <= ?`,
		now,
		quota,
		now,
		now,
		userID,
		now,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertMembership(ctx context.Context, db *gorm.DB, membership *membershipdomain.UserMembership) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO user_memberships (
			id, user_id, plan_id, start_date, end_date, remaining_event_quota,
			last_reset_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		membership.ID,
		membership.UserID,
		membership.PlanID,
		membership.StartDate,
		membership.EndDate,
		membership.RemainingEventQuota,
		membership.LastResetAt,
		membership.CreatedAt,
		membership.UpdatedAt,
	).Error
}

func (r *repo) Activate(ctx context.Context, db *gorm.DB, id snowflake.ID, userID, planID snowflake.ID, start time.Time, end time.Time, quota int) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO user_memberships (
			id, user_id, plan_id, start_date, end_date, remaining_event_quota,
			last_reset_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			plan_id = excluded.plan_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			remaining_event_quota = excluded.remaining_event_quota,
			last_reset_at = excluded.last_reset_at,
			updated_at = excluded.updated_at`,
		id,
		userID,
		planID,
		start,
		end,
		quota,
		start,
		start,
		start,
	).Error
}

func (r *repo) ResetQuota(ctx context.Context, db *gorm.DB, id snowflake.ID, quota int, observedResetAt, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE user_memberships
		 SET remaining_event_quota = ?, last_reset_at = ?, updated_at = ?
		 WHERE id = ? AND last_reset_at = ?`,
		quota,
		now,
		now,
		id,
		observedResetAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ConsumeQuota(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE user_memberships
		 SET remaining_event_quota = remaining_event_quota - 1, updated_at = ?
		 WHERE id = ? AND remaining_event_quota > 0`,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
