package seed

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	membershipdomain "github.com/unihub/unihub/internal/membership/domain"
	"gorm.io/gorm"
)

// EnsureMembershipPlans installs the default plan catalog. Idempotent:
// existing codes are left untouched.
func EnsureMembershipPlans(conn *gorm.DB, genID *snowflake.Node, repo membershipdomain.Repository) error {
	now := time.Now().UTC()
	plans := []membershipdomain.MembershipPlan{
		{Code: "standard", Name: "Standard", MonthlyEventLimit: 10, PriceCents: 49000, DurationMonths: 1},
		{Code: "pro", Name: "Pro", MonthlyEventLimit: 30, PriceCents: 99000, DurationMonths: 1},
		{Code: "campus", Name: "Campus", MonthlyEventLimit: membershipdomain.UnlimitedEvents, PriceCents: 249000, DurationMonths: 12},
	}

	ctx := context.Background()
	for _, plan := range plans {
		plan.ID = genID.Generate()
		plan.CreatedAt = now
		if err := repo.InsertPlan(ctx, conn, &plan); err != nil {
			return err
		}
	}
	return nil
}
