package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/unihub/unihub/internal/clock"
	"github.com/unihub/unihub/internal/config"
	membershipdomain "github.com/unihub/unihub/internal/membership/domain"
	"github.com/unihub/unihub/internal/membership/repository"
	"github.com/unihub/unihub/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestGate(t *testing.T, fc *clock.FakeClock) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&membershipdomain.MembershipPlan{}, &membershipdomain.UserMembership{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	cfg := config.Config{}
	cfg.Payments.DefaultMonthlyEventLimit = 3

	svc := NewService(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fc,
		Cfg:   cfg,
		Repo:  repository.Provide(),
	})
	return svc, dbConn, node
}

func TestConsumeCreatesDefaultMembershipLazily(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))
	svc, dbConn, _ := newTestGate(t, fc)
	userID := snowflake.ID(2001)

	assert.NoError(t, svc.Consume(context.Background(), dbConn, userID))

	m, err := svc.GetActive(context.Background(), userID)
	assert.NoError(t, err)
	assert.Nil(t, m.PlanID)
	assert.Equal(t, 2, m.RemainingEventQuota)
}

func TestConsumeExhaustsDefaultQuota(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))
	svc, dbConn, _ := newTestGate(t, fc)
	userID := snowflake.ID(2002)

	for i := 0; i < 3; i++ {
		assert.NoError(t, svc.Consume(context.Background(), dbConn, userID))
	}

	err := svc.Consume(context.Background(), dbConn, userID)
	assert.ErrorIs(t, err, membershipdomain.ErrEventLimitReached)
}

func TestConsumeResetsQuotaLazilyNextMonth(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2026, time.March, 28, 12, 0, 0, 0, time.UTC))
	svc, dbConn, _ := newTestGate(t, fc)
	userID := snowflake.ID(2003)

	for i := 0; i < 3; i++ {
		assert.NoError(t, svc.Consume(context.Background(), dbConn, userID))
	}
	assert.ErrorIs(t, svc.Consume(context.Background(), dbConn, userID), membershipdomain.ErrEventLimitReached)

	// Nothing happens at month boundary until the next attempt touches
	// the row.
	fc.Set(time.Date(2026, time.April, 1, 0, 0, 1, 0, time.UTC))

	assert.NoError(t, svc.Consume(context.Background(), dbConn, userID))

	m, err := svc.GetActive(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, 2, m.RemainingEventQuota)
	assert.Equal(t, time.April, m.LastResetAt.UTC().Month())
}

func TestConsumePlanLimits(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))
	svc, dbConn, node := newTestGate(t, fc)
	ctx := context.Background()
	repo := repository.Provide()
	now := fc.Now()

	plan := &membershipdomain.MembershipPlan{
		ID:                node.Generate(),
		Code:              "pro",
		Name:              "Pro",
		MonthlyEventLimit: 2,
		PriceCents:        99_000,
		DurationMonths:    1,
		CreatedAt:         now,
	}
	assert.NoError(t, repo.InsertPlan(ctx, dbConn, plan))

	userID := snowflake.ID(2004)
	end := now.AddDate(0, 1, 0)
	assert.NoError(t, repo.Activate(ctx, dbConn, node.Generate(), userID, plan.ID, now, end, plan.MonthlyEventLimit))

	assert.NoError(t, svc.Consume(ctx, dbConn, userID))
	assert.NoError(t, svc.Consume(ctx, dbConn, userID))
	assert.ErrorIs(t, svc.Consume(ctx, dbConn, userID), membershipdomain.ErrEventLimitReached)
}

func TestConsumeUnlimitedPlanNeverDecrements(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))
	svc, dbConn, node := newTestGate(t, fc)
	ctx := context.Background()
	repo := repository.Provide()
	now := fc.Now()

	plan := &membershipdomain.MembershipPlan{
		ID:                node.Generate(),
		Code:              "campus",
		Name:              "Campus",
		MonthlyEventLimit: membershipdomain.UnlimitedEvents,
		PriceCents:        249_000,
		DurationMonths:    12,
		CreatedAt:         now,
	}
	assert.NoError(t, repo.InsertPlan(ctx, dbConn, plan))

	userID := snowflake.ID(2005)
	end := now.AddDate(1, 0, 0)
	assert.NoError(t, repo.Activate(ctx, dbConn, node.Generate(), userID, plan.ID, now, end, 0))

	for i := 0; i < 10; i++ {
		assert.NoError(t, svc.Consume(ctx, dbConn, userID))
	}
}

func TestExpiredMembershipFallsBackToDefaultPolicy(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))
	svc, dbConn, node := newTestGate(t, fc)
	ctx := context.Background()
	repo := repository.Provide()
	now := fc.Now()

	plan := &membershipdomain.MembershipPlan{
		ID:                node.Generate(),
		Code:              "pro",
		Name:              "Pro",
		MonthlyEventLimit: 30,
		PriceCents:        99_000,
		DurationMonths:    1,
		CreatedAt:         now,
	}
	assert.NoError(t, repo.InsertPlan(ctx, dbConn, plan))

	userID := snowflake.ID(2006)
	end := now.AddDate(0, 1, 0)
	assert.NoError(t, repo.Activate(ctx, dbConn, node.Generate(), userID, plan.ID, now, end, 30))

	// Past the validity window the paid membership no longer matches
	// and the next attempt demotes the row to the default policy.
	fc.Set(end.Add(time.Hour))
	_, err := svc.GetActive(ctx, userID)
	assert.ErrorIs(t, err, membershipdomain.ErrMembershipNotFound)

	assert.NoError(t, svc.Consume(ctx, dbConn, userID))

	m, err := svc.GetActive(ctx, userID)
	assert.NoError(t, err)
	assert.Nil(t, m.PlanID)
	assert.Equal(t, 2, m.RemainingEventQuota)
}

func TestConsumeConcurrentAttemptsOnLastQuotaUnit(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))
	svc, dbConn, _ := newTestGate(t, fc)
	userID := snowflake.ID(2101)

	// Burn down to a single remaining unit.
	for i := 0; i < 2; i++ {
		assert.NoError(t, svc.Consume(context.Background(), dbConn, userID))
	}

	sqlDB, err := dbConn.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			errs <- svc.Consume(context.Background(), dbConn, userID)
		}()
	}

	var admitted, limited int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			admitted++
		case errors.Is(err, membershipdomain.ErrEventLimitReached):
			limited++
		default:
			t.Fatalf("unexpected consume error: %v", err)
		}
	}

	// The conditional decrement admits exactly one of the two racers.
	assert.Equal(t, 1, admitted)
	assert.Equal(t, 1, limited)

	m, err := svc.GetActive(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, 0, m.RemainingEventQuota)
}
