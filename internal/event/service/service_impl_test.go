package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/unihub/unihub/internal/clock"
	"github.com/unihub/unihub/internal/config"
	escrowdomain "github.com/unihub/unihub/internal/escrow/domain"
	escrowrepository "github.com/unihub/unihub/internal/escrow/repository"
	eventdomain "github.com/unihub/unihub/internal/event/domain"
	"github.com/unihub/unihub/internal/event/repository"
	membershipdomain "github.com/unihub/unihub/internal/membership/domain"
	membershiprepository "github.com/unihub/unihub/internal/membership/repository"
	membershipservice "github.com/unihub/unihub/internal/membership/service"
	"github.com/unihub/unihub/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type eventFixture struct {
	svc     eventdomain.Service
	db      *gorm.DB
	escrows escrowdomain.Repository
}

func newEventFixture(t *testing.T) *eventFixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	err = dbConn.AutoMigrate(
		&eventdomain.Event{},
		&escrowdomain.Escrow{},
		&membershipdomain.MembershipPlan{},
		&membershipdomain.UserMembership{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	fc := clock.NewFakeClock(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{}
	cfg.Payments.DefaultMonthlyEventLimit = 3

	gate := membershipservice.NewService(membershipservice.Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fc,
		Cfg:   cfg,
		Repo:  membershiprepository.Provide(),
	})

	f := &eventFixture{db: dbConn, escrows: escrowrepository.Provide()}
	f.svc = NewService(Params{
		DB:         dbConn,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fc,
		Repo:       repository.Provide(),
		EscrowRepo: f.escrows,
		QuotaGate:  gate,
	})
	return f
}

func TestCreateEventConsumesQuotaAndOpensEscrow(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()
	hostID := snowflake.ID(6001)
	cap := 50

	event, err := f.svc.Create(ctx, eventdomain.CreateInput{
		HostID:           hostID,
		Title:            "intro to distributed systems",
		Capacity:         &cap,
		TicketPriceCents: 25_000,
		StartsAt:         time.Date(2026, time.March, 20, 18, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)

	esc, err := f.escrows.FindByEventID(ctx, f.db, event.ID)
	assert.NoError(t, err)
	assert.Equal(t, escrowdomain.StatusHeld, esc.Status)

	got, err := f.svc.Get(ctx, event.ID)
	assert.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
}

func TestCreateEventStopsAtQuotaLimit(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()
	hostID := snowflake.ID(6002)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, eventdomain.CreateInput{
			HostID:   hostID,
			Title:    "weekly meetup",
			StartsAt: time.Date(2026, time.March, 20, 18, 0, 0, 0, time.UTC),
		})
		assert.NoError(t, err)
	}

	_, err := f.svc.Create(ctx, eventdomain.CreateInput{
		HostID:   hostID,
		Title:    "one too many",
		StartsAt: time.Date(2026, time.March, 21, 18, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, membershipdomain.ErrEventLimitReached)
}

func TestCreateEventValidation(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()
	zero := 0

	_, err := f.svc.Create(ctx, eventdomain.CreateInput{HostID: 6003, Title: "   "})
	assert.ErrorIs(t, err, eventdomain.ErrInvalidTitle)

	_, err = f.svc.Create(ctx, eventdomain.CreateInput{HostID: 6003, Title: "x", Capacity: &zero})
	assert.ErrorIs(t, err, eventdomain.ErrInvalidCapacity)

	_, err = f.svc.Create(ctx, eventdomain.CreateInput{HostID: 6003, Title: "x", TicketPriceCents: -1})
	assert.ErrorIs(t, err, eventdomain.ErrInvalidPrice)
}

func TestCreateEventRollsQuotaBackOnFailure(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()
	hostID := snowflake.ID(6004)

	// Sabotage the insert by dropping the escrows table: the quota
	// decrement must roll back with the failed transaction.
	assert.NoError(t, f.db.Migrator().DropTable(&escrowdomain.Escrow{}))

	_, err := f.svc.Create(ctx, eventdomain.CreateInput{
		HostID:   hostID,
		Title:    "doomed event",
		StartsAt: time.Date(2026, time.March, 20, 18, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)

	assert.NoError(t, f.db.AutoMigrate(&escrowdomain.Escrow{}))

	// All three quota units are still available.
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, eventdomain.CreateInput{
			HostID:   hostID,
			Title:    "recovered event",
			StartsAt: time.Date(2026, time.March, 20, 18, 0, 0, 0, time.UTC),
		})
		assert.NoError(t, err)
	}
}
