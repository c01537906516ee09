package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/unihub/unihub/internal/clock"
	walletdomain "github.com/unihub/unihub/internal/wallet/domain"
	"github.com/unihub/unihub/internal/wallet/repository"
	"github.com/unihub/unihub/pkg/db"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (walletdomain.Service, *clock.FakeClock) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&walletdomain.Wallet{}, &walletdomain.Transaction{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	fake := clock.NewFakeClock(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))
	return NewService(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	}), fake
}

func TestWalletCreatedLazilyWithZeroBalance(t *testing.T) {
	svc, _ := newTestService(t)
	userID := snowflake.ID(1001)

	w, err := svc.Get(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, userID, w.UserID)
	assert.Equal(t, int64(0), w.BalanceCents)

	again, err := svc.Get(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, w.ID, again.ID)
}

func TestWalletCreditThenDebit(t *testing.T) {
	svc, _ := newTestService(t)
	userID := snowflake.ID(1002)

	assert.NoError(t, svc.Credit(context.Background(), userID, 50_000))
	assert.NoError(t, svc.Debit(context.Background(), userID, 20_000))

	w, err := svc.Get(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, int64(30_000), w.BalanceCents)
}

func TestWalletDebitNeverGoesNegative(t *testing.T) {
	svc, _ := newTestService(t)
	userID := snowflake.ID(1003)

	assert.NoError(t, svc.Credit(context.Background(), userID, 10_000))

	err := svc.Debit(context.Background(), userID, 10_001)
	assert.ErrorIs(t, err, walletdomain.ErrInsufficientBalance)

	w, err := svc.Get(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, int64(10_000), w.BalanceCents)

	// Exact drain to zero is allowed.
	assert.NoError(t, svc.Debit(context.Background(), userID, 10_000))
	w, err = svc.Get(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), w.BalanceCents)
}

func TestWalletRejectsNonPositiveAmounts(t *testing.T) {
	svc, _ := newTestService(t)
	userID := snowflake.ID(1004)

	assert.ErrorIs(t, svc.Credit(context.Background(), userID, 0), walletdomain.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Credit(context.Background(), userID, -500), walletdomain.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Debit(context.Background(), userID, -500), walletdomain.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Debit(context.Background(), 0, 100), walletdomain.ErrInvalidUser)
}

func TestWalletTimestampsFollowClock(t *testing.T) {
	svc, fake := newTestService(t)
	userID := snowflake.ID(1005)

	w, err := svc.Get(context.Background(), userID)
	assert.NoError(t, err)
	assert.True(t, w.CreatedAt.Equal(fake.Now()))

	fake.Advance(48 * time.Hour)
	assert.NoError(t, svc.Credit(context.Background(), userID, 1_000))

	w, err = svc.Get(context.Background(), userID)
	assert.NoError(t, err)
	assert.True(t, w.UpdatedAt.Equal(fake.Now()))
}
