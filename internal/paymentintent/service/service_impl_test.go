package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/unihub/unihub/internal/clock"
	"github.com/unihub/unihub/internal/config"
	intentdomain "github.com/unihub/unihub/internal/paymentintent/domain"
	"github.com/unihub/unihub/internal/paymentintent/repository"
	"github.com/unihub/unihub/pkg/db"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (intentdomain.Service, *clock.FakeClock) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&intentdomain.PaymentIntent{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	fc := clock.NewFakeClock(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{}
	cfg.Payments.IntentTTLMinutes = 15

	svc := NewService(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fc,
		Cfg:   cfg,
		Repo:  repository.Provide(),
	})
	return svc, fc
}

func TestCreateTopUpIntent(t *testing.T) {
	svc, fc := newTestService(t)
	userID := snowflake.ID(5001)

	intent, err := svc.CreateTopUp(context.Background(), userID, 50_000)
	assert.NoError(t, err)
	assert.Equal(t, intentdomain.StatusRequiresPayment, intent.Status)
	assert.Equal(t, intentdomain.PurposeTopUp, intent.Purpose)
	assert.NotEmpty(t, intent.ClientSecret)
	assert.NotNil(t, intent.OrderCode)
	assert.Equal(t, intent.ID.Int64(), *intent.OrderCode)
	assert.Equal(t, fc.Now().Add(15*time.Minute), intent.ExpiresAt)
	assert.Nil(t, intent.RegistrationID)
}

func TestCreateTopUpRejectsNonPositiveAmount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateTopUp(context.Background(), snowflake.ID(5002), 0)
	assert.ErrorIs(t, err, intentdomain.ErrInvalidAmount)

	_, err = svc.CreateTopUp(context.Background(), snowflake.ID(5002), -100)
	assert.ErrorIs(t, err, intentdomain.ErrInvalidAmount)
}

func TestGetExpiresLazily(t *testing.T) {
	svc, fc := newTestService(t)
	intent, err := svc.CreateTopUp(context.Background(), snowflake.ID(5003), 50_000)
	assert.NoError(t, err)

	// Inside the window nothing changes.
	fc.Advance(14 * time.Minute)
	got, err := svc.Get(context.Background(), intent.ID)
	assert.NoError(t, err)
	assert.Equal(t, intentdomain.StatusRequiresPayment, got.Status)

	// Past the deadline the next read reifies expiry.
	fc.Advance(2 * time.Minute)
	got, err = svc.Get(context.Background(), intent.ID)
	assert.NoError(t, err)
	assert.Equal(t, intentdomain.StatusExpired, got.Status)

	got, err = svc.Get(context.Background(), intent.ID)
	assert.NoError(t, err)
	assert.Equal(t, intentdomain.StatusExpired, got.Status)
}

func TestCancelIntent(t *testing.T) {
	svc, _ := newTestService(t)
	intent, err := svc.CreateTopUp(context.Background(), snowflake.ID(5004), 50_000)
	assert.NoError(t, err)

	canceled, err := svc.Cancel(context.Background(), intent.ID)
	assert.NoError(t, err)
	assert.Equal(t, intentdomain.StatusCanceled, canceled.Status)

	// Terminal states never transition again.
	_, err = svc.Cancel(context.Background(), intent.ID)
	assert.ErrorIs(t, err, intentdomain.ErrTerminal)
}

func TestCancelExpiredIntent(t *testing.T) {
	svc, fc := newTestService(t)
	intent, err := svc.CreateTopUp(context.Background(), snowflake.ID(5005), 50_000)
	assert.NoError(t, err)

	fc.Advance(16 * time.Minute)

	_, err = svc.Cancel(context.Background(), intent.ID)
	assert.ErrorIs(t, err, intentdomain.ErrTerminal)
}

func TestGetUnknownIntent(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), snowflake.ID(987654))
	assert.ErrorIs(t, err, intentdomain.ErrNotFound)
}

func TestIntentLinkageRules(t *testing.T) {
	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	regID := node.Generate()

	_, err = intentdomain.NewIntent(node, now, intentdomain.CreateInput{
		UserID:      snowflake.ID(5006),
		AmountCents: 1000,
		Purpose:     intentdomain.PurposeEventTicket,
		TTL:         15 * time.Minute,
	})
	assert.ErrorIs(t, err, intentdomain.ErrMissingRegistration)

	_, err = intentdomain.NewIntent(node, now, intentdomain.CreateInput{
		UserID:         snowflake.ID(5006),
		AmountCents:    1000,
		Purpose:        intentdomain.PurposeTopUp,
		RegistrationID: &regID,
		TTL:            15 * time.Minute,
	})
	assert.ErrorIs(t, err, intentdomain.ErrUnexpectedRegistration)

	_, err = intentdomain.NewIntent(node, now, intentdomain.CreateInput{
		UserID:      snowflake.ID(5006),
		AmountCents: 1000,
		Purpose:     intentdomain.Purpose("subscription"),
		TTL:         15 * time.Minute,
	})
	assert.ErrorIs(t, err, intentdomain.ErrInvalidPurpose)
}
