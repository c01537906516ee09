package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	intentdomain "github.com/unihub/unihub/internal/paymentintent/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reg *EventRegistration) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*EventRegistration, error)
	FindByEventAndUser(ctx context.Context, db *gorm.DB, eventID, userID snowflake.ID) (*EventRegistration, error)
	// CountActive recomputes occupancy from live statuses on every
	// attempt; there is no separately maintained counter to drift.
	CountActive(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (int64, error)
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, now time.Time) (bool, error)
	// Confirm moves pending → confirmed and links the paid transaction
	// in one conditional update.
	Confirm(ctx context.Context, db *gorm.DB, id snowflake.ID, paidTxnID snowflake.ID, now time.Time) (bool, error)
	SetPaymentIntent(ctx context.Context, db *gorm.DB, id snowflake.ID, intentID snowflake.ID, now time.Time) error
}

// RegisterResult is what admission produced: the registration and, for
// paid tickets, the intent awaiting settlement.
type RegisterResult struct {
	Registration *EventRegistration
	Intent       *intentdomain.PaymentIntent
}

type Service interface {
	Register(ctx context.Context, eventID, userID snowflake.ID) (*RegisterResult, error)
	// Cancel releases the slot held by a pending registration and
	// cancels its intent.
	Cancel(ctx context.Context, eventID, userID snowflake.ID) error
	Get(ctx context.Context, eventID, userID snowflake.ID) (*EventRegistration, error)
}
