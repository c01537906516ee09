package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, intent *PaymentIntent) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentIntent, error)
	FindByOrderCode(ctx context.Context, db *gorm.DB, orderCode int64) (*PaymentIntent, error)
	// FindByOrderCodeForUpdate locks the intent row so concurrent
	// settlement deliveries serialize on it.
	FindByOrderCodeForUpdate(ctx context.Context, db *gorm.DB, orderCode int64) (*PaymentIntent, error)
	// Transition moves status from→to in one conditional update. False
	// means the intent was not in the expected source state.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, now time.Time) (bool, error)
}

type Service interface {
	CreateTopUp(ctx context.Context, userID snowflake.ID, amountCents int64) (*PaymentIntent, error)
	// Get evaluates lazy expiry before returning: a requires_payment
	// intent past its deadline is transitioned to expired first.
	Get(ctx context.Context, id snowflake.ID) (*PaymentIntent, error)
	Cancel(ctx context.Context, id snowflake.ID) (*PaymentIntent, error)
}
