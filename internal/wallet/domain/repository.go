package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the unit-of-work surface for wallet state. Every method
// takes the db handle so callers can compose wallet mutations into their
// own transaction.
type Repository interface {
	// EnsureWallet inserts the user's wallet if it does not exist yet.
	// Idempotent under the unique owner index.
	EnsureWallet(ctx context.Context, db *gorm.DB, id snowflake.ID, userID snowflake.ID, now time.Time) error
	FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Wallet, error)
	// AdjustBalance applies balance += delta as a single conditional
	// update whose predicate also requires the result to be non-negative.
	// Returns false when the precondition did not hold (no rows affected).
	AdjustBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, deltaCents int64, now time.Time) (bool, error)
	InsertTransaction(ctx context.Context, db *gorm.DB, txn *Transaction) error
	FindTransactionByProviderRef(ctx context.Context, db *gorm.DB, provider, providerRef string) (*Transaction, error)
	FindTransactionByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Transaction, error)
}

// Service is the request-facing wallet API.
type Service interface {
	Get(ctx context.Context, userID snowflake.ID) (*Wallet, error)
	Credit(ctx context.Context, userID snowflake.ID, amountCents int64) error
	Debit(ctx context.Context, userID snowflake.ID, amountCents int64) error
}
