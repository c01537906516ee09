package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Wallet holds a user's spendable balance in minor currency units.
// One wallet per user, created lazily on first need, never deleted.
type Wallet struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID       snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex:ux_wallets_user"`
	BalanceCents int64        `json:"balance_cents" gorm:"not null;default:0;check:balance_cents >= 0"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null"`
}

func (Wallet) TableName() string { return "wallets" }

type TransactionDirection string

const (
	DirectionIn  TransactionDirection = "in"
	DirectionOut TransactionDirection = "out"
)

type TransactionMethod string

const (
	MethodWallet  TransactionMethod = "wallet"
	MethodGateway TransactionMethod = "gateway"
	MethodManual  TransactionMethod = "manual"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionSucceeded TransactionStatus = "succeeded"
	TransactionFailed    TransactionStatus = "failed"
	TransactionRefunded  TransactionStatus = "refunded"
)

// Transaction is an immutable ledger entry. The (provider, provider_ref)
// pair, when both set, is globally unique and serves as the idempotency
// key for gateway settlement.
type Transaction struct {
	ID          snowflake.ID         `json:"id" gorm:"primaryKey"`
	WalletID    snowflake.ID         `json:"wallet_id" gorm:"not null;index"`
	AmountCents int64                `json:"amount_cents" gorm:"not null;check:amount_cents > 0"`
	Direction   TransactionDirection `json:"direction" gorm:"type:text;not null"`
	Method      TransactionMethod    `json:"method" gorm:"type:text;not null"`
	Status      TransactionStatus    `json:"status" gorm:"type:text;not null"`
	Provider    *string              `json:"provider" gorm:"type:text;uniqueIndex:ux_transactions_provider_ref,priority:1"`
	ProviderRef *string              `json:"provider_ref" gorm:"type:text;uniqueIndex:ux_transactions_provider_ref,priority:2"`
	Payload     datatypes.JSON       `json:"payload"`
	CreatedAt   time.Time            `json:"created_at" gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }
