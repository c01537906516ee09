package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	walletdomain "github.com/unihub/unihub/internal/wallet/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() walletdomain.Repository {
	return &repo{}
}

func (r *repo) EnsureWallet(ctx context.Context, db *gorm.DB, id snowflake.ID, userID snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO wallets (id, user_id, balance_cents, created_at, updated_at)
		 VALUES (?, ?, 0, ?, ?)
		 ON CONFLICT (user_id) DO NOTHING`,
		id,
		userID,
		now,
		now,
	).Error
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*walletdomain.Wallet, error) {
	var wallet walletdomain.Wallet
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, walletdomain.ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *repo) AdjustBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, deltaCents int64, now time.Time) (bool, error) {
	if deltaCents == 0 {
		return true, nil
	}

	// Single round trip: the non-negativity invariant lives in the
	// predicate, never in a separate read.
	res := db.WithContext(ctx).Exec(
		`UPDATE wallets
		 SET balance_cents = balance_cents + ?, updated_at = ?
		 WHERE user_id = ? AND balance_cents + ? >= 0`,
		deltaCents,
		now,
		userID,
		deltaCents,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, txn *walletdomain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transactions (
			id, wallet_id, amount_cents, direction, method, status,
			provider, provider_ref, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.WalletID,
		txn.AmountCents,
		txn.Direction,
		txn.Method,
		txn.Status,
		txn.Provider,
		txn.ProviderRef,
		txn.Payload,
		txn.CreatedAt,
	).Error
}

func (r *repo) FindTransactionByProviderRef(ctx context.Context, db *gorm.DB, provider, providerRef string) (*walletdomain.Transaction, error) {
	var txn walletdomain.Transaction
	err := db.WithContext(ctx).
		Where("provider = ? AND provider_ref = ?", provider, providerRef).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repo) FindTransactionByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*walletdomain.Transaction, error) {
	var txn walletdomain.Transaction
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}
