package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	intentdomain "github.com/unihub/unihub/internal/paymentintent/domain"
	pkgdb "github.com/unihub/unihub/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() intentdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, intent *intentdomain.PaymentIntent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_intents (
			id, user_id, amount_cents, purpose, status, client_secret,
			expires_at, order_code, registration_id, membership_plan_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		intent.ID,
		intent.UserID,
		intent.AmountCents,
		intent.Purpose,
		intent.Status,
		intent.ClientSecret,
		intent.ExpiresAt,
		intent.OrderCode,
		intent.RegistrationID,
		intent.MembershipPlanID,
		intent.CreatedAt,
		intent.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*intentdomain.PaymentIntent, error) {
	var intent intentdomain.PaymentIntent
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, intentdomain.ErrNotFound
		}
		return nil, err
	}
	return &intent, nil
}

func (r *repo) FindByOrderCode(ctx context.Context, db *gorm.DB, orderCode int64) (*intentdomain.PaymentIntent, error) {
	return r.findByOrderCode(ctx, db, orderCode, "")
}

func (r *repo) FindByOrderCodeForUpdate(ctx context.Context, db *gorm.DB, orderCode int64) (*intentdomain.PaymentIntent, error) {
	return r.findByOrderCode(ctx, db, orderCode, pkgdb.LockSuffix(db))
}

func (r *repo) findByOrderCode(ctx context.Context, db *gorm.DB, orderCode int64, suffix string) (*intentdomain.PaymentIntent, error) {
	var rows []intentdomain.PaymentIntent
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, amount_cents, purpose, status, client_secret,
			expires_at, order_code, registration_id, membership_plan_id,
			created_at, updated_at
		 FROM payment_intents
		 WHERE order_code = ?`+suffix,
		orderCode,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, intentdomain.ErrNotFound
	}
	return &rows[0], nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to intentdomain.Status, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payment_intents
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		now,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
