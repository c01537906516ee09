package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	registrationdomain "github.com/unihub/unihub/internal/registration/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() registrationdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, reg *registrationdomain.EventRegistration) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO event_registrations (
			id, event_id, user_id, status, payment_intent_id, paid_transaction_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.ID,
		reg.EventID,
		reg.UserID,
		reg.Status,
		reg.PaymentIntentID,
		reg.PaidTransactionID,
		reg.CreatedAt,
		reg.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*registrationdomain.EventRegistration, error) {
	var reg registrationdomain.EventRegistration
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&reg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, registrationdomain.ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

func (r *repo) FindByEventAndUser(ctx context.Context, db *gorm.DB, eventID, userID snowflake.ID) (*registrationdomain.EventRegistration, error) {
	var reg registrationdomain.EventRegistration
	err := db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&reg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, registrationdomain.ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

func (r *repo) CountActive(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM event_registrations
		 WHERE event_id = ? AND status IN (?, ?)`,
		eventID,
		registrationdomain.StatusPending,
		registrationdomain.StatusConfirmed,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to registrationdomain.Status, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE event_registrations
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

func (r *repo) Confirm(ctx context.Context, db *gorm.DB, id snowflake.ID, paidTxnID snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE event_registrations
		 SET status = ?, paid_transaction_id = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		registrationdomain.StatusConfirmed,
		paidTxnID,
		now,
		id,
		registrationdomain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SetPaymentIntent(ctx context.Context, db *gorm.DB, id snowflake.ID, intentID snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE event_registrations
		 SET payment_intent_id = ?, updated_at = ?
		 WHERE id = ?`,
		intentID,
		now,
		id,
	).Error
}
