package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	escrowdomain "github.com/unihub/unihub/internal/escrow/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() escrowdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, escrow *escrowdomain.Escrow) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO escrows (id, event_id, amount_hold_cents, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		escrow.ID,
		escrow.EventID,
		escrow.AmountHoldCents,
		escrow.Status,
		escrow.CreatedAt,
		escrow.UpdatedAt,
	).Error
}

func (r *repo) FindByEventID(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (*escrowdomain.Escrow, error) {
	var escrow escrowdomain.Escrow
	err := db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&escrow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, escrowdomain.ErrNotFound
		}
		return nil, err
	}
	return &escrow, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, eventID snowflake.ID, to escrowdomain.Status, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE escrows
		 SET status = ?, updated_at = ?
		 WHERE event_id = ? AND status = ?`,
		to,
		now,
		eventID,
		escrowdomain.StatusHeld,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
