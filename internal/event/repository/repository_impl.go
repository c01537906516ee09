package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/unihub/unihub/internal/event/domain"
	pkgdb "github.com/unihub/unihub/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() eventdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *eventdomain.Event) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO events (
			id, host_id, title, capacity, ticket_price_cents, starts_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.HostID,
		event.Title,
		event.Capacity,
		event.TicketPriceCents,
		event.StartsAt,
		event.CreatedAt,
		event.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*eventdomain.Event, error) {
	var event eventdomain.Event
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, eventdomain.ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*eventdomain.Event, error) {
	var rows []eventdomain.Event
	err := db.WithContext(ctx).Raw(
		`SELECT id, host_id, title, capacity, ticket_price_cents, starts_at, created_at, updated_at
		 FROM events
		 WHERE id = ?`+pkgdb.LockSuffix(db),
		id,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eventdomain.ErrNotFound
	}
	return &rows[0], nil
}
