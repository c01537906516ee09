package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *Event) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Event, error)
	// FindByIDForUpdate takes the exclusive row lock that serializes
	// registration attempts against one event.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Event, error)
}

type CreateInput struct {
	HostID           snowflake.ID
	Title            string
	Capacity         *int
	TicketPriceCents int64
	StartsAt         time.Time
}

type Service interface {
	// Create consumes the host's monthly event quota and inserts the
	// event with its held escrow in one transaction.
	Create(ctx context.Context, in CreateInput) (*Event, error)
	Get(ctx context.Context, id snowflake.ID) (*Event, error)
}
