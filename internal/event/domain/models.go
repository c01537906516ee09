package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound        = errors.New("event_not_found")
	ErrInvalidTitle    = errors.New("invalid_event_title")
	ErrInvalidCapacity = errors.New("invalid_event_capacity")
	ErrInvalidPrice    = errors.New("invalid_event_price")
)

// Event carries only what admission control and escrow need: the
// capacity ceiling and the ticket price. Nil capacity means unbounded.
type Event struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	HostID           snowflake.ID `json:"host_id" gorm:"not null;index"`
	Title            string       `json:"title" gorm:"type:text;not null"`
	Capacity         *int         `json:"capacity"`
	TicketPriceCents int64        `json:"ticket_price_cents" gorm:"not null;default:0;check:ticket_price_cents >= 0"`
	StartsAt         time.Time    `json:"starts_at" gorm:"not null"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null"`
}

func (Event) TableName() string { return "events" }
