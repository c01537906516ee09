package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("escrow_not_found")
	ErrInvalidAmount = errors.New("invalid_escrow_amount")
	ErrNotHeld       = errors.New("escrow_not_held")
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, escrow *Escrow) error
	FindByEventID(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (*Escrow, error)
	// Transition moves held → released|refunded conditionally; false
	// means the escrow was already settled.
	Transition(ctx context.Context, db *gorm.DB, eventID snowflake.ID, to Status, now time.Time) (bool, error)
}

type Service interface {
	Get(ctx context.Context, eventID snowflake.ID) (*Escrow, error)
	Release(ctx context.Context, eventID snowflake.ID) error
	Refund(ctx context.Context, eventID snowflake.ID) error
}
