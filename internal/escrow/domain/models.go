package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusHeld     Status = "held"
	StatusReleased Status = "released"
	StatusRefunded Status = "refunded"
)

// Escrow holds funds earmarked for an event's payout, one row per event,
// created alongside the event. held is the only non-terminal state.
type Escrow struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	EventID         snowflake.ID `json:"event_id" gorm:"not null;uniqueIndex:ux_escrows_event"`
	AmountHoldCents int64        `json:"amount_hold_cents" gorm:"not null;default:0;check:amount_hold_cents >= 0"`
	Status          Status       `json:"status" gorm:"type:text;not null"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null"`
}

func (Escrow) TableName() string { return "escrows" }
