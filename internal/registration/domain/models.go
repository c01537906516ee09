package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCanceled  Status = "canceled"
	StatusRefunded  Status = "refunded"
)

var (
	ErrNotFound = errors.New("registration_not_found")
	// ErrCapacityReached is the Forbidden-class admission failure.
	ErrCapacityReached   = errors.New("Event has reached capacity.")
	ErrAlreadyRegistered = errors.New("already_registered")
	ErrNotPending        = errors.New("registration_not_pending")
)

// EventRegistration is unique per (event, user). Only pending and
// confirmed rows occupy a capacity slot; canceling a pending
// registration is what frees one.
type EventRegistration struct {
	ID                snowflake.ID  `json:"id" gorm:"primaryKey"`
	EventID           snowflake.ID  `json:"event_id" gorm:"not null;uniqueIndex:ux_registrations_event_user,priority:1"`
	UserID            snowflake.ID  `json:"user_id" gorm:"not null;uniqueIndex:ux_registrations_event_user,priority:2"`
	Status            Status        `json:"status" gorm:"type:text;not null"`
	PaymentIntentID   *snowflake.ID `json:"payment_intent_id"`
	PaidTransactionID *snowflake.ID `json:"paid_transaction_id"`
	CreatedAt         time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time     `json:"updated_at" gorm:"not null"`
}

func (EventRegistration) TableName() string { return "event_registrations" }

// Active reports whether the registration occupies a capacity slot.
func (r *EventRegistration) Active() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}
