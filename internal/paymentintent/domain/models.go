package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Purpose string

const (
	PurposeTopUp       Purpose = "top_up"
	PurposeWalletTopUp Purpose = "wallet_top_up"
	PurposeEventTicket Purpose = "event_ticket"
	PurposeMembership  Purpose = "membership"
)

type Status string

const (
	StatusRequiresPayment Status = "requires_payment"
	StatusSucceeded       Status = "succeeded"
	StatusCanceled        Status = "canceled"
	StatusExpired         Status = "expired"
)

// PaymentIntent represents an intended payment and its terminal outcome.
// Status moves from requires_payment to exactly one terminal state.
// An event_ticket intent references exactly one registration; other
// purposes must not carry one (the check constraint is the backstop).
type PaymentIntent struct {
	ID               snowflake.ID  `json:"id" gorm:"primaryKey"`
	UserID           snowflake.ID  `json:"user_id" gorm:"not null;index"`
	AmountCents      int64         `json:"amount_cents" gorm:"not null;check:amount_cents > 0"`
	Purpose          Purpose       `json:"purpose" gorm:"type:text;not null;check:chk_intent_linkage,(purpose = 'event_ticket' AND registration_id IS NOT NULL) OR (purpose <> 'event_ticket' AND registration_id IS NULL)"`
	Status           Status        `json:"status" gorm:"type:text;not null"`
	ClientSecret     string        `json:"client_secret" gorm:"type:text;not null"`
	ExpiresAt        time.Time     `json:"expires_at" gorm:"not null"`
	OrderCode        *int64        `json:"order_code" gorm:"uniqueIndex:ux_payment_intents_order_code"`
	RegistrationID   *snowflake.ID `json:"registration_id" gorm:"uniqueIndex:ux_payment_intents_registration"`
	MembershipPlanID *snowflake.ID `json:"membership_plan_id"`
	CreatedAt        time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time     `json:"updated_at" gorm:"not null"`
}

func (PaymentIntent) TableName() string { return "payment_intents" }

func (p Status) Terminal() bool {
	return p == StatusSucceeded || p == StatusCanceled || p == StatusExpired
}

// ExpiredAt reports whether the intent is logically expired at now:
// still requires_payment but past its expiry timestamp. Accessors must
// treat such an intent as failed rather than act on stale state.
func (i *PaymentIntent) ExpiredAt(now time.Time) bool {
	return i.Status == StatusRequiresPayment && now.After(i.ExpiresAt)
}
