package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// CreateInput describes a new intent. RegistrationID is required for
// event_ticket, forbidden otherwise.
type CreateInput struct {
	UserID           snowflake.ID
	AmountCents      int64
	Purpose          Purpose
	RegistrationID   *snowflake.ID
	MembershipPlanID *snowflake.ID
	// WithOrderCode assigns a gateway correlation code for checkout.
	WithOrderCode bool
	TTL           time.Duration
}

// NewIntent validates purpose-specific linkage and builds the intent in
// requires_payment with a fresh client secret. Both the synchronous API
// path and the registration gate create intents through here so the
// linkage rules have a single home.
func NewIntent(genID *snowflake.Node, now time.Time, in CreateInput) (*PaymentIntent, error) {
	if in.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	switch in.Purpose {
	case PurposeEventTicket:
		if in.RegistrationID == nil || *in.RegistrationID == 0 {
			return nil, ErrMissingRegistration
		}
	case PurposeTopUp, PurposeWalletTopUp, PurposeMembership:
		if in.RegistrationID != nil {
			return nil, ErrUnexpectedRegistration
		}
	default:
		return nil, ErrInvalidPurpose
	}

	ttl := in.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	intent := &PaymentIntent{
		ID:               genID.Generate(),
		UserID:           in.UserID,
		AmountCents:      in.AmountCents,
		Purpose:          in.Purpose,
		Status:           StatusRequiresPayment,
		ClientSecret:     uuid.NewString(),
		ExpiresAt:        now.Add(ttl),
		RegistrationID:   in.RegistrationID,
		MembershipPlanID: in.MembershipPlanID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.WithOrderCode {
		code := intent.ID.Int64()
		intent.OrderCode = &code
	}
	return intent, nil
}
