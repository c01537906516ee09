package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	intentdomain "github.com/unihub/unihub/internal/paymentintent/domain"
)

// Provider is the gateway name recorded on settlement transactions.
const Provider = "payos"

// WebhookPayload is the gateway's asynchronous confirmation body. The
// signature header is computed over the raw bytes, so the struct is
// only decoded after verification.
type WebhookPayload struct {
	OrderCode           int64  `json:"orderCode"`
	Amount              int64  `json:"amount"`
	Reference           string `json:"reference"`
	Success             bool   `json:"success"`
	Code                string `json:"code"`
	Description         string `json:"description"`
	TransactionDateTime string `json:"transactionDateTime"`
}

// Result is the webhook response body discriminator: ok on first
// application, ignored on detected replay or terminal no-op.
type Result string

const (
	ResultOK      Result = "ok"
	ResultIgnored Result = "ignored"
)

var (
	ErrInvalidSignature = errors.New("invalid_webhook_signature")
	ErrInvalidPayload   = errors.New("invalid_webhook_payload")
)

// ReturnResolution is the checkout-return redirect outcome.
type ReturnResolution struct {
	IntentID snowflake.ID
	Paid     bool
}

type Service interface {
	// ProcessWebhook verifies, correlates and idempotently applies one
	// gateway delivery. Safe under arbitrary redelivery.
	ProcessWebhook(ctx context.Context, rawBody []byte, signature string) (Result, error)
	// ConfirmWithWallet settles an intent synchronously from the
	// payer's wallet balance instead of the gateway.
	ConfirmWithWallet(ctx context.Context, intentID snowflake.ID) (*intentdomain.PaymentIntent, error)
	// ResolveReturn maps a gateway browser redirect back to an intent.
	ResolveReturn(ctx context.Context, orderCode int64) (*ReturnResolution, error)
}
