package payment

import (
	"context"
	"errors"
	"time"

	"github.com/ny-essien/Drop/internal/domain/order"
)

var (
	ErrInvalidSignature = errors.New("payment: invalid webhook signature")
	ErrMalformedPayload = errors.New("payment: malformed webhook payload")
)

// Outcome is the gateway's verdict carried by a webhook event.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeRefunded  Outcome = "refunded"
)

// Event is a verified gateway callback. ID is the gateway event id and the
// idempotency key for reconciliation; callbacks may be redelivered or
// arrive out of order.
type Event struct {
	ID         string
	OrderID    string
	Outcome    Outcome
	Amount     int64
	OccurredAt time.Time
}

// Intent is the charge authorization handle returned to the storefront
// after checkout.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
}

// Gateway is the narrow port to the payment provider. Webhook signature
// verification is the authentication gate that runs before any
// reconciliation state mutation.
type Gateway interface {
	CreateIntent(ctx context.Context, o *order.Order) (*Intent, error)
	VerifyWebhook(payload []byte, signature string) (*Event, error)
}

// ProcessedEventLog records gateway event ids that have already been
// applied, so redelivery short-circuits before any side effect.
type ProcessedEventLog interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}
