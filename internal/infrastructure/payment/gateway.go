package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	domorder "github.com/ny-essien/Drop/internal/domain/order"
	dompayment "github.com/ny-essien/Drop/internal/domain/payment"
	"github.com/ny-essien/Drop/internal/observability"
)

const signatureScheme = "v1"

// IDGenerator issues intent identifiers.
type IDGenerator interface {
	NewID() string
}

// Gateway is the stubbed payment-provider adapter. Intent creation does
// not talk to a real processor; webhook verification implements the
// provider's signature scheme (t=<unix>,v1=<hex HMAC-SHA256 of
// "<t>.<payload>">) so reconciliation only ever sees authenticated
// events.
type Gateway struct {
	secret []byte
	idGen  IDGenerator
	log    observability.Logger
}

func NewGateway(webhookSecret string, idGen IDGenerator, logger observability.Logger) *Gateway {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Gateway{
		secret: []byte(webhookSecret),
		idGen:  idGen,
		log:    logger.With(observability.F("component", "payment_gateway")),
	}
}

// CreateIntent returns the charge handle the storefront confirms
// client-side. The amount is the order total computed at checkout; it is
// never recomputed here.
func (g *Gateway) CreateIntent(ctx context.Context, o *domorder.Order) (*dompayment.Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	intentID := "pi_" + g.idGen.NewID()
	intent := &dompayment.Intent{
		ID:           intentID,
		ClientSecret: intentID + "_secret_" + g.idGen.NewID(),
		Status:       "requires_confirmation",
		Amount:       o.TotalAmount,
	}

	g.log.Info("payment_intent_created",
		observability.F("order_id", o.ID),
		observability.F("intent_id", intent.ID),
		observability.F("amount", intent.Amount),
	)
	return intent, nil
}

// webhookPayload is the wire shape of a gateway callback body.
type webhookPayload struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	Outcome    string `json:"outcome"`
	Amount     int64  `json:"amount"`
	OccurredAt int64  `json:"occurred_at,omitempty"`
}

// VerifyWebhook authenticates and parses an inbound callback. It rejects
// bad signatures before touching the payload, so no state mutation can be
// driven by an unauthenticated request.
func (g *Gateway) VerifyWebhook(payload []byte, signature string) (*dompayment.Event, error) {
	ts, mac, err := parseSignatureHeader(signature)
	if err != nil {
		return nil, err
	}

	expected := computeSignature(g.secret, ts, payload)
	if !hmac.Equal([]byte(mac), []byte(expected)) {
		return nil, dompayment.ErrInvalidSignature
	}

	var body webhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %w", dompayment.ErrMalformedPayload, err)
	}
	if body.ID == "" || body.OrderID == "" {
		return nil, dompayment.ErrMalformedPayload
	}

	var outcome dompayment.Outcome
	switch dompayment.Outcome(body.Outcome) {
	case dompayment.OutcomeSucceeded, dompayment.OutcomeFailed, dompayment.OutcomeRefunded:
		outcome = dompayment.Outcome(body.Outcome)
	default:
		return nil, dompayment.ErrMalformedPayload
	}

	occurred := time.Unix(body.OccurredAt, 0).UTC()
	if body.OccurredAt == 0 {
		occurred = time.Unix(ts, 0).UTC()
	}

	return &dompayment.Event{
		ID:         body.ID,
		OrderID:    body.OrderID,
		Outcome:    outcome,
		Amount:     body.Amount,
		OccurredAt: occurred,
	}, nil
}

// Sign produces the signature header for a payload. The gateway simulator
// and the webhook tests use it; production callbacks carry the header
// already signed by the provider.
func Sign(webhookSecret string, ts time.Time, payload []byte) string {
	return fmt.Sprintf("t=%d,%s=%s", ts.Unix(), signatureScheme,
		computeSignature([]byte(webhookSecret), ts.Unix(), payload))
}

func parseSignatureHeader(header string) (ts int64, mac string, err error) {
	if header == "" {
		return 0, "", dompayment.ErrInvalidSignature
	}
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, "", dompayment.ErrInvalidSignature
			}
		case signatureScheme:
			mac = v
		}
	}
	if ts == 0 || mac == "" {
		return 0, "", dompayment.ErrInvalidSignature
	}
	return ts, mac, nil
}

func computeSignature(secret []byte, ts int64, payload []byte) string {
	h := hmac.New(sha256.New, secret)
	fmt.Fprintf(h, "%d.", ts)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
