package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	domorder "github.com/ny-essien/Drop/internal/domain/order"
	dompayment "github.com/ny-essien/Drop/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

type seqIDs struct{ n int }

func (g *seqIDs) NewID() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

func newGateway() *Gateway {
	return NewGateway(testSecret, &seqIDs{}, nil)
}

func signedPayload(t *testing.T, body map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	return payload, Sign(testSecret, time.Now(), payload)
}

func TestCreateIntent(t *testing.T) {
	g := newGateway()
	o, err := domorder.New("ord-1", "cust-1", []domorder.Item{
		{ProductID: "sku-1", UnitPrice: 2500, Quantity: 2},
	}, domorder.Address{}, domorder.Address{}, "card")
	require.NoError(t, err)

	intent, err := g.CreateIntent(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, "pi_id-1", intent.ID)
	assert.Equal(t, int64(5000), intent.Amount)
	assert.Equal(t, "requires_confirmation", intent.Status)
	assert.NotEmpty(t, intent.ClientSecret)
}

func TestVerifyWebhook_RoundTrip(t *testing.T) {
	g := newGateway()
	payload, sig := signedPayload(t, map[string]any{
		"id":       "evt-1",
		"order_id": "ord-1",
		"outcome":  "succeeded",
		"amount":   5000,
	})

	evt, err := g.VerifyWebhook(payload, sig)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", evt.ID)
	assert.Equal(t, "ord-1", evt.OrderID)
	assert.Equal(t, dompayment.OutcomeSucceeded, evt.Outcome)
	assert.Equal(t, int64(5000), evt.Amount)
}

func TestVerifyWebhook_RejectsBadSignature(t *testing.T) {
	g := newGateway()
	payload, _ := signedPayload(t, map[string]any{
		"id": "evt-1", "order_id": "ord-1", "outcome": "succeeded", "amount": 1,
	})

	_, err := g.VerifyWebhook(payload, Sign("whsec_other", time.Now(), payload))
	assert.ErrorIs(t, err, dompayment.ErrInvalidSignature)

	_, err = g.VerifyWebhook(payload, "")
	assert.ErrorIs(t, err, dompayment.ErrInvalidSignature)

	_, err = g.VerifyWebhook(payload, "t=abc,v1=deadbeef")
	assert.ErrorIs(t, err, dompayment.ErrInvalidSignature)
}

func TestVerifyWebhook_RejectsTamperedPayload(t *testing.T) {
	g := newGateway()
	payload, sig := signedPayload(t, map[string]any{
		"id": "evt-1", "order_id": "ord-1", "outcome": "succeeded", "amount": 1,
	})

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] = '9'

	_, err := g.VerifyWebhook(tampered, sig)
	assert.ErrorIs(t, err, dompayment.ErrInvalidSignature)
}

func TestVerifyWebhook_MalformedPayload(t *testing.T) {
	g := newGateway()

	payload := []byte("not-json")
	_, err := g.VerifyWebhook(payload, Sign(testSecret, time.Now(), payload))
	assert.ErrorIs(t, err, dompayment.ErrMalformedPayload)

	payload, sig := signedPayload(t, map[string]any{
		"id": "evt-1", "order_id": "ord-1", "outcome": "teleported", "amount": 1,
	})
	_, err = g.VerifyWebhook(payload, sig)
	assert.ErrorIs(t, err, dompayment.ErrMalformedPayload)

	payload, sig = signedPayload(t, map[string]any{
		"order_id": "ord-1", "outcome": "succeeded", "amount": 1,
	})
	_, err = g.VerifyWebhook(payload, sig)
	assert.ErrorIs(t, err, dompayment.ErrMalformedPayload)
}
