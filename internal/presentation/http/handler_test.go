package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	appcart "github.com/ny-essien/Drop/internal/application/cart"
	appcheckout "github.com/ny-essien/Drop/internal/application/checkout"
	apporder "github.com/ny-essien/Drop/internal/application/order"
	apppayment "github.com/ny-essien/Drop/internal/application/payment"
	dominv "github.com/ny-essien/Drop/internal/domain/inventory"
	domoutbox "github.com/ny-essien/Drop/internal/domain/outbox"
	"github.com/ny-essien/Drop/internal/infrastructure/memory"
	infrapayment "github.com/ny-essien/Drop/internal/infrastructure/payment"
	"github.com/ny-essien/Drop/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domoutbox.Event) error { return nil }

func newTestRouter(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	s := memory.NewStore()
	for i, stock := range []int{10, 3} {
		rec, err := dominv.NewRecord(
			fmt.Sprintf("sku-%d", i+1),
			fmt.Sprintf("Product %d", i+1),
			"test", 1000*int64(i+1), stock,
		)
		require.NoError(t, err)
		require.NoError(t, s.Inventory().Save(context.Background(), rec))
	}

	tel := observability.NopObservability()
	idGen := &seqIDs{}
	gateway := infrapayment.NewGateway(testSecret, idGen, nil)
	h := NewHandler(
		appcart.NewService(s.Carts(), s.Inventory(), nil),
		appcheckout.NewUseCase(s, idGen, nopPublisher{}, tel),
		apporder.NewService(s.Orders(), s, nopPublisher{}, nil),
		apppayment.NewReconciler(s, nopPublisher{}, tel),
		gateway,
		tel,
	)
	return h.Router(), s
}

func doJSON(t *testing.T, router http.Handler, method, target, user string, admin bool, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	if admin {
		req.Header.Set("X-Admin-Role", "admin")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func checkoutOrder(t *testing.T, router http.Handler, user string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/cart/items/sku-1", user, false, map[string]int{"quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/cart/checkout", user, false, map[string]any{
		"payment_method": "card",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Order struct {
			ID string `json:"id"`
		} `json:"order"`
		PaymentIntent struct {
			ID     string `json:"id"`
			Amount int64  `json:"amount"`
		} `json:"payment_intent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Order.ID)
	require.NotEmpty(t, resp.PaymentIntent.ID)
	return resp.Order.ID
}

func TestCartFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/cart/items/sku-1", "cust-1", false, map[string]int{"quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/cart/items", "cust-1", false, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart struct {
		Items []struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
			UnitPrice int64  `json:"unit_price"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, int64(1000), cart.Items[0].UnitPrice)

	rec = doJSON(t, router, http.MethodPut, "/cart/items/sku-1", "cust-1", false, map[string]int{"quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/cart/items/sku-1", "cust-1", false, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/cart/items/sku-1", "cust-1", false, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestCartAdd_UnknownProduct(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/cart/items/sku-ghost", "cust-1", false, map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "product_not_found", errorCode(t, rec))
}

func TestCart_RequiresIdentity(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/cart/items", "", false, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", errorCode(t, rec))
}

func TestCheckout(t *testing.T) {
	router, s := newTestRouter(t)
	orderID := checkoutOrder(t, router, "cust-1")

	o, err := s.Orders().Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), o.TotalAmount)

	rec, err := s.Inventory().Get(context.Background(), "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 8, rec.Available)
}

func TestCheckout_EmptyCart(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/cart/checkout", "cust-1", false, map[string]any{
		"payment_method": "card",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_cart", errorCode(t, rec))
}

func TestCheckout_InsufficientStock(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/cart/items/sku-2", "cust-1", false, map[string]int{"quantity": 5})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/cart/checkout", "cust-1", false, map[string]any{
		"payment_method": "card",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_stock", errorCode(t, rec))
}

func postWebhook(t *testing.T, router http.Handler, secret string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/cart/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", infrapayment.Sign(secret, time.Now(), payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhook(t *testing.T) {
	router, s := newTestRouter(t)
	orderID := checkoutOrder(t, router, "cust-1")

	event := map[string]any{
		"id":       "evt-1",
		"order_id": orderID,
		"outcome":  "succeeded",
		"amount":   2000,
	}

	rec := postWebhook(t, router, testSecret, event)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())

	o, err := s.Orders().Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, "paid", string(o.PaymentStatus))

	// redelivery
	rec = postWebhook(t, router, testSecret, event)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ignored"}`, rec.Body.String())
}

func TestWebhook_BadSignature(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := postWebhook(t, router, "whsec_wrong", map[string]any{
		"id": "evt-1", "order_id": "ord-1", "outcome": "succeeded", "amount": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_signature", errorCode(t, rec))
}

func TestWebhook_MalformedPayload(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := postWebhook(t, router, testSecret, map[string]any{
		"id": "evt-1", "order_id": "ord-1", "outcome": "teleported", "amount": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_payload", errorCode(t, rec))
}

func TestOrderVisibility(t *testing.T) {
	router, _ := newTestRouter(t)
	orderID := checkoutOrder(t, router, "cust-1")

	rec := doJSON(t, router, http.MethodGet, "/orders/"+orderID, "cust-1", false, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// other customers cannot see the order
	rec = doJSON(t, router, http.MethodGet, "/orders/"+orderID, "cust-2", false, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// admin can
	rec = doJSON(t, router, http.MethodGet, "/orders/"+orderID, "ops-1", true, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/orders/"+orderID+"/status", "cust-1", false, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"pending","payment_status":"pending"}`, rec.Body.String())
}

func TestOrderStatusUpdate(t *testing.T) {
	router, _ := newTestRouter(t)
	orderID := checkoutOrder(t, router, "cust-1")

	// non-admin rejected
	rec := doJSON(t, router, http.MethodPut, "/orders/"+orderID+"/status", "cust-1", false, map[string]string{"status": "processing"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/orders/"+orderID+"/status", "ops-1", true, map[string]string{"status": "processing"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// skipping to delivered is rejected
	rec = doJSON(t, router, http.MethodPut, "/orders/"+orderID+"/status", "ops-1", true, map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", errorCode(t, rec))

	rec = doJSON(t, router, http.MethodPut, "/orders/"+orderID+"/status", "ops-1", true, map[string]string{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestOrderTracking(t *testing.T) {
	router, _ := newTestRouter(t)
	orderID := checkoutOrder(t, router, "cust-1")

	rec := doJSON(t, router, http.MethodPut, "/orders/"+orderID+"/tracking", "ops-1", true, map[string]string{"tracking_number": "TRACK-9"})
	require.Equal(t, http.StatusOK, rec.Code)

	var o struct {
		TrackingNumber string `json:"tracking_number"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, "TRACK-9", o.TrackingNumber)
}

func TestOrderCancel(t *testing.T) {
	router, s := newTestRouter(t)
	orderID := checkoutOrder(t, router, "cust-1")

	// another customer cannot cancel
	rec := doJSON(t, router, http.MethodPost, "/orders/"+orderID+"/cancel", "cust-2", false, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_owner", errorCode(t, rec))

	rec = doJSON(t, router, http.MethodPost, "/orders/"+orderID+"/cancel", "cust-1", false, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	inv, err := s.Inventory().Get(context.Background(), "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 10, inv.Available, "cancellation restores stock")

	rec = doJSON(t, router, http.MethodPost, "/orders/"+orderID+"/cancel", "cust-1", false, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_cancellable", errorCode(t, rec))
}

func TestOrderList(t *testing.T) {
	router, _ := newTestRouter(t)
	checkoutOrder(t, router, "cust-1")
	checkoutOrder(t, router, "cust-2")

	rec := doJSON(t, router, http.MethodGet, "/orders", "cust-1", false, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Orders []struct {
			CustomerID string `json:"customer_id"`
		} `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, "cust-1", resp.Orders[0].CustomerID)

	rec = doJSON(t, router, http.MethodGet, "/orders?status=pending", "ops-1", true, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Orders, 2)
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
