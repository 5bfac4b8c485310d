package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	appcart "github.com/ny-essien/Drop/internal/application/cart"
	appcheckout "github.com/ny-essien/Drop/internal/application/checkout"
	apporder "github.com/ny-essien/Drop/internal/application/order"
	apppayment "github.com/ny-essien/Drop/internal/application/payment"
	domcart "github.com/ny-essien/Drop/internal/domain/cart"
	dominv "github.com/ny-essien/Drop/internal/domain/inventory"
	domorder "github.com/ny-essien/Drop/internal/domain/order"
	dompayment "github.com/ny-essien/Drop/internal/domain/payment"
	"github.com/ny-essien/Drop/internal/observability"
	"github.com/ny-essien/Drop/internal/observability/logctx"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerUserID         = "X-User-ID"
	headerAdminRole      = "X-Admin-Role"
	headerSignature      = "Stripe-Signature"

	maxWebhookBody = 1 << 20
)

// Handler wires the storefront routes. Identity arrives pre-authenticated
// in headers; the auth gateway in front of this service owns verification.
type Handler struct {
	carts      *appcart.Service
	checkout   *appcheckout.UseCase
	orders     *apporder.Service
	reconciler *apppayment.Reconciler
	gateway    dompayment.Gateway
	log        observability.Logger
	tel        observability.Observability
}

func NewHandler(
	carts *appcart.Service,
	checkout *appcheckout.UseCase,
	orders *apporder.Service,
	reconciler *apppayment.Reconciler,
	gateway dompayment.Gateway,
	tel observability.Observability,
) *Handler {
	if tel == nil {
		tel = observability.NopObservability()
	}
	baseLogger := tel.Logger()
	return &Handler{
		carts:      carts,
		checkout:   checkout,
		orders:     orders,
		reconciler: reconciler,
		gateway:    gateway,
		log:        baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:        tel,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Wire each route with middlewares:
	// Trace → ObservabilityMiddleware (request logger) → Access log → Handler
	h.muxHandle(mux, "GET /cart/items", h.requireUser(h.handleCartItems))
	h.muxHandle(mux, "POST /cart/items/{productID}", h.requireUser(h.handleCartAdd))
	h.muxHandle(mux, "PUT /cart/items/{productID}", h.requireUser(h.handleCartUpdate))
	h.muxHandle(mux, "DELETE /cart/items/{productID}", h.requireUser(h.handleCartRemove))
	h.muxHandle(mux, "DELETE /cart/clear", h.requireUser(h.handleCartClear))
	h.muxHandle(mux, "POST /cart/checkout", h.requireUser(h.handleCheckout))
	h.muxHandle(mux, "POST /cart/webhook", h.handleWebhook)

	h.muxHandle(mux, "GET /orders", h.requireUser(h.handleOrderList))
	h.muxHandle(mux, "GET /orders/{id}", h.requireUser(h.handleOrderGet))
	h.muxHandle(mux, "GET /orders/{id}/status", h.requireUser(h.handleOrderStatus))
	h.muxHandle(mux, "PUT /orders/{id}/status", h.requireAdmin(h.handleOrderUpdateStatus))
	h.muxHandle(mux, "PUT /orders/{id}/tracking", h.requireAdmin(h.handleOrderTracking))
	h.muxHandle(mux, "POST /orders/{id}/cancel", h.requireUser(h.handleOrderCancel))

	h.muxHandle(mux, "GET /health", h.handleHealth)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, pattern string, handler http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		// Store the stable route template for low-cardinality labels.
		ctx := contextWithRoute(r.Context(), pattern)
		r = r.WithContext(ctx)

		wrapped := h.withTrace(
			ObservabilityMiddleware(
				h.log,
				func(r *http.Request) string { return r.Header.Get(headerRequestID) },
				h.tel,
			)(
				h.withAccessLog(handler),
			),
		)
		wrapped.ServeHTTP(w, r)
	})
}

func userID(r *http.Request) string { return r.Header.Get(headerUserID) }

func isAdmin(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get(headerAdminRole), "admin")
}

func (h *Handler) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userID(r) == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "X-User-ID header is required")
			return
		}
		next(w, r)
	}
}

func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if !isAdmin(r) {
			writeError(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		next(w, r)
	})
}

func (h *Handler) handleCartItems(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Items(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	c, err := h.carts.Add(r.Context(), userID(r), r.PathValue("productID"), req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleCartUpdate(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	c, err := h.carts.UpdateQuantity(r.Context(), userID(r), r.PathValue("productID"), req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Remove(r.Context(), userID(r), r.PathValue("productID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleCartClear(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), userID(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type checkoutRequest struct {
	ShippingAddress domorder.Address `json:"shipping_address"`
	BillingAddress  domorder.Address `json:"billing_address"`
	PaymentMethod   string           `json:"payment_method"`
}

type checkoutResponse struct {
	Order         *domorder.Order    `json:"order"`
	PaymentIntent *dompayment.Intent `json:"payment_intent,omitempty"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	placed, err := h.checkout.Execute(r.Context(), appcheckout.Input{
		CustomerID:      userID(r),
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// The order is committed at this point. An intent failure is reported
	// but does not undo the checkout; the client retries the charge.
	intent, err := h.gateway.CreateIntent(r.Context(), placed)
	if err != nil {
		logctx.FromOr(r.Context(), h.log).Warn("payment_intent_failed",
			observability.F("order_id", placed.ID),
			observability.F("error", err.Error()),
		)
		intent = nil
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{Order: placed, PaymentIntent: intent})
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "unreadable body")
		return
	}

	evt, err := h.gateway.VerifyWebhook(payload, r.Header.Get(headerSignature))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.reconciler.Apply(r.Context(), evt)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := "success"
	if result == apppayment.ResultIgnored {
		status = "ignored"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (h *Handler) handleOrderList(w http.ResponseWriter, r *http.Request) {
	if isAdmin(r) {
		filter := domorder.ListFilter{}
		if s := r.URL.Query().Get("status"); s != "" {
			st, err := domorder.ParseStatus(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "unknown status filter")
				return
			}
			filter.Status = &st
		}
		if s := r.URL.Query().Get("payment_status"); s != "" {
			ps := domorder.PaymentStatus(s)
			filter.PaymentStatus = &ps
		}
		orders, err := h.orders.List(r.Context(), filter)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
		return
	}

	orders, err := h.orders.ListByCustomer(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// loadOwnedOrder fetches the order and enforces the owner-or-admin read rule.
func (h *Handler) loadOwnedOrder(w http.ResponseWriter, r *http.Request) (*domorder.Order, bool) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	if !isAdmin(r) && o.CustomerID != userID(r) {
		// Hide other customers' orders entirely.
		writeError(w, http.StatusNotFound, "not_found", "order not found")
		return nil, false
	}
	return o, true
}

func (h *Handler) handleOrderGet(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOwnedOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOwnedOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":         string(o.Status),
		"payment_status": string(o.PaymentStatus),
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleOrderUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	next, err := domorder.ParseStatus(req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), next)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type trackingRequest struct {
	TrackingNumber string `json:"tracking_number"`
}

func (h *Handler) handleOrderTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.TrackingNumber == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "tracking_number is required")
		return
	}
	o, err := h.orders.SetTracking(r.Context(), r.PathValue("id"), req.TrackingNumber)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleOrderCancel(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Cancel(r.Context(), r.PathValue("id"), userID(r), isAdmin(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("drop.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		spanName := route
		if spanName == "unknown" {
			spanName = r.Method + " " + r.URL.Path
		}
		template := route
		if idx := strings.Index(template, " "); idx >= 0 {
			template = template[idx+1:]
		}
		if template == "unknown" || template == "" {
			template = r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domcart.ErrEmpty):
		writeError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, dominv.ErrInsufficientStock):
		writeError(w, http.StatusBadRequest, "insufficient_stock", err.Error())
	case errors.Is(err, dominv.ErrNotFound):
		writeError(w, http.StatusBadRequest, "product_not_found", err.Error())
	case errors.Is(err, dompayment.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, "invalid_signature", err.Error())
	case errors.Is(err, dompayment.ErrMalformedPayload):
		writeError(w, http.StatusBadRequest, "invalid_payload", err.Error())
	case errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, domcart.ErrNotFound),
		errors.Is(err, domcart.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domorder.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not_owner", err.Error())
	case errors.Is(err, domorder.ErrNotCancellable):
		writeError(w, http.StatusConflict, "not_cancellable", err.Error())
	case errors.Is(err, domorder.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domorder.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domorder.ErrUnknownStatus),
		errors.Is(err, domorder.ErrInvalidQuantity),
		errors.Is(err, domorder.ErrInvalidAmount),
		errors.Is(err, domorder.ErrNoItems),
		errors.Is(err, domcart.ErrInvalidQuantity),
		errors.Is(err, dominv.ErrInvalidQuantity),
		errors.Is(err, appcheckout.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
