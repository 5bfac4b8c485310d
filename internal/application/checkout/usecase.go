package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	domcart "github.com/ny-essien/Drop/internal/domain/cart"
	dominv "github.com/ny-essien/Drop/internal/domain/inventory"
	domorder "github.com/ny-essien/Drop/internal/domain/order"
	domoutbox "github.com/ny-essien/Drop/internal/domain/outbox"
	"github.com/ny-essien/Drop/internal/domain/storage"
	"github.com/ny-essien/Drop/internal/observability"
	"github.com/ny-essien/Drop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	useCaseCheckout = "cart.checkout"
	spanPrefix      = "UC."
	publishPeer     = "outbox"
	publishEndpoint = "order.placed"
	publishTimeout  = 300 * time.Millisecond
)

var ErrValidation = errors.New("checkout: validation")

// UseCase turns a cart into an order inside one unit of work: stock is
// re-validated and deducted, the order inserted, and the cart cleared
// together. A failure on any line leaves nothing changed.
type UseCase struct {
	uow       storage.UnitOfWork
	idGen     IDGenerator
	publisher domoutbox.Publisher
	tel       observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewUseCase(
	uow storage.UnitOfWork,
	idGen IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *UseCase {
	if tel == nil {
		tel = observability.NopObservability()
	}
	baseLog := tel.Logger()
	metricsProvider := tel.Metrics()

	return &UseCase{
		uow:          uow,
		idGen:        idGen,
		publisher:    publisher,
		tel:          tel,
		log:          baseLog.With(observability.F("component", "checkout")),
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:   metricsProvider.Counter(observability.MExternalRequests),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
	}
}

type Input struct {
	CustomerID      string
	ShippingAddress domorder.Address
	BillingAddress  domorder.Address
	PaymentMethod   string
}

// Execute places an order from the customer's cart. On success the cart is
// gone, stock is deducted, and the pending order is committed; the
// confirmation event is published after the commit.
func (uc *UseCase) Execute(ctx context.Context, cmd Input) (_ *domorder.Order, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseCheckout))

	var placed *domorder.Order
	var publishErr error

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"Checkout",
		attribute.String("use_case", useCaseCheckout),
		attribute.String("order.customer_id", cmd.CustomerID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseCheckout),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCaseCheckout),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if placed != nil {
			fields = append(fields, observability.F("order_id", placed.ID))
		}
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}

		logger.Info("use_case_done", fields...)
	}()

	if cmd.CustomerID == "" {
		outcome, statusText = "error", "CUSTOMER_ID_REQUIRED"
		return nil, fmt.Errorf("%w: customer id is required", ErrValidation)
	}
	if cmd.PaymentMethod == "" {
		outcome, statusText = "error", "PAYMENT_METHOD_REQUIRED"
		return nil, fmt.Errorf("%w: payment method is required", ErrValidation)
	}

	orderID := uc.idGen.NewID()

	err = uc.uow.WithinTx(ctx, func(tx storage.Tx) error {
		c, txErr := tx.Carts().Get(ctx, cmd.CustomerID)
		if errors.Is(txErr, domcart.ErrNotFound) {
			return domcart.ErrEmpty
		}
		if txErr != nil {
			return fmt.Errorf("checkout: load cart: %w", txErr)
		}
		if c.IsEmpty() {
			return domcart.ErrEmpty
		}

		items := make([]domorder.Item, 0, len(c.Items))
		for _, line := range c.Items {
			rec, txErr := tx.Inventory().Get(ctx, line.ProductID)
			if txErr != nil {
				return fmt.Errorf("checkout: product %s: %w", line.ProductID, txErr)
			}
			if txErr := rec.Deduct(line.Quantity); txErr != nil {
				return fmt.Errorf("checkout: product %s: %w", line.ProductID, txErr)
			}
			if txErr := tx.Inventory().Save(ctx, rec); txErr != nil {
				return fmt.Errorf("checkout: save stock %s: %w", line.ProductID, txErr)
			}
			// The live record is the source of truth for price and name,
			// not the cart snapshot.
			items = append(items, domorder.Item{
				ProductID: rec.ProductID,
				Name:      rec.Name,
				UnitPrice: rec.UnitPrice,
				Quantity:  line.Quantity,
			})
		}

		entity, txErr := domorder.New(orderID, cmd.CustomerID, items,
			cmd.ShippingAddress, cmd.BillingAddress, cmd.PaymentMethod)
		if txErr != nil {
			return txErr
		}
		if txErr := tx.Orders().Insert(ctx, entity); txErr != nil {
			return fmt.Errorf("checkout: insert order: %w", txErr)
		}
		if txErr := tx.Carts().Delete(ctx, cmd.CustomerID); txErr != nil {
			return fmt.Errorf("checkout: clear cart: %w", txErr)
		}

		placed = entity
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domcart.ErrEmpty):
			outcome, statusText = "error", "EMPTY_CART"
		case errors.Is(err, dominv.ErrNotFound):
			outcome, statusText = "error", "PRODUCT_NOT_FOUND"
		case errors.Is(err, dominv.ErrInsufficientStock):
			outcome, statusText = "error", "INSUFFICIENT_STOCK"
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			outcome, statusText = "error", "CONTEXT_CANCELED"
		default:
			outcome, statusText = "error", "TX_FAILED"
		}
		return nil, err
	}

	if uc.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		pubStart := time.Now()
		pubOutcome := "success"

		publishErr = uc.publisher.Publish(pubCtx, domorder.NewOrderPlacedEvent(placed))
		if publishErr != nil {
			pubOutcome = "error"
			statusText = "EVENT_PUBLISH_FAILED"
		}
		cancel()

		uc.extCounter.Add(1,
			observability.L("peer", publishPeer),
			observability.L("endpoint", publishEndpoint),
			observability.L("outcome", pubOutcome),
		)
		uc.extHistogram.Observe(time.Since(pubStart).Seconds(),
			observability.L("peer", publishPeer),
			observability.L("endpoint", publishEndpoint),
		)
	}

	span.SetAttributes(
		attribute.String("order.id", placed.ID),
		attribute.Int64("order.total_amount", placed.TotalAmount),
	)
	span.AddEvent("order.placed",
		trace.WithAttributes(attribute.String("order.id", placed.ID)),
	)

	return placed, nil
}
