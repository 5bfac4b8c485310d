package notification

import (
	"context"

	domorder "github.com/ny-essien/Drop/internal/domain/order"
	domoutbox "github.com/ny-essien/Drop/internal/domain/outbox"
	"github.com/ny-essien/Drop/internal/observability"
	"github.com/ny-essien/Drop/internal/observability/logctx"
)

// Worker bridges post-commit domain events to the notifier. It runs on the
// in-process bus, after the transaction that raised the event has
// committed, so a notification never refers to state that rolled back.
type Worker struct {
	subscriber domoutbox.Subscriber
	notifier   Notifier
	log        observability.Logger
}

func NewWorker(subscriber domoutbox.Subscriber, notifier Notifier, logger observability.Logger) *Worker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Worker{
		subscriber: subscriber,
		notifier:   notifier,
		log:        logger.With(observability.F("component", "notification_worker")),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.notifier == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderPlacedEvent{}.EventName(), w.handle)
	w.subscriber.Subscribe(domorder.OrderPaidEvent{}.EventName(), w.handle)
	w.subscriber.Subscribe(domorder.OrderPaymentFailedEvent{}.EventName(), w.handle)
	w.subscriber.Subscribe(domorder.OrderCancelledEvent{}.EventName(), w.handle)
	w.subscriber.Subscribe(domorder.OrderStatusChangedEvent{}.EventName(), w.handle)
}

func (w *Worker) handle(ctx context.Context, e domoutbox.Event) error {
	logger := logctx.FromOr(ctx, w.log).With(observability.F("event", e.EventName()))

	var customerID, orderID string
	var kind EventType

	switch evt := e.(type) {
	case domorder.OrderPlacedEvent:
		customerID, orderID, kind = evt.CustomerID, evt.OrderID, OrderConfirmation
	case domorder.OrderPaidEvent:
		customerID, orderID, kind = evt.CustomerID, evt.OrderID, PaymentReceipt
	case domorder.OrderPaymentFailedEvent:
		customerID, orderID, kind = evt.CustomerID, evt.OrderID, PaymentFailure
	case domorder.OrderCancelledEvent:
		customerID, orderID, kind = evt.CustomerID, evt.OrderID, OrderCancelled
	case domorder.OrderStatusChangedEvent:
		customerID, orderID, kind = evt.CustomerID, evt.OrderID, StatusUpdate
	default:
		return nil
	}

	if err := w.notifier.Send(ctx, customerID, orderID, kind); err != nil {
		logger.Warn("notification_send_failed",
			observability.F("order_id", orderID),
			observability.F("notification", string(kind)),
			observability.F("error", err.Error()),
		)
		return err
	}
	return nil
}
