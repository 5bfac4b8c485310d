package order

import "time"

// OrderPlacedEvent is emitted after checkout commits. The notifier sends
// the order confirmation from it.
type OrderPlacedEvent struct {
	OrderID     string
	CustomerID  string
	TotalAmount int64
	OccurredAt  time.Time
}

func (OrderPlacedEvent) EventName() string { return "order.placed" }

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		TotalAmount: o.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
}

// OrderPaidEvent is emitted exactly once per successful payment event.
type OrderPaidEvent struct {
	OrderID    string
	CustomerID string
	Amount     int64
	OccurredAt time.Time
}

func (OrderPaidEvent) EventName() string { return "order.paid" }

func NewOrderPaidEvent(o *Order, amount int64) OrderPaidEvent {
	return OrderPaidEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderPaymentFailedEvent is emitted when the gateway reports a declined
// charge. Fulfillment stays pending until an operator acts.
type OrderPaymentFailedEvent struct {
	OrderID    string
	CustomerID string
	OccurredAt time.Time
}

func (OrderPaymentFailedEvent) EventName() string { return "order.payment_failed" }

func NewOrderPaymentFailedEvent(o *Order) OrderPaymentFailedEvent {
	return OrderPaymentFailedEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderCancelledEvent is emitted after cancellation commits, with stock
// already restored.
type OrderCancelledEvent struct {
	OrderID    string
	CustomerID string
	OccurredAt time.Time
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

func NewOrderCancelledEvent(o *Order) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderStatusChangedEvent is emitted on administrative forward transitions.
type OrderStatusChangedEvent struct {
	OrderID    string
	CustomerID string
	Status     Status
	OccurredAt time.Time
}

func (OrderStatusChangedEvent) EventName() string { return "order.status_changed" }

func NewOrderStatusChangedEvent(o *Order) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Status:     o.Status,
		OccurredAt: time.Now().UTC(),
	}
}
