package notification

import "context"

// EventType names the customer-facing message a domain event maps to.
type EventType string

const (
	OrderConfirmation EventType = "order_confirmation"
	PaymentReceipt    EventType = "payment_receipt"
	PaymentFailure    EventType = "payment_failure"
	OrderCancelled    EventType = "order_cancelled"
	StatusUpdate      EventType = "status_update"
)

// Notifier is the narrow port to the messaging collaborator. Sends are
// fire-and-forget: a failure is logged by the worker and never fails the
// operation that raised the event.
type Notifier interface {
	Send(ctx context.Context, customerID, orderID string, event EventType) error
}
