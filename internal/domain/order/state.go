package order

import "errors"

var (
	ErrInvalidTransition        = errors.New("order: invalid status transition")
	ErrInvalidPaymentTransition = errors.New("order: invalid payment status transition")
	ErrUnknownStatus            = errors.New("order: unknown status")
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus tracks gateway settlement independently of fulfillment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// fulfillmentTransitions is the single source of truth for forward
// fulfillment moves. Cancellation is intentionally absent: it goes through
// Cancel, which carries the stock-compensation precondition.
var fulfillmentTransitions = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true},
	StatusProcessing: {StatusShipped: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// paymentTransitions: paid is sticky, so a late "failed" callback after a
// success is rejected here and ignored by the reconciler. A failed payment
// may still become paid when a retried charge succeeds.
var paymentTransitions = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:  {PaymentPaid: true, PaymentFailed: true},
	PaymentFailed:   {PaymentPaid: true},
	PaymentPaid:     {PaymentRefunded: true},
	PaymentRefunded: {},
}

// ParseStatus validates an externally supplied fulfillment status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	default:
		return "", ErrUnknownStatus
	}
}

// TransitionTo applies a forward fulfillment transition. Re-applying the
// current status is a no-op; skipping states or moving backwards fails.
func (o *Order) TransitionTo(next Status) error {
	if o.Status == next {
		return nil
	}
	if !fulfillmentTransitions[o.Status][next] {
		return ErrInvalidTransition
	}
	o.Status = next
	o.touch()
	return nil
}

// Cancellable reports whether the order may still be cancelled. Shipped and
// delivered goods cannot be cancelled through this path.
func (o *Order) Cancellable() bool {
	return o.Status == StatusPending || o.Status == StatusProcessing
}

// Cancel moves the order to cancelled. The caller is responsible for
// restoring inventory in the same unit of work.
func (o *Order) Cancel() error {
	if !o.Cancellable() {
		return ErrNotCancellable
	}
	o.Status = StatusCancelled
	o.touch()
	return nil
}

// ApplyPayment applies a payment-status transition and reports whether the
// order actually changed. A repeat of the current status is the monotonic
// no-op that makes webhook redelivery safe.
func (o *Order) ApplyPayment(next PaymentStatus) (bool, error) {
	if o.PaymentStatus == next {
		return false, nil
	}
	if !paymentTransitions[o.PaymentStatus][next] {
		return false, ErrInvalidPaymentTransition
	}
	o.PaymentStatus = next
	o.touch()
	return true, nil
}
