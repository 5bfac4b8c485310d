package notifier

import (
	"context"

	"github.com/ny-essien/Drop/internal/application/notification"
	"github.com/ny-essien/Drop/internal/observability"
	"github.com/ny-essien/Drop/internal/observability/logctx"
)

// LogNotifier stands in for the email/SMS collaborator: it records the
// message that would have been sent. Transport mechanics are out of scope
// for the engine; swapping in a real sender only touches this adapter.
type LogNotifier struct {
	log observability.Logger
}

func NewLogNotifier(logger observability.Logger) *LogNotifier {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogNotifier{log: logger.With(observability.F("component", "notifier"))}
}

func (n *LogNotifier) Send(ctx context.Context, customerID, orderID string, event notification.EventType) error {
	logctx.FromOr(ctx, n.log).Info("notification_sent",
		observability.F("customer_id", customerID),
		observability.F("order_id", orderID),
		observability.F("notification", string(event)),
	)
	return nil
}
