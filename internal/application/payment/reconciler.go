package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	domorder "github.com/ny-essien/Drop/internal/domain/order"
	domoutbox "github.com/ny-essien/Drop/internal/domain/outbox"
	dompayment "github.com/ny-essien/Drop/internal/domain/payment"
	"github.com/ny-essien/Drop/internal/domain/storage"
	"github.com/ny-essien/Drop/internal/observability"
	"github.com/ny-essien/Drop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	useCaseReconcile = "payment.reconcile"
	spanPrefix       = "UC."
	publishPeer      = "outbox"
	publishTimeout   = 300 * time.Millisecond
)

// Result says what a webhook delivery did.
type Result string

const (
	ResultApplied Result = "applied"
	// ResultIgnored covers redeliveries, same-status repeats, and guarded
	// out-of-order callbacks (a failed after paid). The webhook endpoint
	// answers 200 for these so the gateway stops retrying.
	ResultIgnored Result = "ignored"
)

// Reconciler applies verified gateway events to orders. The event-id
// dedupe record and the order update share one unit of work, so a crash
// between them cannot strand a half-applied delivery, and a redelivered
// event neither changes state nor re-notifies.
type Reconciler struct {
	uow       storage.UnitOfWork
	publisher domoutbox.Publisher
	tel       observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewReconciler(uow storage.UnitOfWork, publisher domoutbox.Publisher, tel observability.Observability) *Reconciler {
	if tel == nil {
		tel = observability.NopObservability()
	}
	baseLog := tel.Logger()
	metricsProvider := tel.Metrics()

	return &Reconciler{
		uow:          uow,
		publisher:    publisher,
		tel:          tel,
		log:          baseLog.With(observability.F("component", "payment_reconciler")),
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:   metricsProvider.Counter(observability.MExternalRequests),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
	}
}

// Apply reconciles one verified gateway event with the order it names.
func (r *Reconciler) Apply(ctx context.Context, evt *dompayment.Event) (_ Result, err error) {
	logger := logctx.FromOr(ctx, r.log).With(
		observability.F("use_case", useCaseReconcile),
		observability.F("gateway_event_id", evt.ID),
		observability.F("order_id", evt.OrderID),
	)

	var updated *domorder.Order
	var changed bool
	var publishErr error

	ctx, span := r.tel.Tracer().Start(ctx, spanPrefix+"ReconcilePayment",
		attribute.String("use_case", useCaseReconcile),
		attribute.String("payment.event_id", evt.ID),
		attribute.String("payment.outcome", string(evt.Outcome)),
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

		r.reqCounter.Add(1,
			observability.L("use_case", useCaseReconcile),
			observability.L("outcome", outcome),
		)
		r.durHistogram.Observe(lat,
			observability.L("use_case", useCaseReconcile),
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
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}

		logger.Info("use_case_done", fields...)
	}()

	next, ok := paymentStatusFor(evt.Outcome)
	if !ok {
		outcome, statusText = "error", "UNKNOWN_OUTCOME"
		return "", fmt.Errorf("%w: outcome %q", dompayment.ErrMalformedPayload, evt.Outcome)
	}

	result := ResultApplied
	err = r.uow.WithinTx(ctx, func(tx storage.Tx) error {
		seen, txErr := tx.ProcessedEvents().Seen(ctx, evt.ID)
		if txErr != nil {
			return txErr
		}
		if seen {
			result = ResultIgnored
			return nil
		}

		o, txErr := tx.Orders().Get(ctx, evt.OrderID)
		if txErr != nil {
			return txErr
		}

		changed, txErr = o.ApplyPayment(next)
		if errors.Is(txErr, domorder.ErrInvalidPaymentTransition) {
			// Out-of-order delivery, e.g. a failed after paid. Paid is
			// sticky: record the event id and move on.
			logger.Warn("payment_event_out_of_order",
				observability.F("current", string(o.PaymentStatus)),
				observability.F("incoming", string(next)),
			)
			result = ResultIgnored
			return tx.ProcessedEvents().MarkProcessed(ctx, evt.ID)
		}
		if txErr != nil {
			return txErr
		}

		if changed {
			if txErr := tx.Orders().Update(ctx, o); txErr != nil {
				return txErr
			}
			updated = o
		} else {
			result = ResultIgnored
		}
		return tx.ProcessedEvents().MarkProcessed(ctx, evt.ID)
	})
	if err != nil {
		switch {
		case errors.Is(err, domorder.ErrNotFound):
			outcome, statusText = "error", "ORDER_NOT_FOUND"
		case errors.Is(err, domorder.ErrConflict):
			outcome, statusText = "error", "VERSION_CONFLICT"
		default:
			outcome, statusText = "error", "TX_FAILED"
		}
		return "", err
	}

	if result == ResultIgnored {
		statusText = "IGNORED"
		span.AddEvent("payment.event_ignored")
		return ResultIgnored, nil
	}

	span.SetAttributes(attribute.String("order.payment_status", string(updated.PaymentStatus)))
	publishErr = r.publishFor(ctx, updated, evt)

	return ResultApplied, nil
}

func paymentStatusFor(o dompayment.Outcome) (domorder.PaymentStatus, bool) {
	switch o {
	case dompayment.OutcomeSucceeded:
		return domorder.PaymentPaid, true
	case dompayment.OutcomeFailed:
		return domorder.PaymentFailed, true
	case dompayment.OutcomeRefunded:
		return domorder.PaymentRefunded, true
	default:
		return "", false
	}
}

// publishFor emits the notification event matching the applied change,
// once per applied gateway event.
func (r *Reconciler) publishFor(ctx context.Context, o *domorder.Order, evt *dompayment.Event) error {
	if r.publisher == nil {
		return nil
	}

	var e domoutbox.Event
	switch o.PaymentStatus {
	case domorder.PaymentPaid:
		e = domorder.NewOrderPaidEvent(o, evt.Amount)
	case domorder.PaymentFailed:
		e = domorder.NewOrderPaymentFailedEvent(o)
	default:
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	pubStart := time.Now()
	pubOutcome := "success"

	err := r.publisher.Publish(pubCtx, e)
	if err != nil {
		pubOutcome = "error"
	}
	cancel()

	r.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", pubOutcome),
	)
	r.extHistogram.Observe(time.Since(pubStart).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
	)
	return err
}
