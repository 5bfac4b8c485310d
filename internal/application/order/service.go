package order

import (
	"context"
	"fmt"
	"time"

	domain "github.com/ny-essien/Drop/internal/domain/order"
	domoutbox "github.com/ny-essien/Drop/internal/domain/outbox"
	"github.com/ny-essien/Drop/internal/domain/storage"
	"github.com/ny-essien/Drop/internal/observability"
	"github.com/ny-essien/Drop/internal/observability/logctx"
)

const publishTimeout = 300 * time.Millisecond

// Service covers order reads and the administrative lifecycle: status
// transitions, tracking numbers, and cancellation with stock restoration.
type Service struct {
	repo      domain.Repository
	uow       storage.UnitOfWork
	publisher domoutbox.Publisher
	log       observability.Logger
}

func NewService(repo domain.Repository, uow storage.UnitOfWork, publisher domoutbox.Publisher, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		repo:      repo,
		uow:       uow,
		publisher: publisher,
		log:       logger.With(observability.F("component", "order_service")),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// ListByCustomer returns the customer's orders, newest first.
func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

// List is the administrative listing with optional status filters.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	return s.repo.List(ctx, filter)
}

// UpdateStatus applies a forward fulfillment transition. Cancellation is
// rejected here; it must go through Cancel so stock compensation happens.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next domain.Status) (*domain.Order, error) {
	logger := logctx.FromOr(ctx, s.log)

	if next == domain.StatusCancelled {
		return nil, domain.ErrInvalidTransition
	}

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	prev := o.Status
	if err := o.TransitionTo(next); err != nil {
		return nil, err
	}
	if prev == o.Status {
		return o, nil
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}

	logger.Info("order_status_updated",
		observability.F("order_id", o.ID),
		observability.F("from", string(prev)),
		observability.F("to", string(o.Status)),
	)
	s.publish(ctx, domain.NewOrderStatusChangedEvent(o))
	return o, nil
}

// SetTracking attaches a carrier tracking number without touching status.
func (s *Service) SetTracking(ctx context.Context, orderID, trackingNumber string) (*domain.Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.SetTracking(trackingNumber)
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Cancel cancels a pending or processing order and restores exactly the
// ordered quantities, in one unit of work. Non-admin callers must own the
// order. Refunds are not triggered here; a refund arrives later as a
// gateway event.
func (s *Service) Cancel(ctx context.Context, orderID, requestingUserID string, isAdmin bool) (*domain.Order, error) {
	logger := logctx.FromOr(ctx, s.log)

	var cancelled *domain.Order
	err := s.uow.WithinTx(ctx, func(tx storage.Tx) error {
		o, txErr := tx.Orders().Get(ctx, orderID)
		if txErr != nil {
			return txErr
		}
		if !isAdmin && o.CustomerID != requestingUserID {
			return domain.ErrNotOwner
		}
		if txErr := o.Cancel(); txErr != nil {
			return txErr
		}
		for _, it := range o.Items {
			rec, txErr := tx.Inventory().Get(ctx, it.ProductID)
			if txErr != nil {
				return fmt.Errorf("order: restock %s: %w", it.ProductID, txErr)
			}
			if txErr := rec.Restock(it.Quantity); txErr != nil {
				return fmt.Errorf("order: restock %s: %w", it.ProductID, txErr)
			}
			if txErr := tx.Inventory().Save(ctx, rec); txErr != nil {
				return fmt.Errorf("order: restock %s: %w", it.ProductID, txErr)
			}
		}
		if txErr := tx.Orders().Update(ctx, o); txErr != nil {
			return txErr
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("order_cancelled",
		observability.F("order_id", cancelled.ID),
		observability.F("customer_id", cancelled.CustomerID),
	)
	s.publish(ctx, domain.NewOrderCancelledEvent(cancelled))
	return cancelled, nil
}

func (s *Service) publish(ctx context.Context, e domoutbox.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, e); err != nil {
		logctx.FromOr(ctx, s.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
}
