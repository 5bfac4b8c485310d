package storage

import (
	"context"

	"github.com/ny-essien/Drop/internal/domain/cart"
	"github.com/ny-essien/Drop/internal/domain/inventory"
	"github.com/ny-essien/Drop/internal/domain/order"
	"github.com/ny-essien/Drop/internal/domain/payment"
)

// Tx exposes the repositories inside one atomic unit of work. Writes made
// through a Tx commit together or not at all.
type Tx interface {
	Orders() order.Repository
	Carts() cart.Repository
	Inventory() inventory.Repository
	ProcessedEvents() payment.ProcessedEventLog
}

// UnitOfWork runs fn inside a transaction. A non-nil error from fn rolls
// every staged write back; no observer ever sees a partial result.
// Cancellation of ctx after fn has started does not interrupt the commit.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
