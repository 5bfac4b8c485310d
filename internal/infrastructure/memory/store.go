package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ny-essien/Drop/internal/domain/cart"
	"github.com/ny-essien/Drop/internal/domain/inventory"
	"github.com/ny-essien/Drop/internal/domain/order"
	"github.com/ny-essien/Drop/internal/domain/payment"
	"github.com/ny-essien/Drop/internal/domain/storage"
)

// Store keeps every collection of the engine behind a single lock so a
// unit of work can span orders, carts, inventory, and the processed-event
// log. Writes inside WithinTx are staged on an overlay and only merged
// into the base maps when the callback returns nil. The lock also
// serializes racing checkouts on the same product: the loser re-reads
// committed stock and re-validates.
type Store struct {
	mu        sync.RWMutex
	orders    map[string]*order.Order
	carts     map[string]*cart.Cart
	inventory map[string]*inventory.Record
	processed map[string]time.Time
}

func NewStore() *Store {
	return &Store{
		orders:    make(map[string]*order.Order),
		carts:     make(map[string]*cart.Cart),
		inventory: make(map[string]*inventory.Record),
		processed: make(map[string]time.Time),
	}
}

// Orders returns the standalone repository view; its operations lock and
// commit individually.
func (s *Store) Orders() order.Repository { return &orderRepository{store: s} }

func (s *Store) Carts() cart.Repository { return &cartRepository{store: s} }

func (s *Store) Inventory() inventory.Repository { return &inventoryRepository{store: s} }

func (s *Store) ProcessedEvents() payment.ProcessedEventLog { return &eventLog{store: s} }

// WithinTx implements storage.UnitOfWork. An already-cancelled context is
// rejected up front; once fn starts, the transaction either commits in
// full or is discarded in full, so a client disconnect cannot leave
// stock decremented without an order.
func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := newTx(s)
	if err := fn(t); err != nil {
		return err
	}
	t.commit()
	return nil
}

// tx is a staged overlay over the store's base maps. Reads fall through to
// the base; every write lands on the overlay until commit.
type tx struct {
	store          *Store
	orders         map[string]*order.Order
	carts          map[string]*cart.Cart
	cartTombstones map[string]bool
	inventory      map[string]*inventory.Record
	processed      map[string]time.Time
}

func newTx(s *Store) *tx {
	return &tx{
		store:          s,
		orders:         make(map[string]*order.Order),
		carts:          make(map[string]*cart.Cart),
		cartTombstones: make(map[string]bool),
		inventory:      make(map[string]*inventory.Record),
		processed:      make(map[string]time.Time),
	}
}

func (t *tx) Orders() order.Repository { return &orderRepository{store: t.store, tx: t} }

func (t *tx) Carts() cart.Repository { return &cartRepository{store: t.store, tx: t} }

func (t *tx) Inventory() inventory.Repository { return &inventoryRepository{store: t.store, tx: t} }

func (t *tx) ProcessedEvents() payment.ProcessedEventLog { return &eventLog{store: t.store, tx: t} }

func (t *tx) commit() {
	s := t.store
	for id, o := range t.orders {
		s.orders[id] = o
	}
	for id, c := range t.carts {
		s.carts[id] = c
	}
	for id := range t.cartTombstones {
		delete(s.carts, id)
	}
	for id, rec := range t.inventory {
		s.inventory[id] = rec
	}
	for id, at := range t.processed {
		s.processed[id] = at
	}
}
