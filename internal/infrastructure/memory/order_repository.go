package memory

import (
	"context"
	"fmt"
	"sort"

	domain "github.com/ny-essien/Drop/internal/domain/order"
)

// orderRepository serves both the standalone view (tx == nil, locking per
// call) and the transactional view (tx != nil, already under the store
// lock, writing to the overlay).
type orderRepository struct {
	store *Store
	tx    *tx
}

func (r *orderRepository) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	if r.tx == nil {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
	}

	if r.lookup(o.ID) != nil {
		return domain.ErrConflict
	}
	r.put(o.Clone())
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	if r.tx == nil {
		r.store.mu.RLock()
		defer r.store.mu.RUnlock()
	}

	o := r.lookup(id)
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

// Update applies an optimistic concurrency check: the write succeeds only
// when the caller saw the currently stored version, so a stale payment
// callback cannot silently overwrite a cancellation.
func (r *orderRepository) Update(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	if r.tx == nil {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
	}

	existing := r.lookup(o.ID)
	if existing == nil {
		return domain.ErrNotFound
	}
	if existing.Version != o.Version {
		return domain.ErrConflict
	}
	o.Version++
	r.put(o.Clone())
	return nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	_ = ctx

	if r.tx == nil {
		r.store.mu.RLock()
		defer r.store.mu.RUnlock()
	}

	var out []*domain.Order
	for _, o := range r.snapshot() {
		if o.CustomerID == customerID {
			out = append(out, o.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	_ = ctx

	if r.tx == nil {
		r.store.mu.RLock()
		defer r.store.mu.RUnlock()
	}

	var out []*domain.Order
	for _, o := range r.snapshot() {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.PaymentStatus != nil && o.PaymentStatus != *filter.PaymentStatus {
			continue
		}
		out = append(out, o.Clone())
	}
	sortNewestFirst(out)

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// lookup assumes the store lock (or an active tx) is held.
func (r *orderRepository) lookup(id string) *domain.Order {
	if r.tx != nil {
		if o, ok := r.tx.orders[id]; ok {
			return o
		}
	}
	return r.store.orders[id]
}

func (r *orderRepository) put(o *domain.Order) {
	if r.tx != nil {
		r.tx.orders[o.ID] = o
		return
	}
	r.store.orders[o.ID] = o
}

func (r *orderRepository) snapshot() []*domain.Order {
	out := make([]*domain.Order, 0, len(r.store.orders))
	for id, o := range r.store.orders {
		if r.tx != nil {
			if _, staged := r.tx.orders[id]; staged {
				continue
			}
		}
		out = append(out, o)
	}
	if r.tx != nil {
		for _, o := range r.tx.orders {
			out = append(out, o)
		}
	}
	return out
}

func sortNewestFirst(orders []*domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
