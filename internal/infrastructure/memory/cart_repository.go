package memory

import (
	"context"
	"fmt"

	domain "github.com/ny-essien/Drop/internal/domain/cart"
)

type cartRepository struct {
	store *Store
	tx    *tx
}

func (r *cartRepository) Get(ctx context.Context, customerID string) (*domain.Cart, error) {
	_ = ctx

	if r.tx == nil {
		r.store.mu.RLock()
		defer r.store.mu.RUnlock()
	}

	c := r.lookup(customerID)
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *cartRepository) Save(ctx context.Context, c *domain.Cart) error {
	_ = ctx
	if c == nil || c.CustomerID == "" {
		return fmt.Errorf("cart repository: customer id is required")
	}

	if r.tx == nil {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
	}

	if r.tx != nil {
		delete(r.tx.cartTombstones, c.CustomerID)
		r.tx.carts[c.CustomerID] = c.Clone()
		return nil
	}
	r.store.carts[c.CustomerID] = c.Clone()
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, customerID string) error {
	_ = ctx

	if r.tx == nil {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
	}

	if r.tx != nil {
		delete(r.tx.carts, customerID)
		r.tx.cartTombstones[customerID] = true
		return nil
	}
	delete(r.store.carts, customerID)
	return nil
}

func (r *cartRepository) lookup(customerID string) *domain.Cart {
	if r.tx != nil {
		if r.tx.cartTombstones[customerID] {
			return nil
		}
		if c, ok := r.tx.carts[customerID]; ok {
			return c
		}
	}
	return r.store.carts[customerID]
}
