package memory

import (
	"context"
	"fmt"
	"sort"

	domain "github.com/ny-essien/Drop/internal/domain/inventory"
)

type inventoryRepository struct {
	store *Store
	tx    *tx
}

func (r *inventoryRepository) Get(ctx context.Context, productID string) (*domain.Record, error) {
	_ = ctx

	if r.tx == nil {
		r.store.mu.RLock()
		defer r.store.mu.RUnlock()
	}

	rec := r.lookup(productID)
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *inventoryRepository) Save(ctx context.Context, rec *domain.Record) error {
	_ = ctx
	if rec == nil || rec.ProductID == "" {
		return fmt.Errorf("inventory repository: product id is required")
	}

	if r.tx == nil {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
	}

	if r.tx != nil {
		r.tx.inventory[rec.ProductID] = rec.Clone()
		return nil
	}
	r.store.inventory[rec.ProductID] = rec.Clone()
	return nil
}

func (r *inventoryRepository) List(ctx context.Context) ([]*domain.Record, error) {
	_ = ctx

	if r.tx == nil {
		r.store.mu.RLock()
		defer r.store.mu.RUnlock()
	}

	var out []*domain.Record
	for id, rec := range r.store.inventory {
		if r.tx != nil {
			if _, staged := r.tx.inventory[id]; staged {
				continue
			}
		}
		out = append(out, rec.Clone())
	}
	if r.tx != nil {
		for _, rec := range r.tx.inventory {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (r *inventoryRepository) lookup(productID string) *domain.Record {
	if r.tx != nil {
		if rec, ok := r.tx.inventory[productID]; ok {
			return rec
		}
	}
	return r.store.inventory[productID]
}
