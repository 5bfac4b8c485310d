package inventory

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("inventory: product not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// Record is the per-product ledger entry. Available is decremented at
// checkout and incremented on cancellation; it never goes negative. The
// record also carries the catalog snapshot checkout copies onto orders.
type Record struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	UnitPrice int64     `json:"unit_price"`
	Available int       `json:"available"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewRecord(productID, name, category string, unitPrice int64, available int) (*Record, error) {
	if available < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Record{
		ProductID: productID,
		Name:      name,
		Category:  category,
		UnitPrice: unitPrice,
		Available: available,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// Deduct removes stock for a checkout. The check and the decrement see the
// same snapshot; callers serialize via the repository.
func (r *Record) Deduct(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > r.Available {
		return ErrInsufficientStock
	}
	r.Available -= quantity
	r.touch()
	return nil
}

// Restock reverses a checkout deduction. The increment is always the
// ordered quantity, never a recomputation against current stock.
func (r *Record) Restock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	r.Available += quantity
	r.touch()
	return nil
}

func (r *Record) Clone() *Record {
	clone := *r
	return &clone
}

func (r *Record) touch() {
	r.UpdatedAt = time.Now().UTC()
}
