package order

import "context"

// ListFilter narrows administrative order listings.
type ListFilter struct {
	Status        *Status
	PaymentStatus *PaymentStatus
	Offset        int
	Limit         int
}

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// Update is conditional on Version and returns ErrConflict when the
	// stored order moved underneath the caller.
	Update(ctx context.Context, order *Order) error
	ListByCustomer(ctx context.Context, customerID string) ([]*Order, error)
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
}
