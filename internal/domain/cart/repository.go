package cart

import "context"

type Repository interface {
	// Get returns ErrNotFound when the customer has no cart yet; carts are
	// created lazily on first add.
	Get(ctx context.Context, customerID string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, customerID string) error
}
