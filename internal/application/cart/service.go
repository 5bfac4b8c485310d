package cart

import (
	"context"
	"errors"
	"fmt"

	domcart "github.com/ny-essien/Drop/internal/domain/cart"
	dominv "github.com/ny-essien/Drop/internal/domain/inventory"
	"github.com/ny-essien/Drop/internal/observability"
	"github.com/ny-essien/Drop/internal/observability/logctx"
)

// Service manages the pre-checkout cart. Prices and names are snapshotted
// from the catalog at add time; checkout re-validates every line against
// live inventory, so a stale snapshot can never oversell.
type Service struct {
	carts     domcart.Repository
	inventory dominv.Repository
	log       observability.Logger
}

func NewService(carts domcart.Repository, inventory dominv.Repository, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		carts:     carts,
		inventory: inventory,
		log:       logger.With(observability.F("component", "cart_service")),
	}
}

// Items returns the customer's cart. A customer with no cart yet gets an
// empty one; carts are created lazily on first add.
func (s *Service) Items(ctx context.Context, customerID string) (*domcart.Cart, error) {
	c, err := s.carts.Get(ctx, customerID)
	if errors.Is(err, domcart.ErrNotFound) {
		return domcart.New(customerID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart: get: %w", err)
	}
	return c, nil
}

// Add puts quantity units of a product into the cart, merging with an
// existing line for the same product.
func (s *Service) Add(ctx context.Context, customerID, productID string, quantity int) (*domcart.Cart, error) {
	logger := logctx.FromOr(ctx, s.log)

	if quantity <= 0 {
		return nil, domcart.ErrInvalidQuantity
	}

	rec, err := s.inventory.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.carts.Get(ctx, customerID)
	if errors.Is(err, domcart.ErrNotFound) {
		c = domcart.New(customerID)
	} else if err != nil {
		return nil, fmt.Errorf("cart: get: %w", err)
	}

	if err := c.Add(domcart.Item{
		ProductID: rec.ProductID,
		Name:      rec.Name,
		Category:  rec.Category,
		UnitPrice: rec.UnitPrice,
		Quantity:  quantity,
	}); err != nil {
		return nil, err
	}

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}

	logger.Info("cart_item_added",
		observability.F("customer_id", customerID),
		observability.F("product_id", productID),
		observability.F("quantity", quantity),
	)
	return c, nil
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, customerID, productID string, quantity int) (*domcart.Cart, error) {
	c, err := s.carts.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := c.SetQuantity(productID, quantity); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	return c, nil
}

// Remove deletes one line from the cart.
func (s *Service) Remove(ctx context.Context, customerID, productID string) (*domcart.Cart, error) {
	c, err := s.carts.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := c.Remove(productID); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	return c, nil
}

// Clear drops the customer's cart entirely.
func (s *Service) Clear(ctx context.Context, customerID string) error {
	if err := s.carts.Delete(ctx, customerID); err != nil && !errors.Is(err, domcart.ErrNotFound) {
		return fmt.Errorf("cart: delete: %w", err)
	}
	logctx.FromOr(ctx, s.log).Info("cart_cleared", observability.F("customer_id", customerID))
	return nil
}
