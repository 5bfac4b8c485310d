package cart

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("cart: not found")
	ErrEmpty           = errors.New("cart: cart is empty")
	ErrItemNotFound    = errors.New("cart: item not in cart")
	ErrInvalidQuantity = errors.New("cart: quantity must be greater than zero")
)

// Item is a line item with the price and name snapshot taken when the
// product was added. Display data only; checkout re-validates against the
// live inventory record.
type Item struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	UnitPrice int64     `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Cart holds one customer's pre-checkout items. Insertion order is kept
// for display; it has no bearing on checkout.
type Cart struct {
	CustomerID string    `json:"customer_id"`
	Items      []Item    `json:"items"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func New(customerID string) *Cart {
	now := time.Now().UTC()
	return &Cart{
		CustomerID: customerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Add appends an item, merging quantities when the product is already in
// the cart. The existing snapshot wins on a merge.
func (c *Cart) Add(item Item) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			c.touch()
			return nil
		}
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	c.Items = append(c.Items, item)
	c.touch()
	return nil
}

// SetQuantity updates a line. A quantity of zero or less removes it.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	if quantity <= 0 {
		return c.Remove(productID)
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			c.touch()
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) Remove(productID string) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.touch()
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) Clear() {
	c.Items = nil
	c.touch()
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

func (c *Cart) Clone() *Cart {
	clone := *c
	clone.Items = append([]Item(nil), c.Items...)
	return &clone
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}
