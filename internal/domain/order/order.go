package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrConflict        = errors.New("order: concurrent modification")
	ErrNotOwner        = errors.New("order: requester does not own this order")
	ErrNotCancellable  = errors.New("order: only pending or processing orders can be cancelled")
	ErrNoItems         = errors.New("order: at least one item is required")
	ErrInvalidQuantity = errors.New("order: quantity must be greater than zero")
	ErrInvalidAmount   = errors.New("order: unit price must be zero or greater")
)

// Address is the postal address snapshot stored on the order.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Item is an immutable line-item snapshot. Catalog price or name changes
// after checkout never alter a placed order.
type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

func (i Item) Subtotal() int64 { return i.UnitPrice * int64(i.Quantity) }

type Order struct {
	ID              string        `json:"id"`
	CustomerID      string        `json:"customer_id"`
	Items           []Item        `json:"items"`
	TotalAmount     int64         `json:"total_amount"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	ShippingAddress Address       `json:"shipping_address"`
	BillingAddress  Address       `json:"billing_address"`
	PaymentMethod   string        `json:"payment_method"`
	TrackingNumber  string        `json:"tracking_number,omitempty"`
	Version         int           `json:"-"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// New builds a pending order from line-item snapshots. TotalAmount is
// computed here, once; it is never recomputed from the live catalog.
func New(id, customerID string, items []Item, shipping, billing Address, paymentMethod string) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	var total int64
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if it.UnitPrice < 0 {
			return nil, ErrInvalidAmount
		}
		total += it.Subtotal()
	}

	now := time.Now().UTC()
	return &Order{
		ID:              id,
		CustomerID:      customerID,
		Items:           append([]Item(nil), items...),
		TotalAmount:     total,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		PaymentMethod:   paymentMethod,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// SetTracking attaches a carrier tracking number. It does not change status.
func (o *Order) SetTracking(trackingNumber string) {
	o.TrackingNumber = trackingNumber
	o.touch()
}

func (o *Order) Clone() *Order {
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
