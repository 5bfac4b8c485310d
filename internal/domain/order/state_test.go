package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := New("ord-1", "cust-1", []Item{
		{ProductID: "sku-1", Name: "Cable", UnitPrice: 1299, Quantity: 2},
	}, Address{}, Address{}, "card")
	require.NoError(t, err)
	return o
}

func TestTransitionTo_ForwardSequence(t *testing.T) {
	o := newTestOrder(t)

	require.NoError(t, o.TransitionTo(StatusProcessing))
	require.NoError(t, o.TransitionTo(StatusShipped))
	require.NoError(t, o.TransitionTo(StatusDelivered))
	assert.Equal(t, StatusDelivered, o.Status)
}

func TestTransitionTo_RejectsSkipsAndBackwards(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
	}{
		{"pending to shipped", StatusPending, StatusShipped},
		{"pending to delivered", StatusPending, StatusDelivered},
		{"processing to delivered", StatusProcessing, StatusDelivered},
		{"shipped to processing", StatusShipped, StatusProcessing},
		{"delivered to shipped", StatusDelivered, StatusShipped},
		{"cancelled to processing", StatusCancelled, StatusProcessing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrder(t)
			o.Status = tt.from
			assert.ErrorIs(t, o.TransitionTo(tt.to), ErrInvalidTransition)
			assert.Equal(t, tt.from, o.Status)
		})
	}
}

func TestTransitionTo_SameStatusIsNoop(t *testing.T) {
	o := newTestOrder(t)
	o.Status = StatusShipped
	before := o.UpdatedAt

	require.NoError(t, o.TransitionTo(StatusShipped))
	assert.Equal(t, StatusShipped, o.Status)
	assert.Equal(t, before, o.UpdatedAt)
}

func TestTransitionTo_CancelledNotReachable(t *testing.T) {
	o := newTestOrder(t)
	assert.ErrorIs(t, o.TransitionTo(StatusCancelled), ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Cancel())
	assert.Equal(t, StatusCancelled, o.Status)

	o = newTestOrder(t)
	o.Status = StatusProcessing
	require.NoError(t, o.Cancel())

	for _, st := range []Status{StatusShipped, StatusDelivered, StatusCancelled} {
		o := newTestOrder(t)
		o.Status = st
		assert.ErrorIs(t, o.Cancel(), ErrNotCancellable, "from %s", st)
	}
}

func TestApplyPayment(t *testing.T) {
	o := newTestOrder(t)

	changed, err := o.ApplyPayment(PaymentPaid)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)

	// redelivery of the same status
	changed, err = o.ApplyPayment(PaymentPaid)
	require.NoError(t, err)
	assert.False(t, changed)

	// paid is sticky
	_, err = o.ApplyPayment(PaymentFailed)
	assert.ErrorIs(t, err, ErrInvalidPaymentTransition)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)

	changed, err = o.ApplyPayment(PaymentRefunded)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestApplyPayment_RetryAfterFailure(t *testing.T) {
	o := newTestOrder(t)

	changed, err := o.ApplyPayment(PaymentFailed)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusPending, o.Status)

	changed, err = o.ApplyPayment(PaymentPaid)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, st)

	_, err = ParseStatus("teleported")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestNew_ComputesTotalOnce(t *testing.T) {
	o, err := New("ord-2", "cust-1", []Item{
		{ProductID: "sku-1", UnitPrice: 1299, Quantity: 2},
		{ProductID: "sku-2", UnitPrice: 500, Quantity: 3},
	}, Address{}, Address{}, "card")
	require.NoError(t, err)
	assert.Equal(t, int64(2*1299+3*500), o.TotalAmount)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, 1, o.Version)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("ord-3", "cust-1", nil, Address{}, Address{}, "card")
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = New("ord-4", "cust-1", []Item{{ProductID: "sku-1", UnitPrice: 100, Quantity: 0}}, Address{}, Address{}, "card")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = New("ord-5", "cust-1", []Item{{ProductID: "sku-1", UnitPrice: -1, Quantity: 1}}, Address{}, Address{}, "card")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
