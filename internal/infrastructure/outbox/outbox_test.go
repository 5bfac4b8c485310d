package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	domoutbox "github.com/ny-essien/Drop/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler")
	}
}

func TestBus_DeliversToSubscribers(t *testing.T) {
	bus := NewBus(nil)
	got := make(chan struct{}, 2)

	var mu sync.Mutex
	var seen []string
	handler := func(_ context.Context, e domoutbox.Event) error {
		mu.Lock()
		seen = append(seen, e.EventName())
		mu.Unlock()
		got <- struct{}{}
		return nil
	}
	bus.Subscribe("order.placed", handler)
	bus.Subscribe("order.placed", handler)

	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "order.placed"}))
	waitFor(t, got)
	waitFor(t, got)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"order.placed", "order.placed"}, seen)
}

func TestBus_NoSubscriberIsDropped(t *testing.T) {
	bus := NewBus(nil)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	assert.NoError(t, bus.Publish(context.Background(), testEvent{name: "nobody.cares"}))
}

func TestBus_HandlerPanicContained(t *testing.T) {
	bus := NewBus(nil)
	got := make(chan struct{}, 1)

	bus.Subscribe("order.placed", func(context.Context, domoutbox.Event) error {
		panic("boom")
	})
	bus.Subscribe("order.placed", func(context.Context, domoutbox.Event) error {
		got <- struct{}{}
		return nil
	})

	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "order.placed"}))
	waitFor(t, got)
}

func TestBus_PublishAfterCtxCancel(t *testing.T) {
	bus := NewBus(nil)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	// fill nothing; a cancelled publish context only matters when the
	// queue is full, so an enqueue on an idle bus still succeeds
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := bus.Publish(ctx, testEvent{name: "order.placed"})
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
