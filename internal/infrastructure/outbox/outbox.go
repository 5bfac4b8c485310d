package outbox

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/ny-essien/Drop/internal/domain/outbox"
	"github.com/ny-essien/Drop/internal/observability"
	"github.com/ny-essien/Drop/internal/observability/logctx"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	componentOutbox = "outbox"
	handlerTimeout  = 30 * time.Second
)

// Bus is the in-process event bus carrying post-commit domain events
// (order placed/paid/cancelled, payment failed) to the notification
// worker. It is not durable; the engine treats notification delivery as
// fire-and-forget, so a dropped event costs an email, never consistency.
type Bus struct {
	mu          sync.RWMutex
	subs        map[string][]domoutbox.Handler
	queue       chan domoutbox.Event
	startOnce   sync.Once
	stopOnce    sync.Once
	cancel      context.CancelFunc
	done        chan struct{}
	concurrency int
	log         observability.Logger
}

// NewBus creates a bus with a buffered queue and a per-event fanout cap.
func NewBus(logger observability.Logger) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Bus{
		subs:        make(map[string][]domoutbox.Handler),
		queue:       make(chan domoutbox.Event, 1024),
		concurrency: 8,
		done:        make(chan struct{}),
		log:         logger.With(observability.F("component", componentOutbox)),
	}
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
		b.cancel = cancel
		go b.dispatchLoop(bg)
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		close(b.queue)
		select {
		case <-b.done:
		case <-ctx.Done():
		}
		if b.cancel != nil {
			b.cancel()
		}
		logctx.FromOr(ctx, b.log).Info("event_bus_stopped")
	})
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	select {
	case b.queue <- e:
		logctx.FromOr(ctx, b.log).Debug("event_enqueued",
			observability.F("event", e.EventName()),
		)
		return nil
	case <-ctx.Done():
		logctx.FromOr(ctx, b.log).Warn("event_enqueue_aborted",
			observability.F("event", e.EventName()),
			observability.F("error", ctx.Err()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-b.queue:
			if !ok {
				return
			}
			b.fanout(ctx, e)
		}
	}
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug("event_dropped_no_subscriber", observability.F("event", name))
		return
	}

	logger := b.log.With(
		observability.F("event", name),
		observability.F("event_id", uuid.NewString()),
	)
	ctx = logctx.With(context.WithoutCancel(ctx), logger)

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for _, h := range handlers {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
					err = nil
				}
			}()

			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			defer cancel()
			if herr := h(hctx, e); herr != nil {
				logger.Warn("event_handler_error", observability.F("error", herr))
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Debug("event_fanned_out", observability.F("handlers", len(handlers)))
}
