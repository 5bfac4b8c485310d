package memory

import (
	"context"
	"time"
)

// eventLog records processed gateway event ids. Marking an event inside a
// transaction makes the dedupe check and the order update atomic, which is
// what keeps webhook redelivery a pure no-op.
type eventLog struct {
	store *Store
	tx    *tx
}

func (l *eventLog) Seen(ctx context.Context, eventID string) (bool, error) {
	_ = ctx

	if l.tx == nil {
		l.store.mu.RLock()
		defer l.store.mu.RUnlock()
	}

	if l.tx != nil {
		if _, ok := l.tx.processed[eventID]; ok {
			return true, nil
		}
	}
	_, ok := l.store.processed[eventID]
	return ok, nil
}

func (l *eventLog) MarkProcessed(ctx context.Context, eventID string) error {
	_ = ctx

	if l.tx == nil {
		l.store.mu.Lock()
		defer l.store.mu.Unlock()
	}

	if l.tx != nil {
		l.tx.processed[eventID] = time.Now().UTC()
		return nil
	}
	l.store.processed[eventID] = time.Now().UTC()
	return nil
}
