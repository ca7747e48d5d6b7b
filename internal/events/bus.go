// Package events carries the request/result messages of client-side mutations.
// Every mutation publishes a pending event and exactly one fulfilled or rejected event.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseFulfilled Phase = "fulfilled"
	PhaseRejected  Phase = "rejected"
)

type Event struct {
	Entity string
	ID     int64
	Action string
	Phase  Phase
	Err    error
	At     time.Time
}

type Handler func(Event)

// Bus delivers events synchronously, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	next   int
	subs   map[int]Handler
	order  []int
	logger *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]Handler),
		logger: logger,
	}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs[id] = h
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, sid := range b.order {
				if sid == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()

	b.logger.Debug("Event published",
		zap.String("entity", e.Entity),
		zap.Int64("id", e.ID),
		zap.String("action", e.Action),
		zap.String("phase", string(e.Phase)),
	)

	for _, h := range handlers {
		h(e)
	}
}
