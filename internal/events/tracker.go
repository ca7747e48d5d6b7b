package events

import (
	"errors"
	"fmt"
	"sync"
)

var ErrInFlight = errors.New("mutation already in flight")

type entityKey struct {
	entity string
	id     int64
}

// Tracker allows at most one outstanding mutation per entity id.
type Tracker struct {
	mu       sync.Mutex
	inFlight map[entityKey]string
	bus      *Bus
}

// NewTracker returns a tracker that reports lifecycle events on bus, which may be nil.
func NewTracker(bus *Bus) *Tracker {
	return &Tracker{
		inFlight: make(map[entityKey]string),
		bus:      bus,
	}
}

// Begin claims the entity for action and publishes the pending event. The returned done
// releases the claim and publishes fulfilled (err == nil) or rejected. Calls after the
// first are ignored.
func (t *Tracker) Begin(entity string, id int64, action string) (func(err error), error) {
	key := entityKey{entity: entity, id: id}

	t.mu.Lock()
	if current, busy := t.inFlight[key]; busy {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: %s %s/%d", ErrInFlight, current, entity, id)
	}
	t.inFlight[key] = action
	t.mu.Unlock()

	t.publish(Event{Entity: entity, ID: id, Action: action, Phase: PhasePending})

	var once sync.Once
	return func(err error) {
		once.Do(func() {
			t.mu.Lock()
			delete(t.inFlight, key)
			t.mu.Unlock()

			phase := PhaseFulfilled
			if err != nil {
				phase = PhaseRejected
			}
			t.publish(Event{Entity: entity, ID: id, Action: action, Phase: phase, Err: err})
		})
	}, nil
}

// InFlight returns the action currently holding the entity, if any.
func (t *Tracker) InFlight(entity string, id int64) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	action, ok := t.inFlight[entityKey{entity: entity, id: id}]
	return action, ok
}

func (t *Tracker) publish(e Event) {
	if t.bus != nil {
		t.bus.Publish(e)
	}
}
