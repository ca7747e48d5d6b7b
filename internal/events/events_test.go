package events

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestTrackerOneMutationPerEntity(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var seen []Event
	unsubscribe := bus.Subscribe(func(e Event) { seen = append(seen, e) })
	defer unsubscribe()

	tracker := NewTracker(bus)

	done, err := tracker.Begin("kuf", 7, "approve")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if _, err := tracker.Begin("kuf", 7, "save"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}

	// other ids and other families are independent
	otherDone, err := tracker.Begin("kuf", 8, "save")
	if err != nil {
		t.Fatalf("Begin on other id: %v", err)
	}
	otherDone(nil)
	kifDone, err := tracker.Begin("kif", 7, "save")
	if err != nil {
		t.Fatalf("Begin on other family: %v", err)
	}
	kifDone(nil)

	if action, ok := tracker.InFlight("kuf", 7); !ok || action != "approve" {
		t.Errorf("InFlight = %q, %v", action, ok)
	}

	failure := errors.New("boom")
	done(failure)
	done(nil)

	if _, ok := tracker.InFlight("kuf", 7); ok {
		t.Error("claim not released")
	}

	var phases []Phase
	for _, e := range seen {
		if e.Entity == "kuf" && e.ID == 7 {
			phases = append(phases, e.Phase)
		}
	}
	if len(phases) != 2 || phases[0] != PhasePending || phases[1] != PhaseRejected {
		t.Errorf("unexpected phases for kuf/7: %v", phases)
	}
	if last := seen[len(seen)-1]; !errors.Is(last.Err, failure) {
		t.Errorf("rejected event lost its error: %v", last.Err)
	}

	if _, err := tracker.Begin("kuf", 7, "save"); err != nil {
		t.Errorf("expected entity to be free again, got %v", err)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop())
	calls := 0
	unsubscribe := bus.Subscribe(func(Event) { calls++ })

	bus.Publish(Event{Entity: "kif", ID: 1, Phase: PhasePending})
	unsubscribe()
	unsubscribe()
	bus.Publish(Event{Entity: "kif", ID: 1, Phase: PhaseFulfilled})

	if calls != 1 {
		t.Errorf("expected 1 delivery, got %d", calls)
	}
}

func TestTrackerWithoutBus(t *testing.T) {
	tracker := NewTracker(nil)
	done, err := tracker.Begin("contract", 42, "approve")
	if err != nil {
		t.Fatal(err)
	}
	done(nil)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Notify(Notification{Level: LevelSuccess, Title: "Approved"})
	r.Notify(Notification{Level: LevelError, Title: "Save failed", Retryable: true})

	got := r.Notifications()
	if len(got) != 2 || got[1].Title != "Save failed" {
		t.Fatalf("unexpected notifications: %+v", got)
	}

	got[0].Title = "changed"
	if r.Notifications()[0].Title != "Approved" {
		t.Error("Notifications must return a copy")
	}

	r.Reset()
	if len(r.Notifications()) != 0 {
		t.Error("Reset kept notifications")
	}

	NewLogNotifier(zap.NewNop()).Notify(Notification{Level: LevelError, Title: "x"})
}
