package events

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestPublishOrderAndUnsubscribe(t *testing.T) {
	logger, _ := test.NewNullLogger()
	bus := NewBus(logger)

	var calls []string
	unsubA := bus.Subscribe(ProgressUpdated, func(Event) { calls = append(calls, "a") })
	bus.Subscribe(ProgressUpdated, func(Event) { calls = append(calls, "b") })
	bus.Subscribe(SyncComplete, func(Event) { calls = append(calls, "sync") })

	bus.Publish(Event{Name: ProgressUpdated})
	unsubA()
	unsubA()
	bus.Publish(Event{Name: ProgressUpdated})

	want := []string{"a", "b", "b"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}

func TestPublishRecoversPanics(t *testing.T) {
	logger, hook := test.NewNullLogger()
	bus := NewBus(logger)

	delivered := false
	bus.Subscribe(AchievementEarned, func(Event) { panic("boom") })
	bus.Subscribe(AchievementEarned, func(e Event) {
		p, ok := e.Payload.(AchievementPayload)
		delivered = ok && p.UserID == "u1"
	})

	bus.Publish(Event{Name: AchievementEarned, Payload: AchievementPayload{UserID: "u1"}})
	if !delivered {
		t.Fatal("second handler was not called")
	}
	if len(hook.Entries) != 1 {
		t.Fatalf("expected one logged panic, got %d entries", len(hook.Entries))
	}
}

func TestNilBusPublish(t *testing.T) {
	var bus *Bus
	bus.Publish(Event{Name: SyncComplete})
}
