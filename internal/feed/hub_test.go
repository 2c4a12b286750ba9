package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/volunteerapp/program-server/internal/model"
)

func TestHubBroadcastReachesOnlySameProgram(t *testing.T) {
	h := NewHub()
	a := h.Attach(1)
	b := h.Attach(1)
	other := h.Attach(2)
	defer a.Close()
	defer b.Close()
	defer other.Close()

	h.PresenceChanged(1, []model.Participant{{ID: 9, FullName: "Jane Doe", Role: "Usher"}}, 1)

	for _, sub := range []*Subscription{a, b} {
		select {
		case raw := <-sub.C:
			var ev PresenceEvent
			if err := json.Unmarshal(raw, &ev); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			if ev.Type != "presence" || ev.ProgramID != 1 || ev.ActiveCount != 1 {
				t.Errorf("unexpected event: %+v", ev)
			}
			if len(ev.Active) != 1 || ev.Active[0].FullName != "Jane Doe" {
				t.Errorf("unexpected active list: %+v", ev.Active)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the broadcast")
		}
	}

	select {
	case raw := <-other.C:
		t.Errorf("subscriber of another program received %s", raw)
	default:
	}
}

func TestHubCloseDetachesAndIsIdempotent(t *testing.T) {
	h := NewHub()
	s := h.Attach(5)
	if got := h.Subscribers(5); got != 1 {
		t.Fatalf("Subscribers = %d, want 1", got)
	}
	s.Close()
	s.Close() // must not panic on a double close
	if got := h.Subscribers(5); got != 0 {
		t.Errorf("Subscribers after Close = %d, want 0", got)
	}
	if _, open := <-s.C; open {
		t.Error("channel should be closed after Close")
	}

	// Broadcasting to a program with no subscribers is a no-op.
	h.PresenceChanged(5, nil, 0)
}

func TestHubDropsStalledSubscriber(t *testing.T) {
	h := NewHub()
	s := h.Attach(3)
	for i := 0; i < sendBuffer+1; i++ {
		h.PresenceChanged(3, nil, 0)
	}
	if got := h.Subscribers(3); got != 0 {
		t.Errorf("stalled subscriber still attached, Subscribers = %d", got)
	}
	// The queued messages remain readable until the closed channel drains.
	drained := 0
	for range s.C {
		drained++
	}
	if drained != sendBuffer {
		t.Errorf("drained %d messages, want %d", drained, sendBuffer)
	}
}
