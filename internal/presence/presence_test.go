package presence

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/volunteerapp/program-server/internal/model"
)

func TestIsActiveWindowBounds(t *testing.T) {
	now := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	window := 5 * time.Minute
	cases := []struct {
		name string
		ago  time.Duration
		want bool
	}{
		{"just heartbeated", 0, true},
		{"4m59s ago is active", 4*time.Minute + 59*time.Second, true},
		{"exactly one window ago is not", 5 * time.Minute, false},
		{"5m01s ago is not", 5*time.Minute + time.Second, false},
		{"soft-leave backdate is well outside", leaveBackdate, false},
	}
	for _, c := range cases {
		last := now.Add(-c.ago)
		if got := IsActive(last, now, window); got != c.want {
			t.Errorf("%s: IsActive = %v, want %v", c.name, got, c.want)
		}
	}
}

// A soft leave must land outside the active window no matter how the
// window is configured, so leave followed by an activity check is
// always inactive.
func TestLeaveBackdateExceedsWindow(t *testing.T) {
	now := time.Now().UTC()
	for _, window := range []time.Duration{
		time.Minute,
		DefaultWindow,
		10 * time.Minute, // equal to the minimum backdate
		30 * time.Minute, // configured above the default
		2 * time.Hour,
	} {
		backdate := backdateFor(window)
		if backdate <= window {
			t.Errorf("window %v: backdate %v must exceed the window", window, backdate)
		}
		if IsActive(now.Add(-backdate), now, window) {
			t.Errorf("window %v: participant must read inactive immediately after a soft leave", window)
		}
	}
	if got := backdateFor(DefaultWindow); got != leaveBackdate {
		t.Errorf("default window should keep the minimum backdate, got %v", got)
	}
}

func TestCanModify(t *testing.T) {
	dev := "device-a"
	uid := uint64(7)
	other := uint64(8)
	guest := &model.Participant{ID: 1, DeviceID: &dev, IsGuest: true}
	volunteer := &model.Participant{ID: 2, UserID: &uid}
	bare := &model.Participant{ID: 3}

	cases := []struct {
		name     string
		p        *model.Participant
		deviceID string
		userID   *uint64
		want     bool
	}{
		{"guest with own device", guest, "device-a", nil, true},
		{"guest with wrong device", guest, "device-b", nil, false},
		{"guest with no credential", guest, "", nil, false},
		{"volunteer with own account", volunteer, "", &uid, true},
		{"volunteer with other account", volunteer, "", &other, false},
		{"volunteer without bearer", volunteer, "", nil, false},
		{"row without credentials is immutable", bare, "device-a", &uid, false},
	}
	for _, c := range cases {
		if got := CanModify(c.p, c.deviceID, c.userID); got != c.want {
			t.Errorf("%s: CanModify = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestRunnerBeatsAndStops(t *testing.T) {
	var beats atomic.Int32
	r := StartRunner(10*time.Millisecond, func(ctx context.Context) error {
		beats.Add(1)
		return nil
	})
	time.Sleep(60 * time.Millisecond)
	r.Stop()
	got := beats.Load()
	if got == 0 {
		t.Fatal("runner never invoked the beat function")
	}
	time.Sleep(40 * time.Millisecond)
	if after := beats.Load(); after != got {
		t.Errorf("runner kept beating after Stop: %d -> %d", got, after)
	}
}

func TestRunnerStopIsIdempotent(t *testing.T) {
	r := StartRunner(time.Hour, func(ctx context.Context) error { return nil })
	r.Stop()
	r.Stop() // must not panic or deadlock
}

// Beat failures are swallowed: the loop keeps running.
func TestRunnerSurvivesBeatErrors(t *testing.T) {
	var beats atomic.Int32
	r := StartRunner(5*time.Millisecond, func(ctx context.Context) error {
		beats.Add(1)
		return context.DeadlineExceeded
	})
	time.Sleep(40 * time.Millisecond)
	r.Stop()
	if beats.Load() < 2 {
		t.Error("runner should keep beating after an error")
	}
}

func TestSessionStoreMemoryFallback(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(nil)

	if got, err := store.Load(ctx, "device-a"); err != nil || got != nil {
		t.Fatalf("Load on empty store = (%v, %v), want (nil, nil)", got, err)
	}

	sess := GuestSession{
		ParticipantID: 7,
		ProgramID:     3,
		FullName:      "Jane Doe",
		Role:          "Usher",
		DeviceID:      "device-a",
		JoinedAt:      time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC),
	}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, "device-a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || *got != sess {
		t.Errorf("Load = %+v, want %+v", got, sess)
	}

	// Sessions are per device.
	if other, err := store.Load(ctx, "device-b"); err != nil || other != nil {
		t.Errorf("Load for other device = (%v, %v), want (nil, nil)", other, err)
	}

	if err := store.Clear(ctx, "device-a"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, err := store.Load(ctx, "device-a"); err != nil || got != nil {
		t.Errorf("Load after Clear = (%v, %v), want (nil, nil)", got, err)
	}
	if err := store.Clear(ctx, "device-a"); err != nil {
		t.Errorf("clearing an absent session should be a no-op, got %v", err)
	}
}
