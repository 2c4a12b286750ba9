// Package presence tracks participant liveness for live program
// sessions.  A participant is "active" while their last heartbeat
// falls inside a trailing window; joins and leaves trigger a full
// recount of the denormalized active counter on the program.  The
// recount is deliberately recompute-by-scan: concurrent joins and
// leaves race on the counter and the last writer wins, which is
// acceptable because the value is advisory and participant lists
// stay at event scale.
package presence

import (
    "context"
    "log"
    "time"

    "github.com/volunteerapp/program-server/internal/model"
    "github.com/volunteerapp/program-server/internal/repository"
)

// DefaultWindow is the canonical trailing window within which a
// heartbeat counts as active.
const DefaultWindow = 5 * time.Minute

// leaveBackdate is the minimum distance into the past a soft leave
// pushes last_active.  See backdateFor.
const leaveBackdate = 10 * time.Minute

// backdateFor returns how far into the past a soft leave pushes
// last_active for a given active window.  The backdate must exceed
// the window so a leave immediately excludes the participant from
// active queries; doubling keeps that true for windows configured
// above the default.
func backdateFor(window time.Duration) time.Duration {
    if b := 2 * window; b > leaveBackdate {
        return b
    }
    return leaveBackdate
}

// IsActive reports whether a participant whose last heartbeat was at
// lastActive still counts as active at instant now.  The bound is
// strict: a heartbeat exactly one window ago is no longer active.
func IsActive(lastActive, now time.Time, window time.Duration) bool {
    return now.Sub(lastActive) < window
}

// CanModify reports whether a caller may mutate the participant row,
// based on the credentials the row was created with: the joining
// device id for guests, the account id for signed-in volunteers.
// Either credential matching is sufficient; a caller presenting
// neither (or the wrong ones) is rejected, so participants can only
// write their own rows.
func CanModify(p *model.Participant, deviceID string, userID *uint64) bool {
    if p.DeviceID != nil && deviceID != "" && *p.DeviceID == deviceID {
        return true
    }
    if p.UserID != nil && userID != nil && *p.UserID == *userID {
        return true
    }
    return false
}

// Notifier receives presence snapshots after every change so the
// realtime feed can fan them out to connected admin views.  A nil
// notifier disables fan-out.
type Notifier interface {
    PresenceChanged(programID uint64, active []model.Participant, total int)
}

// JoinRequest carries everything needed to create a participant row.
// UserID is nil for anonymous guests; the explicit field replaces
// the ambient auth state the mobile client used.
type JoinRequest struct {
    ProgramID uint64
    UserID    *uint64
    FullName  string
    Role      string
    DeviceID  string
    PushToken *string
}

// Tracker implements join, heartbeat, leave and recount over the
// participant repository.
type Tracker struct {
    programs     *repository.ProgramRepo
    participants *repository.ParticipantRepo
    sessions     *SessionStore
    notifier     Notifier
    window       time.Duration
    now          func() time.Time
}

// NewTracker wires a Tracker.  sessions and notifier may be nil;
// window falls back to DefaultWindow when non-positive.
func NewTracker(programs *repository.ProgramRepo, participants *repository.ParticipantRepo,
    sessions *SessionStore, notifier Notifier, window time.Duration) *Tracker {
    if window <= 0 {
        window = DefaultWindow
    }
    return &Tracker{
        programs:     programs,
        participants: participants,
        sessions:     sessions,
        notifier:     notifier,
        window:       window,
        now:          func() time.Time { return time.Now().UTC() },
    }
}

// Join creates a participant row for the request.  Joins are
// idempotent per device: when the device already has a row for the
// program, that row is revived with a fresh heartbeat instead of
// inserting a duplicate (guards against double-taps and app
// restarts).  The guest session is persisted so the device can
// resume the same identity, and the active counter is recounted.
// Session persistence and the recount are best-effort: their
// failures are logged, never surfaced to the joining participant.
func (t *Tracker) Join(ctx context.Context, req JoinRequest) (*model.Participant, error) {
    if req.DeviceID != "" {
        existing, err := t.participants.FindByDevice(ctx, req.ProgramID, req.DeviceID)
        if err == nil {
            if hbErr := t.participants.Heartbeat(ctx, existing.ID, t.now()); hbErr != nil {
                log.Printf("presence: revive heartbeat failed: %v", hbErr)
            }
            t.afterJoin(ctx, existing)
            return existing, nil
        }
    }
    p := &model.Participant{
        ProgramID: req.ProgramID,
        UserID:    req.UserID,
        FullName:  req.FullName,
        Role:      req.Role,
        IsGuest:   req.UserID == nil,
        PushToken: req.PushToken,
    }
    if req.DeviceID != "" {
        d := req.DeviceID
        p.DeviceID = &d
    }
    if err := t.participants.Insert(ctx, p); err != nil {
        return nil, err
    }
    t.afterJoin(ctx, p)
    return p, nil
}

// afterJoin runs the best-effort side effects shared by fresh joins
// and device resumptions.
func (t *Tracker) afterJoin(ctx context.Context, p *model.Participant) {
    if t.sessions != nil && p.IsGuest && p.DeviceID != nil {
        s := GuestSession{
            ParticipantID: p.ID,
            ProgramID:     p.ProgramID,
            FullName:      p.FullName,
            Role:          p.Role,
            DeviceID:      *p.DeviceID,
            JoinedAt:      p.JoinedAt,
        }
        if err := t.sessions.Save(ctx, s); err != nil {
            log.Printf("presence: save guest session failed: %v", err)
        }
    }
    if _, err := t.Recount(ctx, p.ProgramID); err != nil {
        log.Printf("presence: recount after join failed: %v", err)
    }
}

// Heartbeat stamps the participant's last_active with the current
// instant.  Callers run it on a fixed interval for as long as the
// live view is open; see Runner.
func (t *Tracker) Heartbeat(ctx context.Context, participantID uint64) error {
    return t.participants.Heartbeat(ctx, participantID, t.now())
}

// Leave soft-leaves a participant: last_active is backdated well past
// the active window instead of deleting the row, preserving
// participation history while the recount immediately drops them
// from the active set.  The guest session is cleared so the device
// won't silently resume the left identity.
func (t *Tracker) Leave(ctx context.Context, participantID, programID uint64) error {
    if err := t.participants.SoftLeave(ctx, participantID, t.now().Add(-backdateFor(t.window))); err != nil {
        return err
    }
    if t.sessions != nil {
        if p, err := t.participants.GetByID(ctx, participantID); err == nil && p.DeviceID != nil {
            if err := t.sessions.Clear(ctx, *p.DeviceID); err != nil {
                log.Printf("presence: clear guest session failed: %v", err)
            }
        }
    }
    if _, err := t.Recount(ctx, programID); err != nil {
        log.Printf("presence: recount after leave failed: %v", err)
    }
    return nil
}

// Recount rescans the program's active participants, writes the
// denormalized counter and notifies the realtime feed.  It returns
// the fresh count.
func (t *Tracker) Recount(ctx context.Context, programID uint64) (int, error) {
    active, err := t.participants.ListActive(ctx, programID, t.now(), t.window)
    if err != nil {
        return 0, err
    }
    if err := t.programs.UpdateActiveCount(ctx, programID, len(active)); err != nil {
        return 0, err
    }
    if t.notifier != nil {
        t.notifier.PresenceChanged(programID, active, len(active))
    }
    return len(active), nil
}

// Active returns the participants currently inside the active window.
func (t *Tracker) Active(ctx context.Context, programID uint64) ([]model.Participant, error) {
    return t.participants.ListActive(ctx, programID, t.now(), t.window)
}

// Window exposes the configured active window (used by handlers to
// annotate per-participant activity in listings).
func (t *Tracker) Window() time.Duration { return t.window }
