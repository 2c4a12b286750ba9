// Package feed fans presence snapshots out to connected admin views.
// It replaces polling the participant list: whenever presence changes
// (join, leave, recount) every subscriber of that program receives a
// fresh snapshot.  The hub itself is transport-agnostic; the HTTP
// layer bridges subscriptions onto WebSocket connections.
package feed

import (
    "encoding/json"
    "log"
    "sync"
    "time"

    "github.com/volunteerapp/program-server/internal/model"
)

// sendBuffer is the per-subscriber queue depth.  A subscriber that
// falls this far behind is dropped rather than allowed to stall the
// broadcast.
const sendBuffer = 16

// ParticipantView is the wire shape of one participant in a snapshot.
type ParticipantView struct {
    ID         uint64    `json:"id"`
    FullName   string    `json:"full_name"`
    Role       string    `json:"role"`
    IsGuest    bool      `json:"is_guest"`
    JoinedAt   time.Time `json:"joined_at"`
    LastActive time.Time `json:"last_active"`
}

// PresenceEvent is the message broadcast to subscribers of a program.
type PresenceEvent struct {
    Type        string            `json:"type"` // always "presence"
    ProgramID   uint64            `json:"program_id"`
    ActiveCount int               `json:"active_count"`
    Active      []ParticipantView `json:"active"`
    Timestamp   time.Time         `json:"timestamp"`
}

// Subscription is one live listener on a program's presence feed.
// Messages arrive on C as marshalled PresenceEvents; Close detaches
// the subscription and closes C.
type Subscription struct {
    C chan []byte

    hub       *Hub
    programID uint64
    once      sync.Once
}

// Close detaches the subscription from its hub.  Safe to call more
// than once.
func (s *Subscription) Close() {
    s.once.Do(func() { s.hub.detach(s) })
}

// Hub tracks subscriptions per program and broadcasts snapshots.
type Hub struct {
    mu   sync.RWMutex
    subs map[uint64]map[*Subscription]bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
    return &Hub{subs: make(map[uint64]map[*Subscription]bool)}
}

// Attach registers a new subscriber for a program's presence feed.
func (h *Hub) Attach(programID uint64) *Subscription {
    s := &Subscription{
        C:         make(chan []byte, sendBuffer),
        hub:       h,
        programID: programID,
    }
    h.mu.Lock()
    if h.subs[programID] == nil {
        h.subs[programID] = make(map[*Subscription]bool)
    }
    h.subs[programID][s] = true
    h.mu.Unlock()
    return s
}

func (h *Hub) detach(s *Subscription) {
    h.mu.Lock()
    if set, ok := h.subs[s.programID]; ok {
        if set[s] {
            delete(set, s)
            close(s.C)
        }
        if len(set) == 0 {
            delete(h.subs, s.programID)
        }
    }
    h.mu.Unlock()
}

// Subscribers reports how many listeners a program currently has.
func (h *Hub) Subscribers(programID uint64) int {
    h.mu.RLock()
    defer h.mu.RUnlock()
    return len(h.subs[programID])
}

// PresenceChanged implements presence.Notifier: it snapshots the
// active set and broadcasts it to every subscriber of the program.
// Subscribers whose queues are full are dropped so one stuck
// connection cannot hold presence updates back for the rest.
func (h *Hub) PresenceChanged(programID uint64, active []model.Participant, total int) {
    views := make([]ParticipantView, len(active))
    for i, p := range active {
        views[i] = ParticipantView{
            ID:         p.ID,
            FullName:   p.FullName,
            Role:       p.Role,
            IsGuest:    p.IsGuest,
            JoinedAt:   p.JoinedAt,
            LastActive: p.LastActive,
        }
    }
    msg, err := json.Marshal(PresenceEvent{
        Type:        "presence",
        ProgramID:   programID,
        ActiveCount: total,
        Active:      views,
        Timestamp:   time.Now().UTC(),
    })
    if err != nil {
        log.Printf("feed: marshal presence event: %v", err)
        return
    }

    h.mu.RLock()
    var stalled []*Subscription
    for s := range h.subs[programID] {
        select {
        case s.C <- msg:
        default:
            stalled = append(stalled, s)
        }
    }
    h.mu.RUnlock()
    for _, s := range stalled {
        s.Close()
    }
}
