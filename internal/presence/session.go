package presence

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    "github.com/redis/go-redis/v9"
)

// sessionTTL bounds how long a guest identity can be resumed after
// the last join.  Long enough to survive app restarts and a flaky
// venue network, short enough not to resurrect last month's event.
const sessionTTL = 7 * 24 * time.Hour

// GuestSession is the identity a guest device can resume after a
// restart: which participant row it owns, in which program, and the
// name/role it joined under.  Sessions are keyed by device id.
type GuestSession struct {
    ParticipantID uint64    `json:"participant_id"`
    ProgramID     uint64    `json:"program_id"`
    FullName      string    `json:"full_name"`
    Role          string    `json:"role"`
    DeviceID      string    `json:"device_id"`
    JoinedAt      time.Time `json:"joined_at"`
}

// SessionStore persists guest sessions in Redis.  When no Redis
// client is available the store degrades to an in-process map, so
// guest resumption still works within a single server's lifetime
// (the same graceful-degradation stance the rate limiter and
// response cache take).
type SessionStore struct {
    rdb *redis.Client

    mu  sync.RWMutex
    mem map[string][]byte
}

// NewSessionStore builds a store over the given Redis client.  A nil
// client selects the in-memory fallback.
func NewSessionStore(rdb *redis.Client) *SessionStore {
    return &SessionStore{rdb: rdb, mem: make(map[string][]byte)}
}

func sessionKey(deviceID string) string { return "guest:session:" + deviceID }

// Save stores (or replaces) the session for its device.
func (s *SessionStore) Save(ctx context.Context, sess GuestSession) error {
    raw, err := json.Marshal(sess)
    if err != nil {
        return err
    }
    if s.rdb != nil {
        return s.rdb.Set(ctx, sessionKey(sess.DeviceID), raw, sessionTTL).Err()
    }
    s.mu.Lock()
    s.mem[sessionKey(sess.DeviceID)] = raw
    s.mu.Unlock()
    return nil
}

// Load returns the session stored for a device, or nil when the
// device has none.  A missing session is a normal result, not an
// error.
func (s *SessionStore) Load(ctx context.Context, deviceID string) (*GuestSession, error) {
    var raw []byte
    if s.rdb != nil {
        v, err := s.rdb.Get(ctx, sessionKey(deviceID)).Bytes()
        if err == redis.Nil {
            return nil, nil
        }
        if err != nil {
            return nil, err
        }
        raw = v
    } else {
        s.mu.RLock()
        v, ok := s.mem[sessionKey(deviceID)]
        s.mu.RUnlock()
        if !ok {
            return nil, nil
        }
        raw = v
    }
    var sess GuestSession
    if err := json.Unmarshal(raw, &sess); err != nil {
        return nil, err
    }
    return &sess, nil
}

// Clear removes the session for a device.  Clearing an absent
// session is a no-op.
func (s *SessionStore) Clear(ctx context.Context, deviceID string) error {
    if s.rdb != nil {
        return s.rdb.Del(ctx, sessionKey(deviceID)).Err()
    }
    s.mu.Lock()
    delete(s.mem, sessionKey(deviceID))
    s.mu.Unlock()
    return nil
}
