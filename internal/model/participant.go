package model

import "time"

// Participant is a join record for a program's live session.  A
// participant is either linked to a registered user or is an
// anonymous guest (UserID nil, IsGuest true).  Rows are created on
// join and never deleted: leaving pushes LastActive into the past
// so the participant drops out of active queries while the
// participation history is preserved.
//
// Fields:
//  ID         – primary key identifier.
//  ProgramID  – program the participant joined.
//  UserID     – registered user, if any (nullable; nil means guest).
//  FullName   – display name shown in participant lists.
//  Role       – free-text role label chosen at join time.
//  IsGuest    – whether the participant joined without an account.
//  DeviceID   – device identifier used to correlate guest sessions (nullable).
//  PushToken  – optional push notification token (nullable).
//  JoinedAt   – when the participant joined (immutable).
//  LastActive – last heartbeat timestamp; drives the active window.
type Participant struct {
    ID         uint64     // program_participants.id
    ProgramID  uint64     // program_participants.program_id
    UserID     *uint64    // program_participants.user_id (nullable)
    FullName   string     // program_participants.full_name
    Role       string     // program_participants.role
    IsGuest    bool       // program_participants.is_guest
    DeviceID   *string    // program_participants.device_id (nullable)
    PushToken  *string    // program_participants.push_token (nullable)
    JoinedAt   time.Time  // program_participants.joined_at
    LastActive time.Time  // program_participants.last_active
}
