package model

import "time"

// Program statuses.  A program is created as a draft, explicitly
// activated for its live session and finally marked completed by
// an admin.  Templates never become live events; they only serve
// as copy sources for future programs.
const (
    StatusDraft     = "draft"
    StatusActive    = "active"
    StatusCompleted = "completed"
)

// Program represents one run-sheet: a named event on an optional
// calendar date with an ordered list of timed items and sharing
// controls.  The share code is a human-friendly 6 character
// credential, the share token an opaque credential used in deep
// links.  ActiveParticipants is a denormalized counter recomputed
// by full rescan after every join and leave; it is advisory and
// may briefly lag under concurrent updates.
//
// Fields:
//  ID                  – primary key identifier.
//  OwnerID             – user who created the program.
//  Title               – display name of the event.
//  Description         – optional free-text description.
//  Date                – calendar date of the event (nullable for templates).
//  StartTime           – optional event start as "HH:MM" local time of day.
//  EndTime             – optional event end as "HH:MM" local time of day.
//  Status              – lifecycle status (draft, active, completed).
//  Recurrence          – optional recurrence descriptor (weekly, biweekly, monthly).
//  IsTemplate          – template flag; templates carry no required date.
//  ShareCode           – 6 character uppercase alphanumeric join code.
//  ShareToken          – opaque token used in deep links.
//  PublicAccessEnabled – gate for code/token resolution.
//  ActiveParticipants  – denormalized count of currently active participants.
//  CreatedAt           – creation timestamp.
//  UpdatedAt           – last update timestamp.
type Program struct {
    ID                  uint64     // programs.id
    OwnerID             uint64     // programs.owner_id
    Title               string     // programs.title
    Description         *string    // programs.description (nullable)
    Date                *string    // programs.date (nullable, "YYYY-MM-DD")
    StartTime           *string    // programs.start_time (nullable, "HH:MM")
    EndTime             *string    // programs.end_time (nullable, "HH:MM")
    Status              string     // programs.status
    Recurrence          *string    // programs.recurrence (nullable)
    IsTemplate          bool       // programs.is_template
    ShareCode           string     // programs.share_code
    ShareToken          string     // programs.share_token
    PublicAccessEnabled bool       // programs.public_access_enabled
    ActiveParticipants  uint32     // programs.active_participants_count
    CreatedAt           time.Time  // programs.created_at
    UpdatedAt           time.Time  // programs.updated_at
}
