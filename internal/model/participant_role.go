package model

import "time"

// ParticipantRole is one entry of the admin-curated catalog of
// role labels offered to guests at join time.  The catalog is
// read-mostly reference data: guests pick from the active entries
// ordered by DisplayOrder, admins manage the full set.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – unique role label (e.g. "Usher").
//  Description  – optional explanation shown alongside the label.
//  DisplayOrder – sort position in selection lists.
//  IsActive     – whether the role is currently selectable.
//  CreatedAt    – creation timestamp.
type ParticipantRole struct {
    ID           uint64    // participant_roles.id
    Name         string    // participant_roles.name
    Description  *string   // participant_roles.description (nullable)
    DisplayOrder uint32    // participant_roles.display_order
    IsActive     bool      // participant_roles.is_active
    CreatedAt    time.Time // participant_roles.created_at
}
