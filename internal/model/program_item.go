package model

import "time"

// ProgramItem is one timed row of a run-sheet.  Items belong to
// exactly one program and are displayed and played back in the
// sequence defined by Order (unique per program, contiguous by
// convention but not enforced).  Start times are local times of
// day with minute granularity; the timeline engine assumes they
// are non-decreasing in Order except across a midnight rollover,
// but nothing rejects overlapping or out-of-order times.
//
// Fields:
//  ID              – primary key identifier.
//  ProgramID       – owning program.
//  Time            – start time of day as "HH:MM".
//  Title           – display title of the item.
//  Description     – optional free-text description.
//  PersonInCharge  – optional name of the person leading the item.
//  DurationMinutes – planned duration in minutes.
//  Order           – position within the program's sequence.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type ProgramItem struct {
    ID              uint64    // program_items.id
    ProgramID       uint64    // program_items.program_id
    Time            string    // program_items.time
    Title           string    // program_items.title
    Description     *string   // program_items.description (nullable)
    PersonInCharge  *string   // program_items.person_in_charge (nullable)
    DurationMinutes uint32    // program_items.duration_minutes
    Order           uint32    // program_items.item_order
    CreatedAt       time.Time // program_items.created_at
    UpdatedAt       time.Time // program_items.updated_at
}
