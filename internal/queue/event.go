// Package queue defines message payloads exchanged over the message broker.
package queue

// Participant event actions.
const (
	ActionJoined = "joined"
	ActionLeft   = "left"
)

// ParticipantEvent is published whenever a participant joins or
// leaves a live program.  It carries enough information for
// downstream consumers to log attendance or trigger notifications
// without querying the primary database.
type ParticipantEvent struct {
	Action        string `json:"action"` // "joined" or "left"
	ParticipantID uint64 `json:"participant_id"`
	ProgramID     uint64 `json:"program_id"`
	ProgramTitle  string `json:"program_title"`
	FullName      string `json:"full_name"`
	Role          string `json:"role"`
	IsGuest       bool   `json:"is_guest"`
	ActiveCount   int    `json:"active_count"`
	OccurredAt    string `json:"occurred_at"`
}
