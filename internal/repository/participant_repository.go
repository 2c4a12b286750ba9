package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/volunteerapp/program-server/internal/model"
)

// ParticipantRepo persists program participants and their liveness
// timestamps.  Participant rows are append-mostly: joins insert,
// heartbeats and soft leaves update last_active, and nothing here
// ever deletes a row on its own, so participation history survives
// a leave.
type ParticipantRepo struct {
    db *sql.DB
}

// NewParticipantRepo returns a new ParticipantRepo bound to the given database.
func NewParticipantRepo(db *sql.DB) *ParticipantRepo { return &ParticipantRepo{db: db} }

const participantColumns = `id, program_id, user_id, full_name, role, is_guest,
    device_id, push_token, joined_at, last_active`

// scanParticipant reads one program_participants row from a row scanner.
func scanParticipant(row interface{ Scan(...interface{}) error }) (*model.Participant, error) {
    var p model.Participant
    var userID sql.NullInt64
    var deviceID, pushToken sql.NullString
    err := row.Scan(
        &p.ID, &p.ProgramID, &userID, &p.FullName, &p.Role, &p.IsGuest,
        &deviceID, &pushToken, &p.JoinedAt, &p.LastActive,
    )
    if err != nil {
        return nil, err
    }
    if userID.Valid {
        v := uint64(userID.Int64)
        p.UserID = &v
    }
    if deviceID.Valid {
        v := deviceID.String
        p.DeviceID = &v
    }
    if pushToken.Valid {
        v := pushToken.String
        p.PushToken = &v
    }
    return &p, nil
}

// Insert creates a participant row and populates the generated ID
// and stored timestamps on the record.
func (r *ParticipantRepo) Insert(ctx context.Context, p *model.Participant) error {
    const q = `INSERT INTO program_participants
        (program_id, user_id, full_name, role, is_guest, device_id, push_token, last_active)
        VALUES (?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())`
    res, err := r.db.ExecContext(ctx, q,
        p.ProgramID, p.UserID, p.FullName, p.Role, p.IsGuest, p.DeviceID, p.PushToken)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)
    got, err := r.GetByID(ctx, p.ID)
    if err != nil {
        return err
    }
    *p = *got
    return nil
}

// GetByID returns a single participant by primary key.
func (r *ParticipantRepo) GetByID(ctx context.Context, id uint64) (*model.Participant, error) {
    const q = `SELECT ` + participantColumns + ` FROM program_participants WHERE id = ?`
    return scanParticipant(r.db.QueryRowContext(ctx, q, id))
}

// FindByDevice returns the most recent participant row a device
// created for a program, or sql.ErrNoRows.  The join flow uses it to
// make joins idempotent per device: a double-tapped join resumes the
// existing row instead of inserting a duplicate.
func (r *ParticipantRepo) FindByDevice(ctx context.Context, programID uint64, deviceID string) (*model.Participant, error) {
    const q = `SELECT ` + participantColumns + ` FROM program_participants
        WHERE program_id = ? AND device_id = ? ORDER BY joined_at DESC LIMIT 1`
    return scanParticipant(r.db.QueryRowContext(ctx, q, programID, deviceID))
}

// Heartbeat stamps last_active with the given instant.  Two
// concurrent heartbeats for the same participant may race; only the
// most recent server-processed write matters.
func (r *ParticipantRepo) Heartbeat(ctx context.Context, id uint64, at time.Time) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE program_participants SET last_active = ? WHERE id = ?`, at.UTC(), id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err == nil && n == 0 {
        // Distinguish "row missing" from "timestamp unchanged".
        var exists uint64
        if scanErr := r.db.QueryRowContext(ctx,
            `SELECT id FROM program_participants WHERE id = ?`, id).Scan(&exists); scanErr != nil {
            return scanErr
        }
    }
    return nil
}

// SoftLeave pushes last_active to the given past instant so the
// participant immediately drops out of active queries while the row
// itself is preserved for history.
func (r *ParticipantRepo) SoftLeave(ctx context.Context, id uint64, at time.Time) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE program_participants SET last_active = ? WHERE id = ?`, at.UTC(), id)
    return err
}

// ListByProgram returns every participant that ever joined a
// program, oldest join first.
func (r *ParticipantRepo) ListByProgram(ctx context.Context, programID uint64) ([]model.Participant, error) {
    const q = `SELECT ` + participantColumns + ` FROM program_participants
        WHERE program_id = ? ORDER BY joined_at ASC`
    return r.list(ctx, q, programID)
}

// ListActive returns the participants whose last heartbeat falls
// within the trailing window ending at now, oldest join first.
func (r *ParticipantRepo) ListActive(ctx context.Context, programID uint64, now time.Time, window time.Duration) ([]model.Participant, error) {
    cutoff := now.UTC().Add(-window)
    const q = `SELECT ` + participantColumns + ` FROM program_participants
        WHERE program_id = ? AND last_active > ? ORDER BY joined_at ASC`
    return r.list(ctx, q, programID, cutoff)
}

// HistoryByUser returns a registered user's participation history,
// newest first.
func (r *ParticipantRepo) HistoryByUser(ctx context.Context, userID uint64) ([]model.Participant, error) {
    const q = `SELECT ` + participantColumns + ` FROM program_participants
        WHERE user_id = ? ORDER BY joined_at DESC`
    return r.list(ctx, q, userID)
}

func (r *ParticipantRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Participant, error) {
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Participant, 0)
    for rows.Next() {
        p, err := scanParticipant(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *p)
    }
    return out, rows.Err()
}
