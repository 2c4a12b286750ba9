package repository

import (
    "context"
    "crypto/rand"
    "database/sql"
    "strings"

    "github.com/google/uuid"

    "github.com/volunteerapp/program-server/internal/model"
)

// ProgramRepo provides CRUD operations for programs and their share
// credentials.  A program groups the ordered run-sheet items and the
// participant rows for one live event (or acts as a reusable template).
// Share-code assignment lives here rather than in a database trigger:
// inserting a program with an empty code generates a fresh unique
// 6 character code and an opaque token, and regeneration replaces the
// code while keeping the token.  All timestamp fields are stored in UTC.
type ProgramRepo struct {
    db *sql.DB
}

// NewProgramRepo returns a new ProgramRepo bound to the given database.
func NewProgramRepo(db *sql.DB) *ProgramRepo { return &ProgramRepo{db: db} }

// shareCodeAlphabet is the character set for join codes.  Uppercase
// alphanumerics only, matching what guests are asked to type.
const shareCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newShareCode returns a random 6 character join code.
func newShareCode() (string, error) {
    buf := make([]byte, 6)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    for i, b := range buf {
        buf[i] = shareCodeAlphabet[int(b)%len(shareCodeAlphabet)]
    }
    return string(buf), nil
}

// isDuplicate reports whether err is a MySQL duplicate-key error (1062).
func isDuplicate(err error) bool {
    return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// execer abstracts *sql.DB and *sql.Tx for statements that run either
// standalone or inside a transaction.
type execer interface {
    ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// createTx inserts the programs row on the given executor and fills
// in the generated ID, share code and share token.  When the record
// carries no share code one is generated; collisions with existing
// codes are retried a few times before giving up.  New programs
// always start in draft status.
func createTx(ctx context.Context, ex execer, p *model.Program) error {
    if p.ShareToken == "" {
        p.ShareToken = uuid.NewString()
    }
    if p.Status == "" {
        p.Status = model.StatusDraft
    }
    const q = `INSERT INTO programs
        (owner_id, title, description, date, start_time, end_time, status, recurrence,
         is_template, share_code, share_token, public_access_enabled)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    for attempt := 0; attempt < 5; attempt++ {
        code := p.ShareCode
        if code == "" {
            var err error
            code, err = newShareCode()
            if err != nil {
                return err
            }
        }
        res, err := ex.ExecContext(ctx, q,
            p.OwnerID, p.Title, p.Description, p.Date, p.StartTime, p.EndTime,
            p.Status, p.Recurrence, p.IsTemplate, code, p.ShareToken, p.PublicAccessEnabled)
        if err != nil {
            if isDuplicate(err) && p.ShareCode == "" {
                continue // code collision, draw again
            }
            return err
        }
        id, err := res.LastInsertId()
        if err != nil {
            return err
        }
        p.ID = uint64(id)
        p.ShareCode = code
        return nil
    }
    return ErrConflict
}

// Create inserts a new program owned by the given user and reloads
// the stored row to populate timestamps and defaults.
func (r *ProgramRepo) Create(ctx context.Context, p *model.Program) error {
    if err := createTx(ctx, r.db, p); err != nil {
        return err
    }
    return r.reload(ctx, p)
}

// CreateWithItems inserts a program together with its run-sheet items
// in a single transaction.  Either everything is written or nothing
// is: a failure on any item rolls the whole program back, so authors
// never end up with a half-created run-sheet.
func (r *ProgramRepo) CreateWithItems(ctx context.Context, p *model.Program, items []model.ProgramItem) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    if err := createTx(ctx, tx, p); err != nil {
        _ = tx.Rollback()
        return err
    }
    if err := insertItemsTx(ctx, tx, p.ID, items); err != nil {
        _ = tx.Rollback()
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    return r.reload(ctx, p)
}

// insertItemsTx bulk-inserts run-sheet items for a program within a
// transaction.  Passing an empty slice has no effect and returns nil.
func insertItemsTx(ctx context.Context, tx *sql.Tx, programID uint64, items []model.ProgramItem) error {
    if len(items) == 0 {
        return nil
    }
    query := `INSERT INTO program_items
        (program_id, time, title, description, person_in_charge, duration_minutes, item_order)
        VALUES `
    args := make([]interface{}, 0, len(items)*7)
    for i, it := range items {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?, ?)"
        args = append(args, programID, it.Time, it.Title, it.Description,
            it.PersonInCharge, it.DurationMinutes, it.Order)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

// reload queries back the full program row to populate timestamps and
// database defaults after an insert or update.
func (r *ProgramRepo) reload(ctx context.Context, p *model.Program) error {
    got, err := r.GetByID(ctx, p.ID)
    if err != nil {
        return err
    }
    *p = *got
    return nil
}

const programColumns = `id, owner_id, title, description, date, start_time, end_time,
    status, recurrence, is_template, share_code, share_token,
    public_access_enabled, active_participants_count, created_at, updated_at`

// scanProgram reads one programs row from a row scanner.
func scanProgram(row interface{ Scan(...interface{}) error }) (*model.Program, error) {
    var p model.Program
    var desc, date, start, end, recur sql.NullString
    err := row.Scan(
        &p.ID, &p.OwnerID, &p.Title, &desc, &date, &start, &end,
        &p.Status, &recur, &p.IsTemplate, &p.ShareCode, &p.ShareToken,
        &p.PublicAccessEnabled, &p.ActiveParticipants, &p.CreatedAt, &p.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if desc.Valid {
        v := desc.String
        p.Description = &v
    }
    if date.Valid {
        v := date.String
        p.Date = &v
    }
    if start.Valid {
        v := start.String
        p.StartTime = &v
    }
    if end.Valid {
        v := end.String
        p.EndTime = &v
    }
    if recur.Valid {
        v := recur.String
        p.Recurrence = &v
    }
    return &p, nil
}

// GetByID returns a single program by primary key.  When no program
// exists, sql.ErrNoRows is returned.
func (r *ProgramRepo) GetByID(ctx context.Context, id uint64) (*model.Program, error) {
    const q = `SELECT ` + programColumns + ` FROM programs WHERE id = ?`
    return scanProgram(r.db.QueryRowContext(ctx, q, id))
}

// GetByIDForOwner returns a program after verifying the caller owns
// it.  It returns sql.ErrNoRows when the program does not exist and
// ErrForbidden when it belongs to a different user.
func (r *ProgramRepo) GetByIDForOwner(ctx context.Context, id, ownerID uint64) (*model.Program, error) {
    p, err := r.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    if p.OwnerID != ownerID {
        return nil, ErrForbidden
    }
    return p, nil
}

// ListByOwner returns the programs created by a user, newest date
// first.  An optional status filters the result; pass "" for all.
// Templates are included only when the status filter is empty.
func (r *ProgramRepo) ListByOwner(ctx context.Context, ownerID uint64, status string) ([]model.Program, error) {
    q := `SELECT ` + programColumns + ` FROM programs WHERE owner_id = ?`
    args := []interface{}{ownerID}
    if status != "" {
        q += ` AND status = ? AND is_template = FALSE`
        args = append(args, status)
    }
    q += ` ORDER BY date DESC, id DESC`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Program, 0)
    for rows.Next() {
        p, err := scanProgram(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *p)
    }
    return out, rows.Err()
}

// Update applies editable fields of a program after verifying
// ownership.  Share credentials and the denormalized participant
// count are managed through their dedicated methods and are not
// touched here.
func (r *ProgramRepo) Update(ctx context.Context, p *model.Program, ownerID uint64) error {
    if _, err := r.GetByIDForOwner(ctx, p.ID, ownerID); err != nil {
        return err
    }
    const q = `UPDATE programs SET title = ?, description = ?, date = ?, start_time = ?,
        end_time = ?, status = ?, recurrence = ?, is_template = ? WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q,
        p.Title, p.Description, p.Date, p.StartTime, p.EndTime,
        p.Status, p.Recurrence, p.IsTemplate, p.ID)
    if err != nil {
        return err
    }
    return r.reload(ctx, p)
}

// UpdateWithItems updates a program and replaces its run-sheet items
// in one transaction.  Items carrying an ID are updated in place,
// items without one are inserted, and stored items missing from the
// given set are deleted.  A failure at any step rolls everything
// back, so the program and its items never diverge.
func (r *ProgramRepo) UpdateWithItems(ctx context.Context, p *model.Program, ownerID uint64, items []model.ProgramItem) error {
    if _, err := r.GetByIDForOwner(ctx, p.ID, ownerID); err != nil {
        return err
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    rollback := func(e error) error { _ = tx.Rollback(); return e }

    const upd = `UPDATE programs SET title = ?, description = ?, date = ?, start_time = ?,
        end_time = ?, status = ?, recurrence = ?, is_template = ? WHERE id = ?`
    if _, err := tx.ExecContext(ctx, upd,
        p.Title, p.Description, p.Date, p.StartTime, p.EndTime,
        p.Status, p.Recurrence, p.IsTemplate, p.ID); err != nil {
        return rollback(err)
    }

    keep := make([]interface{}, 0, len(items))
    var inserts []model.ProgramItem
    for _, it := range items {
        if it.ID == 0 {
            inserts = append(inserts, it)
            continue
        }
        keep = append(keep, it.ID)
        const uq = `UPDATE program_items SET time = ?, title = ?, description = ?,
            person_in_charge = ?, duration_minutes = ?, item_order = ?
            WHERE id = ? AND program_id = ?`
        if _, err := tx.ExecContext(ctx, uq, it.Time, it.Title, it.Description,
            it.PersonInCharge, it.DurationMinutes, it.Order, it.ID, p.ID); err != nil {
            return rollback(err)
        }
    }
    // Delete stored items the caller no longer lists.
    if len(keep) == 0 {
        if _, err := tx.ExecContext(ctx, `DELETE FROM program_items WHERE program_id = ?`, p.ID); err != nil {
            return rollback(err)
        }
    } else {
        placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keep)), ",")
        args := append([]interface{}{p.ID}, keep...)
        if _, err := tx.ExecContext(ctx,
            `DELETE FROM program_items WHERE program_id = ? AND id NOT IN (`+placeholders+`)`,
            args...); err != nil {
            return rollback(err)
        }
    }
    if err := insertItemsTx(ctx, tx, p.ID, inserts); err != nil {
        return rollback(err)
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    return r.reload(ctx, p)
}

// Delete removes a program and, in the same transaction, its items
// and participant rows.  Ownership is verified first.
func (r *ProgramRepo) Delete(ctx context.Context, id, ownerID uint64) error {
    if _, err := r.GetByIDForOwner(ctx, id, ownerID); err != nil {
        return err
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    for _, q := range []string{
        `DELETE FROM program_participants WHERE program_id = ?`,
        `DELETE FROM program_items WHERE program_id = ?`,
        `DELETE FROM programs WHERE id = ?`,
    } {
        if _, err := tx.ExecContext(ctx, q, id); err != nil {
            _ = tx.Rollback()
            return err
        }
    }
    return tx.Commit()
}

// Activate transitions a program to active and demotes any other
// program that is active on the same date back to draft, so at most
// one program per date runs live.  Templates cannot be activated.
func (r *ProgramRepo) Activate(ctx context.Context, id, ownerID uint64) (*model.Program, error) {
    p, err := r.GetByIDForOwner(ctx, id, ownerID)
    if err != nil {
        return nil, err
    }
    if p.IsTemplate {
        return nil, ErrConflict
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    if p.Date != nil {
        if _, err := tx.ExecContext(ctx,
            `UPDATE programs SET status = ? WHERE date = ? AND status = ? AND id <> ?`,
            model.StatusDraft, *p.Date, model.StatusActive, id); err != nil {
            _ = tx.Rollback()
            return nil, err
        }
    }
    if _, err := tx.ExecContext(ctx,
        `UPDATE programs SET status = ? WHERE id = ?`, model.StatusActive, id); err != nil {
        _ = tx.Rollback()
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    return r.GetByID(ctx, id)
}

// SetStatus updates the lifecycle status after verifying ownership.
func (r *ProgramRepo) SetStatus(ctx context.Context, id, ownerID uint64, status string) (*model.Program, error) {
    if _, err := r.GetByIDForOwner(ctx, id, ownerID); err != nil {
        return nil, err
    }
    if _, err := r.db.ExecContext(ctx,
        `UPDATE programs SET status = ? WHERE id = ?`, status, id); err != nil {
        return nil, err
    }
    return r.GetByID(ctx, id)
}

// GetTodayActive returns the active program for the given date, or
// sql.ErrNoRows when none is live.
func (r *ProgramRepo) GetTodayActive(ctx context.Context, date string) (*model.Program, error) {
    const q = `SELECT ` + programColumns + ` FROM programs
        WHERE date = ? AND status = ? AND is_template = FALSE LIMIT 1`
    return scanProgram(r.db.QueryRowContext(ctx, q, date, model.StatusActive))
}

// ResolveByCode returns the program matching a normalized join code,
// but only when its public access flag is enabled.  A well-formed
// code that matches nothing (or matches a program with access
// disabled) yields sql.ErrNoRows: callers treat that as a normal
// not-found result, not a failure.
func (r *ProgramRepo) ResolveByCode(ctx context.Context, code string) (*model.Program, error) {
    const q = `SELECT ` + programColumns + ` FROM programs
        WHERE share_code = ? AND public_access_enabled = TRUE LIMIT 1`
    return scanProgram(r.db.QueryRowContext(ctx, q, code))
}

// ResolveByToken is ResolveByCode for the opaque deep-link token.
func (r *ProgramRepo) ResolveByToken(ctx context.Context, token string) (*model.Program, error) {
    const q = `SELECT ` + programColumns + ` FROM programs
        WHERE share_token = ? AND public_access_enabled = TRUE LIMIT 1`
    return scanProgram(r.db.QueryRowContext(ctx, q, token))
}

// RegenerateShare replaces a program's join code with a fresh unique
// one, invalidating the old code immediately.  The opaque token is
// kept, so previously shared deep links keep working.  Ownership is
// verified first.
func (r *ProgramRepo) RegenerateShare(ctx context.Context, id, ownerID uint64) (*model.Program, error) {
    if _, err := r.GetByIDForOwner(ctx, id, ownerID); err != nil {
        return nil, err
    }
    for attempt := 0; attempt < 5; attempt++ {
        code, err := newShareCode()
        if err != nil {
            return nil, err
        }
        _, err = r.db.ExecContext(ctx,
            `UPDATE programs SET share_code = ? WHERE id = ?`, code, id)
        if err != nil {
            if isDuplicate(err) {
                continue
            }
            return nil, err
        }
        return r.GetByID(ctx, id)
    }
    return nil, ErrConflict
}

// SetPublicAccess toggles whether code and token lookups can succeed.
// Disabling leaves the stored credentials in place (dormant, not
// deleted); re-enabling restores the very same code.
func (r *ProgramRepo) SetPublicAccess(ctx context.Context, id, ownerID uint64, enabled bool) error {
    if _, err := r.GetByIDForOwner(ctx, id, ownerID); err != nil {
        return err
    }
    _, err := r.db.ExecContext(ctx,
        `UPDATE programs SET public_access_enabled = ? WHERE id = ?`, enabled, id)
    return err
}

// UpdateActiveCount writes the denormalized active participant count.
// The value is advisory: concurrent recounts race and the last writer
// wins, which is acceptable at event scale.
func (r *ProgramRepo) UpdateActiveCount(ctx context.Context, id uint64, count int) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE programs SET active_participants_count = ? WHERE id = ?`, count, id)
    return err
}
