package repository

import (
    "context"
    "database/sql"

    "github.com/volunteerapp/program-server/internal/model"
)

// ItemRepo provides CRUD operations for run-sheet items.  Items are
// always addressed through their owning program so ownership checks
// can join against the programs table.  Display order is stored in
// the item_order column; nothing enforces that times stay sorted
// with it, matching how the authoring flow works.
type ItemRepo struct {
    db *sql.DB
}

// NewItemRepo returns a new ItemRepo bound to the given database.
func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{db: db} }

const itemColumns = `id, program_id, time, title, description, person_in_charge,
    duration_minutes, item_order, created_at, updated_at`

// scanItem reads one program_items row from a row scanner.
func scanItem(row interface{ Scan(...interface{}) error }) (*model.ProgramItem, error) {
    var it model.ProgramItem
    var desc, pic sql.NullString
    err := row.Scan(
        &it.ID, &it.ProgramID, &it.Time, &it.Title, &desc, &pic,
        &it.DurationMinutes, &it.Order, &it.CreatedAt, &it.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if desc.Valid {
        v := desc.String
        it.Description = &v
    }
    if pic.Valid {
        v := pic.String
        it.PersonInCharge = &v
    }
    return &it, nil
}

// ownerOfProgram returns the owner of a program, or sql.ErrNoRows
// when the program does not exist.
func (r *ItemRepo) ownerOfProgram(ctx context.Context, programID uint64) (uint64, error) {
    var ownerID uint64
    err := r.db.QueryRowContext(ctx,
        `SELECT owner_id FROM programs WHERE id = ?`, programID).Scan(&ownerID)
    return ownerID, err
}

// ListByProgram returns a program's items in playback order.
func (r *ItemRepo) ListByProgram(ctx context.Context, programID uint64) ([]model.ProgramItem, error) {
    const q = `SELECT ` + itemColumns + ` FROM program_items
        WHERE program_id = ? ORDER BY item_order ASC`
    rows, err := r.db.QueryContext(ctx, q, programID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.ProgramItem, 0)
    for rows.Next() {
        it, err := scanItem(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *it)
    }
    return out, rows.Err()
}

// GetByID returns a single item by primary key.
func (r *ItemRepo) GetByID(ctx context.Context, id uint64) (*model.ProgramItem, error) {
    const q = `SELECT ` + itemColumns + ` FROM program_items WHERE id = ?`
    return scanItem(r.db.QueryRowContext(ctx, q, id))
}

// Create inserts a new item after verifying that the caller owns the
// program.  The generated ID and stored defaults are populated on
// the record.
func (r *ItemRepo) Create(ctx context.Context, it *model.ProgramItem, ownerID uint64) error {
    owner, err := r.ownerOfProgram(ctx, it.ProgramID)
    if err != nil {
        return err
    }
    if owner != ownerID {
        return ErrForbidden
    }
    const q = `INSERT INTO program_items
        (program_id, time, title, description, person_in_charge, duration_minutes, item_order)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        it.ProgramID, it.Time, it.Title, it.Description,
        it.PersonInCharge, it.DurationMinutes, it.Order)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    it.ID = uint64(id)
    got, err := r.GetByID(ctx, it.ID)
    if err != nil {
        return err
    }
    *it = *got
    return nil
}

// Update rewrites an item's editable fields after verifying that the
// caller owns the item's program.
func (r *ItemRepo) Update(ctx context.Context, it *model.ProgramItem, ownerID uint64) error {
    stored, err := r.GetByID(ctx, it.ID)
    if err != nil {
        return err
    }
    owner, err := r.ownerOfProgram(ctx, stored.ProgramID)
    if err != nil {
        return err
    }
    if owner != ownerID {
        return ErrForbidden
    }
    const q = `UPDATE program_items SET time = ?, title = ?, description = ?,
        person_in_charge = ?, duration_minutes = ?, item_order = ? WHERE id = ?`
    if _, err := r.db.ExecContext(ctx, q,
        it.Time, it.Title, it.Description, it.PersonInCharge,
        it.DurationMinutes, it.Order, it.ID); err != nil {
        return err
    }
    got, err := r.GetByID(ctx, it.ID)
    if err != nil {
        return err
    }
    *it = *got
    return nil
}

// Delete removes a single item after verifying ownership of its
// program.
func (r *ItemRepo) Delete(ctx context.Context, id, ownerID uint64) error {
    stored, err := r.GetByID(ctx, id)
    if err != nil {
        return err
    }
    owner, err := r.ownerOfProgram(ctx, stored.ProgramID)
    if err != nil {
        return err
    }
    if owner != ownerID {
        return ErrForbidden
    }
    _, err = r.db.ExecContext(ctx, `DELETE FROM program_items WHERE id = ?`, id)
    return err
}

// OrderUpdate pairs an item with its new position for bulk reorder.
type OrderUpdate struct {
    ID    uint64 `json:"id"`
    Order uint32 `json:"order"`
}

// Reorder rewrites the item_order of several items in one
// transaction so a drag-and-drop reorder lands atomically.  Only
// items belonging to the given program are touched; IDs from other
// programs are silently ignored by the WHERE clause.
func (r *ItemRepo) Reorder(ctx context.Context, programID, ownerID uint64, updates []OrderUpdate) error {
    owner, err := r.ownerOfProgram(ctx, programID)
    if err != nil {
        return err
    }
    if owner != ownerID {
        return ErrForbidden
    }
    if len(updates) == 0 {
        return nil
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    const q = `UPDATE program_items SET item_order = ? WHERE id = ? AND program_id = ?`
    for _, u := range updates {
        if _, err := tx.ExecContext(ctx, q, u.Order, u.ID, programID); err != nil {
            _ = tx.Rollback()
            return err
        }
    }
    return tx.Commit()
}
