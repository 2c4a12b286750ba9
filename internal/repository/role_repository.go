package repository

import (
    "context"
    "database/sql"

    "github.com/volunteerapp/program-server/internal/model"
)

// RoleRepo manages the admin-curated catalog of participant role
// labels offered to guests at join time.  The catalog is small and
// read-mostly; guests only ever see the active entries.
type RoleRepo struct {
    db *sql.DB
}

// NewRoleRepo returns a new RoleRepo bound to the given database.
func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{db: db} }

const roleColumns = `id, name, description, display_order, is_active, created_at`

func scanRole(row interface{ Scan(...interface{}) error }) (*model.ParticipantRole, error) {
    var role model.ParticipantRole
    var desc sql.NullString
    err := row.Scan(&role.ID, &role.Name, &desc, &role.DisplayOrder, &role.IsActive, &role.CreatedAt)
    if err != nil {
        return nil, err
    }
    if desc.Valid {
        v := desc.String
        role.Description = &v
    }
    return &role, nil
}

// ListActive returns the selectable roles in display order.  This is
// the list shown to guests on the join screen.
func (r *RoleRepo) ListActive(ctx context.Context) ([]model.ParticipantRole, error) {
    const q = `SELECT ` + roleColumns + ` FROM participant_roles
        WHERE is_active = TRUE ORDER BY display_order ASC`
    return r.list(ctx, q)
}

// ListAll returns the full catalog including inactive entries, for
// admin management screens.
func (r *RoleRepo) ListAll(ctx context.Context) ([]model.ParticipantRole, error) {
    const q = `SELECT ` + roleColumns + ` FROM participant_roles ORDER BY display_order ASC`
    return r.list(ctx, q)
}

func (r *RoleRepo) list(ctx context.Context, query string) ([]model.ParticipantRole, error) {
    rows, err := r.db.QueryContext(ctx, query)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.ParticipantRole, 0)
    for rows.Next() {
        role, err := scanRole(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *role)
    }
    return out, rows.Err()
}

// Create inserts a catalog entry and populates its generated ID.
func (r *RoleRepo) Create(ctx context.Context, role *model.ParticipantRole) error {
    const q = `INSERT INTO participant_roles (name, description, display_order, is_active)
        VALUES (?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, role.Name, role.Description, role.DisplayOrder, role.IsActive)
    if err != nil {
        if isDuplicate(err) {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    role.ID = uint64(id)
    got, err := r.getByID(ctx, role.ID)
    if err != nil {
        return err
    }
    *role = *got
    return nil
}

// Update rewrites a catalog entry.
func (r *RoleRepo) Update(ctx context.Context, role *model.ParticipantRole) error {
    const q = `UPDATE participant_roles SET name = ?, description = ?, display_order = ?, is_active = ?
        WHERE id = ?`
    if _, err := r.db.ExecContext(ctx, q,
        role.Name, role.Description, role.DisplayOrder, role.IsActive, role.ID); err != nil {
        if isDuplicate(err) {
            return ErrConflict
        }
        return err
    }
    got, err := r.getByID(ctx, role.ID)
    if err != nil {
        return err
    }
    *role = *got
    return nil
}

// Delete removes a catalog entry.  Existing participant rows keep
// their free-text role label, so history is unaffected.
func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
    _, err := r.db.ExecContext(ctx, `DELETE FROM participant_roles WHERE id = ?`, id)
    return err
}

func (r *RoleRepo) getByID(ctx context.Context, id uint64) (*model.ParticipantRole, error) {
    const q = `SELECT ` + roleColumns + ` FROM participant_roles WHERE id = ?`
    return scanRole(r.db.QueryRowContext(ctx, q, id))
}
