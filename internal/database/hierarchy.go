package database

import (
	"context"

	"github.com/google/uuid"
)

func (q *Queries) GetBranchHierarchy(ctx context.Context, branchID uuid.UUID) (BranchHierarchy, error) {
	var h BranchHierarchy
	err := q.db.QueryRow(ctx, `
		SELECT b.id, b.name, b.status, h.id, h.name, h.status, h.admin_id
		FROM branches b
		JOIN hotels h ON h.id = b.hotel_id
		WHERE b.id = $1`, branchID).
		Scan(&h.BranchID, &h.BranchName, &h.BranchStatus, &h.HotelID,
			&h.HotelName, &h.HotelStatus, &h.HotelAdminID)
	return h, err
}

func (q *Queries) GetHotel(ctx context.Context, id uuid.UUID) (Hotel, error) {
	var h Hotel
	err := q.db.QueryRow(ctx, `
		SELECT id, name, admin_id, status, created_at, updated_at
		FROM hotels WHERE id = $1`, id).
		Scan(&h.ID, &h.Name, &h.AdminID, &h.Status, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}

func (q *Queries) ListBranchesByHotel(ctx context.Context, hotelID uuid.UUID) ([]Branch, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, hotel_id, name, status, created_at, updated_at
		FROM branches
		WHERE hotel_id = $1
		ORDER BY name ASC`, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.HotelID, &b.Name, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

// LockBranch takes the branch row lock that serializes all assignment
// mutations for one branch. Must be called inside a transaction; the lock is
// held until commit/rollback.
func (q *Queries) LockBranch(ctx context.Context, branchID uuid.UUID) error {
	var id uuid.UUID
	return q.db.QueryRow(ctx,
		`SELECT id FROM branches WHERE id = $1 FOR UPDATE`, branchID).Scan(&id)
}

// GetRoundRobinCursor returns the branch's persisted rotation position,
// zero when the branch has never rotated.
func (q *Queries) GetRoundRobinCursor(ctx context.Context, branchID uuid.UUID) (int32, error) {
	var position int32
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT position FROM round_robin_cursors WHERE branch_id = $1), 0)`,
		branchID).Scan(&position)
	return position, err
}

type SetRoundRobinCursorParams struct {
	BranchID uuid.UUID
	Position int32
}

func (q *Queries) SetRoundRobinCursor(ctx context.Context, arg SetRoundRobinCursorParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO round_robin_cursors (branch_id, position, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (branch_id)
		DO UPDATE SET position = EXCLUDED.position, updated_at = now()`,
		arg.BranchID, arg.Position)
	return err
}

// ResetRoundRobinCursor clears one branch's cursor, or every cursor when
// branchID is the zero UUID.
func (q *Queries) ResetRoundRobinCursor(ctx context.Context, branchID uuid.UUID) (int64, error) {
	if branchID == uuid.Nil {
		tag, err := q.db.Exec(ctx, `UPDATE round_robin_cursors SET position = 0, updated_at = now()`)
		return tag.RowsAffected(), err
	}
	tag, err := q.db.Exec(ctx, `
		UPDATE round_robin_cursors SET position = 0, updated_at = now()
		WHERE branch_id = $1`, branchID)
	return tag.RowsAffected(), err
}

func (q *Queries) ListActiveBranches(ctx context.Context) ([]Branch, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, hotel_id, name, status, created_at, updated_at
		FROM branches
		WHERE status = 'ACTIVE'
		ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.HotelID, &b.Name, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}
