package database

import (
	"context"

	"github.com/google/uuid"
)

const staffColumns = `id, hotel_id, branch_id, name, email, password_hash, role, status,
	is_available, availability_reason, active_orders_count, max_capacity,
	last_assigned_at, created_at, updated_at`

func scanStaff(row interface{ Scan(...any) error }) (Staff, error) {
	var s Staff
	err := row.Scan(
		&s.ID, &s.HotelID, &s.BranchID, &s.Name, &s.Email, &s.PasswordHash,
		&s.Role, &s.Status, &s.IsAvailable, &s.AvailabilityReason,
		&s.ActiveOrdersCount, &s.MaxCapacity, &s.LastAssignedAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

func (q *Queries) GetStaff(ctx context.Context, id uuid.UUID) (Staff, error) {
	row := q.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id)
	return scanStaff(row)
}

// ListAvailableWaiters returns the branch's eligible candidates in the
// deterministic tie-break order the policies rely on: load ascending, then
// id ascending.
func (q *Queries) ListAvailableWaiters(ctx context.Context, branchID uuid.UUID) ([]Staff, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+staffColumns+`
		FROM staff
		WHERE branch_id = $1
		  AND role = 'WAITER'
		  AND status = 'ACTIVE'
		  AND is_available = true
		  AND active_orders_count < max_capacity
		ORDER BY active_orders_count ASC, id ASC`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var waiters []Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		waiters = append(waiters, s)
	}
	return waiters, rows.Err()
}

func (q *Queries) ListWaitersByBranch(ctx context.Context, branchID uuid.UUID) ([]Staff, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+staffColumns+`
		FROM staff
		WHERE branch_id = $1 AND role = 'WAITER'
		ORDER BY name ASC`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var waiters []Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		waiters = append(waiters, s)
	}
	return waiters, rows.Err()
}

func (q *Queries) ListStaffByBranch(ctx context.Context, branchID uuid.UUID) ([]Staff, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+staffColumns+`
		FROM staff
		WHERE branch_id = $1
		ORDER BY role ASC, name ASC`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		staff = append(staff, s)
	}
	return staff, rows.Err()
}

// IncrementWaiterLoad bumps the active-order counter only while capacity
// remains. Returning pgx.ErrNoRows (no matching row) means the waiter was
// already full; callers treat that as a lost capacity race.
func (q *Queries) IncrementWaiterLoad(ctx context.Context, id uuid.UUID) (Staff, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE staff
		SET active_orders_count = active_orders_count + 1,
		    last_assigned_at = now(),
		    updated_at = now()
		WHERE id = $1 AND active_orders_count < max_capacity
		RETURNING `+staffColumns, id)
	return scanStaff(row)
}

// DecrementWaiterLoad lowers the counter, clamped at zero so duplicate
// release notifications cannot drive it negative.
func (q *Queries) DecrementWaiterLoad(ctx context.Context, id uuid.UUID) (Staff, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE staff
		SET active_orders_count = GREATEST(active_orders_count - 1, 0),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+staffColumns, id)
	return scanStaff(row)
}

type SetStaffAvailabilityParams struct {
	ID          uuid.UUID
	IsAvailable bool
	Reason      string
}

func (q *Queries) SetStaffAvailability(ctx context.Context, arg SetStaffAvailabilityParams) (Staff, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE staff
		SET is_available = $2,
		    availability_reason = NULLIF($3, ''),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+staffColumns, arg.ID, arg.IsAvailable, arg.Reason)
	return scanStaff(row)
}

func (q *Queries) GetBranchUtilization(ctx context.Context, branchID uuid.UUID) (BranchUtilization, error) {
	var u BranchUtilization
	err := q.db.QueryRow(ctx, `
		SELECT $1::uuid,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE is_available AND status = 'ACTIVE' AND active_orders_count < max_capacity),
		       COALESCE(SUM(max_capacity), 0),
		       COALESCE(SUM(active_orders_count), 0)
		FROM staff
		WHERE branch_id = $1 AND role = 'WAITER'`, branchID).
		Scan(&u.BranchID, &u.TotalWaiters, &u.AvailableWaiters, &u.TotalCapacity, &u.UsedCapacity)
	return u, err
}

func (q *Queries) GetWaiterPerformance(ctx context.Context, staffID uuid.UUID) (WaiterPerformance, error) {
	var p WaiterPerformance
	err := q.db.QueryRow(ctx, `
		SELECT s.id,
		       COUNT(h.id) FILTER (WHERE h.action = 'assigned'),
		       COUNT(h.id) FILTER (WHERE h.action = 'assigned' AND h.method = 'round-robin'),
		       COUNT(h.id) FILTER (WHERE h.action = 'assigned' AND h.method = 'load-balancing'),
		       COUNT(h.id) FILTER (WHERE h.action = 'assigned' AND h.method = 'manual'),
		       (SELECT COUNT(*) FROM orders o WHERE o.staff_id = s.id AND o.status = 'COMPLETED'),
		       (SELECT COUNT(*) FROM orders o WHERE o.staff_id = s.id AND o.status = 'CANCELLED'),
		       (SELECT AVG(EXTRACT(EPOCH FROM (o.completed_at - o.assigned_at)) / 60)
		        FROM orders o
		        WHERE o.staff_id = s.id AND o.completed_at IS NOT NULL AND o.assigned_at IS NOT NULL)
		FROM staff s
		LEFT JOIN assignment_history h ON h.staff_id = s.id
		WHERE s.id = $1
		GROUP BY s.id`, staffID).
		Scan(&p.StaffID, &p.TotalAssigned, &p.RoundRobinAssigned, &p.LoadBalanceAssigned,
			&p.ManualAssigned, &p.CompletedOrders, &p.CancelledOrders, &p.AvgHandlingMinutes)
	return p, err
}
