package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, hotel_id, branch_id, customer_id, status, payment_status,
	total_amount, staff_id, assignment_method, assigned_at, paid_at,
	completed_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.HotelID, &o.BranchID, &o.CustomerID, &o.Status,
		&o.PaymentStatus, &o.TotalAmount, &o.StaffID, &o.AssignmentMethod,
		&o.AssignedAt, &o.PaidAt, &o.CompletedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

type AssignOrderParams struct {
	ID      uuid.UUID
	StaffID uuid.UUID
	Method  string
}

func (q *Queries) AssignOrder(ctx context.Context, arg AssignOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET staff_id = $2,
		    assignment_method = $3,
		    assigned_at = now(),
		    status = CASE WHEN status = 'PENDING' THEN 'CONFIRMED' ELSE status END,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, arg.ID, arg.StaffID, arg.Method)
	return scanOrder(row)
}

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2,
		    completed_at = CASE WHEN $2 IN ('COMPLETED', 'CANCELLED') THEN now() ELSE completed_at END,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, arg.ID, arg.Status)
	return scanOrder(row)
}

type InsertAssignmentHistoryParams struct {
	OrderID uuid.UUID
	StaffID uuid.UUID
	Method  string
	Action  string
	Reason  string
	ActorID pgtype.UUID // invalid means system-initiated
}

func (q *Queries) InsertAssignmentHistory(ctx context.Context, arg InsertAssignmentHistoryParams) (AssignmentHistory, error) {
	var h AssignmentHistory
	err := q.db.QueryRow(ctx, `
		INSERT INTO assignment_history (order_id, staff_id, method, action, reason, actor_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id, order_id, staff_id, method, action, reason, actor_id, created_at`,
		arg.OrderID, arg.StaffID, arg.Method, arg.Action, arg.Reason, arg.ActorID).
		Scan(&h.ID, &h.OrderID, &h.StaffID, &h.Method, &h.Action, &h.Reason, &h.ActorID, &h.CreatedAt)
	return h, err
}

func (q *Queries) ListAssignmentHistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]AssignmentHistory, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, staff_id, method, action, reason, actor_id, created_at
		FROM assignment_history
		WHERE order_id = $1
		ORDER BY created_at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []AssignmentHistory
	for rows.Next() {
		var h AssignmentHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.StaffID, &h.Method, &h.Action,
			&h.Reason, &h.ActorID, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// ListOrphanOrders finds paid orders that neither carry an assignee nor sit
// in the queue past the cutoff. These indicate a lost payment event.
func (q *Queries) ListOrphanOrders(ctx context.Context, cutoff time.Time) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.payment_status = 'COMPLETED'
		  AND o.staff_id IS NULL
		  AND o.status NOT IN ('COMPLETED', 'CANCELLED')
		  AND o.paid_at < $1
		  AND NOT EXISTS (SELECT 1 FROM assignment_queue aq WHERE aq.order_id = o.id)
		ORDER BY o.paid_at ASC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type AssignmentMetricsParams struct {
	Since time.Time
}

func (q *Queries) GetAssignmentMetrics(ctx context.Context, arg AssignmentMetricsParams) (AssignmentMetrics, error) {
	var m AssignmentMetrics
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE h.action = 'assigned'),
		       COUNT(*) FILTER (WHERE h.action = 'assigned' AND h.method = 'round-robin'),
		       COUNT(*) FILTER (WHERE h.action = 'assigned' AND h.method = 'load-balancing'),
		       COUNT(*) FILTER (WHERE h.action = 'assigned' AND h.method = 'manual'),
		       COUNT(*) FILTER (WHERE h.action = 'removed'),
		       COUNT(*) FILTER (WHERE h.action = 'released'),
		       (SELECT AVG(EXTRACT(EPOCH FROM (o.assigned_at - o.paid_at)))
		        FROM orders o
		        WHERE o.assigned_at IS NOT NULL AND o.paid_at IS NOT NULL AND o.paid_at >= $1)
		FROM assignment_history h
		WHERE h.created_at >= $1`, arg.Since).
		Scan(&m.TotalAssignments, &m.RoundRobinCount, &m.LoadBalancingCount,
			&m.ManualCount, &m.ReassignmentCount, &m.ReleasedCount, &m.AvgAssignmentDelay)
	return m, err
}
