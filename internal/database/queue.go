package database

import (
	"context"

	"github.com/google/uuid"
)

const queueColumns = `id, order_id, branch_id, priority, queued_at`

// Queue ordering everywhere: high priority first, then FIFO within a band.
const queueOrder = `CASE WHEN priority = 'high' THEN 0 ELSE 1 END, queued_at ASC, id ASC`

func scanQueueEntry(row interface{ Scan(...any) error }) (QueueEntry, error) {
	var e QueueEntry
	err := row.Scan(&e.ID, &e.OrderID, &e.BranchID, &e.Priority, &e.QueuedAt)
	return e, err
}

type EnqueueOrderParams struct {
	OrderID  uuid.UUID
	BranchID uuid.UUID
	Priority string
}

func (q *Queries) EnqueueOrder(ctx context.Context, arg EnqueueOrderParams) (QueueEntry, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO assignment_queue (order_id, branch_id, priority)
		VALUES ($1, $2, $3)
		RETURNING `+queueColumns, arg.OrderID, arg.BranchID, arg.Priority)
	return scanQueueEntry(row)
}

func (q *Queries) GetQueueEntryByOrder(ctx context.Context, orderID uuid.UUID) (QueueEntry, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+queueColumns+` FROM assignment_queue WHERE order_id = $1`, orderID)
	return scanQueueEntry(row)
}

// DequeueNext pops the branch's highest-priority, oldest entry. SKIP LOCKED
// keeps two engine instances from draining the same entry.
func (q *Queries) DequeueNext(ctx context.Context, branchID uuid.UUID) (QueueEntry, error) {
	row := q.db.QueryRow(ctx, `
		DELETE FROM assignment_queue
		WHERE id = (
			SELECT id FROM assignment_queue
			WHERE branch_id = $1
			ORDER BY `+queueOrder+`
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+queueColumns, branchID)
	return scanQueueEntry(row)
}

type UpdateQueuePriorityParams struct {
	OrderID  uuid.UUID
	Priority string
}

func (q *Queries) UpdateQueuePriority(ctx context.Context, arg UpdateQueuePriorityParams) (QueueEntry, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE assignment_queue
		SET priority = $2
		WHERE order_id = $1
		RETURNING `+queueColumns, arg.OrderID, arg.Priority)
	return scanQueueEntry(row)
}

func (q *Queries) RemoveQueueEntry(ctx context.Context, orderID uuid.UUID) (QueueEntry, error) {
	row := q.db.QueryRow(ctx, `
		DELETE FROM assignment_queue WHERE order_id = $1
		RETURNING `+queueColumns, orderID)
	return scanQueueEntry(row)
}

func (q *Queries) CountQueueByBranch(ctx context.Context, branchID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM assignment_queue WHERE branch_id = $1`, branchID).Scan(&count)
	return count, err
}

// QueuePosition computes the 1-based position an entry holds within its
// branch's priority+FIFO ordering.
func (q *Queries) QueuePosition(ctx context.Context, entryID uuid.UUID) (int, error) {
	var position int
	err := q.db.QueryRow(ctx, `
		WITH ranked AS (
			SELECT id, ROW_NUMBER() OVER (ORDER BY `+queueOrder+`) AS pos
			FROM assignment_queue
			WHERE branch_id = (SELECT branch_id FROM assignment_queue WHERE id = $1)
		)
		SELECT pos FROM ranked WHERE id = $1`, entryID).Scan(&position)
	return position, err
}

func (q *Queries) ListQueueByBranch(ctx context.Context, branchID uuid.UUID) ([]QueueEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+queueColumns+`
		FROM assignment_queue
		WHERE branch_id = $1
		ORDER BY `+queueOrder, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []QueueEntry
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListQueuedBranches returns the distinct branches that currently hold
// queued orders, for the monitoring sweep.
func (q *Queries) ListQueuedBranches(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `SELECT DISTINCT branch_id FROM assignment_queue`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		branches = append(branches, id)
	}
	return branches, rows.Err()
}
