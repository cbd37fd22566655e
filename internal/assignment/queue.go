package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dinehub/assignment-api/internal/database"
	"github.com/jackc/pgx/v5"
)

// Queue holds orders that could not be assigned immediately. Entries live in
// the database so queue order survives restarts; this type owns the
// priority+FIFO semantics, depth ceiling, and wait estimation.
type Queue struct {
	maxDepth    int
	avgHandling time.Duration
}

func NewQueue(maxDepth, avgHandlingMinutes int) *Queue {
	return &Queue{
		maxDepth:    maxDepth,
		avgHandling: time.Duration(avgHandlingMinutes) * time.Minute,
	}
}

// QueuedOrder is a queue entry with its derived position and wait estimate.
type QueuedOrder struct {
	Entry         database.QueueEntry
	Position      int
	EstimatedWait time.Duration
}

// Enqueue inserts the order into its branch's queue. Orders already carrying
// an assignee are rejected; a full branch queue fails with ErrQueueFull.
func (q *Queue) Enqueue(ctx context.Context, store Store, order database.Order, priority string) (*QueuedOrder, error) {
	if order.StaffID.Valid {
		return nil, ErrAlreadyAssigned
	}

	depth, err := store.CountQueueByBranch(ctx, order.BranchID)
	if err != nil {
		return nil, fmt.Errorf("count queue: %w", err)
	}
	if depth >= int64(q.maxDepth) {
		return nil, fmt.Errorf("branch %s queue depth %d: %w", order.BranchID, depth, ErrQueueFull)
	}

	entry, err := store.EnqueueOrder(ctx, database.EnqueueOrderParams{
		OrderID:  order.ID,
		BranchID: order.BranchID,
		Priority: priority,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue order: %w", err)
	}

	return q.describe(ctx, store, entry)
}

// DequeueNext pops the branch's highest-priority, oldest entry.
func (q *Queue) DequeueNext(ctx context.Context, store Store, branchID BranchID) (database.QueueEntry, error) {
	entry, err := store.DequeueNext(ctx, branchID.UUID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.QueueEntry{}, ErrNotQueued
		}
		return database.QueueEntry{}, fmt.Errorf("dequeue: %w", err)
	}
	return entry, nil
}

// UpdatePriority moves the entry between priority bands; its position is
// recomputed from the new ordering.
func (q *Queue) UpdatePriority(ctx context.Context, store Store, orderID OrderID, priority string) (*QueuedOrder, error) {
	entry, err := store.UpdateQueuePriority(ctx, database.UpdateQueuePriorityParams{
		OrderID:  orderID.UUID(),
		Priority: priority,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrNotQueued)
		}
		return nil, fmt.Errorf("update priority: %w", err)
	}
	return q.describe(ctx, store, entry)
}

// Remove drops the entry, for orders cancelled while still queued.
func (q *Queue) Remove(ctx context.Context, store Store, orderID OrderID) (database.QueueEntry, error) {
	entry, err := store.RemoveQueueEntry(ctx, orderID.UUID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.QueueEntry{}, fmt.Errorf("order %s: %w", orderID, ErrNotQueued)
		}
		return database.QueueEntry{}, fmt.Errorf("remove queue entry: %w", err)
	}
	return entry, nil
}

// Snapshot lists a branch's queue in drain order with derived positions.
func (q *Queue) Snapshot(ctx context.Context, store Store, branchID BranchID) ([]QueuedOrder, error) {
	entries, err := store.ListQueueByBranch(ctx, branchID.UUID())
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}

	snapshot := make([]QueuedOrder, len(entries))
	for i, entry := range entries {
		snapshot[i] = QueuedOrder{
			Entry:         entry,
			Position:      i + 1,
			EstimatedWait: q.estimateWait(i + 1),
		}
	}
	return snapshot, nil
}

func (q *Queue) describe(ctx context.Context, store Store, entry database.QueueEntry) (*QueuedOrder, error) {
	position, err := store.QueuePosition(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("queue position: %w", err)
	}
	return &QueuedOrder{
		Entry:         entry,
		Position:      position,
		EstimatedWait: q.estimateWait(position),
	}, nil
}

func (q *Queue) estimateWait(position int) time.Duration {
	return time.Duration(position) * q.avgHandling
}
