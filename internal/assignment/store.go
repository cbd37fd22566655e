package assignment

import (
	"context"
	"time"

	"github.com/dinehub/assignment-api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store defines the DB methods the assignment subsystem needs.
// Satisfied by *database.Queries (and its WithTx variant).
type Store interface {
	// Hierarchy
	GetBranchHierarchy(ctx context.Context, branchID uuid.UUID) (database.BranchHierarchy, error)
	LockBranch(ctx context.Context, branchID uuid.UUID) error
	ListActiveBranches(ctx context.Context) ([]database.Branch, error)

	// Orders
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	AssignOrder(ctx context.Context, arg database.AssignOrderParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	InsertAssignmentHistory(ctx context.Context, arg database.InsertAssignmentHistoryParams) (database.AssignmentHistory, error)
	ListOrphanOrders(ctx context.Context, cutoff time.Time) ([]database.Order, error)

	// Waiters
	GetStaff(ctx context.Context, id uuid.UUID) (database.Staff, error)
	ListAvailableWaiters(ctx context.Context, branchID uuid.UUID) ([]database.Staff, error)
	IncrementWaiterLoad(ctx context.Context, id uuid.UUID) (database.Staff, error)
	DecrementWaiterLoad(ctx context.Context, id uuid.UUID) (database.Staff, error)
	SetStaffAvailability(ctx context.Context, arg database.SetStaffAvailabilityParams) (database.Staff, error)
	GetBranchUtilization(ctx context.Context, branchID uuid.UUID) (database.BranchUtilization, error)

	// Round-robin cursor
	GetRoundRobinCursor(ctx context.Context, branchID uuid.UUID) (int32, error)
	SetRoundRobinCursor(ctx context.Context, arg database.SetRoundRobinCursorParams) error

	// Queue
	EnqueueOrder(ctx context.Context, arg database.EnqueueOrderParams) (database.QueueEntry, error)
	GetQueueEntryByOrder(ctx context.Context, orderID uuid.UUID) (database.QueueEntry, error)
	DequeueNext(ctx context.Context, branchID uuid.UUID) (database.QueueEntry, error)
	UpdateQueuePriority(ctx context.Context, arg database.UpdateQueuePriorityParams) (database.QueueEntry, error)
	RemoveQueueEntry(ctx context.Context, orderID uuid.UUID) (database.QueueEntry, error)
	CountQueueByBranch(ctx context.Context, branchID uuid.UUID) (int64, error)
	QueuePosition(ctx context.Context, entryID uuid.UUID) (int, error)
	ListQueueByBranch(ctx context.Context, branchID uuid.UUID) ([]database.QueueEntry, error)
	ListQueuedBranches(ctx context.Context) ([]uuid.UUID, error)
}

// NewStore creates a Store from a DBTX (pool or tx), so the engine can bind
// store instances to its transactions.
type NewStore func(db database.DBTX) Store
