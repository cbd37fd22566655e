package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dinehub/assignment-api/internal/database"
	"github.com/dinehub/assignment-api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
)

// maxAssignRetries bounds how often a lost capacity race is retried before
// the failure is surfaced.
const maxAssignRetries = 3

// Engine orchestrates order assignment: it validates the hotel → branch →
// staff chain, selects a waiter (or queues the order), persists the decision
// and emits events. Every mutating operation runs in one transaction that
// holds the branch row lock, so assignment is serialized per branch even
// across horizontally scaled instances.
type Engine struct {
	pool      TxBeginner
	store     Store // pool-bound, for read paths
	newStore  NewStore
	registry  *Registry
	queue     *Queue
	publisher Publisher
	log       zerolog.Logger
}

func NewEngine(pool TxBeginner, store Store, newStore NewStore, registry *Registry, queue *Queue, publisher Publisher, log zerolog.Logger) *Engine {
	return &Engine{
		pool:      pool,
		store:     store,
		newStore:  newStore,
		registry:  registry,
		queue:     queue,
		publisher: publisher,
		log:       log,
	}
}

// AssignOptions tunes one automatic assignment call.
type AssignOptions struct {
	Method      string // selection policy; defaults to round-robin
	Priority    string // queue priority if no waiter is eligible; defaults to normal
	Synchronous bool   // demand immediate assignment: fail instead of queueing
	Reason      string // recorded in the assignment history
}

// Outcome is the definitive result of an assignment attempt: either an
// assigned waiter or a queue placement.
type Outcome struct {
	Assigned      bool
	Order         database.Order
	Waiter        *database.Staff
	Method        string
	QueuePosition int
	EstimatedWait time.Duration
}

// Registry exposes the engine's registry for handlers that only need
// eligibility or utilization reads.
func (e *Engine) Registry() *Registry { return e.registry }

// Store exposes the pool-bound store for read-only handler paths.
func (e *Engine) Store() Store { return e.store }

// Queue exposes the engine's queue for handlers that read snapshots.
func (e *Engine) Queue() *Queue { return e.queue }

// AutomaticAssign runs the primary dispatch path for a paid order. The
// outcome is definitive: assigned, queued, or an error. Queueing is the
// expected result when no waiter is eligible, unless the caller demands a
// synchronous assignment.
func (e *Engine) AutomaticAssign(ctx context.Context, orderID OrderID, branchID BranchID, hotelID HotelID, opts AssignOptions) (*Outcome, error) {
	method := opts.Method
	if method == "" {
		method = enum.AssignmentMethodRoundRobin
	}
	if method != enum.AssignmentMethodRoundRobin && method != enum.AssignmentMethodLoadBalancing {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
	priority := opts.Priority
	if priority == "" {
		priority = enum.QueuePriorityNormal
	}
	if !enum.IsValidQueuePriority(priority) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	var lastErr error
	for attempt := 0; attempt < maxAssignRetries; attempt++ {
		outcome, err := e.assignTx(ctx, orderID, branchID, hotelID, method, priority, opts)
		if err == nil {
			e.publishOutcome(outcome)
			return outcome, nil
		}
		if errors.Is(err, errCapacityRace) {
			lastErr = err
			continue
		}
		return nil, err
	}

	e.log.Warn().Str("order_id", orderID.String()).Err(lastErr).
		Msg("assignment retries exhausted")
	return nil, fmt.Errorf("assignment retries exhausted: %w", ErrNoWaitersAvailable)
}

// assignTx is one serialized attempt: hierarchy validation, candidate
// snapshot, selection or queueing, and persistence, all under the branch
// lock.
func (e *Engine) assignTx(ctx context.Context, orderID OrderID, branchID BranchID, hotelID HotelID, method, priority string, opts AssignOptions) (*Outcome, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := e.newStore(tx)

	// Hierarchy must hold before anything mutates; a structurally invalid
	// request never reaches the queue.
	if err := validateHierarchy(ctx, store, branchID, hotelID); err != nil {
		return nil, err
	}

	if err := store.LockBranch(ctx, branchID.UUID()); err != nil {
		return nil, fmt.Errorf("lock branch: %w", err)
	}

	order, err := store.GetOrder(ctx, orderID.UUID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.BranchID != branchID.UUID() {
		return nil, fmt.Errorf("order belongs to branch %s: %w", order.BranchID, ErrInvalidHierarchy)
	}
	if enum.IsTerminalOrderStatus(order.Status) {
		return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, ErrOrderTerminal)
	}
	if order.PaymentStatus != enum.PaymentStatusCompleted {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrOrderNotPaid)
	}
	if order.StaffID.Valid {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrAlreadyAssigned)
	}

	// Payment events can be redelivered; an order already queued keeps its
	// place instead of failing on the unique constraint.
	if entry, err := store.GetQueueEntryByOrder(ctx, orderID.UUID()); err == nil {
		queued, derr := e.queue.describe(ctx, store, entry)
		if derr != nil {
			return nil, derr
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}
		return queuedOutcome(order, queued), nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check queue: %w", err)
	}

	candidates, err := e.registry.AvailableWaiters(ctx, store, branchID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	if len(candidates) == 0 {
		if opts.Synchronous {
			return nil, fmt.Errorf("branch %s: %w", branchID, ErrNoWaitersAvailable)
		}
		queued, err := e.queue.Enqueue(ctx, store, order, priority)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}
		return queuedOutcome(order, queued), nil
	}

	chosen, err := e.selectWaiter(ctx, store, branchID, method, candidates)
	if err != nil {
		return nil, err
	}

	outcome, err := e.persistAssignment(ctx, store, order, chosen, method, opts.Reason, pgtype.UUID{})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return outcome, nil
}

// selectWaiter applies the requested policy; round-robin persists the
// advanced cursor in the same transaction.
func (e *Engine) selectWaiter(ctx context.Context, store Store, branchID BranchID, method string, candidates []database.Staff) (*database.Staff, error) {
	switch method {
	case enum.AssignmentMethodLoadBalancing:
		return SelectLeastLoaded(candidates), nil
	default:
		cursor, err := store.GetRoundRobinCursor(ctx, branchID.UUID())
		if err != nil {
			return nil, fmt.Errorf("get cursor: %w", err)
		}
		chosen, next := SelectRoundRobin(candidates, cursor)
		if chosen == nil {
			return nil, nil
		}
		if err := store.SetRoundRobinCursor(ctx, database.SetRoundRobinCursorParams{
			BranchID: branchID.UUID(),
			Position: next,
		}); err != nil {
			return nil, fmt.Errorf("advance cursor: %w", err)
		}
		return chosen, nil
	}
}

// persistAssignment claims the waiter's slot, writes the order's assignment
// fields and appends to the history, inside the caller's transaction.
func (e *Engine) persistAssignment(ctx context.Context, store Store, order database.Order, waiter *database.Staff, method, reason string, actorID pgtype.UUID) (*Outcome, error) {
	staff, err := e.registry.IncrementLoad(ctx, store, StaffID(waiter.ID))
	if err != nil {
		return nil, err
	}

	updated, err := store.AssignOrder(ctx, database.AssignOrderParams{
		ID:      order.ID,
		StaffID: staff.ID,
		Method:  method,
	})
	if err != nil {
		return nil, fmt.Errorf("assign order: %w", err)
	}

	if reason == "" {
		reason = "automatic assignment"
	}
	if _, err := store.InsertAssignmentHistory(ctx, database.InsertAssignmentHistoryParams{
		OrderID: order.ID,
		StaffID: staff.ID,
		Method:  method,
		Action:  enum.AssignmentActionAssigned,
		Reason:  reason,
		ActorID: actorID,
	}); err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}

	return &Outcome{
		Assigned: true,
		Order:    updated,
		Waiter:   &staff,
		Method:   method,
	}, nil
}

// ManualAssign bypasses policy selection for an authorized override. It
// still validates the hierarchy, branch membership and capacity, and records
// the removal of a previous assignee before claiming the new one.
func (e *Engine) ManualAssign(ctx context.Context, orderID OrderID, waiterID StaffID, reason string, actorID StaffID) (*Outcome, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := e.newStore(tx)

	order, err := store.GetOrder(ctx, orderID.UUID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if enum.IsTerminalOrderStatus(order.Status) {
		return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, ErrOrderTerminal)
	}

	if err := validateHierarchy(ctx, store, BranchID(order.BranchID), HotelID(order.HotelID)); err != nil {
		return nil, err
	}
	if err := store.LockBranch(ctx, order.BranchID); err != nil {
		return nil, fmt.Errorf("lock branch: %w", err)
	}

	waiter, err := store.GetStaff(ctx, waiterID.UUID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("waiter %s: %w", waiterID, ErrNotFound)
		}
		return nil, fmt.Errorf("get waiter: %w", err)
	}
	if waiter.Role != enum.RoleWaiter {
		return nil, fmt.Errorf("staff %s: %w", waiterID, ErrNotFound)
	}
	if waiter.BranchID != order.BranchID {
		return nil, fmt.Errorf("waiter %s: %w", waiterID, ErrWaiterNotInBranch)
	}
	if waiter.Status != enum.StaffStatusActive {
		return nil, fmt.Errorf("waiter %s: %w", waiterID, ErrWaiterIneligible)
	}
	if waiter.ActiveOrdersCount >= waiter.MaxCapacity {
		return nil, &CapacityExceededError{MaxCapacity: waiter.MaxCapacity}
	}

	var previous *database.Staff
	if order.StaffID.Valid {
		prevID := uuid.UUID(order.StaffID.Bytes)
		if prevID == waiterID.UUID() {
			return nil, fmt.Errorf("order %s already assigned to waiter %s: %w", orderID, waiterID, ErrAlreadyAssigned)
		}
		prev, err := e.registry.DecrementLoad(ctx, store, StaffID(prevID))
		if err != nil {
			return nil, err
		}
		previous = &prev
		if _, err := store.InsertAssignmentHistory(ctx, database.InsertAssignmentHistoryParams{
			OrderID: order.ID,
			StaffID: prevID,
			Method:  enum.AssignmentMethodManual,
			Action:  enum.AssignmentActionRemoved,
			Reason:  reason,
			ActorID: actorUUID(actorID),
		}); err != nil {
			return nil, fmt.Errorf("insert removal history: %w", err)
		}
	}

	outcome, err := e.persistAssignment(ctx, store, order, &waiter, enum.AssignmentMethodManual, reason, actorUUID(actorID))
	if err != nil {
		if errors.Is(err, errCapacityRace) {
			return nil, &CapacityExceededError{MaxCapacity: waiter.MaxCapacity}
		}
		return nil, err
	}

	// Manual assignment supersedes any queue placement.
	if _, err := store.RemoveQueueEntry(ctx, order.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("remove queue entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	e.publishOutcome(outcome)
	if previous != nil {
		e.publisher.Publish(StaffRoom(previous.ID), EventOrderStatusUpdated, orderStatusPayload{
			OrderID:   order.ID.String(),
			BranchID:  order.BranchID.String(),
			Status:    "reassigned",
			UpdatedAt: time.Now().UTC(),
		})
	}
	return outcome, nil
}

// ReleaseOnTerminal frees the assignee's load slot when the order lifecycle
// ends, then immediately tries to drain the branch queue into the freed
// capacity. Safe to call more than once per order.
func (e *Engine) ReleaseOnTerminal(ctx context.Context, orderID OrderID, terminalStatus string) error {
	if !enum.IsTerminalOrderStatus(terminalStatus) {
		return fmt.Errorf("status %q is not terminal", terminalStatus)
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := e.newStore(tx)

	order, err := store.GetOrder(ctx, orderID.UUID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		return fmt.Errorf("get order: %w", err)
	}
	if err := store.LockBranch(ctx, order.BranchID); err != nil {
		return fmt.Errorf("lock branch: %w", err)
	}

	alreadyTerminal := enum.IsTerminalOrderStatus(order.Status)
	if _, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:     order.ID,
		Status: terminalStatus,
	}); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	// Double release must not free two slots.
	if !alreadyTerminal && order.StaffID.Valid {
		staffID := uuid.UUID(order.StaffID.Bytes)
		if _, err := e.registry.DecrementLoad(ctx, store, StaffID(staffID)); err != nil {
			return err
		}
		method := enum.AssignmentMethodManual
		if order.AssignmentMethod.Valid {
			method = order.AssignmentMethod.String
		}
		if _, err := store.InsertAssignmentHistory(ctx, database.InsertAssignmentHistoryParams{
			OrderID: order.ID,
			StaffID: staffID,
			Method:  method,
			Action:  enum.AssignmentActionReleased,
			Reason:  "order " + terminalStatus,
		}); err != nil {
			return fmt.Errorf("insert release history: %w", err)
		}
	}

	// A cancelled order may still be sitting in the queue.
	if _, err := store.RemoveQueueEntry(ctx, order.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("remove queue entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	e.publisher.Publish(BranchRoom(order.BranchID), EventOrderStatusUpdated, orderStatusPayload{
		OrderID:   order.ID.String(),
		BranchID:  order.BranchID.String(),
		Status:    terminalStatus,
		UpdatedAt: time.Now().UTC(),
	})

	// Freed capacity drains the queue without waiting for the next
	// monitoring tick.
	if _, err := e.DrainQueue(ctx, BranchID(order.BranchID)); err != nil {
		e.log.Error().Err(err).Str("branch_id", order.BranchID.String()).
			Msg("queue drain after release failed")
	}
	return nil
}

// DrainQueue assigns queued orders to the branch's free capacity until
// either runs out. Returns the number of orders assigned.
func (e *Engine) DrainQueue(ctx context.Context, branchID BranchID) (int, error) {
	assigned := 0
	for {
		outcome, more, err := e.drainOne(ctx, branchID)
		if err != nil {
			return assigned, err
		}
		if outcome != nil {
			e.publishOutcome(outcome)
			assigned++
		}
		if !more {
			return assigned, nil
		}
	}
}

// drainOne pops and assigns at most one queued order. The pop and the
// assignment share a transaction so a crash cannot lose the entry.
func (e *Engine) drainOne(ctx context.Context, branchID BranchID) (*Outcome, bool, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := e.newStore(tx)

	if err := store.LockBranch(ctx, branchID.UUID()); err != nil {
		return nil, false, fmt.Errorf("lock branch: %w", err)
	}

	candidates, err := e.registry.AvailableWaiters(ctx, store, branchID)
	if err != nil {
		return nil, false, fmt.Errorf("list candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, false, nil
	}

	entry, err := store.DequeueNext(ctx, branchID.UUID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("dequeue: %w", err)
	}

	order, err := store.GetOrder(ctx, entry.OrderID)
	if err != nil {
		return nil, false, fmt.Errorf("get queued order: %w", err)
	}
	// Stale entries (order cancelled or assigned since queueing) are simply
	// consumed; the dequeue above already removed them.
	if order.StaffID.Valid || enum.IsTerminalOrderStatus(order.Status) {
		if err := tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("commit tx: %w", err)
		}
		return nil, true, nil
	}

	chosen, err := e.selectWaiter(ctx, store, branchID, enum.AssignmentMethodRoundRobin, candidates)
	if err != nil {
		return nil, false, err
	}

	outcome, err := e.persistAssignment(ctx, store, order, chosen, enum.AssignmentMethodRoundRobin, "assigned from queue", pgtype.UUID{})
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit tx: %w", err)
	}
	return outcome, true, nil
}

// UpdateQueuePriority re-prioritizes a queued order and notifies the branch.
func (e *Engine) UpdateQueuePriority(ctx context.Context, orderID OrderID, priority, reason string) (*QueuedOrder, error) {
	if !enum.IsValidQueuePriority(priority) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	queued, err := e.queue.UpdatePriority(ctx, e.store, orderID, priority)
	if err != nil {
		return nil, err
	}

	e.publisher.Publish(BranchRoom(queued.Entry.BranchID), EventQueueUpdated, queueUpdatedPayload{
		BranchID:  queued.Entry.BranchID.String(),
		OrderID:   queued.Entry.OrderID.String(),
		Position:  queued.Position,
		Priority:  queued.Entry.Priority,
		Reason:    reason,
		UpdatedAt: time.Now().UTC(),
	})
	return queued, nil
}

// Simulation is the dry-run result of the test-assignment endpoint.
type Simulation struct {
	BranchID   BranchID
	Method     string
	Candidates []database.Staff
	Chosen     *database.Staff
	WouldQueue bool
	QueueDepth int64
}

// Simulate runs policy selection against the current registry snapshot
// without persisting anything: no load change, no cursor advance, no queue
// mutation.
func (e *Engine) Simulate(ctx context.Context, branchID BranchID, hotelID HotelID, method string) (*Simulation, error) {
	if method == "" {
		method = enum.AssignmentMethodRoundRobin
	}
	if method != enum.AssignmentMethodRoundRobin && method != enum.AssignmentMethodLoadBalancing {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	if err := validateHierarchy(ctx, e.store, branchID, hotelID); err != nil {
		return nil, err
	}

	candidates, err := e.registry.AvailableWaiters(ctx, e.store, branchID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	sim := &Simulation{BranchID: branchID, Method: method, Candidates: candidates}

	if len(candidates) == 0 {
		sim.WouldQueue = true
		depth, err := e.store.CountQueueByBranch(ctx, branchID.UUID())
		if err != nil {
			return nil, fmt.Errorf("count queue: %w", err)
		}
		sim.QueueDepth = depth
		return sim, nil
	}

	switch method {
	case enum.AssignmentMethodLoadBalancing:
		sim.Chosen = SelectLeastLoaded(candidates)
	default:
		cursor, err := e.store.GetRoundRobinCursor(ctx, branchID.UUID())
		if err != nil {
			return nil, fmt.Errorf("get cursor: %w", err)
		}
		sim.Chosen, _ = SelectRoundRobin(candidates, cursor)
	}
	return sim, nil
}

// validateHierarchy checks the hotel → branch → admin chain. Broken chains
// fail before any state mutation.
func validateHierarchy(ctx context.Context, store Store, branchID BranchID, hotelID HotelID) error {
	h, err := store.GetBranchHierarchy(ctx, branchID.UUID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("branch %s: %w", branchID, ErrNotFound)
		}
		return fmt.Errorf("get hierarchy: %w", err)
	}
	if h.HotelID != hotelID.UUID() {
		return fmt.Errorf("branch %s belongs to hotel %s: %w", branchID, h.HotelID, ErrInvalidHierarchy)
	}
	if !h.HotelAdminID.Valid {
		return fmt.Errorf("hotel %s has no owning admin: %w", hotelID, ErrInvalidHierarchy)
	}
	if h.BranchStatus != enum.StatusActive || h.HotelStatus != enum.StatusActive {
		return fmt.Errorf("hotel or branch suspended: %w", ErrInvalidHierarchy)
	}
	return nil
}

// --- Event payloads ---

type orderAssignedPayload struct {
	OrderID    string    `json:"orderId"`
	BranchID   string    `json:"branchId"`
	HotelID    string    `json:"hotelId"`
	WaiterID   string    `json:"waiterId"`
	WaiterName string    `json:"waiterName"`
	Method     string    `json:"assignmentMethod"`
	AssignedAt time.Time `json:"assignedAt"`
}

type orderStatusPayload struct {
	OrderID   string    `json:"orderId"`
	BranchID  string    `json:"branchId"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type queueUpdatedPayload struct {
	BranchID             string    `json:"branchId"`
	OrderID              string    `json:"orderId,omitempty"`
	Position             int       `json:"position,omitempty"`
	Priority             string    `json:"priority,omitempty"`
	EstimatedWaitSeconds int       `json:"estimatedWaitSeconds,omitempty"`
	Reason               string    `json:"reason,omitempty"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func (e *Engine) publishOutcome(outcome *Outcome) {
	order := outcome.Order
	if outcome.Assigned && outcome.Waiter != nil {
		payload := orderAssignedPayload{
			OrderID:    order.ID.String(),
			BranchID:   order.BranchID.String(),
			HotelID:    order.HotelID.String(),
			WaiterID:   outcome.Waiter.ID.String(),
			WaiterName: outcome.Waiter.Name,
			Method:     outcome.Method,
			AssignedAt: time.Now().UTC(),
		}
		e.publisher.Publish(StaffRoom(outcome.Waiter.ID), EventOrderAssigned, payload)
		e.publisher.Publish(BranchRoom(order.BranchID), EventOrderAssigned, payload)
		e.publisher.Publish(HotelRoom(order.HotelID), EventOrderAssigned, payload)
		if order.CustomerID.Valid {
			e.publisher.Publish(UserRoom(uuid.UUID(order.CustomerID.Bytes)), EventOrderAssigned, payload)
		}
		return
	}

	payload := queueUpdatedPayload{
		BranchID:             order.BranchID.String(),
		OrderID:              order.ID.String(),
		Position:             outcome.QueuePosition,
		EstimatedWaitSeconds: int(outcome.EstimatedWait.Seconds()),
		UpdatedAt:            time.Now().UTC(),
	}
	e.publisher.Publish(BranchRoom(order.BranchID), EventQueueUpdated, payload)
	e.publisher.Publish(HotelRoom(order.HotelID), EventQueueUpdated, payload)
	if order.CustomerID.Valid {
		e.publisher.Publish(UserRoom(uuid.UUID(order.CustomerID.Bytes)), EventQueueUpdated, payload)
	}
}

func actorUUID(id StaffID) pgtype.UUID {
	if id.UUID() == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id.UUID(), Valid: true}
}

func queuedOutcome(order database.Order, queued *QueuedOrder) *Outcome {
	return &Outcome{
		Assigned:      false,
		Order:         order,
		QueuePosition: queued.Position,
		EstimatedWait: queued.EstimatedWait,
	}
}
