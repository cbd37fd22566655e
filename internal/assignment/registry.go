package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dinehub/assignment-api/internal/database"
	"github.com/dinehub/assignment-api/internal/enum"
	"github.com/jackc/pgx/v5"
)

// Registry is the authoritative view of waiter eligibility and load. All
// load mutations go through the store's conditional updates; the registry
// translates lost races into the engine's error taxonomy. Methods take the
// store explicitly so callers can run them inside their own transactions.
type Registry struct {
	publisher Publisher
}

func NewRegistry(publisher Publisher) *Registry {
	return &Registry{publisher: publisher}
}

// AvailableWaiters returns the branch's eligible candidates: available,
// active, below capacity, in deterministic tie-break order.
func (r *Registry) AvailableWaiters(ctx context.Context, store Store, branchID BranchID) ([]database.Staff, error) {
	return store.ListAvailableWaiters(ctx, branchID.UUID())
}

// IncrementLoad bumps the waiter's active-order count. A lost conditional
// update means the waiter filled up between snapshot and write.
func (r *Registry) IncrementLoad(ctx context.Context, store Store, id StaffID) (database.Staff, error) {
	staff, err := store.IncrementWaiterLoad(ctx, id.UUID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Staff{}, fmt.Errorf("increment load for %s: %w", id, errCapacityRace)
		}
		return database.Staff{}, fmt.Errorf("increment load: %w", err)
	}
	return staff, nil
}

// DecrementLoad frees one slot, clamped at zero.
func (r *Registry) DecrementLoad(ctx context.Context, store Store, id StaffID) (database.Staff, error) {
	staff, err := store.DecrementWaiterLoad(ctx, id.UUID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Staff{}, fmt.Errorf("waiter %s: %w", id, ErrNotFound)
		}
		return database.Staff{}, fmt.Errorf("decrement load: %w", err)
	}
	return staff, nil
}

// SetAvailability toggles the waiter's flag and notifies the waiter's branch
// and the waiter. Load counters are untouched.
func (r *Registry) SetAvailability(ctx context.Context, store Store, id StaffID, isAvailable bool, reason string) (database.Staff, error) {
	staff, err := store.GetStaff(ctx, id.UUID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Staff{}, fmt.Errorf("waiter %s: %w", id, ErrNotFound)
		}
		return database.Staff{}, fmt.Errorf("get staff: %w", err)
	}
	if staff.Role != enum.RoleWaiter {
		return database.Staff{}, fmt.Errorf("staff %s is not a waiter: %w", id, ErrNotFound)
	}

	updated, err := store.SetStaffAvailability(ctx, database.SetStaffAvailabilityParams{
		ID:          id.UUID(),
		IsAvailable: isAvailable,
		Reason:      reason,
	})
	if err != nil {
		return database.Staff{}, fmt.Errorf("set availability: %w", err)
	}

	payload := availabilityChangedPayload{
		WaiterID:    updated.ID.String(),
		BranchID:    updated.BranchID.String(),
		IsAvailable: updated.IsAvailable,
		Reason:      reason,
		ChangedAt:   time.Now().UTC(),
	}
	r.publisher.Publish(StaffRoom(updated.ID), EventWaiterAvailabilityChanged, payload)
	r.publisher.Publish(BranchRoom(updated.BranchID), EventWaiterAvailabilityChanged, payload)

	return updated, nil
}

// Utilization aggregates capacity usage for a branch.
func (r *Registry) Utilization(ctx context.Context, store Store, branchID BranchID) (database.BranchUtilization, error) {
	return store.GetBranchUtilization(ctx, branchID.UUID())
}

type availabilityChangedPayload struct {
	WaiterID    string    `json:"waiterId"`
	BranchID    string    `json:"branchId"`
	IsAvailable bool      `json:"isAvailable"`
	Reason      string    `json:"reason,omitempty"`
	ChangedAt   time.Time `json:"changedAt"`
}
