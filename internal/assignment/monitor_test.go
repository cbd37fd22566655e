package assignment

import (
	"context"
	"testing"
	"time"

	"github.com/dinehub/assignment-api/internal/database"
	"github.com/dinehub/assignment-api/internal/enum"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// monitorStore extends the world-backed store with the sweep-only queries.
func monitorStore(w *world) *mockStore {
	store := newWorldStore(w)
	store.listActiveBranchesFn = func(ctx context.Context) ([]database.Branch, error) {
		return []database.Branch{{
			ID:      w.hierarchy.BranchID,
			HotelID: w.hierarchy.HotelID,
			Name:    w.hierarchy.BranchName,
			Status:  w.hierarchy.BranchStatus,
		}}, nil
	}
	store.getBranchUtilizationFn = func(ctx context.Context, branchID uuid.UUID) (database.BranchUtilization, error) {
		u := database.BranchUtilization{BranchID: branchID}
		for _, s := range w.waiters {
			u.TotalWaiters++
			if s.IsAvailable {
				u.AvailableWaiters++
			}
			u.TotalCapacity += int64(s.MaxCapacity)
			u.UsedCapacity += int64(s.ActiveOrdersCount)
		}
		return u, nil
	}
	store.listOrphanOrdersFn = func(ctx context.Context, cutoff time.Time) ([]database.Order, error) {
		var out []database.Order
		for _, o := range w.orders {
			if o.PaymentStatus != enum.PaymentStatusCompleted || o.StaffID.Valid || enum.IsTerminalOrderStatus(o.Status) {
				continue
			}
			queued := false
			for _, e := range w.queue {
				if e.OrderID == o.ID {
					queued = true
					break
				}
			}
			if queued {
				continue
			}
			out = append(out, *o)
		}
		return out, nil
	}
	return store
}

func newTestMonitor(w *world, store Store, pub Publisher) (*Monitor, *Engine) {
	engine := newTestEngine(store, pub)
	m := NewMonitor(engine, store, engine.Registry(), time.Minute, 5*time.Second, 2*time.Minute, zerolog.Nop())
	return m, engine
}

func TestMonitorDrainsQueuedBranches(t *testing.T) {
	w := newWorld()
	order := w.addPaidOrder()
	store := monitorStore(w)
	m, engine := newTestMonitor(w, store, NopPublisher{})

	// Order queues while the branch has no capacity.
	if _, err := engine.AutomaticAssign(context.Background(), OrderID(order.ID), w.branchID(), w.hotelID(), AssignOptions{}); err != nil {
		t.Fatalf("queue order: %v", err)
	}
	waiter := w.addWaiter("Alice", 0, 5)

	report := m.RunOnce(context.Background())
	if report.Skipped {
		t.Fatal("sweep should not be skipped")
	}
	if len(report.Branches) != 1 {
		t.Fatalf("branch results = %d, want 1", len(report.Branches))
	}
	if report.Branches[0].Assigned != 1 {
		t.Errorf("assigned = %d, want 1", report.Branches[0].Assigned)
	}
	if !order.StaffID.Valid || uuid.UUID(order.StaffID.Bytes) != waiter.ID {
		t.Error("queued order should be assigned during the sweep")
	}
	if len(w.queue) != 0 {
		t.Error("queue should be empty after the sweep")
	}
}

func TestMonitorRescuesOrphanedOrders(t *testing.T) {
	w := newWorld()
	w.addWaiter("Alice", 0, 5)
	orphan := w.addPaidOrder()
	store := monitorStore(w)
	m, _ := newTestMonitor(w, store, NopPublisher{})

	report := m.RunOnce(context.Background())
	if report.OrphansRescued != 1 {
		t.Fatalf("orphans rescued = %d, want 1", report.OrphansRescued)
	}
	if !orphan.StaffID.Valid {
		t.Error("orphaned order should be assigned after rescue")
	}
}

func TestMonitorOrphanFailureDoesNotAbortSweep(t *testing.T) {
	w := newWorld()
	w.addPaidOrder()
	w.addPaidOrder()
	store := monitorStore(w)

	// No waiters at all: every rescue attempt queues, which counts as success.
	m, _ := newTestMonitor(w, store, NopPublisher{})

	report := m.RunOnce(context.Background())
	if report.OrphansRescued != 2 {
		t.Fatalf("orphans rescued = %d, want 2 (queued counts as handled)", report.OrphansRescued)
	}
	if len(w.queue) != 2 {
		t.Errorf("queue depth = %d, want 2", len(w.queue))
	}
}

func TestMonitorConcurrentRunIsSkipped(t *testing.T) {
	w := newWorld()
	store := monitorStore(w)
	m, _ := newTestMonitor(w, store, NopPublisher{})

	m.running.Lock()
	report := m.RunOnce(context.Background())
	m.running.Unlock()

	if !report.Skipped {
		t.Fatal("overlapping sweep must be reported as skipped")
	}

	report = m.RunOnce(context.Background())
	if report.Skipped {
		t.Fatal("sweep after the lock is released must run")
	}
}

func TestMonitorPublishesUtilization(t *testing.T) {
	w := newWorld()
	w.addWaiter("Alice", 2, 5)
	store := monitorStore(w)
	pub := &mockPublisher{}
	m, _ := newTestMonitor(w, store, pub)

	m.RunOnce(context.Background())

	if !pub.has(BranchRoom(w.hierarchy.BranchID), EventQueueUpdated) {
		t.Error("expected a utilization event on the branch room")
	}
}
