package assignment

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Monitor is the periodic reconciliation loop: it drains branch queues into
// freed capacity, rescues orphaned paid orders, and republishes utilization.
// One sweep failure in a branch never aborts the other branches.
type Monitor struct {
	engine   *Engine
	store    Store
	registry *Registry

	interval      time.Duration
	sweepTimeout  time.Duration
	orphanTimeout time.Duration

	// Guards against overlapping sweeps; a force-run arriving mid-cycle is
	// skipped rather than double-applied.
	running sync.Mutex

	log zerolog.Logger
}

func NewMonitor(engine *Engine, store Store, registry *Registry, interval, sweepTimeout, orphanTimeout time.Duration, log zerolog.Logger) *Monitor {
	return &Monitor{
		engine:        engine,
		store:         store,
		registry:      registry,
		interval:      interval,
		sweepTimeout:  sweepTimeout,
		orphanTimeout: orphanTimeout,
		log:           log,
	}
}

// BranchSweepResult is one branch's outcome within a sweep.
type BranchSweepResult struct {
	BranchID string `json:"branchId"`
	Assigned int    `json:"assigned"`
	Error    string `json:"error,omitempty"`
}

// SweepReport summarizes one full reconciliation cycle.
type SweepReport struct {
	StartedAt      time.Time           `json:"startedAt"`
	FinishedAt     time.Time           `json:"finishedAt"`
	Skipped        bool                `json:"skipped"`
	Branches       []BranchSweepResult `json:"branches"`
	OrphansRescued int                 `json:"orphansRescued"`
	OrphanErrors   int                 `json:"orphanErrors"`
}

// Run executes sweeps at the configured interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info().Dur("interval", m.interval).Msg("monitoring loop started")
	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("monitoring loop stopped")
			return
		case <-ticker.C:
			report := m.RunOnce(ctx)
			if report.Skipped {
				continue
			}
			m.log.Debug().
				Int("branches", len(report.Branches)).
				Int("orphans_rescued", report.OrphansRescued).
				Msg("sweep finished")
		}
	}
}

// RunOnce executes a single sweep. Re-entrant calls (a forced run during a
// scheduled cycle) are reported as skipped instead of running twice.
func (m *Monitor) RunOnce(ctx context.Context) *SweepReport {
	report := &SweepReport{StartedAt: time.Now().UTC()}

	if !m.running.TryLock() {
		report.Skipped = true
		report.FinishedAt = time.Now().UTC()
		return report
	}
	defer m.running.Unlock()

	report.Branches = m.drainQueuedBranches(ctx)
	report.OrphansRescued, report.OrphanErrors = m.rescueOrphans(ctx)
	m.refreshUtilization(ctx)

	report.FinishedAt = time.Now().UTC()
	return report
}

// drainQueuedBranches runs sweep 1: assign queued orders wherever capacity
// freed up. Each branch gets its own timeout so one stuck branch cannot
// stall the cycle.
func (m *Monitor) drainQueuedBranches(ctx context.Context) []BranchSweepResult {
	branches, err := m.store.ListQueuedBranches(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("list queued branches failed")
		return nil
	}

	results := make([]BranchSweepResult, 0, len(branches))
	for _, branchID := range branches {
		bctx, cancel := context.WithTimeout(ctx, m.sweepTimeout)
		assigned, err := m.engine.DrainQueue(bctx, BranchID(branchID))
		cancel()

		result := BranchSweepResult{BranchID: branchID.String(), Assigned: assigned}
		if err != nil {
			result.Error = err.Error()
			m.log.Error().Err(err).Str("branch_id", branchID.String()).
				Msg("branch queue drain failed")
		}
		results = append(results, result)
	}
	return results
}

// rescueOrphans runs sweep 2: paid orders that are neither assigned nor
// queued past the timeout are resubmitted through the normal path.
func (m *Monitor) rescueOrphans(ctx context.Context) (rescued, failed int) {
	cutoff := time.Now().Add(-m.orphanTimeout)
	orphans, err := m.store.ListOrphanOrders(ctx, cutoff)
	if err != nil {
		m.log.Error().Err(err).Msg("list orphan orders failed")
		return 0, 0
	}

	for _, order := range orphans {
		octx, cancel := context.WithTimeout(ctx, m.sweepTimeout)
		_, err := m.engine.AutomaticAssign(octx, OrderID(order.ID), BranchID(order.BranchID), HotelID(order.HotelID), AssignOptions{
			Reason: "orphan rescue",
		})
		cancel()
		if err != nil {
			failed++
			m.log.Error().Err(err).Str("order_id", order.ID.String()).
				Msg("orphan rescue failed")
			continue
		}
		rescued++
	}

	if len(orphans) > 0 {
		m.log.Warn().Int("found", len(orphans)).Int("rescued", rescued).
			Msg("orphaned paid orders detected")
	}
	return rescued, failed
}

// refreshUtilization runs sweep 3: republish branch utilization so
// dashboards converge even without assignment traffic.
func (m *Monitor) refreshUtilization(ctx context.Context) {
	branches, err := m.store.ListActiveBranches(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("list branches failed")
		return
	}

	for _, branch := range branches {
		u, err := m.registry.Utilization(ctx, m.store, BranchID(branch.ID))
		if err != nil {
			m.log.Error().Err(err).Str("branch_id", branch.ID.String()).
				Msg("utilization refresh failed")
			continue
		}
		depth, err := m.store.CountQueueByBranch(ctx, branch.ID)
		if err != nil {
			continue
		}
		m.engine.publisher.Publish(BranchRoom(branch.ID), EventQueueUpdated, utilizationPayload{
			BranchID:         branch.ID.String(),
			TotalWaiters:     u.TotalWaiters,
			AvailableWaiters: u.AvailableWaiters,
			TotalCapacity:    u.TotalCapacity,
			UsedCapacity:     u.UsedCapacity,
			QueueDepth:       depth,
			UpdatedAt:        time.Now().UTC(),
		})
	}
}

type utilizationPayload struct {
	BranchID         string    `json:"branchId"`
	TotalWaiters     int64     `json:"totalWaiters"`
	AvailableWaiters int64     `json:"availableWaiters"`
	TotalCapacity    int64     `json:"totalCapacity"`
	UsedCapacity     int64     `json:"usedCapacity"`
	QueueDepth       int64     `json:"queueDepth"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
