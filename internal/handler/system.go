package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dinehub/assignment-api/internal/assignment"
	"github.com/dinehub/assignment-api/internal/database"
)

// SystemStore defines the database methods for system-level endpoints.
// Satisfied by *database.Queries.
type SystemStore interface {
	assignment.Store
	ListBranchesByHotel(ctx context.Context, hotelID uuid.UUID) ([]database.Branch, error)
	GetAssignmentMetrics(ctx context.Context, arg database.AssignmentMetricsParams) (database.AssignmentMetrics, error)
	ResetRoundRobinCursor(ctx context.Context, branchID uuid.UUID) (int64, error)
}

// MonitorRunner triggers one synchronous reconciliation sweep.
// Satisfied by *assignment.Monitor.
type MonitorRunner interface {
	RunOnce(ctx context.Context) *assignment.SweepReport
}

// SystemHandler handles stats, health, metrics and operator endpoints.
type SystemHandler struct {
	registry WaiterRegistry
	store    SystemStore
	monitor  MonitorRunner
}

func NewSystemHandler(registry WaiterRegistry, store SystemStore, monitor MonitorRunner) *SystemHandler {
	return &SystemHandler{registry: registry, store: store, monitor: monitor}
}

// RegisterRoutes registers system endpoints under /assignment.
func (h *SystemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.Stats)
	r.Get("/system/health", h.Health)
	r.Get("/system/metrics", h.Metrics)
	r.Post("/system/reset-round-robin", h.ResetRoundRobin)
	r.Post("/system/force-monitoring", h.ForceMonitoring)
}

// --- Request / Response types ---

type branchStats struct {
	BranchID string          `json:"branchId"`
	Capacity capacitySummary `json:"capacity"`
	Queue    queueSummary    `json:"queue"`
}

type statsResponse struct {
	Branches []branchStats `json:"branches"`
}

type healthResponse struct {
	Status    string        `json:"status"`
	CheckedAt time.Time     `json:"checkedAt"`
	Branches  []branchStats `json:"branches"`
	Warnings  []string      `json:"warnings,omitempty"`
}

type metricsResponse struct {
	Period                string  `json:"period"`
	TotalAssignments      int64   `json:"totalAssignments"`
	RoundRobinCount       int64   `json:"roundRobinCount"`
	LoadBalancingCount    int64   `json:"loadBalancingCount"`
	ManualCount           int64   `json:"manualCount"`
	ReassignmentCount     int64   `json:"reassignmentCount"`
	ReleasedCount         int64   `json:"releasedCount"`
	AvgAssignmentDelaySec float64 `json:"avgAssignmentDelaySeconds"`
}

type resetRoundRobinRequest struct {
	BranchID string `json:"branchId"`
}

// --- Handlers ---

// Stats handles GET /assignment/stats. Scope is one branch (branchId param or
// the caller's own) or a whole hotel via hotelId.
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if s := r.URL.Query().Get("hotelId"); s != "" {
		hotelID, err := assignment.ParseHotelID(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid hotel ID")
			return
		}
		branches, err := h.store.ListBranchesByHotel(r.Context(), hotelID.UUID())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := statsResponse{Branches: make([]branchStats, 0, len(branches))}
		for _, branch := range branches {
			stats, err := h.branchStats(r.Context(), assignment.BranchID(branch.ID))
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp.Branches = append(resp.Branches, stats)
		}
		writeSuccess(w, http.StatusOK, "Assignment statistics retrieved", resp)
		return
	}

	branchID, ok := requestBranch(w, r)
	if !ok {
		return
	}
	stats, err := h.branchStats(r.Context(), branchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Assignment statistics retrieved", statsResponse{Branches: []branchStats{stats}})
}

func (h *SystemHandler) branchStats(ctx context.Context, branchID assignment.BranchID) (branchStats, error) {
	utilization, err := h.registry.Utilization(ctx, h.store, branchID)
	if err != nil {
		return branchStats{}, err
	}
	depth, err := h.store.CountQueueByBranch(ctx, branchID.UUID())
	if err != nil {
		return branchStats{}, err
	}
	return branchStats{
		BranchID: branchID.String(),
		Capacity: toCapacitySummary(utilization),
		Queue:    queueSummary{Depth: int(depth)},
	}, nil
}

// Health handles GET /assignment/system/health. Degraded means at least one
// active branch has queued orders and nobody to serve them.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	branches, err := h.store.ListActiveBranches(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := healthResponse{
		Status:    "healthy",
		CheckedAt: time.Now().UTC(),
		Branches:  make([]branchStats, 0, len(branches)),
	}
	for _, branch := range branches {
		stats, err := h.branchStats(r.Context(), assignment.BranchID(branch.ID))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp.Branches = append(resp.Branches, stats)

		if stats.Queue.Depth > 0 && stats.Capacity.AvailableWaiters == 0 {
			resp.Warnings = append(resp.Warnings,
				fmt.Sprintf("branch %s has %d queued orders and no available waiters", branch.Name, stats.Queue.Depth))
		}
	}
	if len(resp.Warnings) > 0 {
		resp.Status = "degraded"
	}
	writeSuccess(w, http.StatusOK, "System health retrieved", resp)
}

// Metrics handles GET /assignment/system/metrics?period=1h|24h|7d.
func (h *SystemHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "24h"
	}

	var window time.Duration
	switch period {
	case "1h":
		window = time.Hour
	case "24h":
		window = 24 * time.Hour
	case "7d":
		window = 7 * 24 * time.Hour
	default:
		writeError(w, http.StatusBadRequest, "validation failed",
			fieldError{Field: "period", Message: "period must be one of 1h, 24h, 7d"})
		return
	}

	metrics, err := h.store.GetAssignmentMetrics(r.Context(), database.AssignmentMetricsParams{
		Since: time.Now().Add(-window),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := metricsResponse{
		Period:             period,
		TotalAssignments:   metrics.TotalAssignments,
		RoundRobinCount:    metrics.RoundRobinCount,
		LoadBalancingCount: metrics.LoadBalancingCount,
		ManualCount:        metrics.ManualCount,
		ReassignmentCount:  metrics.ReassignmentCount,
		ReleasedCount:      metrics.ReleasedCount,
	}
	if metrics.AvgAssignmentDelay.Valid {
		if f, err := metrics.AvgAssignmentDelay.Float64Value(); err == nil && f.Valid {
			resp.AvgAssignmentDelaySec = f.Float64
		}
	}
	writeSuccess(w, http.StatusOK, "Assignment metrics retrieved", resp)
}

// ResetRoundRobin handles POST /assignment/system/reset-round-robin. An empty
// branchId resets every branch's cursor.
func (h *SystemHandler) ResetRoundRobin(w http.ResponseWriter, r *http.Request) {
	var req resetRoundRobinRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	branchID := uuid.Nil
	if req.BranchID != "" {
		parsed, err := assignment.ParseBranchID(req.BranchID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid branch ID")
			return
		}
		branchID = parsed.UUID()
	}

	reset, err := h.store.ResetRoundRobinCursor(r.Context(), branchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Round-robin cursors reset", map[string]int64{"cursorsReset": reset})
}

// ForceMonitoring handles POST /assignment/system/force-monitoring. The sweep
// runs synchronously; an overlapping scheduled cycle is reported, not doubled.
func (h *SystemHandler) ForceMonitoring(w http.ResponseWriter, r *http.Request) {
	report := h.monitor.RunOnce(r.Context())
	if report.Skipped {
		writeSuccess(w, http.StatusOK, "Monitoring cycle already in progress", report)
		return
	}
	writeSuccess(w, http.StatusOK, "Monitoring cycle completed", report)
}
