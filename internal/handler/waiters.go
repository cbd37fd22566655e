package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dinehub/assignment-api/internal/assignment"
	"github.com/dinehub/assignment-api/internal/database"
	"github.com/dinehub/assignment-api/internal/enum"
	"github.com/dinehub/assignment-api/internal/middleware"
)

// WaiterRegistry defines the registry operations waiter handlers need.
// Satisfied by *assignment.Registry; narrow interface for testability.
type WaiterRegistry interface {
	AvailableWaiters(ctx context.Context, store assignment.Store, branchID assignment.BranchID) ([]database.Staff, error)
	SetAvailability(ctx context.Context, store assignment.Store, id assignment.StaffID, isAvailable bool, reason string) (database.Staff, error)
	Utilization(ctx context.Context, store assignment.Store, branchID assignment.BranchID) (database.BranchUtilization, error)
}

// WaiterStore defines the database methods for waiter read endpoints.
type WaiterStore interface {
	assignment.Store
	GetWaiterPerformance(ctx context.Context, staffID uuid.UUID) (database.WaiterPerformance, error)
}

// WaiterHandler handles waiter eligibility, availability and performance
// endpoints.
type WaiterHandler struct {
	registry WaiterRegistry
	store    WaiterStore
}

func NewWaiterHandler(registry WaiterRegistry, store WaiterStore) *WaiterHandler {
	return &WaiterHandler{registry: registry, store: store}
}

// RegisterRoutes registers waiter endpoints under /assignment/waiters.
func (h *WaiterHandler) RegisterRoutes(r chi.Router) {
	r.Get("/available", h.Available)
	r.Put("/{waiterId}/availability", h.SetAvailability)
	r.Get("/{waiterId}/performance", h.Performance)
}

// --- Request / Response types ---

type waiterResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	BranchID          string     `json:"branchId"`
	IsAvailable       bool       `json:"isAvailable"`
	Reason            string     `json:"availabilityReason,omitempty"`
	ActiveOrdersCount int32      `json:"activeOrdersCount"`
	MaxCapacity       int32      `json:"maxCapacity"`
	LastAssignedAt    *time.Time `json:"lastAssignedAt,omitempty"`
}

type capacitySummary struct {
	TotalWaiters     int64   `json:"totalWaiters"`
	AvailableWaiters int64   `json:"availableWaiters"`
	TotalCapacity    int64   `json:"totalCapacity"`
	UsedCapacity     int64   `json:"usedCapacity"`
	UtilizationPct   float64 `json:"utilizationPct"`
}

type availableWaitersResponse struct {
	BranchID string           `json:"branchId"`
	Waiters  []waiterResponse `json:"waiters"`
	Capacity capacitySummary  `json:"capacity"`
}

type setAvailabilityRequest struct {
	IsAvailable *bool  `json:"isAvailable"`
	Reason      string `json:"reason"`
}

type performanceResponse struct {
	WaiterID            string  `json:"waiterId"`
	TotalAssigned       int64   `json:"totalAssigned"`
	RoundRobinAssigned  int64   `json:"roundRobinAssigned"`
	LoadBalanceAssigned int64   `json:"loadBalanceAssigned"`
	ManualAssigned      int64   `json:"manualAssigned"`
	CompletedOrders     int64   `json:"completedOrders"`
	CancelledOrders     int64   `json:"cancelledOrders"`
	AvgHandlingMinutes  float64 `json:"avgHandlingMinutes"`
}

func toWaiterResponse(s database.Staff) waiterResponse {
	resp := waiterResponse{
		ID:                s.ID.String(),
		Name:              s.Name,
		BranchID:          s.BranchID.String(),
		IsAvailable:       s.IsAvailable,
		ActiveOrdersCount: s.ActiveOrdersCount,
		MaxCapacity:       s.MaxCapacity,
	}
	if s.AvailabilityReason.Valid {
		resp.Reason = s.AvailabilityReason.String
	}
	if s.LastAssignedAt.Valid {
		t := s.LastAssignedAt.Time
		resp.LastAssignedAt = &t
	}
	return resp
}

func toCapacitySummary(u database.BranchUtilization) capacitySummary {
	summary := capacitySummary{
		TotalWaiters:     u.TotalWaiters,
		AvailableWaiters: u.AvailableWaiters,
		TotalCapacity:    u.TotalCapacity,
		UsedCapacity:     u.UsedCapacity,
	}
	if u.TotalCapacity > 0 {
		summary.UtilizationPct = float64(u.UsedCapacity) / float64(u.TotalCapacity) * 100
	}
	return summary
}

// --- Handlers ---

// Available handles GET /assignment/waiters/available.
func (h *WaiterHandler) Available(w http.ResponseWriter, r *http.Request) {
	branchID, ok := requestBranch(w, r)
	if !ok {
		return
	}

	waiters, err := h.registry.AvailableWaiters(r.Context(), h.store, branchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utilization, err := h.registry.Utilization(r.Context(), h.store, branchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := availableWaitersResponse{
		BranchID: branchID.String(),
		Waiters:  make([]waiterResponse, len(waiters)),
		Capacity: toCapacitySummary(utilization),
	}
	for i, waiter := range waiters {
		resp.Waiters[i] = toWaiterResponse(waiter)
	}
	writeSuccess(w, http.StatusOK, "Available waiters retrieved", resp)
}

// SetAvailability handles PUT /assignment/waiters/{waiterId}/availability.
func (h *WaiterHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	waiterID, err := assignment.ParseStaffID(chi.URLParam(r, "waiterId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid waiter ID")
		return
	}

	var req setAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IsAvailable == nil {
		writeError(w, http.StatusBadRequest, "validation failed",
			fieldError{Field: "isAvailable", Message: "isAvailable is required"})
		return
	}

	// Waiters may toggle themselves; admins may toggle anyone in scope.
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	switch claims.Role {
	case enum.RoleWaiter:
		if waiterID.UUID() != claims.StaffID {
			writeError(w, http.StatusForbidden, "waiters can only change their own availability")
			return
		}
	case enum.RoleSuperAdmin:
	default:
		target, err := h.store.GetStaff(r.Context(), waiterID.UUID())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if claims.Role == enum.RoleBranchAdmin && target.BranchID != claims.BranchID {
			writeError(w, http.StatusForbidden, "waiter is outside your branch")
			return
		}
		if claims.Role == enum.RoleHotelAdmin && target.HotelID != claims.HotelID {
			writeError(w, http.StatusForbidden, "waiter is outside your hotel")
			return
		}
	}

	updated, err := h.registry.SetAvailability(r.Context(), h.store, waiterID, *req.IsAvailable, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Waiter availability updated", toWaiterResponse(updated))
}

// Performance handles GET /assignment/waiters/{waiterId}/performance.
func (h *WaiterHandler) Performance(w http.ResponseWriter, r *http.Request) {
	waiterID, err := assignment.ParseStaffID(chi.URLParam(r, "waiterId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid waiter ID")
		return
	}

	perf, err := h.store.GetWaiterPerformance(r.Context(), waiterID.UUID())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := performanceResponse{
		WaiterID:            waiterID.String(),
		TotalAssigned:       perf.TotalAssigned,
		RoundRobinAssigned:  perf.RoundRobinAssigned,
		LoadBalanceAssigned: perf.LoadBalanceAssigned,
		ManualAssigned:      perf.ManualAssigned,
		CompletedOrders:     perf.CompletedOrders,
		CancelledOrders:     perf.CancelledOrders,
	}
	if perf.AvgHandlingMinutes.Valid {
		if f, err := perf.AvgHandlingMinutes.Float64Value(); err == nil && f.Valid {
			resp.AvgHandlingMinutes = f.Float64
		}
	}
	writeSuccess(w, http.StatusOK, "Waiter performance retrieved", resp)
}

// requestBranch resolves the branch an endpoint operates on: the explicit
// branchId query parameter when present, the caller's own branch otherwise.
func requestBranch(w http.ResponseWriter, r *http.Request) (assignment.BranchID, bool) {
	if s := r.URL.Query().Get("branchId"); s != "" {
		branchID, err := assignment.ParseBranchID(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid branch ID")
			return assignment.BranchID{}, false
		}
		return branchID, true
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.BranchID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "branchId is required")
		return assignment.BranchID{}, false
	}
	return assignment.BranchID(claims.BranchID), true
}
