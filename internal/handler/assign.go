package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dinehub/assignment-api/internal/assignment"
	"github.com/dinehub/assignment-api/internal/middleware"
)

// Assigner defines the engine operations the assignment handlers need.
// Satisfied by *assignment.Engine; narrow interface for testability.
type Assigner interface {
	ManualAssign(ctx context.Context, orderID assignment.OrderID, waiterID assignment.StaffID, reason string, actorID assignment.StaffID) (*assignment.Outcome, error)
	Simulate(ctx context.Context, branchID assignment.BranchID, hotelID assignment.HotelID, method string) (*assignment.Simulation, error)
}

// AssignHandler handles the manual-override and dry-run endpoints.
type AssignHandler struct {
	engine Assigner
}

func NewAssignHandler(engine Assigner) *AssignHandler {
	return &AssignHandler{engine: engine}
}

// RegisterRoutes registers assignment endpoints under /assignment.
func (h *AssignHandler) RegisterRoutes(r chi.Router) {
	r.Post("/manual-assign", h.ManualAssign)
	r.Post("/test-assignment", h.TestAssignment)
}

// --- Request / Response types ---

type manualAssignRequest struct {
	OrderID  string `json:"orderId"`
	WaiterID string `json:"waiterId"`
	Reason   string `json:"reason"`
}

type assignmentResponse struct {
	OrderID          string          `json:"orderId"`
	BranchID         string          `json:"branchId"`
	Status           string          `json:"status"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	AssignmentMethod string          `json:"assignmentMethod,omitempty"`
	Waiter           *waiterResponse `json:"waiter,omitempty"`
	QueuePosition    int             `json:"queuePosition,omitempty"`
	EstimatedWaitSec int             `json:"estimatedWaitSeconds,omitempty"`
	AssignedAt       *time.Time      `json:"assignedAt,omitempty"`
}

type testAssignmentRequest struct {
	BranchID string `json:"branchId"`
	HotelID  string `json:"hotelId"`
	Method   string `json:"method"`
}

type testAssignmentResponse struct {
	BranchID   string           `json:"branchId"`
	Method     string           `json:"method"`
	Candidates []waiterResponse `json:"candidates"`
	Chosen     *waiterResponse  `json:"chosen,omitempty"`
	WouldQueue bool             `json:"wouldQueue"`
	QueueDepth int64            `json:"queueDepth,omitempty"`
}

func toAssignmentResponse(outcome *assignment.Outcome) assignmentResponse {
	resp := assignmentResponse{
		OrderID:  outcome.Order.ID.String(),
		BranchID: outcome.Order.BranchID.String(),
		Status:   outcome.Order.Status,
	}
	if outcome.Order.TotalAmount.Valid && outcome.Order.TotalAmount.Int != nil {
		resp.TotalAmount = decimal.NewFromBigInt(outcome.Order.TotalAmount.Int, outcome.Order.TotalAmount.Exp)
	}
	if outcome.Assigned {
		resp.AssignmentMethod = outcome.Method
		if outcome.Waiter != nil {
			waiter := toWaiterResponse(*outcome.Waiter)
			resp.Waiter = &waiter
		}
		if outcome.Order.AssignedAt.Valid {
			t := outcome.Order.AssignedAt.Time
			resp.AssignedAt = &t
		}
		return resp
	}
	resp.Status = "queued"
	resp.QueuePosition = outcome.QueuePosition
	resp.EstimatedWaitSec = int(outcome.EstimatedWait.Seconds())
	return resp
}

// --- Handlers ---

// ManualAssign handles POST /assignment/manual-assign.
func (h *AssignHandler) ManualAssign(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req manualAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var errs []fieldError
	orderID, err := assignment.ParseOrderID(req.OrderID)
	if err != nil {
		errs = append(errs, fieldError{Field: "orderId", Message: "a valid orderId is required"})
	}
	waiterID, err := assignment.ParseStaffID(req.WaiterID)
	if err != nil {
		errs = append(errs, fieldError{Field: "waiterId", Message: "a valid waiterId is required"})
	}
	if len(errs) > 0 {
		writeError(w, http.StatusBadRequest, "validation failed", errs...)
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "manual assignment"
	}

	outcome, err := h.engine.ManualAssign(r.Context(), orderID, waiterID, reason, assignment.StaffID(claims.StaffID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Order assigned successfully", toAssignmentResponse(outcome))
}

// TestAssignment handles POST /assignment/test-assignment. It runs the
// selection policy against live data without mutating anything.
func (h *AssignHandler) TestAssignment(w http.ResponseWriter, r *http.Request) {
	var req testAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	branchID, err := assignment.ParseBranchID(req.BranchID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation failed",
			fieldError{Field: "branchId", Message: "a valid branchId is required"})
		return
	}
	hotelID, err := assignment.ParseHotelID(req.HotelID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation failed",
			fieldError{Field: "hotelId", Message: "a valid hotelId is required"})
		return
	}

	sim, err := h.engine.Simulate(r.Context(), branchID, hotelID, req.Method)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := testAssignmentResponse{
		BranchID:   sim.BranchID.String(),
		Method:     sim.Method,
		Candidates: make([]waiterResponse, len(sim.Candidates)),
		WouldQueue: sim.WouldQueue,
		QueueDepth: sim.QueueDepth,
	}
	for i, candidate := range sim.Candidates {
		resp.Candidates[i] = toWaiterResponse(candidate)
	}
	if sim.Chosen != nil {
		chosen := toWaiterResponse(*sim.Chosen)
		resp.Chosen = &chosen
	}
	writeSuccess(w, http.StatusOK, "Assignment simulation completed", resp)
}
