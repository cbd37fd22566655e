package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dinehub/assignment-api/internal/assignment"
	"github.com/dinehub/assignment-api/internal/enum"
)

// QueueReader defines the queue operations the read endpoint needs.
// Satisfied by *assignment.Queue.
type QueueReader interface {
	Snapshot(ctx context.Context, store assignment.Store, branchID assignment.BranchID) ([]assignment.QueuedOrder, error)
}

// Prioritizer defines the engine operation for re-prioritizing an entry.
// Satisfied by *assignment.Engine.
type Prioritizer interface {
	UpdateQueuePriority(ctx context.Context, orderID assignment.OrderID, priority, reason string) (*assignment.QueuedOrder, error)
}

// QueueHandler handles assignment queue endpoints.
type QueueHandler struct {
	queue  QueueReader
	engine Prioritizer
	store  assignment.Store
}

func NewQueueHandler(queue QueueReader, engine Prioritizer, store assignment.Store) *QueueHandler {
	return &QueueHandler{queue: queue, engine: engine, store: store}
}

// RegisterRoutes registers queue endpoints under /assignment/queue.
func (h *QueueHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Put("/{orderId}/priority", h.UpdatePriority)
}

// --- Request / Response types ---

type queueEntryResponse struct {
	OrderID          string    `json:"orderId"`
	Priority         string    `json:"priority"`
	Position         int       `json:"position"`
	EstimatedWaitSec int       `json:"estimatedWaitSeconds"`
	QueuedAt         time.Time `json:"queuedAt"`
}

type queueListResponse struct {
	BranchID string               `json:"branchId"`
	Entries  []queueEntryResponse `json:"entries"`
	Summary  queueSummary         `json:"summary"`
}

type queueSummary struct {
	Depth        int `json:"depth"`
	HighPriority int `json:"highPriority"`
}

type updatePriorityRequest struct {
	Priority string `json:"priority"`
	Reason   string `json:"reason"`
}

func toQueueEntryResponse(q assignment.QueuedOrder) queueEntryResponse {
	return queueEntryResponse{
		OrderID:          q.Entry.OrderID.String(),
		Priority:         q.Entry.Priority,
		Position:         q.Position,
		EstimatedWaitSec: int(q.EstimatedWait.Seconds()),
		QueuedAt:         q.Entry.QueuedAt,
	}
}

// --- Handlers ---

// List handles GET /assignment/queue.
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, ok := requestBranch(w, r)
	if !ok {
		return
	}

	snapshot, err := h.queue.Snapshot(r.Context(), h.store, branchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := queueListResponse{
		BranchID: branchID.String(),
		Entries:  make([]queueEntryResponse, len(snapshot)),
	}
	for i, entry := range snapshot {
		resp.Entries[i] = toQueueEntryResponse(entry)
		if entry.Entry.Priority == enum.QueuePriorityHigh {
			resp.Summary.HighPriority++
		}
	}
	resp.Summary.Depth = len(snapshot)
	writeSuccess(w, http.StatusOK, "Assignment queue retrieved", resp)
}

// UpdatePriority handles PUT /assignment/queue/{orderId}/priority.
func (h *QueueHandler) UpdatePriority(w http.ResponseWriter, r *http.Request) {
	orderID, err := assignment.ParseOrderID(chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updatePriorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Priority == "" {
		writeError(w, http.StatusBadRequest, "validation failed",
			fieldError{Field: "priority", Message: "priority is required"})
		return
	}

	queued, err := h.engine.UpdateQueuePriority(r.Context(), orderID, req.Priority, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Queue priority updated", toQueueEntryResponse(*queued))
}
