package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dinehub/assignment-api/internal/assignment"
	"github.com/dinehub/assignment-api/internal/database"
	"github.com/dinehub/assignment-api/internal/enum"
)

// HierarchyStore defines the database methods hierarchy endpoints need.
// Satisfied by *database.Queries.
type HierarchyStore interface {
	GetHotel(ctx context.Context, id uuid.UUID) (database.Hotel, error)
	GetBranchHierarchy(ctx context.Context, branchID uuid.UUID) (database.BranchHierarchy, error)
	ListBranchesByHotel(ctx context.Context, hotelID uuid.UUID) ([]database.Branch, error)
	ListStaffByBranch(ctx context.Context, branchID uuid.UUID) ([]database.Staff, error)
}

// HierarchyHandler handles the structural validation and staff-listing
// endpoints.
type HierarchyHandler struct {
	store HierarchyStore
}

func NewHierarchyHandler(store HierarchyStore) *HierarchyHandler {
	return &HierarchyHandler{store: store}
}

// RegisterRoutes registers hierarchy endpoints under /assignment.
func (h *HierarchyHandler) RegisterRoutes(r chi.Router) {
	r.Get("/validate-hierarchy/{hotelId}", h.Validate)
	r.Get("/validate-hierarchy/{hotelId}/{branchId}", h.Validate)
	r.Get("/staff-hierarchy/{hotelId}", h.Staff)
	r.Get("/staff-hierarchy/{hotelId}/{branchId}", h.Staff)
}

// --- Response types ---

type hierarchyCheck struct {
	Check  string `json:"check"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

type validateHierarchyResponse struct {
	HotelID  string           `json:"hotelId"`
	BranchID string           `json:"branchId,omitempty"`
	Valid    bool             `json:"valid"`
	Checks   []hierarchyCheck `json:"checks"`
}

type staffMemberResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	IsAvailable bool   `json:"isAvailable"`
}

type branchStaffResponse struct {
	BranchID   string                `json:"branchId"`
	BranchName string                `json:"branchName"`
	Status     string                `json:"status"`
	Staff      []staffMemberResponse `json:"staff"`
}

type staffHierarchyResponse struct {
	HotelID   string                `json:"hotelId"`
	HotelName string                `json:"hotelName"`
	Status    string                `json:"status"`
	Branches  []branchStaffResponse `json:"branches"`
}

// --- Handlers ---

// Validate handles GET /assignment/validate-hierarchy/{hotelId}[/{branchId}].
// It reports each structural check individually so operators can see what is
// broken, not just that something is.
func (h *HierarchyHandler) Validate(w http.ResponseWriter, r *http.Request) {
	hotelID, err := assignment.ParseHotelID(chi.URLParam(r, "hotelId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hotel ID")
		return
	}

	hotel, err := h.store.GetHotel(r.Context(), hotelID.UUID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "hotel not found")
			return
		}
		writeDomainError(w, err)
		return
	}

	resp := validateHierarchyResponse{HotelID: hotelID.String(), Valid: true}
	resp.Checks = append(resp.Checks, check("hotel is active", hotel.Status == enum.StatusActive,
		"hotel status is "+hotel.Status))
	resp.Checks = append(resp.Checks, check("hotel has an owning admin", hotel.AdminID.Valid,
		"no admin assigned to the hotel"))

	if branchStr := chi.URLParam(r, "branchId"); branchStr != "" {
		branchID, err := assignment.ParseBranchID(branchStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid branch ID")
			return
		}
		resp.BranchID = branchID.String()

		hierarchy, err := h.store.GetBranchHierarchy(r.Context(), branchID.UUID())
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusNotFound, "branch not found")
				return
			}
			writeDomainError(w, err)
			return
		}
		resp.Checks = append(resp.Checks, check("branch belongs to hotel", hierarchy.HotelID == hotelID.UUID(),
			"branch belongs to hotel "+hierarchy.HotelID.String()))
		resp.Checks = append(resp.Checks, check("branch is active", hierarchy.BranchStatus == enum.StatusActive,
			"branch status is "+hierarchy.BranchStatus))
	}

	for _, c := range resp.Checks {
		if !c.Passed {
			resp.Valid = false
			break
		}
	}
	writeSuccess(w, http.StatusOK, "Hierarchy validated", resp)
}

func check(name string, passed bool, failDetail string) hierarchyCheck {
	c := hierarchyCheck{Check: name, Passed: passed}
	if !passed {
		c.Detail = failDetail
	}
	return c
}

// Staff handles GET /assignment/staff-hierarchy/{hotelId}[/{branchId}].
func (h *HierarchyHandler) Staff(w http.ResponseWriter, r *http.Request) {
	hotelID, err := assignment.ParseHotelID(chi.URLParam(r, "hotelId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hotel ID")
		return
	}

	hotel, err := h.store.GetHotel(r.Context(), hotelID.UUID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "hotel not found")
			return
		}
		writeDomainError(w, err)
		return
	}

	branches, err := h.store.ListBranchesByHotel(r.Context(), hotelID.UUID())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Optional branch filter.
	if branchStr := chi.URLParam(r, "branchId"); branchStr != "" {
		branchID, err := assignment.ParseBranchID(branchStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid branch ID")
			return
		}
		filtered := branches[:0]
		for _, branch := range branches {
			if branch.ID == branchID.UUID() {
				filtered = append(filtered, branch)
			}
		}
		if len(filtered) == 0 {
			writeError(w, http.StatusNotFound, "branch not found in this hotel")
			return
		}
		branches = filtered
	}

	resp := staffHierarchyResponse{
		HotelID:   hotel.ID.String(),
		HotelName: hotel.Name,
		Status:    hotel.Status,
		Branches:  make([]branchStaffResponse, 0, len(branches)),
	}
	for _, branch := range branches {
		staff, err := h.store.ListStaffByBranch(r.Context(), branch.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		branchResp := branchStaffResponse{
			BranchID:   branch.ID.String(),
			BranchName: branch.Name,
			Status:     branch.Status,
			Staff:      make([]staffMemberResponse, len(staff)),
		}
		for i, member := range staff {
			branchResp.Staff[i] = staffMemberResponse{
				ID:          member.ID.String(),
				Name:        member.Name,
				Role:        member.Role,
				Status:      member.Status,
				IsAvailable: member.IsAvailable,
			}
		}
		resp.Branches = append(resp.Branches, branchResp)
	}
	writeSuccess(w, http.StatusOK, "Staff hierarchy retrieved", resp)
}
