package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/dinehub/assignment-api/internal/assignment"
)

// successEnvelope is the shape of every 2xx response.
type successEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// errorEnvelope is the shape of every error response.
type errorEnvelope struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	StatusCode int          `json:"statusCode"`
	Errors     []fieldError `json:"errors,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(successEnvelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string, errs ...fieldError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorEnvelope{Message: message, StatusCode: status, Errors: errs})
}

// writeDomainError maps the assignment error taxonomy onto HTTP statuses.
// Unknown errors are logged and masked as 500s.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assignment.ErrNotFound), errors.Is(err, assignment.ErrNotQueued), errors.Is(err, pgx.ErrNoRows):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, assignment.ErrCapacityExceeded),
		errors.Is(err, assignment.ErrInvalidHierarchy),
		errors.Is(err, assignment.ErrAlreadyAssigned),
		errors.Is(err, assignment.ErrWaiterNotInBranch),
		errors.Is(err, assignment.ErrWaiterIneligible),
		errors.Is(err, assignment.ErrOrderNotPaid),
		errors.Is(err, assignment.ErrOrderTerminal),
		errors.Is(err, assignment.ErrInvalidMethod),
		errors.Is(err, assignment.ErrInvalidPriority):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assignment.ErrNoWaitersAvailable), errors.Is(err, assignment.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg("unhandled error in handler")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
