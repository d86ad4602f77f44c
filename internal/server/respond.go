package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ammarkhassawneh/mlops-accidents/internal/middleware"
	"github.com/ammarkhassawneh/mlops-accidents/internal/repository"
	"github.com/ammarkhassawneh/mlops-accidents/internal/scoring"
	"github.com/ammarkhassawneh/mlops-accidents/internal/service"
)

// ErrorResponse is the JSON shape of every error answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// respondServiceError maps the error taxonomy onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, service.ErrBadCredentials):
		respondError(w, http.StatusUnauthorized, "bad_credentials", err.Error())
	case errors.Is(err, service.ErrInsufficientPermission):
		respondError(w, http.StatusForbidden, middleware.ReasonInsufficientPermission, err.Error())
	case errors.Is(err, repository.ErrDuplicateIdentity):
		respondError(w, http.StatusConflict, "duplicate_identity", err.Error())
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, repository.ErrOwnedRecords):
		respondError(w, http.StatusConflict, "owned_records", err.Error())
	case errors.Is(err, scoring.ErrUnavailable):
		respondError(w, http.StatusGatewayTimeout, "upstream_unavailable", "scoring service did not answer in time")
	case errors.Is(err, scoring.ErrUpstream):
		respondError(w, http.StatusInternalServerError, "upstream_error", "scoring service failed")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "storage_error", "internal error")
	}
}
