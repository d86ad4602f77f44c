package server

import (
	"encoding/json"
	"net/http"

	"github.com/ammarkhassawneh/mlops-accidents/internal/middleware"
	"github.com/ammarkhassawneh/mlops-accidents/internal/scoring"
)

type predictionResponse struct {
	ID       int64   `json:"id"`
	Severity float64 `json:"severity"`
}

func (s *Server) handleCreatePrediction(w http.ResponseWriter, r *http.Request) {
	principal := middleware.Principal(r.Context())

	var features scoring.FeatureVector
	if err := json.NewDecoder(r.Body).Decode(&features); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}

	pred, err := s.predictions.Submit(r.Context(), principal, &features)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, predictionResponse{ID: pred.ID, Severity: pred.Severity})
}

func (s *Server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	principal := middleware.Principal(r.Context())

	ownerID, ok := urlID(r, "ownerID")
	if !ok {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid owner id")
		return
	}

	preds, err := s.predictions.ListFor(r.Context(), principal, ownerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, preds)
}
