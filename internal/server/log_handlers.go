package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ammarkhassawneh/mlops-accidents/internal/db"
)

const defaultLogLimit = 500

func (s *Server) handleRequestLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "validation_error", "limit must be a positive integer")
			return
		}
		limit = n
	}

	logs, err := s.logs.List(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

type testResultRequest struct {
	TestName  string    `json:"test_name"`
	Result    bool      `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleCreateTestResult(w http.ResponseWriter, r *http.Request) {
	var req testResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}
	if req.TestName == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "test_name is required")
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	result := &db.TestResult{TestName: req.TestName, Result: req.Result, Timestamp: req.Timestamp}
	if err := s.testResults.Create(r.Context(), result); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListTestResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.testResults.List(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}
