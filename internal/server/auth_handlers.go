package server

import (
	"encoding/json"
	"net/http"
)

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	ReadRights  string `json:"read_rights"`
	WriteRights string `json:"write_rights"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}

	user, err := s.users.Register(r.Context(), req.Name, req.Email, req.Password, req.ReadRights, req.WriteRights)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// handleLogin accepts form-encoded username/password and answers with a
// bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid form body")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "username and password are required")
		return
	}

	token, _, err := s.users.Authenticate(r.Context(), username, password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}
