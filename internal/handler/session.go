package handler

import (
	"net/http"

	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/service"
)

// SessionHandler manages developer accounts and dashboard sessions.
type SessionHandler struct {
	authSvc *service.AuthService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(authSvc *service.AuthService) *SessionHandler {
	return &SessionHandler{authSvc: authSvc}
}

// signupRequest is the expected payload for the Signup endpoint.
type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// loginRequest is the expected payload for the Login endpoint.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is the response payload for a successful login.
type sessionResponse struct {
	Token     string      `json:"session_token"`
	TokenType string      `json:"token_type"`
	ExpiresIn int         `json:"expires_in"`
	User      *model.User `json:"user"`
}

// Signup registers a new developer account.
// POST /api/v1/auth/signup
func (h *SessionHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ReasonValidation, "Invalid request body")
		return
	}

	user, err := h.authSvc.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

// Login authenticates a developer and returns a session token.
// POST /api/v1/auth/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ReasonValidation, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, model.ReasonValidation, "Email and password are required")
		return
	}

	token, user, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(h.authSvc.SessionTTL().Seconds()),
		User:      user,
	})
}

// Logout ends the current session. Sessions are stateless JWTs, so this is
// a server-side no-op; clients discard their token.
// DELETE /api/v1/auth/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
