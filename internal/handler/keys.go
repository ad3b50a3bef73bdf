package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/server/middleware"
	"github.com/maktabahq/maktaba/internal/service"
)

// KeyHandler manages API key issuance and revocation for the dashboard.
type KeyHandler struct {
	svc *service.KeyService
}

// NewKeyHandler creates a new KeyHandler.
func NewKeyHandler(svc *service.KeyService) *KeyHandler {
	return &KeyHandler{svc: svc}
}

// createKeyRequest is the expected payload for the Create endpoint.
type createKeyRequest struct {
	AppID     string     `json:"app_id"`
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// List returns key metadata across all of the owner's apps, newest first.
// The secrets themselves are never listable.
// GET /api/v1/api-keys
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, model.ReasonUnauthenticated, "Authentication required")
		return
	}

	keys, err := h.svc.List(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewListResponse(keys))
}

// Create issues a new API key under one of the owner's apps. The response
// carries the raw secret exactly once; it is not retrievable afterwards.
// POST /api/v1/api-keys
func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, model.ReasonUnauthenticated, "Authentication required")
		return
	}

	var req createKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ReasonValidation, "Invalid request body")
		return
	}

	key, secret, err := h.svc.Issue(r.Context(), principal.UserID, req.AppID, req.Name, req.ExpiresAt)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"api_key": key,
		"key":     secret,
	})
}

// Get returns one key's metadata, owner-scoped.
// GET /api/v1/api-keys/{keyID}
func (h *KeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, model.ReasonUnauthenticated, "Authentication required")
		return
	}

	key, err := h.svc.Get(r.Context(), principal.UserID, chi.URLParam(r, "keyID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"api_key": key})
}

// Delete revokes a key at the credential store and removes its metadata.
// DELETE /api/v1/api-keys/{keyID}
func (h *KeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, model.ReasonUnauthenticated, "Authentication required")
		return
	}

	if err := h.svc.Revoke(r.Context(), principal.UserID, chi.URLParam(r, "keyID")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
