package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/server/middleware"
	"github.com/maktabahq/maktaba/internal/service"
	"github.com/maktabahq/maktaba/internal/store"
	"github.com/maktabahq/maktaba/internal/validate"
)

// AppHandler manages the owner's registered applications.
type AppHandler struct {
	store  *store.Store
	keySvc *service.KeyService
}

// NewAppHandler creates a new AppHandler.
func NewAppHandler(st *store.Store, keySvc *service.KeyService) *AppHandler {
	return &AppHandler{store: st, keySvc: keySvc}
}

// appRequest is the expected payload for the Create endpoint.
type appRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Libraries   []model.Library `json:"libraries"`
}

// List returns all apps owned by the authenticated developer, newest first.
// GET /api/v1/apps
func (h *AppHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, model.ReasonUnauthenticated, "Authentication required")
		return
	}

	apps, err := h.store.ListAppsByOwner(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewListResponse(apps))
}

// Create registers a new app with its library entitlements.
// POST /api/v1/apps
func (h *AppHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, model.ReasonUnauthenticated, "Authentication required")
		return
	}

	var req appRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ReasonValidation, "Invalid request body")
		return
	}
	if err := validate.AppName(req.Name); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := validate.Libraries(req.Libraries); err != nil {
		writeServiceError(w, err)
		return
	}

	app := &model.App{
		UserID:      principal.UserID,
		Name:        req.Name,
		Description: req.Description,
		Libraries:   req.Libraries,
	}
	if err := h.store.CreateApp(r.Context(), app); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"app": app})
}

// Get returns one app. Apps belonging to other owners are indistinguishable
// from missing ones.
// GET /api/v1/apps/{appID}
func (h *AppHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, model.ReasonUnauthenticated, "Authentication required")
		return
	}

	app, err := h.store.GetAppForOwner(r.Context(), principal.UserID, chi.URLParam(r, "appID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"app": app})
}

// Delete removes an app after revoking every key issued under it. Key
// revocation at the credential store must succeed before the metadata goes;
// a partial failure leaves the app intact and revocable again.
// DELETE /api/v1/apps/{appID}
func (h *AppHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, model.ReasonUnauthenticated, "Authentication required")
		return
	}
	appID := chi.URLParam(r, "appID")

	app, err := h.store.GetAppForOwner(r.Context(), principal.UserID, appID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	keys, err := h.store.ListAPIKeysByApp(r.Context(), app.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	for _, key := range keys {
		if err := h.keySvc.Revoke(r.Context(), principal.UserID, key.ID); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	if err := h.store.DeleteAppForOwner(r.Context(), principal.UserID, app.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
