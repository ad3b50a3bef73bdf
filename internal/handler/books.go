package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/service"
)

// GatewayHandler serves the public book gateway: the endpoint API key
// holders call. It carries no session auth; the key in the Authorization
// header is the credential.
type GatewayHandler struct {
	svc *service.GatewayService
}

// NewGatewayHandler creates a new GatewayHandler.
func NewGatewayHandler(svc *service.GatewayService) *GatewayHandler {
	return &GatewayHandler{svc: svc}
}

// GetBook proxies a book lookup to the provider named by the query
// parameter, after the key's entitlements have been checked.
// GET /v1/books/{bookID}?provider={library}
func (h *GatewayHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	secret := bearerToken(r)
	providerTag := r.URL.Query().Get("provider")
	bookID := chi.URLParam(r, "bookID")

	book, err := h.svc.FetchBook(r.Context(), secret, providerTag, bookID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"book": book})
}

// libraryResource is one entry in the ListLibraries response.
type libraryResource struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// ListLibraries returns the registered providers and their display
// metadata. Public; useful for key holders discovering valid provider tags.
// GET /v1/libraries
func (h *GatewayHandler) ListLibraries(w http.ResponseWriter, r *http.Request) {
	libs := h.svc.Libraries()
	resources := make([]libraryResource, 0, len(libs))
	for _, lib := range libs {
		info := lib.Info()
		resources = append(resources, libraryResource{
			ID:          string(lib),
			Label:       info.Label,
			Description: info.Description,
			URL:         info.URL,
		})
	}
	writeJSON(w, http.StatusOK, model.NewListResponse(resources))
}
