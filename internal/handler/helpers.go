package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/service"
	"github.com/maktabahq/maktaba/internal/store"
	"github.com/maktabahq/maktaba/internal/validate"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope. The reason is one of the
// model.Reason* constants; the message is for humans.
func writeError(w http.ResponseWriter, code int, reason, message string) {
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Reason:  reason,
			Message: message,
		},
	})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeServiceError maps a service-layer error onto an HTTP status and a
// stable reason string. Anything outside the known taxonomy becomes a 500
// with a generic message; internal details stay in the logs, not the body.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *validate.Error
	var fe *service.ForbiddenError

	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, model.ReasonValidation, ve.Message)
	case errors.Is(err, service.ErrMissingCredential):
		writeError(w, http.StatusUnauthorized, model.ReasonUnauthenticated, "Missing API key")
	case errors.Is(err, service.ErrInvalidCredential):
		writeError(w, http.StatusUnauthorized, model.ReasonInvalidCredential, "Invalid API key")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, model.ReasonUnauthenticated, "Invalid credentials")
	case errors.As(err, &fe):
		writeError(w, http.StatusForbidden, model.ReasonForbidden, fe.Message)
	case errors.Is(err, service.ErrNotFound), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, model.ReasonNotFound, "Not found")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, model.ReasonValidation, "Email already registered")
	case errors.Is(err, service.ErrUpstream):
		writeError(w, http.StatusBadGateway, model.ReasonUpstream, "Failed to fetch book from provider")
	default:
		writeError(w, http.StatusInternalServerError, model.ReasonInternal, "Internal server error")
	}
}

// bearerToken extracts the secret from an Authorization: Bearer header.
// Returns an empty string when the header is missing or malformed.
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
