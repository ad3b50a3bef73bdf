package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/maktabahq/maktaba/internal/service"
)

type contextKeyAuth string

// AuthPrincipalKey is the context key for the authenticated principal.
const AuthPrincipalKey contextKeyAuth = "auth_principal"

// Principal is the authenticated developer identity behind a request to
// the management API. Gateway requests never carry a Principal; their
// credential is resolved against the credential store instead.
type Principal struct {
	UserID string
	Email  string
}

// Authenticate returns an HTTP middleware that validates the session
// token in the Authorization header. On success a Principal is attached
// to the request context; on failure a 401 JSON error is returned.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, "Authentication required. Provide a Bearer session token.")
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")

			sp, err := authSvc.ValidateSession(r.Context(), token)
			if err != nil {
				writeAuthError(w, "Invalid or expired session")
				return
			}

			principal := &Principal{UserID: sp.UserID, Email: sp.Email}
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	// Manually construct JSON to avoid import cycle with handler package
	w.Write([]byte(`{"error":{"code":` + strconv.Itoa(http.StatusUnauthorized) +
		`,"reason":"unauthenticated","message":"` + message + `"}}`))
}
