package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/maktabahq/maktaba/internal/credstore"
)

// RateLimit returns an HTTP middleware that limits requests per IP address
// to the specified number per minute. Uses a sliding window algorithm.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}

// RateLimitByCredential returns an HTTP middleware that limits gateway
// requests per API key to the specified number per minute. Only the
// non-sensitive key prefix is used as the bucket key; requests without a
// credential fall back to per-IP buckets and are rejected later by the
// gateway itself.
func RateLimitByCredential(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			auth := r.Header.Get("Authorization")
			if secret, ok := strings.CutPrefix(auth, "Bearer "); ok && secret != "" {
				return credstore.Prefix(secret), nil
			}
			return httprate.KeyByIP(r)
		}),
	)
}
