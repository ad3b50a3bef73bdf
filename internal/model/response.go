package model

// Stable machine-readable reason strings used in error envelopes. Clients
// branch on these, not on the human-readable message.
const (
	ReasonUnauthenticated   = "unauthenticated"
	ReasonInvalidCredential = "invalid_credential"
	ReasonForbidden         = "forbidden"
	ReasonNotFound          = "not_found"
	ReasonValidation        = "validation_error"
	ReasonUpstream          = "upstream_error"
	ReasonInternal          = "internal"
)

// ListResponse is the standard envelope for list endpoints.
type ListResponse[T any] struct {
	Resource []T `json:"resource"`
	Count    int `json:"count"`
}

// NewListResponse wraps items in a list envelope, normalizing nil to an
// empty array so the JSON output is always `[]`, never `null`.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Resource: items, Count: len(items)}
}

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}
