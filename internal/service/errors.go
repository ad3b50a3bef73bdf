package service

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the service-level error taxonomy. Handlers map
// these onto HTTP statuses and stable reason strings; everything that is
// not one of these is an internal error.
var (
	ErrMissingCredential  = errors.New("missing credential")
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrInvalidCredentials = errors.New("invalid credentials") // email/password login
	ErrEmailTaken         = errors.New("email already registered")
	ErrNotFound           = errors.New("not found")
	ErrUpstream           = errors.New("upstream error")
)

// ForbiddenError is returned when a credential is valid but not entitled to
// the requested library. It is distinct from ErrInvalidCredential: the
// caller proved who they are, they just can't have this.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

// Forbiddenf builds a ForbiddenError with a formatted client-facing message.
func Forbiddenf(format string, args ...any) error {
	return &ForbiddenError{Message: fmt.Sprintf(format, args...)}
}
