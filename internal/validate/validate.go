// Package validate holds the pure input validators shared by the HTTP
// handlers, services, and CLI. Validators are deterministic and never touch
// the store or the network; the returned messages are the exact strings
// surfaced to API clients.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/maktabahq/maktaba/internal/model"
)

var (
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	bookIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// Error is a validation failure. The message is client-facing.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func fail(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// AppName checks the display name of an app: required, at most 100 chars.
func AppName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fail("App name is required")
	}
	if len(name) > 100 {
		return fail("App name must be less than 100 characters")
	}
	return nil
}

// APIKeyName checks the display name of an API key: required, at most 50 chars.
func APIKeyName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fail("API key name is required")
	}
	if len(name) > 50 {
		return fail("API key name must be less than 50 characters")
	}
	return nil
}

// Libraries checks an app's library selection: non-empty, all tags known.
func Libraries(libraries []model.Library) error {
	if len(libraries) == 0 {
		return fail("At least one library must be selected")
	}
	for _, lib := range libraries {
		if _, err := model.ParseLibrary(string(lib)); err != nil {
			return fail("Invalid library: %s", lib)
		}
	}
	return nil
}

// BookID checks a provider book identifier: required, URL-safe charset only.
func BookID(bookID string) error {
	if strings.TrimSpace(bookID) == "" {
		return fail("Book ID is required")
	}
	if !bookIDRe.MatchString(bookID) {
		return fail("Book ID can only contain letters, numbers, hyphens, and underscores")
	}
	return nil
}

// Email checks an address shape. Deliberately loose; deliverability is not
// our problem.
func Email(email string) error {
	if !emailRe.MatchString(email) {
		return fail("Invalid email address")
	}
	return nil
}

// Password enforces the minimum password length.
func Password(password string) error {
	if len(password) < 6 {
		return fail("Password must be at least 6 characters")
	}
	return nil
}
