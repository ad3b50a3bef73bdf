package validate

import (
	"strings"
	"testing"

	"github.com/maktabahq/maktaba/internal/model"
)

func TestAppName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"valid", "My App", ""},
		{"empty", "", "App name is required"},
		{"whitespace only", "   ", "App name is required"},
		{"max length ok", strings.Repeat("a", 100), ""},
		{"too long", strings.Repeat("a", 101), "App name must be less than 100 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AppName(tt.input)
			checkValidation(t, err, tt.wantErr)
		})
	}
}

func TestAPIKeyName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"valid", "CI pipeline", ""},
		{"empty", "", "API key name is required"},
		{"whitespace only", "\t ", "API key name is required"},
		{"max length ok", strings.Repeat("k", 50), ""},
		{"too long", strings.Repeat("k", 51), "API key name must be less than 50 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := APIKeyName(tt.input)
			checkValidation(t, err, tt.wantErr)
		})
	}
}

func TestLibraries(t *testing.T) {
	tests := []struct {
		name    string
		input   []model.Library
		wantErr string
	}{
		{"single valid", []model.Library{model.LibraryShamela}, ""},
		{"all valid", model.AllLibraries(), ""},
		{"nil", nil, "At least one library must be selected"},
		{"empty", []model.Library{}, "At least one library must be selected"},
		{"unknown tag", []model.Library{"example.com"}, "Invalid library: example.com"},
		{"mixed", []model.Library{model.LibraryTurath, "bogus"}, "Invalid library: bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Libraries(tt.input)
			checkValidation(t, err, tt.wantErr)
		})
	}
}

func TestBookID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"alphanumeric", "book123", ""},
		{"with hyphen and underscore", "sahih_bukhari-1", ""},
		{"empty", "", "Book ID is required"},
		{"whitespace", "  ", "Book ID is required"},
		{"slash", "a/b", "Book ID can only contain letters, numbers, hyphens, and underscores"},
		{"space inside", "a b", "Book ID can only contain letters, numbers, hyphens, and underscores"},
		{"unicode", "كتاب", "Book ID can only contain letters, numbers, hyphens, and underscores"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := BookID(tt.input)
			checkValidation(t, err, tt.wantErr)
		})
	}
}

func TestEmail(t *testing.T) {
	valid := []string{"a@b.co", "dev+tag@example.com", "x.y@sub.domain.org"}
	for _, email := range valid {
		if err := Email(email); err != nil {
			t.Errorf("Email(%q) unexpected error: %v", email, err)
		}
	}

	invalid := []string{"", "plain", "a@b", "a b@c.com", "@example.com"}
	for _, email := range invalid {
		if err := Email(email); err == nil {
			t.Errorf("Email(%q) expected error", email)
		}
	}
}

func TestPassword(t *testing.T) {
	if err := Password("secret"); err != nil {
		t.Errorf("Password(6 chars) unexpected error: %v", err)
	}
	err := Password("short")
	checkValidation(t, err, "Password must be at least 6 characters")
}

// checkValidation asserts that err matches wantErr ("" = no error) and that
// validation failures are *Error values with the exact message.
func checkValidation(t *testing.T, err error, wantErr string) {
	t.Helper()
	if wantErr == "" {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}
	if err == nil {
		t.Fatalf("expected error %q, got nil", wantErr)
	}
	ve, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *validate.Error, got %T", err)
	}
	if ve.Message != wantErr {
		t.Errorf("message = %q, want %q", ve.Message, wantErr)
	}
}
