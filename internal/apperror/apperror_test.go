package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// Every constructor must wrap its sentinel so that handlers can use errors.Is
// through any number of fmt.Errorf("...: %w") layers.
func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{"NotFound wraps ErrNotFound", NotFound("user", "abc123"), ErrNotFound, true},
		{"ValidationFailed wraps ErrValidation", ValidationFailed("email", "email is required"), ErrValidation, true},
		{"Conflict wraps ErrConflict", Conflict("user", "a@b.com"), ErrConflict, true},
		{"Forbidden wraps ErrForbidden", Forbidden("no credits remaining"), ErrForbidden, true},
		{"Unauthorized wraps ErrUnauthorized", Unauthorized("invalid credentials"), ErrUnauthorized, true},
		{"Upstream wraps ErrUpstream", Upstream("chat processing failed", errors.New("boom")), ErrUpstream, true},
		{"RateLimited wraps ErrRateLimited", RateLimited("slow down"), ErrRateLimited, true},
		{"wrapped twice still matches", fmt.Errorf("service: %w", fmt.Errorf("repo: %w", NotFound("user", "x"))), ErrNotFound, true},
		{"NotFound does NOT match ErrValidation", NotFound("user", "abc123"), ErrValidation, false},
		{"Forbidden does NOT match ErrUnauthorized", Forbidden("nope"), ErrUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{"NotFound message includes resource and id", NotFound("user", "abc123"), "user not found with id abc123"},
		{"ValidationFailed uses custom message", ValidationFailed("password", "password too short"), "password too short"},
		{"Conflict message includes key", Conflict("user", "a@b.com"), "user already exists: a@b.com"},
		{"Upstream message includes cause", Upstream("speech synthesis failed", errors.New("503")), "speech synthesis failed: 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := Upstream("chat processing failed", errors.New("timeout"))
	if err.Unwrap() != ErrUpstream {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), ErrUpstream)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")
	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}
