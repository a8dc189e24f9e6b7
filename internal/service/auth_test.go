package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/accessai/internal/apperror"
	"github.com/sakif/accessai/internal/auth"
	"github.com/sakif/accessai/internal/events"
)

// =========================================================================
// Signup
// =========================================================================

func TestSignup_CreatesUserAndToken(t *testing.T) {
	s := newTestServices(t)

	result, err := s.auth.Signup(context.Background(), "  Ada@Example.COM ", "secret1")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if result.User.Email != "ada@example.com" {
		t.Errorf("Email = %q, want lower-cased and trimmed", result.User.Email)
	}
	if result.User.Points != 0 || result.User.Level != 1 {
		t.Errorf("progress = %d points / level %d, want 0 / 1", result.User.Points, result.User.Level)
	}
	if result.User.PasswordHash == "" || result.User.PasswordHash == "secret1" {
		t.Error("password must be stored hashed")
	}

	v := s.tokens.Verify(result.Token)
	if v.Status != auth.StatusValid || v.Claims.UserID != result.User.ID {
		t.Errorf("token verification = %+v, want valid for %s", v, result.User.ID)
	}

	if got := s.pub.types(); len(got) != 1 || got[0] != events.TypeUserSignedUp {
		t.Errorf("events = %v, want one %s", got, events.TypeUserSignedUp)
	}
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		wantField string
	}{
		{"missing email", "", "secret1", "email"},
		{"not an address", "not-an-email", "secret1", "email"},
		{"no dot in domain", "a@localhost", "secret1", "email"},
		{"display name form", "Ada <ada@example.com>", "secret1", "email"},
		{"missing password", "a@b.co", "", "password"},
		{"short password", "a@b.co", "12345", "password"},
		{"password over 72 bytes", "a@b.co", strings.Repeat("x", 73), "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServices(t)
			_, err := s.auth.Signup(context.Background(), tt.email, tt.password)

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Signup() error = %v, want validation error", err)
			}
			if appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}

func TestSignup_PasswordByteLimit(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"minimum length", "secret", false},
		{"72 bytes of three-byte runes", strings.Repeat("密", auth.MaxPasswordBytes/3), false},
		{"75 bytes of three-byte runes", strings.Repeat("密", auth.MaxPasswordBytes/3+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServices(t)
			_, err := s.auth.Signup(context.Background(), "ada@example.com", tt.password)
			if tt.wantErr {
				if !errors.Is(err, apperror.ErrValidation) {
					t.Fatalf("Signup() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Signup() error = %v", err)
			}
			if _, err := s.auth.Login(context.Background(), "ada@example.com", tt.password); err != nil {
				t.Errorf("Login() error = %v", err)
			}
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	s := newTestServices(t)
	if _, err := s.auth.Signup(context.Background(), "dup@example.com", "secret1"); err != nil {
		t.Fatalf("first Signup() error = %v", err)
	}

	_, err := s.auth.Signup(context.Background(), "DUP@example.com", "secret2")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second Signup() error = %v, want conflict", err)
	}
}

func TestSignup_RepositoryError(t *testing.T) {
	s := newTestServices(t)
	s.repo.createErr = errors.New("database is on fire")

	_, err := s.auth.Signup(context.Background(), "a@b.co", "secret1")
	if err == nil || errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Signup() error = %v, want wrapped storage error", err)
	}
}

// =========================================================================
// Login
// =========================================================================

func TestLogin(t *testing.T) {
	s := newTestServices(t)
	signup, err := s.auth.Signup(context.Background(), "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	t.Run("correct password", func(t *testing.T) {
		result, err := s.auth.Login(context.Background(), "ADA@example.com", "secret1")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if result.User.ID != signup.User.ID || result.Token == "" {
			t.Errorf("Login() = %+v", result)
		}
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		_, wrong := s.auth.Login(context.Background(), "ada@example.com", "nope!!")
		_, unknown := s.auth.Login(context.Background(), "who@example.com", "secret1")
		if !errors.Is(wrong, apperror.ErrUnauthorized) || !errors.Is(unknown, apperror.ErrUnauthorized) {
			t.Fatalf("errors = %v / %v, want unauthorized", wrong, unknown)
		}
		if wrong.Error() != unknown.Error() {
			t.Errorf("messages differ: %q vs %q", wrong, unknown)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		if _, err := s.auth.Login(context.Background(), "", "secret1"); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("missing email error = %v", err)
		}
		if _, err := s.auth.Login(context.Background(), "ada@example.com", ""); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("missing password error = %v", err)
		}
	})
}

func TestLogin_GitHubAccountHasNoPassword(t *testing.T) {
	s := newTestServices(t)
	if _, err := s.auth.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "octo", Email: "octo@github.com"}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err := s.auth.Login(context.Background(), "octo@github.com", "anything")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want unauthorized", err)
	}
}

// =========================================================================
// Profile
// =========================================================================

func TestProfile(t *testing.T) {
	s := newTestServices(t)
	id := s.repo.seed("ada@example.com", 150, 2, "first_chat")

	user, err := s.auth.Profile(context.Background(), id)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if user.Points != 150 || user.Level != 2 || len(user.Achievements) != 1 {
		t.Errorf("Profile() = %+v", user)
	}

	if _, err := s.auth.Profile(context.Background(), "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown user error = %v, want not found", err)
	}
	if _, err := s.auth.Profile(context.Background(), ""); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("empty ID error = %v, want unauthorized", err)
	}
}

// =========================================================================
// LoginOrRegisterGitHub
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	s := newTestServices(t)

	result, err := s.auth.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 42, Login: "octocat", Email: "OctoCat@GitHub.com",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.User.ID == "" || result.Token == "" {
		t.Fatalf("LoginOrRegisterGitHub() = %+v", result)
	}
	if result.User.Email != "octocat@github.com" {
		t.Errorf("Email = %q", result.User.Email)
	}
	if got := s.pub.types(); len(got) != 1 || got[0] != events.TypeUserSignedUp {
		t.Errorf("events = %v, want one signup", got)
	}
}

func TestLoginOrRegisterGitHub_RepeatLoginKeepsAccount(t *testing.T) {
	s := newTestServices(t)
	gh := &auth.GitHubUser{ID: 99, Login: "octo", Email: "octo@github.com"}

	first, err := s.auth.LoginOrRegisterGitHub(context.Background(), gh)
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := s.auth.LoginOrRegisterGitHub(context.Background(), gh)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if first.User.ID != second.User.ID {
		t.Errorf("IDs differ: %q vs %q", first.User.ID, second.User.ID)
	}
	if got := s.pub.types(); len(got) != 1 {
		t.Errorf("events = %v, want a single signup", got)
	}
}

func TestLoginOrRegisterGitHub_LinksPasswordAccount(t *testing.T) {
	s := newTestServices(t)
	signup, err := s.auth.Signup(context.Background(), "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	result, err := s.auth.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 7, Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.User.ID != signup.User.ID {
		t.Errorf("ID = %q, want linked account %q", result.User.ID, signup.User.ID)
	}
}

func TestLoginOrRegisterGitHub_InvalidInput(t *testing.T) {
	s := newTestServices(t)

	if _, err := s.auth.LoginOrRegisterGitHub(context.Background(), nil); err == nil {
		t.Error("nil GitHub user should fail")
	}
	_, err := s.auth.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "hidden"})
	if !errors.Is(err, auth.ErrNoVerifiedEmail) {
		t.Errorf("missing email error = %v, want ErrNoVerifiedEmail", err)
	}
}
