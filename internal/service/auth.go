// Package service holds the gateway's business rules. Handlers translate HTTP
// into calls on these services; services talk to storage through the
// repository interfaces and never see an http.Request.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/accessai/internal/apperror"
	"github.com/sakif/accessai/internal/auth"
	"github.com/sakif/accessai/internal/events"
	"github.com/sakif/accessai/internal/model"
	"github.com/sakif/accessai/internal/repository"
)

// MinPasswordLength is the shortest password Signup accepts.
const MinPasswordLength = 6

// ErrInvalidCredentials is returned by Login for an unknown email and for a
// wrong password alike.
var ErrInvalidCredentials = apperror.Unauthorized("invalid email or password")

type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	publisher events.Publisher
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	publisher events.Publisher,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		publisher: publisher,
		logger:    logger,
	}
}

// AuthResult bundles the account and its freshly issued token.
type AuthResult struct {
	User  *model.User
	Token string
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperror.ValidationFailed("email", "email is not a valid address")
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || !strings.Contains(email[at+1:], ".") {
		return apperror.ValidationFailed("email", "email is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	switch {
	case password == "":
		return apperror.ValidationFailed("password", "password is required")
	case len(password) < MinPasswordLength:
		return apperror.ValidationFailed("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	case len(password) > auth.MaxPasswordBytes:
		return apperror.ValidationFailed("password", fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes))
	}
	return nil
}

// Signup creates an account with zero points at the starting level and
// returns it together with a session token.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Points:       0,
		Level:        model.StartingLevel,
		Achievements: []string{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user signed up", slog.String("userID", user.ID))
	s.publisher.Publish(ctx, events.New(events.TypeUserSignedUp, user.ID, map[string]any{
		"method": "password",
	}))

	return &AuthResult{User: user, Token: token}, nil
}

// Login checks the password and issues a token. Unknown accounts and wrong
// passwords produce the same error so callers cannot probe for emails.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Debug("login rejected: unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Debug("login rejected: password mismatch", slog.String("userID", user.ID))
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// Profile returns the account behind a verified token.
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("missing user identity")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}
	return user, nil
}

// LoginOrRegisterGitHub links a GitHub identity to an account (creating one on
// first sign-in) and issues a token for it.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, errors.New("service/auth: GitHub user must not be nil")
	}
	email := NormalizeEmail(gh.Email)
	if email == "" {
		return nil, auth.ErrNoVerifiedEmail
	}

	githubID := gh.ID
	user := &model.User{
		Email:        email,
		GitHubID:     &githubID,
		Level:        model.StartingLevel,
		Achievements: []string{},
	}
	created, err := s.users.UpsertGitHub(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", gh.ID, err)
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", gh.Login),
	)
	if created {
		s.publisher.Publish(ctx, events.New(events.TypeUserSignedUp, user.ID, map[string]any{
			"method": "github",
		}))
	}
	return &AuthResult{User: user, Token: token}, nil
}
