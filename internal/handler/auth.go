// Package handler holds the HTTP handlers. Handlers parse requests, call a
// service and shape the response; business rules live in package service.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/accessai/internal/auth"
	"github.com/sakif/accessai/internal/model"
	"github.com/sakif/accessai/internal/service"
)

const stateCookie = "oauth_state"

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// AuthHandler serves signup, login, profile and GitHub sign-in.
type AuthHandler struct {
	responder
	accounts    *service.AuthService
	github      *auth.GitHubProvider
	frontendURL string
	secure      bool
}

// NewAuthHandler creates an AuthHandler. github may be nil when GitHub
// sign-in is not configured.
func NewAuthHandler(
	accounts *service.AuthService,
	github *auth.GitHubProvider,
	frontendURL string,
	production bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		responder:   responder{logger: logger, exposeDetail: !production},
		accounts:    accounts,
		github:      github,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		secure:      production,
	}
}

// HandleSignup creates an account.
//
// HTTP: POST /signup {email, password} → 201 {token, user}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.accounts.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{Token: result.Token, User: result.User.Public()})
}

// HandleLogin exchanges credentials for a token.
//
// HTTP: POST /login {email, password} → 200 {token, user}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_credentials",
				Message: service.ErrInvalidCredentials.Message,
			})
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Token: result.Token, User: result.User.Public()})
}

// HandleProfile returns the caller's account.
//
// HTTP: GET /profile (auth required) → 200 {user}
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.accounts.Profile(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
// A random state is kept in a short-lived cookie and checked on callback.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow and hands the token to the
// frontend in the URL fragment, which browsers never send to servers.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || q.Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid OAuth state",
			Field:   "state",
		})
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		h.redirectFrontend(w, r, "error="+url.QueryEscape(errParam))
		return
	}

	code := q.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "missing OAuth code",
			Field:   "code",
		})
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		h.redirectFrontend(w, r, "error=authentication_failed")
		return
	}

	result, err := h.accounts.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		h.redirectFrontend(w, r, "error=authentication_failed")
		return
	}

	h.redirectFrontend(w, r, "token="+url.QueryEscape(result.Token))
}

func (h *AuthHandler) redirectFrontend(w http.ResponseWriter, r *http.Request, fragment string) {
	http.Redirect(w, r, h.frontendURL+"/#"+fragment, http.StatusSeeOther)
}
