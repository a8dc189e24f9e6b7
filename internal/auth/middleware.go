package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is unexported so no other package can read or overwrite our values.
type contextKey string

const claimsKey contextKey = "claims"

// Error codes returned in the "error" field of a 401 response.
const (
	CodeMissingToken   = "missing_token"
	CodeMalformedToken = "malformed_token"
	CodeTokenExpired   = "token_expired"
	CodeInvalidToken   = "invalid_token"
)

// RequireAuth rejects the request with 401 unless it carries a valid bearer
// token. On success the Claims are stored in the request context.
func RequireAuth(tokens *TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeUnauthorized(w, CodeMissingToken, "authentication required")
				return
			}
			claims, code, ok := authenticate(header, tokens)
			if !ok {
				logRejected(logger, r, code)
				writeUnauthorized(w, code, rejectionMessage(code))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth lets requests without an Authorization header through as
// guests. A header that IS present must be valid: a malformed, expired or
// forged token gets the same 401 as under RequireAuth, so a client with a
// stale session is told to log in again instead of being silently downgraded
// to a guest.
func OptionalAuth(tokens *TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, code, ok := authenticate(header, tokens)
			if !ok {
				logRejected(logger, r, code)
				writeUnauthorized(w, code, rejectionMessage(code))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims returns a copy of ctx carrying the caller identity.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the caller identity, or (Claims{}, false) for a guest.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey).(Claims)
	return c, ok && c.UserID != ""
}

// UserIDFromContext is a shorthand for handlers that only need the ID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	return c.UserID, ok
}

// authenticate parses "Bearer <token>" and verifies it. The scheme is
// matched case-insensitively.
func authenticate(header string, tokens *TokenService) (Claims, string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return Claims{}, CodeMalformedToken, false
	}

	v := tokens.Verify(token)
	switch v.Status {
	case StatusValid:
		return v.Claims, "", true
	case StatusExpired:
		return Claims{}, CodeTokenExpired, false
	default:
		return Claims{}, CodeInvalidToken, false
	}
}

func rejectionMessage(code string) string {
	switch code {
	case CodeMalformedToken:
		return "authorization header must be 'Bearer <token>'"
	case CodeTokenExpired:
		return "session expired, please log in again"
	default:
		return "invalid authentication token"
	}
}

// logRejected never logs the token itself.
func logRejected(logger *slog.Logger, r *http.Request, code string) {
	logger.Warn("authentication rejected",
		slog.String("reason", code),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

// writeUnauthorized mirrors handler.ErrorResponse; auth cannot import handler
// without an import cycle.
func writeUnauthorized(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="accessai"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
