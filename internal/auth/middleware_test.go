package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// echoIdentity writes the caller's user ID, or "guest".
var echoIdentity = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if id, ok := UserIDFromContext(r.Context()); ok {
		io.WriteString(w, id)
		return
	}
	io.WriteString(w, "guest")
})

func serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body["error"]
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	h := RequireAuth(ts, discardLogger)(echoIdentity)

	valid, _ := ts.Generate("user-1", "a@b.com")
	expired, _ := ts.generate("user-1", "a@b.com", -time.Minute)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
		wantCode   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, "user-1", ""},
		{"scheme is case-insensitive", "bearer " + valid, http.StatusOK, "user-1", ""},
		{"missing header", "", http.StatusUnauthorized, "", CodeMissingToken},
		{"no scheme", valid, http.StatusUnauthorized, "", CodeMalformedToken},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "", CodeMalformedToken},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "", CodeMalformedToken},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "", CodeTokenExpired},
		{"forged", "Bearer " + valid + "x", http.StatusUnauthorized, "", CodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h, tt.header)
			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, rr))
				assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			} else {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	ts := newTestTokenService(t)
	h := OptionalAuth(ts, discardLogger)(echoIdentity)

	valid, _ := ts.Generate("user-2", "c@d.com")
	expired, _ := ts.generate("user-2", "c@d.com", -time.Minute)

	t.Run("no header is a guest", func(t *testing.T) {
		rr := serve(h, "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "guest", rr.Body.String())
	})

	t.Run("valid token is authenticated", func(t *testing.T) {
		rr := serve(h, "Bearer "+valid)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "user-2", rr.Body.String())
	})

	t.Run("expired token is rejected, not downgraded", func(t *testing.T) {
		rr := serve(h, "Bearer "+expired)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, CodeTokenExpired, errorCode(t, rr))
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		rr := serve(h, "Token abc")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, CodeMalformedToken, errorCode(t, rr))
	})
}

func TestClaimsFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := ClaimsFromContext(req.Context())
	assert.False(t, ok, "empty context must be a guest")

	ctx := WithClaims(req.Context(), Claims{UserID: "u", Email: "e@x.com"})
	c, ok := ClaimsFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "e@x.com", c.Email)
}
