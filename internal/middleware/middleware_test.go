package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/accessai/internal/metrics"
	"github.com/sakif/accessai/internal/ratelimit"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(Logger(logger))
	r.Get("/learning-paths/{language}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("nope"))
	})

	req := httptest.NewRequest(http.MethodGet, "/learning-paths/cobol", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	r.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, `"level":"WARN"`)
	assert.Contains(t, line, `"status":404`)
	assert.Contains(t, line, `"route":"/learning-paths/{language}"`)
	assert.Contains(t, line, `"bytes":4`)
	assert.Contains(t, line, `"requestID":"`)
	assert.NotContains(t, line, "secret-token")
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rw := wrap(httptest.NewRecorder())
	rw.Write([]byte("ok"))
	rw.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusOK, rw.statusCode)
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/learning-paths/{language}", func(w http.ResponseWriter, r *http.Request) {})

	counter := metrics.HTTPRequestsTotal.WithLabelValues("/learning-paths/{language}", http.MethodGet, "200")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/learning-paths/go", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/learning-paths/rust", nil))

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ActiveRequests))
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("redis: connection refused")
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimit(t *testing.T) {
	store := ratelimit.NewMemory(2, time.Minute)
	t.Cleanup(store.Close)
	h := RateLimit(store, slog.Default())(ok)

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	first := call("10.0.0.1:1111")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, call("10.0.0.1:2222").Code, "port must not affect the key")

	dropped := testutil.ToFloat64(metrics.RateLimitDroppedTotal)
	third := call("10.0.0.1:3333")
	require.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.NotEmpty(t, third.Header().Get("Retry-After"))
	assert.True(t, strings.Contains(third.Body.String(), `"error":"rate_limited"`))
	assert.Equal(t, dropped+1, testutil.ToFloat64(metrics.RateLimitDroppedTotal))

	assert.Equal(t, http.StatusOK, call("10.0.0.2:1111").Code, "other clients are unaffected")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	h := RateLimit(failingStore{}, slog.Default())(ok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
