package handler

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"time"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type MemoryStats struct {
	Alloc uint64 `json:"alloc"`
	Sys   uint64 `json:"sys"`
	NumGC uint32 `json:"numGC"`
}

type HealthResponse struct {
	Status      string      `json:"status"`
	Uptime      float64     `json:"uptime"` // seconds
	Memory      MemoryStats `json:"memory"`
	Environment string      `json:"environment"`
	Database    string      `json:"database"`
}

type HealthHandler struct {
	db          Pinger
	environment string
	started     time.Time
	logger      *slog.Logger
}

func NewHealthHandler(db Pinger, environment string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:          db,
		environment: environment,
		started:     time.Now(),
		logger:      logger,
	}
}

// HandleHealth reports liveness and database reachability.
//
// HTTP: GET /health → 200 ok | 503 degraded
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := HealthResponse{
		Status:      "ok",
		Uptime:      time.Since(h.started).Seconds(),
		Memory:      MemoryStats{Alloc: m.Alloc, Sys: m.Sys, NumGC: m.NumGC},
		Environment: h.environment,
		Database:    "ok",
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health: database ping failed", slog.String("error", err.Error()))
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
