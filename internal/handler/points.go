package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/accessai/internal/apperror"
	"github.com/sakif/accessai/internal/auth"
	"github.com/sakif/accessai/internal/service"
)

type updatePointsRequest struct {
	// Raw so fractions, strings and missing values can all be rejected.
	Points      json.RawMessage `json:"points"`
	Achievement string          `json:"achievement"`
}

// ProgressResponse is a user's gamification state.
type ProgressResponse struct {
	Points       int      `json:"points"`
	Level        int      `json:"level"`
	Achievements []string `json:"achievements"`
}

type PointsHandler struct {
	responder
	gamification *service.GamificationService
}

func NewPointsHandler(gamification *service.GamificationService, production bool, logger *slog.Logger) *PointsHandler {
	return &PointsHandler{
		responder:    responder{logger: logger, exposeDetail: !production},
		gamification: gamification,
	}
}

func parsePoints(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, apperror.ValidationFailed("points", "points is required")
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil || n < 0 {
		return 0, apperror.ValidationFailed("points", "points must be a non-negative integer")
	}
	return n, nil
}

// HandleUpdatePoints adds points and optionally records an achievement.
//
// HTTP: POST /update-points {points, achievement?} (auth required)
func (h *PointsHandler) HandleUpdatePoints(w http.ResponseWriter, r *http.Request) {
	var req updatePointsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	delta, err := parsePoints(req.Points)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.gamification.AwardPoints(r.Context(), userID, delta, req.Achievement, service.SourceManual)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ProgressResponse{
		Points:       user.Points,
		Level:        user.Level,
		Achievements: user.Public().Achievements,
	})
}

// queryInt reads an optional positive integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}

// HandleLeaderboard returns one page of the public leaderboard.
//
// HTTP: GET /leaderboard?page=1&limit=10
func (h *PointsHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", service.DefaultLeaderboardLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	lb, err := h.gamification.Leaderboard(r.Context(), page, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}
