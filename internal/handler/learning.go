package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/accessai/internal/apperror"
	"github.com/sakif/accessai/internal/auth"
	"github.com/sakif/accessai/internal/learning"
	"github.com/sakif/accessai/internal/service"
)

// PathSummary describes one language in the catalogue listing.
type PathSummary struct {
	Language    string `json:"language"`
	Lessons     int    `json:"lessons"`
	TotalPoints int    `json:"totalPoints"`
}

type LearningHandler struct {
	responder
	lessons *service.LessonService
}

func NewLearningHandler(lessons *service.LessonService, production bool, logger *slog.Logger) *LearningHandler {
	return &LearningHandler{
		responder: responder{logger: logger, exposeDetail: !production},
		lessons:   lessons,
	}
}

// HandleListPaths lists the available languages.
//
// HTTP: GET /learning-paths
func (h *LearningHandler) HandleListPaths(w http.ResponseWriter, r *http.Request) {
	langs := learning.Languages()
	out := make([]PathSummary, 0, len(langs))
	for _, lang := range langs {
		p, _ := learning.Path(lang)
		s := PathSummary{Language: lang, Lessons: len(p.Lessons)}
		for _, l := range p.Lessons {
			s.TotalPoints += l.Points
		}
		out = append(out, s)
	}
	writeJSON(w, http.StatusOK, map[string]any{"paths": out})
}

// HandleGetPath returns the lessons of one language.
//
// HTTP: GET /learning-paths/{language}
func (h *LearningHandler) HandleGetPath(w http.ResponseWriter, r *http.Request) {
	lang := strings.ToLower(chi.URLParam(r, "language"))
	p, ok := learning.Path(lang)
	if !ok {
		h.writeError(w, r, apperror.NotFound("learning path", lang))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleBadges lists the badges and their point thresholds.
//
// HTTP: GET /badges
func (h *LearningHandler) HandleBadges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"badges": learning.Badges()})
}

func lessonID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, apperror.ValidationFailed("id", "lesson id must be an integer")
	}
	return id, nil
}

// HandleStartLesson generates the lesson content.
//
// HTTP: POST /learning-paths/{language}/lessons/{id}/start (auth required)
func (h *LearningHandler) HandleStartLesson(w http.ResponseWriter, r *http.Request) {
	id, err := lessonID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	content, err := h.lessons.StartLesson(r.Context(), userID, chi.URLParam(r, "language"), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

// HandleSubmitChallenge evaluates a challenge solution.
//
// HTTP: POST /learning-paths/{language}/lessons/{id}/challenge {code} (auth required)
func (h *LearningHandler) HandleSubmitChallenge(w http.ResponseWriter, r *http.Request) {
	id, err := lessonID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	result, err := h.lessons.SubmitChallenge(r.Context(), userID, chi.URLParam(r, "language"), id, req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
