package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sakif/accessai/internal/apperror"
	"github.com/sakif/accessai/internal/tts"
)

type TTSHandler struct {
	responder
	synth tts.Synthesizer
}

func NewTTSHandler(synth tts.Synthesizer, production bool, logger *slog.Logger) *TTSHandler {
	return &TTSHandler{
		responder: responder{logger: logger, exposeDetail: !production},
		synth:     synth,
	}
}

// HandleSpeak synthesizes text and streams back the raw audio.
//
// HTTP: POST /tts {text} → 200 audio bytes
func (h *TTSHandler) HandleSpeak(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		h.writeError(w, r, apperror.ValidationFailed("text", "text is required"))
		return
	}
	if utf8.RuneCountInString(req.Text) > tts.MaxTextLength {
		h.writeError(w, r, apperror.ValidationFailed("text",
			fmt.Sprintf("text must be at most %d characters", tts.MaxTextLength)))
		return
	}

	audio, err := h.synth.Synthesize(r.Context(), req.Text)
	if err != nil {
		h.writeError(w, r, apperror.Upstream("speech synthesis failed", err))
		return
	}

	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio.Data); err != nil {
		h.logger.Warn("tts: writing audio", slog.String("error", err.Error()))
	}
}
