package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/accessai/internal/auth"
	"github.com/sakif/accessai/internal/model"
	"github.com/sakif/accessai/internal/prompt"
	"github.com/sakif/accessai/internal/service"
)

type chatRequest struct {
	Messages []model.Message `json:"messages"`
	Input    string          `json:"input"`
	Credits  *int            `json:"credits"`
	Options  prompt.Options  `json:"options"`
}

// ChatResponse carries credits for guests, or points and level for
// signed-in users; the other fields are omitted.
type ChatResponse struct {
	Response string `json:"response"`
	Credits  *int   `json:"credits,omitempty"`
	Points   *int   `json:"points,omitempty"`
	Level    *int   `json:"level,omitempty"`
}

type ChatHandler struct {
	responder
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService, production bool, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		responder: responder{logger: logger, exposeDetail: !production},
		chat:      chat,
	}
}

// HandleChat answers one chat turn.
//
// HTTP: POST /chat {messages, input, credits?, options?} (auth optional)
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	result, err := h.chat.Chat(r.Context(), service.ChatRequest{
		UserID:   userID,
		Messages: req.Messages,
		Input:    req.Input,
		Credits:  req.Credits,
		Options:  req.Options,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := ChatResponse{Response: result.Response, Credits: result.Credits}
	if result.User != nil {
		resp.Points = &result.User.Points
		resp.Level = &result.User.Level
	}
	writeJSON(w, http.StatusOK, resp)
}
