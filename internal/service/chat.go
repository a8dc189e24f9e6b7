package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/accessai/internal/apperror"
	"github.com/sakif/accessai/internal/events"
	"github.com/sakif/accessai/internal/llm"
	"github.com/sakif/accessai/internal/metrics"
	"github.com/sakif/accessai/internal/model"
	"github.com/sakif/accessai/internal/prompt"
)

const (
	// MaxInputLength bounds the chat input and each history message, in characters.
	MaxInputLength = 8000
	// ChatPoints is awarded to a signed-in user for every answered chat.
	ChatPoints = 10
)

var errNoCredits = apperror.Forbidden("no credits remaining, sign up to keep chatting")

// ChatRequest is one chat turn. UserID is empty for guests.
type ChatRequest struct {
	UserID   string
	Messages []model.Message
	Input    string
	Credits  *int
	Options  prompt.Options
}

// ChatResult carries the reply and either the guest's remaining credits or
// the signed-in user's updated progress.
type ChatResult struct {
	Response string
	Rules    []string
	Credits  *int
	User     *model.User
}

type ChatService struct {
	completer    llm.Completer
	gamification *GamificationService
	publisher    events.Publisher
	guestCredits int
	logger       *slog.Logger
}

func NewChatService(
	completer llm.Completer,
	gamification *GamificationService,
	publisher events.Publisher,
	guestCredits int,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		completer:    completer,
		gamification: gamification,
		publisher:    publisher,
		guestCredits: guestCredits,
		logger:       logger,
	}
}

func validateChat(req ChatRequest) error {
	input := strings.TrimSpace(req.Input)
	if input == "" {
		return apperror.ValidationFailed("input", "input is required")
	}
	if utf8.RuneCountInString(req.Input) > MaxInputLength {
		return apperror.ValidationFailed("input", fmt.Sprintf("input must be at most %d characters", MaxInputLength))
	}
	for _, m := range req.Messages {
		if utf8.RuneCountInString(m.Content) > MaxInputLength {
			return apperror.ValidationFailed("messages", fmt.Sprintf("each message must be at most %d characters", MaxInputLength))
		}
	}
	return nil
}

// guestCreditsFor returns the credits a guest may spend, clamped to the
// configured allowance. Guests with none left are refused before any
// upstream call; an allowance of zero turns guest chat off.
func (s *ChatService) guestCreditsFor(credits *int) (int, error) {
	if credits == nil {
		return 0, errNoCredits
	}
	c := min(*credits, s.guestCredits)
	if c <= 0 {
		return 0, errNoCredits
	}
	return c, nil
}

// Chat answers one turn. Guests spend a credit; signed-in users earn
// ChatPoints. Nothing is spent or earned when the upstream call fails.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if err := validateChat(req); err != nil {
		return nil, err
	}

	guest := req.UserID == ""
	var credits int
	if guest {
		c, err := s.guestCreditsFor(req.Credits)
		if err != nil {
			return nil, err
		}
		credits = c
	}

	p := prompt.Build(req.Input, req.Options)
	s.logger.Debug("prompt built",
		slog.Any("rules", p.Rules),
		slog.String("tone", p.Tone),
		slog.String("emotion", string(p.Emotion)),
	)

	reply, err := s.completer.Complete(ctx, llm.CompletionRequest{
		System:  prompt.SystemInstruction,
		History: req.Messages,
		Prompt:  p.Text,
	})
	if err != nil {
		return nil, apperror.Upstream("chat processing failed", err)
	}
	if p.Frustrated() {
		reply = prompt.Encourage(reply)
	}

	result := &ChatResult{Response: reply, Rules: p.Rules}
	if guest {
		remaining := credits - 1
		result.Credits = &remaining
		metrics.GuestChatsTotal.Inc()
	} else {
		user, err := s.gamification.AwardPoints(ctx, req.UserID, ChatPoints, "", SourceChat)
		if err != nil {
			return nil, err
		}
		result.User = user
	}

	s.publisher.Publish(ctx, events.New(events.TypeChatCompleted, req.UserID, map[string]any{
		"guest": guest,
		"rules": p.Rules,
	}))
	return result, nil
}
