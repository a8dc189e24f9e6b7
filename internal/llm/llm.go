// Package llm talks to the upstream chat-completion provider.
//
// The rest of the gateway depends only on the Completer interface; the
// OpenAI-compatible client in openai.go is the production implementation.
package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sakif/accessai/internal/model"
)

// MaxHistoryMessages bounds how much client-supplied history is forwarded.
const MaxHistoryMessages = 50

// ErrEmptyCompletion is returned when the provider answers without any text.
var ErrEmptyCompletion = errors.New("llm: provider returned no completion")

// CompletionRequest is one chat turn.
type CompletionRequest struct {
	System  string          // system instruction, sent first
	History []model.Message // prior turns, oldest first
	Prompt  string          // the new user message
}

// Completer produces a completion for a chat turn.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Turn is a normalised history entry.
type Turn struct {
	Role    string
	Content string
}

// NormalizeHistory maps client roles onto user/assistant, drops empty turns
// and keeps only the most recent MaxHistoryMessages.
func NormalizeHistory(history []model.Message) []Turn {
	turns := make([]Turn, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := model.RoleAssistant
		if m.Role == model.RoleUser {
			role = model.RoleUser
		}
		turns = append(turns, Turn{Role: role, Content: m.Content})
	}
	if len(turns) > MaxHistoryMessages {
		turns = turns[len(turns)-MaxHistoryMessages:]
	}
	return turns
}
