package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/sakif/accessai/internal/metrics"
	"github.com/sakif/accessai/internal/model"
)

// Config configures an OpenAI-compatible endpoint (OpenAI, OpenRouter, or a
// local server speaking the same API).
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration // per call, including the wait for a throttle slot
	RPS     float64       // client-side throttle shared by all requests
}

// OpenAIClient implements Completer.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ Completer = (*OpenAIClient)(nil)

func NewOpenAIClient(cfg Config, logger *slog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	burst := int(cfg.RPS)
	if burst < 1 {
		burst = 1
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), burst),
		logger:  logger,
	}, nil
}

// Complete sends the system instruction, history and prompt. There is no
// retry: a failed call is reported to the caller, who decides what the user sees.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm: waiting for throttle: %w", err)
	}

	turns := NormalizeHistory(req.History)
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, t := range turns {
		role := openai.ChatMessageRoleAssistant
		if t.Role == model.RoleUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	metrics.ObserveUpstream("llm", start, err)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn("llm: provider rejected request",
				slog.Int("status", apiErr.HTTPStatusCode),
				slog.String("model", c.model),
			)
		}
		return "", fmt.Errorf("llm: creating chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug("llm: completion received",
		slog.String("model", c.model),
		slog.Int("historyTurns", len(turns)),
		slog.Int("totalTokens", resp.Usage.TotalTokens),
		slog.Duration("duration", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}
