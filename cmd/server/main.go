// Command server runs the AccessAI gateway.
//
// main only reads configuration and builds the external clients (LLM, speech,
// Redis, Kafka, GitHub OAuth); everything else is wired in internal/server.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/accessai/internal/auth"
	"github.com/sakif/accessai/internal/cache"
	"github.com/sakif/accessai/internal/config"
	"github.com/sakif/accessai/internal/events"
	"github.com/sakif/accessai/internal/llm"
	"github.com/sakif/accessai/internal/ratelimit"
	"github.com/sakif/accessai/internal/server"
	"github.com/sakif/accessai/internal/tts"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			return fmt.Errorf("creating database directory %s: %w", dbDir, err)
		}
	}

	completer, err := llm.NewOpenAIClient(llm.Config{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
		RPS:     cfg.LLMRPS,
	}, logger)
	if err != nil {
		return err
	}

	synth, closeSynth, err := newSynthesizer(cfg)
	if err != nil {
		return err
	}
	defer closeSynth()

	deps := server.Deps{
		Completer:   completer,
		Synthesizer: synth,
	}

	// Redis is optional: it backs the shared rate limiter and the
	// leaderboard cache. Without it both stay in-process / disabled.
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		deps.Limiter = ratelimit.NewRedis(rdb, cfg.RateLimitRequests, cfg.RateLimitWindow)
		deps.Leaderboard = cache.NewRedisLeaderboard(rdb, cfg.LeaderboardCacheTTL)
		logger.Info("redis enabled", slog.String("addr", opts.Addr))
	}

	if len(cfg.KafkaBrokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer pub.Close()
		deps.Publisher = pub
		logger.Info("activity events enabled",
			slog.String("topic", cfg.KafkaTopic),
			slog.Int("brokers", len(cfg.KafkaBrokers)),
		)
	}

	if cfg.GitHubClientID != "" {
		deps.GitHub = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	srv, err := server.New(cfg, deps, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	// Start blocks until SIGINT/SIGTERM
	return srv.Start()
}

func newSynthesizer(cfg config.Config) (tts.Synthesizer, func(), error) {
	switch cfg.TTSProvider {
	case "google":
		g, err := tts.NewGoogle(context.Background(), tts.GoogleConfig{CredentialsFile: cfg.GoogleCredentials})
		if err != nil {
			return nil, nil, err
		}
		return g, func() { g.Close() }, nil
	default:
		e, err := tts.NewElevenLabs(tts.ElevenLabsConfig{
			APIKey:  cfg.ElevenLabsAPIKey,
			VoiceID: cfg.ElevenLabsVoiceID,
			ModelID: cfg.ElevenLabsModelID,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return e, func() {}, nil
	}
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
