// Package config loads gateway settings from the environment.
//
// An optional .env file in the working directory is read first (values already
// present in the environment win), then every setting is resolved with a default.
// Malformed values are collected and reported together by Load, and Validate
// reports every missing secret at once so a misconfigured deploy fails with a
// single, complete message.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string

	DBPath string

	JWTSecret string
	JWTTTL    time.Duration

	CORSAllowedOrigins []string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration
	LLMRPS     float64

	TTSProvider       string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	ElevenLabsModelID string
	GoogleCredentials string

	GuestCredits int

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RedisURL            string
	LeaderboardCacheTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
	FrontendURL        string
}

// IsProduction reports whether error details must be hidden from clients.
func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	// A missing .env is normal in containers; any other read error is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}

	p := &parser{}
	cfg := Config{
		Port:        p.int("PORT", 8080),
		Environment: strings.ToLower(envDefault("APP_ENV", EnvDevelopment)),
		LogLevel:    envDefault("LOG_LEVEL", "info"),
		LogFormat:   envDefault("LOG_FORMAT", "text"),

		DBPath: envDefault("DB_PATH", "data/accessai.db"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    p.duration("JWT_TTL", 24*time.Hour),

		CORSAllowedOrigins: CSV(envDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		LLMBaseURL: envDefault("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMAPIKey:  os.Getenv("LLM_API_KEY"),
		LLMModel:   envDefault("LLM_MODEL", "google/gemini-flash-1.5"),
		LLMTimeout: p.duration("LLM_TIMEOUT", 30*time.Second),
		LLMRPS:     p.float("LLM_RPS", 5),

		TTSProvider:       strings.ToLower(envDefault("TTS_PROVIDER", "elevenlabs")),
		ElevenLabsAPIKey:  os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoiceID: envDefault("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		ElevenLabsModelID: envDefault("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2"),
		GoogleCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),

		GuestCredits: p.int("GUEST_CREDITS", 5),

		RateLimitRequests: p.int("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   p.duration("RATE_LIMIT_WINDOW", 15*time.Minute),

		RedisURL:            os.Getenv("REDIS_URL"),
		LeaderboardCacheTTL: p.duration("LEADERBOARD_CACHE_TTL", 30*time.Second),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envDefault("KAFKA_TOPIC", "accessai.activity"),

		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  os.Getenv("GITHUB_CALLBACK_URL"),
		FrontendURL:        envDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate reports every missing or out-of-range setting in one error.
func (c Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be set and at least 16 characters"))
	}
	if c.LLMAPIKey == "" {
		errs = append(errs, errors.New("LLM_API_KEY must be set"))
	}
	switch c.TTSProvider {
	case "elevenlabs":
		if c.ElevenLabsAPIKey == "" {
			errs = append(errs, errors.New("ELEVENLABS_API_KEY must be set when TTS_PROVIDER=elevenlabs"))
		}
	case "google":
	default:
		errs = append(errs, fmt.Errorf("TTS_PROVIDER %q is not supported (elevenlabs, google)", c.TTSProvider))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.GuestCredits < 0 {
		errs = append(errs, errors.New("GUEST_CREDITS must not be negative"))
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}
	if c.LLMRPS <= 0 {
		errs = append(errs, errors.New("LLM_RPS must be positive"))
	}
	if c.GitHubClientID != "" && c.GitHubClientSecret == "" {
		errs = append(errs, errors.New("GITHUB_CLIENT_SECRET must be set when GITHUB_CLIENT_ID is"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// CSV splits a comma-separated value, dropping blanks.
func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parser accumulates conversion errors so Load can report all of them.
type parser struct {
	errs []error
}

func (p *parser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return def
	}
	return f
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}
