package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "APP_ENV", "JWT_TTL", "GUEST_CREDITS", "RATE_LIMIT_WINDOW", "KAFKA_BROKERS", "LLM_BASE_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Environment != EnvDevelopment {
		t.Errorf("Environment = %q, want %q", cfg.Environment, EnvDevelopment)
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Errorf("JWTTTL = %v, want 24h", cfg.JWTTTL)
	}
	if cfg.GuestCredits != 5 {
		t.Errorf("GuestCredits = %d, want 5", cfg.GuestCredits)
	}
	if cfg.RateLimitWindow != 15*time.Minute {
		t.Errorf("RateLimitWindow = %v, want 15m", cfg.RateLimitWindow)
	}
	if cfg.KafkaBrokers != nil {
		t.Errorf("KafkaBrokers = %v, want nil", cfg.KafkaBrokers)
	}
	if cfg.LLMBaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("LLMBaseURL = %q", cfg.LLMBaseURL)
	}
	if cfg.GitHubCallbackURL != "http://localhost:8080/auth/github/callback" {
		t.Errorf("GitHubCallbackURL = %q", cfg.GitHubCallbackURL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LLM_RPS", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.LLMRPS != 2.5 {
		t.Errorf("LLMRPS = %v, want 2.5", cfg.LLMRPS)
	}
}

func TestLoad_ReportsEveryMalformedValue(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("JWT_TTL", "forever")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail on malformed values")
	}
	for _, key := range []string{"PORT", "JWT_TTL"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Port:              8080,
		JWTSecret:         "0123456789abcdef",
		LLMAPIKey:         "key",
		TTSProvider:       "elevenlabs",
		ElevenLabsAPIKey:  "el-key",
		GuestCredits:      5,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		LLMRPS:            1,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	broken := valid
	broken.JWTSecret = "short"
	broken.LLMAPIKey = ""
	broken.TTSProvider = "polly"

	err := broken.Validate()
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	for _, want := range []string{"JWT_SECRET", "LLM_API_KEY", "TTS_PROVIDER"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestCSV(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a,b", 2},
		{" a , , b ,", 2},
	}
	for _, tt := range tests {
		if got := CSV(tt.in); len(got) != tt.want {
			t.Errorf("CSV(%q) = %v, want %d items", tt.in, got, tt.want)
		}
	}
}
