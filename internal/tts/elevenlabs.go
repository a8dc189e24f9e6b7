package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sakif/accessai/internal/metrics"
)

const elevenLabsAPI = "https://api.elevenlabs.io"

// maxAudioBytes guards against a misbehaving provider streaming forever.
const maxAudioBytes = 20 << 20

type ElevenLabsConfig struct {
	APIKey  string
	VoiceID string
	ModelID string
	Timeout time.Duration
	BaseURL string // override for tests; defaults to the public API
}

// ElevenLabs calls the ElevenLabs text-to-speech REST endpoint and returns MP3.
type ElevenLabs struct {
	cfg      ElevenLabsConfig
	client   *http.Client
	maxBytes int64
}

var _ Synthesizer = (*ElevenLabs)(nil)

func NewElevenLabs(cfg ElevenLabsConfig) (*ElevenLabs, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("tts: ElevenLabs API key is required")
	}
	if cfg.VoiceID == "" {
		return nil, errors.New("tts: ElevenLabs voice id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = elevenLabsAPI
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &ElevenLabs{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		maxBytes: maxAudioBytes,
	}, nil
}

type elevenLabsRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id,omitempty"`
	VoiceSettings map[string]any `json:"voice_settings"`
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (audio *Audio, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("tts_elevenlabs", start, err) }()

	body, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: e.cfg.ModelID,
		VoiceSettings: map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tts: encoding request: %w", err)
	}

	endpoint := e.cfg.BaseURL + "/v1/text-to-speech/" + url.PathEscape(e.cfg.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: calling ElevenLabs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// The error body is small JSON; keep a prefix for the logs.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts: ElevenLabs returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("tts: reading audio: %w", err)
	}
	if int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrAudioTooLarge, e.maxBytes)
	}
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return &Audio{Data: data, ContentType: contentType}, nil
}
