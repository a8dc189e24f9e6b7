package tts

import (
	"context"
	"fmt"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/sakif/accessai/internal/metrics"
)

// speechClient is the subset of *texttospeech.Client used here.
type speechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

type GoogleConfig struct {
	CredentialsFile string // empty means Application Default Credentials
	LanguageCode    string
	VoiceName       string
}

// Google synthesizes MP3 audio with Google Cloud Text-to-Speech.
type Google struct {
	client speechClient
	voice  *texttospeechpb.VoiceSelectionParams
}

var _ Synthesizer = (*Google)(nil)

func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tts: creating Google client: %w", err)
	}
	return newGoogleWithClient(client, cfg), nil
}

func newGoogleWithClient(client speechClient, cfg GoogleConfig) *Google {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	if cfg.VoiceName == "" {
		cfg.VoiceName = "en-US-Neural2-F"
	}
	return &Google{
		client: client,
		voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: cfg.LanguageCode,
			Name:         cfg.VoiceName,
		},
	}
}

func (g *Google) Synthesize(ctx context.Context, text string) (audio *Audio, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("tts_google", start, err) }()

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: g.voice,
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tts: Google SynthesizeSpeech: %w", err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, ErrEmptyAudio
	}
	return &Audio{Data: resp.GetAudioContent(), ContentType: "audio/mpeg"}, nil
}

func (g *Google) Close() error {
	return g.client.Close()
}
