// Package tts converts text to speech through a pluggable provider.
package tts

import (
	"context"
	"errors"
)

// MaxTextLength bounds a single synthesis request, in characters.
const MaxTextLength = 5000

// ErrEmptyAudio is returned when a provider answers without audio.
var ErrEmptyAudio = errors.New("tts: provider returned no audio")

// ErrAudioTooLarge is returned instead of a truncated clip.
var ErrAudioTooLarge = errors.New("tts: provider audio exceeds size limit")

// Audio is a synthesized clip.
type Audio struct {
	Data        []byte
	ContentType string
}

// Synthesizer turns text into audio with a fixed voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
}
