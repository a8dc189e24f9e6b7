// Package prompt turns a user's chat input and mode toggles into the text sent
// upstream.
//
// The pipeline is an explicit, ordered list of named rules rather than a
// chain of conditionals, so the applied rules can be listed, logged and tested:
//
//  1. emotion detection (optional) may rewrite the tone
//  2. exactly one base template is chosen, first match wins
//  3. modifiers decorate the conversational template only
//  4. the web-search override may replace the whole prompt
//  5. suffixes are appended last
package prompt

import (
	"strings"
)

// SystemInstruction is sent as the system message of every completion.
const SystemInstruction = "You are AccessAI, an accessible learning assistant. " +
	"Answer clearly in Markdown, keep explanations approachable for beginners, " +
	"and never claim to have performed actions you cannot perform."

const (
	DefaultTone     = "neutral"
	DefaultLength   = "medium"
	DefaultLanguage = "javascript"
)

// Options are the mode toggles and style settings chosen in the client.
type Options struct {
	Tone     string `json:"tone"`
	Length   string `json:"length"`
	Language string `json:"language"`

	StudyGuide       bool `json:"studyGuide"`
	Audit            bool `json:"audit"`
	Code             bool `json:"code"`
	CriticalThinking bool `json:"criticalThinking"`
	Simulation       bool `json:"simulation"`
	Collaboration    bool `json:"collaboration"`
	FactCheck        bool `json:"factCheck"`
	ShowReasoning    bool `json:"showReasoning"`
	Detailed         bool `json:"detailed"`
	AILiteracy       bool `json:"aiLiteracy"`
	EmotionDetection bool `json:"emotionDetection"`
}

// withDefaults fills blank style settings.
func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Tone) == "" {
		o.Tone = DefaultTone
	}
	if strings.TrimSpace(o.Length) == "" {
		o.Length = DefaultLength
	}
	if strings.TrimSpace(o.Language) == "" {
		o.Language = DefaultLanguage
	}
	return o
}

// Prompt is the result of Build.
type Prompt struct {
	Text    string
	Rules   []string // names of the applied rules, in order
	Tone    string   // effective tone after emotion detection
	Emotion Emotion
}

// Frustrated reports whether the reply should be wrapped in the
// encouragement banner (see Encourage).
func (p Prompt) Frustrated() bool {
	return p.Emotion == EmotionFrustrated
}

// Build runs the pipeline over input.
func Build(input string, opts Options) Prompt {
	opts = opts.withDefaults()
	p := Prompt{Tone: opts.Tone, Emotion: EmotionNeutral}

	if opts.EmotionDetection {
		p.Emotion = DetectEmotion(input)
		if tone, ok := emotionTones[p.Emotion]; ok {
			p.Tone = tone
			p.Rules = append(p.Rules, "emotion_"+string(p.Emotion))
		}
	}

	s := state{input: input, opts: opts, tone: p.Tone}

	for _, r := range baseRules {
		if r.when(s) {
			s.text = r.render(s)
			s.base = r.name
			p.Rules = append(p.Rules, r.name)
			break
		}
	}

	for _, group := range [][]rule{modifiers, overrides, suffixes} {
		for _, r := range group {
			if r.when(s) {
				s.text = r.render(s)
				p.Rules = append(p.Rules, r.name)
			}
		}
	}

	p.Text = s.text
	return p
}

// Encourage wraps a completion for a user detected as frustrated.
func Encourage(response string) string {
	return "**I noticed you might be feeling frustrated. Let’s tackle this together!** Here’s my response:\n\n" +
		response +
		"\n\nWould you like to take a short break or try a different approach?"
}
