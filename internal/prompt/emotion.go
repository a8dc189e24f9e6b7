package prompt

import "strings"

type Emotion string

const (
	EmotionNeutral    Emotion = "neutral"
	EmotionFrustrated Emotion = "frustrated"
	EmotionPositive   Emotion = "positive"
)

// Keyword lists are matched as case-insensitive substrings. Frustration is
// checked first, so "this is good but hard" counts as frustrated.
var (
	frustratedWords = []string{"frustrated", "stuck", "hard", "difficult"}
	positiveWords   = []string{"great", "awesome", "good"}
)

var emotionTones = map[Emotion]string{
	EmotionFrustrated: "encouraging",
	EmotionPositive:   "celebratory",
}

// DetectEmotion classifies text with a simple keyword heuristic.
func DetectEmotion(text string) Emotion {
	lower := strings.ToLower(text)
	if containsAny(lower, frustratedWords) {
		return EmotionFrustrated
	}
	if containsAny(lower, positiveWords) {
		return EmotionPositive
	}
	return EmotionNeutral
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
