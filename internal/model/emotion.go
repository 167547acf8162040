package model

import (
	"slices"
	"strings"
)

// Labels produced by the facial emotion classifier. Other labels are
// accepted and stored as given.
const (
	EmotionHappy    = "happy"
	EmotionSad      = "sad"
	EmotionAngry    = "angry"
	EmotionNeutral  = "neutral"
	EmotionSurprise = "surprise"
	EmotionFear     = "fear"
	EmotionDisgust  = "disgust"
)

// KnownEmotions lists the classifier labels in display order
var KnownEmotions = []string{
	EmotionHappy,
	EmotionSad,
	EmotionAngry,
	EmotionNeutral,
	EmotionSurprise,
	EmotionFear,
	EmotionDisgust,
}

// NormalizeEmotion trims and lower-cases an emotion label
func NormalizeEmotion(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// IsKnownEmotion reports whether a normalized label is one the classifier
// produces
func IsKnownEmotion(label string) bool {
	return slices.Contains(KnownEmotions, label)
}
