package adaptation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmotionHandler_StrategyFallsBackToNeutral(t *testing.T) {
	h := NewEmotionHandler()
	s := h.Strategy(EmotionAngry, 0.3)
	assert.Equal(t, EmotionNeutral, s.Emotion)

	s = h.Strategy(EmotionAngry, 0.7)
	assert.Equal(t, EmotionAngry, s.Emotion)
}

func TestEmotionHandler_AdaptTone_AddsEmpathyAndDeEscalation(t *testing.T) {
	h := NewEmotionHandler()
	result := h.AdaptTone("Here is your answer.", EmotionAngry, 0.9, 0.9, SentimentTrendSnapshot{Trend: "negative"})

	assert.Contains(t, result.ModificationsMade, "added_empathy_marker")
	assert.Contains(t, result.ModificationsMade, "added_de_escalation")
	assert.True(t, result.EscalationRecommended)
	assert.Equal(t, "high_angry_intensity", result.EscalationReason)
}

func TestEmotionHandler_AdaptTone_RemovesAvoidPhrases(t *testing.T) {
	h := NewEmotionHandler()
	result := h.AdaptTone("Calm down, that's policy.", EmotionAngry, 0.9, 0.9, SentimentTrendSnapshot{})

	assert.NotContains(t, result.AdaptedText, "Calm down")
	assert.Contains(t, result.ModificationsMade, "removed_avoid_phrases")
}

func TestEmotionHandler_ShouldEscalate_RequiresHumanReview(t *testing.T) {
	h := NewEmotionHandler()
	escalate, reason := h.ShouldEscalate(EmotionAngry, 0.65, 0.85)
	assert.True(t, escalate)
	assert.Equal(t, "requires_human_review", reason)
}

func TestEmotionHandler_ShouldEscalate_NoEscalationForLowIntensityNeutral(t *testing.T) {
	h := NewEmotionHandler()
	escalate, _ := h.ShouldEscalate(EmotionNeutral, 0.1, 0.5)
	assert.False(t, escalate)
}

func TestApplyToneModifications_EnthusiasticHighIntensity(t *testing.T) {
	text, mods := applyToneModifications("great deal for you.", ToneEnthusiastic, 0.9)
	assert.Contains(t, text, "absolutely fantastic")
	assert.Contains(t, mods, "added_enthusiastic_elements")
}
