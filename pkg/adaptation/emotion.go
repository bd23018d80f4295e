// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package adaptation

import (
	"fmt"
	"strings"
)

// Emotion is one of the supported detected-emotion labels.
type Emotion string

const (
	EmotionAngry      Emotion = "angry"
	EmotionFrustrated Emotion = "frustrated"
	EmotionConfused   Emotion = "confused"
	EmotionNeutral    Emotion = "neutral"
	EmotionSatisfied  Emotion = "satisfied"
	EmotionHappy      Emotion = "happy"
	EmotionExcited    Emotion = "excited"
)

// Tone is the adapted response register.
type Tone string

const (
	ToneEmpathetic    Tone = "empathetic"
	ToneSupportive    Tone = "supportive"
	ToneClearGuidance Tone = "clear_guidance"
	ToneNeutral       Tone = "neutral"
	ToneFriendly      Tone = "friendly"
	ToneEnthusiastic  Tone = "enthusiastic"
	ToneApologetic    Tone = "apologetic"
)

// EmotionStrategy is the per-emotion response-adaptation policy.
type EmotionStrategy struct {
	Emotion              Emotion
	IntensityThreshold   float64
	ResponseTone         Tone
	EscalationThreshold  float64
	EmpathyMarkers       []string
	DeEscalationPhrases  []string
	AvoidPhrases         []string
	RecommendedActions   []string
	RequiresHumanReview  bool
}

// emotionStrategies is the strategy table, grounded on the PRD v4
// requirements captured in the source emotion handler.
var emotionStrategies = map[Emotion]EmotionStrategy{
	EmotionAngry: {
		Emotion: EmotionAngry, IntensityThreshold: 0.6, ResponseTone: ToneEmpathetic, EscalationThreshold: 0.8,
		EmpathyMarkers: []string{
			"I understand your frustration", "I can see why you're upset",
			"I apologize for the inconvenience", "Let me help resolve this for you",
		},
		DeEscalationPhrases: []string{
			"I completely understand your concern", "Let me take care of this right away",
			"I want to make sure we get this resolved", "Your satisfaction is our priority",
		},
		AvoidPhrases: []string{
			"Calm down", "That's not our fault", "You should have", "That's policy", "There's nothing I can do",
		},
		RecommendedActions: []string{"immediate_escalation", "senior_agent_review", "priority_handling"},
		RequiresHumanReview: true,
	},
	EmotionFrustrated: {
		Emotion: EmotionFrustrated, IntensityThreshold: 0.5, ResponseTone: ToneSupportive, EscalationThreshold: 0.7,
		EmpathyMarkers: []string{
			"I understand this is frustrating", "Let me help clarify this for you",
			"I can see why this is confusing", "Let's work through this together",
		},
		DeEscalationPhrases: []string{
			"I understand how frustrating this must be", "Let me walk you through this step by step",
			"I'll make sure we get this sorted out", "I'm here to help make this easier",
		},
		AvoidPhrases: []string{"It's simple", "Just follow the instructions", "You don't understand", "That's obvious"},
		RecommendedActions: []string{"detailed_explanation", "step_by_step_guidance", "follow_up_confirmation"},
	},
	EmotionConfused: {
		Emotion: EmotionConfused, IntensityThreshold: 0.5, ResponseTone: ToneClearGuidance, EscalationThreshold: 0.6,
		EmpathyMarkers: []string{
			"Let me clarify that for you", "I can help explain this better",
			"Let me break this down", "I'll make this clearer",
		},
		DeEscalationPhrases: []string{
			"Let me explain this in simpler terms", "I'll walk you through this step by step",
			"Here's what this means", "Let me provide a clear example",
		},
		AvoidPhrases: []string{"It's obvious", "As I said before", "You should know this", "It's straightforward"},
		RecommendedActions: []string{"simplified_explanation", "visual_aids", "examples_provided", "confirmation_questions"},
	},
	EmotionSatisfied: {
		Emotion: EmotionSatisfied, IntensityThreshold: 0.6, ResponseTone: ToneFriendly, EscalationThreshold: 0.9,
		EmpathyMarkers: []string{
			"I'm glad I could help", "That's wonderful to hear", "I'm happy this worked out", "Thank you for your patience",
		},
		DeEscalationPhrases: []string{
			"I'm so glad we could resolve this for you", "It's great that everything is working now",
			"Thank you for giving us the opportunity to help", "We appreciate your feedback",
		},
		AvoidPhrases: []string{"Whatever", "Fine", "Good enough", "At least it works"},
		RecommendedActions: []string{"positive_reinforcement", "feedback_collection", "future_assistance_offer"},
	},
	EmotionHappy: {
		Emotion: EmotionHappy, IntensityThreshold: 0.7, ResponseTone: ToneEnthusiastic, EscalationThreshold: 0.95,
		EmpathyMarkers: []string{
			"That's fantastic!", "I'm thrilled to hear that", "That's wonderful news!", "I'm so glad everything worked out",
		},
		DeEscalationPhrases: []string{
			"That's absolutely wonderful!", "I'm delighted that we could exceed your expectations",
			"Your satisfaction makes our day!", "We're thrilled to have you as a satisfied customer",
		},
		AvoidPhrases: []string{"Okay", "Sure", "Whatever you say", "If you say so"},
		RecommendedActions: []string{"celebratory_tone", "positive_feedback_request", "loyalty_program_mention"},
	},
	EmotionExcited: {
		Emotion: EmotionExcited, IntensityThreshold: 0.7, ResponseTone: ToneEnthusiastic, EscalationThreshold: 0.95,
		EmpathyMarkers: []string{"That's exciting!", "How wonderful!", "That's amazing!", "I'm excited for you!"},
		DeEscalationPhrases: []string{
			"That's incredibly exciting!", "I'm so excited to help you with this!",
			"This is fantastic news!", "Let's make this even more amazing!",
		},
		AvoidPhrases: []string{"Calm down", "Settle down", "Don't get too excited", "It's not that big of a deal"},
		RecommendedActions: []string{"match_enthusiasm", "amplify_positive", "future_optimism"},
	},
	EmotionNeutral: {
		Emotion: EmotionNeutral, IntensityThreshold: 0.0, ResponseTone: ToneNeutral, EscalationThreshold: 0.9,
		EmpathyMarkers: []string{"I understand", "I see", "Thank you for the information", "Let me help you with that"},
		DeEscalationPhrases: []string{
			"I understand your request", "Let me assist you with that",
			"I'll help you resolve this", "Let's work through this together",
		},
		RecommendedActions: []string{"professional_assistance", "clear_communication", "efficient_resolution"},
	},
}

var avoidPhraseAlternatives = map[string]string{
	"calm down":                       "let's work through this together",
	"that's not our fault":            "let's see how we can resolve this",
	"you should have":                 "going forward, we can",
	"that's policy":                   "here's what we can do",
	"there's nothing i can do":        "let me see what options we have",
	"it's simple":                     "let me walk you through this",
	"just follow the instructions":    "here are the steps we can take",
	"you don't understand":            "let me clarify this",
	"that's obvious":                  "let me explain this clearly",
	"whatever you say":                "I understand your perspective",
	"if you say so":                   "I appreciate your input",
}

// ToneAdaptation is the result of adapting one response's tone for a
// detected emotion/intensity pair.
type ToneAdaptation struct {
	OriginalText          string
	AdaptedText           string
	ToneUsed              Tone
	EmotionDetected       Emotion
	Intensity             float64
	Confidence            float64
	ModificationsMade     []string
	EscalationRecommended bool
	EscalationReason      string
}

// EmotionHandler adapts response text according to the strategy table.
type EmotionHandler struct{}

// NewEmotionHandler constructs an EmotionHandler.
func NewEmotionHandler() *EmotionHandler { return &EmotionHandler{} }

// Strategy returns the strategy for emotion/intensity, falling back to
// the neutral strategy when the emotion is unknown or below its own
// intensity threshold.
func (h *EmotionHandler) Strategy(emotion Emotion, intensity float64) EmotionStrategy {
	strategy, ok := emotionStrategies[emotion]
	if ok && intensity >= strategy.IntensityThreshold {
		return strategy
	}
	return emotionStrategies[EmotionNeutral]
}

// SentimentTrendSnapshot is the minimal trend input AdaptTone needs from
// the layered context store, without importing convocontext (keeps
// adaptation decoupled from the context package's concrete type).
type SentimentTrendSnapshot struct {
	Trend string
}

// AdaptTone rewrites responseText according to the emotion's strategy:
// empathy markers, de-escalation phrases, avoid-phrase substitution, and
// tone-specific modifications, then flags escalation where warranted.
func (h *EmotionHandler) AdaptTone(responseText string, emotion Emotion, intensity, confidence float64, trend SentimentTrendSnapshot) ToneAdaptation {
	strategy := h.Strategy(emotion, intensity)
	adapted := responseText
	var mods []string

	if len(strategy.EmpathyMarkers) > 0 && intensity >= strategy.IntensityThreshold {
		marker := selectByIntensity(strategy.EmpathyMarkers, intensity)
		if !containsAnyFold(responseText, strategy.EmpathyMarkers) {
			adapted = fmt.Sprintf("%s. %s", marker, adapted)
			mods = append(mods, "added_empathy_marker")
		}
	}

	if len(strategy.DeEscalationPhrases) > 0 && intensity >= strategy.IntensityThreshold {
		phrase := selectDeEscalation(strategy.DeEscalationPhrases, intensity, trend)
		if !containsAnyFold(responseText, strategy.DeEscalationPhrases) {
			adapted = fmt.Sprintf("%s %s", adapted, phrase)
			mods = append(mods, "added_de_escalation")
		}
	}

	if len(strategy.AvoidPhrases) > 0 {
		replaced := removeAvoidPhrases(adapted, strategy.AvoidPhrases)
		if replaced != adapted {
			adapted = replaced
			mods = append(mods, "removed_avoid_phrases")
		}
	}

	toneText, toneMods := applyToneModifications(adapted, strategy.ResponseTone, intensity)
	if toneText != adapted {
		adapted = toneText
		mods = append(mods, toneMods...)
	}

	escalate, reason := false, ""
	switch {
	case intensity >= strategy.EscalationThreshold:
		escalate, reason = true, fmt.Sprintf("high_%s_intensity", emotion)
	case strategy.RequiresHumanReview && confidence >= 0.8:
		escalate, reason = true, "requires_human_review"
	}

	return ToneAdaptation{
		OriginalText: responseText, AdaptedText: adapted, ToneUsed: strategy.ResponseTone,
		EmotionDetected: emotion, Intensity: intensity, Confidence: confidence,
		ModificationsMade: mods, EscalationRecommended: escalate, EscalationReason: reason,
	}
}

// ShouldEscalate reports whether emotion/intensity/confidence crosses the
// strategy's escalation gate, independent of any text adaptation.
func (h *EmotionHandler) ShouldEscalate(emotion Emotion, intensity, confidence float64) (bool, string) {
	strategy := h.Strategy(emotion, intensity)
	if intensity >= strategy.EscalationThreshold {
		return true, fmt.Sprintf("high_%s_intensity", emotion)
	}
	if strategy.RequiresHumanReview && confidence >= 0.8 {
		return true, "requires_human_review"
	}
	return false, ""
}

func selectByIntensity(options []string, intensity float64) string {
	switch {
	case intensity >= 0.8:
		return firstOr(options, "I understand")
	case intensity >= 0.6:
		if len(options) > 1 {
			return options[1]
		}
		return "I understand"
	default:
		return lastOr(options, "I understand")
	}
}

func selectDeEscalation(options []string, intensity float64, trend SentimentTrendSnapshot) string {
	switch {
	case intensity >= 0.8 || trend.Trend == "negative":
		return firstOr(options, "Let me help resolve this")
	case intensity >= 0.6:
		if len(options) > 1 {
			return options[1]
		}
		return "Let me help"
	default:
		return lastOr(options, "Let me assist you")
	}
}

func firstOr(options []string, fallback string) string {
	if len(options) == 0 {
		return fallback
	}
	return options[0]
}

func lastOr(options []string, fallback string) string {
	if len(options) == 0 {
		return fallback
	}
	return options[len(options)-1]
}

func containsAnyFold(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func removeAvoidPhrases(text string, avoid []string) string {
	result := text
	for _, phrase := range avoid {
		if !strings.Contains(strings.ToLower(result), strings.ToLower(phrase)) {
			continue
		}
		alt, ok := avoidPhraseAlternatives[strings.ToLower(phrase)]
		if !ok {
			alt = "let me help you with this"
		}
		result = replaceFold(result, phrase, alt)
	}
	return result
}

// replaceFold replaces the first case-insensitive occurrence of old in s.
func replaceFold(s, old, replacement string) string {
	lowerS, lowerOld := strings.ToLower(s), strings.ToLower(old)
	idx := strings.Index(lowerS, lowerOld)
	if idx < 0 {
		return s
	}
	return s[:idx] + replacement + s[idx+len(old):]
}

func applyToneModifications(text string, tone Tone, intensity float64) (string, []string) {
	var mods []string
	adapted := text

	switch tone {
	case ToneEmpathetic:
		if intensity >= 0.7 && !hasAnyIndicator(adapted, empatheticIndicators) {
			adapted = "I truly understand how you feel. " + adapted
			mods = append(mods, "added_empathetic_language")
		}
	case ToneSupportive:
		if !hasAnyIndicator(adapted, supportiveIndicators) {
			adapted = "I'm here to support you. " + adapted
			mods = append(mods, "added_supportive_language")
		}
	case ToneClearGuidance:
		if intensity >= 0.6 {
			adapted = addGuidanceStructure(adapted)
			mods = append(mods, "added_guidance_structure")
		}
	case ToneFriendly:
		if !hasAnyIndicator(adapted, friendlyIndicators) {
			adapted = "I'd be happy to help! " + adapted
			mods = append(mods, "added_friendly_language")
		}
	case ToneEnthusiastic:
		adapted = addEnthusiasticElements(adapted, intensity)
		mods = append(mods, "added_enthusiastic_elements")
	case ToneApologetic:
		if !hasAnyIndicator(adapted, apologeticIndicators) {
			adapted = "I sincerely apologize for the inconvenience. " + adapted
			mods = append(mods, "added_apologetic_language")
		}
	}

	return adapted, mods
}

var (
	empatheticIndicators = []string{"i understand", "i truly", "i can see", "i appreciate", "i realize", "that must be", "how difficult", "i'm sorry"}
	supportiveIndicators = []string{"i'm here", "let me help", "we'll work", "together", "support", "assist", "guide", "help you"}
	friendlyIndicators   = []string{"happy to", "glad to", "excited", "wonderful", "great", "fantastic", "amazing", "awesome", "perfect"}
	apologeticIndicators = []string{"apologize", "sorry", "regret", "unfortunate", "inconvenience"}
	enthusiasticIndicators = []string{"fantastic", "wonderful", "amazing", "exciting", "thrilled", "delighted", "excellent", "perfect", "awesome"}
)

func hasAnyIndicator(text string, indicators []string) bool {
	lower := strings.ToLower(text)
	for _, i := range indicators {
		if strings.Contains(lower, i) {
			return true
		}
	}
	return false
}

func addGuidanceStructure(text string) string {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "step") && !strings.Contains(lower, "first") {
		return "Here's what we need to do: " + text
	}
	return text
}

func addEnthusiasticElements(text string, intensity float64) string {
	switch {
	case intensity >= 0.8:
		if !strings.HasPrefix(text, "That's") && !strings.HasPrefix(text, "This is") && !strings.HasPrefix(text, "How") {
			return "That's absolutely fantastic! " + text
		}
	case intensity >= 0.6:
		if !hasAnyIndicator(text, enthusiasticIndicators) {
			return "That's wonderful! " + text
		}
	}
	return text
}
