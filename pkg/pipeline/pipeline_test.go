package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/nordeim/convoengine/pkg/fsm"
	"github.com/nordeim/convoengine/pkg/orchestrator"
	"github.com/nordeim/convoengine/pkg/providers"
)

// fakeProvider returns a canned Result for whatever capability it's
// invoked with, keyed by the capability the descriptor advertises.
type fakeProvider struct {
	outputs map[convotypes.Capability]providers.Result
}

func (f *fakeProvider) Invoke(ctx context.Context, req providers.Request) (providers.Result, error) {
	out, ok := f.outputs[req.Capability]
	if !ok {
		return providers.Result{}, assert.AnError
	}
	return out, nil
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()

	reg := providers.NewRegistry()
	fp := &fakeProvider{outputs: map[convotypes.Capability]providers.Result{
		convotypes.CapabilityLanguageDetection: {Output: "en", ModelUsed: "lang-model", Confidence: 0.95},
		convotypes.CapabilityIntentClassify: {
			Output:     map[string]any{"intent": "billing_inquiry", "parameters": map[string]any{"billing_type": "invoice_question"}},
			ModelUsed:  "intent-model",
			Confidence: 0.88,
		},
		convotypes.CapabilitySentimentAnalysis: {
			Output:     map[string]any{"sentiment": "neutral", "score": 0.1},
			ModelUsed:  "sentiment-model",
			Confidence: 0.8,
		},
		convotypes.CapabilityEmotionDetection: {
			Output:     map[string]any{"emotion": "neutral", "intensity": 0.2},
			ModelUsed:  "emotion-model",
			Confidence: 0.75,
		},
		convotypes.CapabilityEntityExtraction: {Output: []convotypes.Entity{}, ModelUsed: "entity-model", Confidence: 0.9},
		convotypes.CapabilityRetrieval:        {Output: "relevant help article", ModelUsed: "retrieval-model", Confidence: 0.9},
		convotypes.CapabilityChatCompletion:   {Output: "Here is your invoice summary.", ModelUsed: "chat-model", Confidence: 0.9},
	}}

	for _, cap := range []convotypes.Capability{
		convotypes.CapabilityLanguageDetection,
		convotypes.CapabilityIntentClassify,
		convotypes.CapabilitySentimentAnalysis,
		convotypes.CapabilityEmotionDetection,
		convotypes.CapabilityEntityExtraction,
		convotypes.CapabilityRetrieval,
		convotypes.CapabilityChatCompletion,
	} {
		desc := &convotypes.ModelDescriptor{
			Name:         string(cap) + "-model",
			Provider:     "fake",
			Capabilities: map[convotypes.Capability]struct{}{cap: {}},
			Active:       true,
		}
		require.NoError(t, reg.Register(desc, fp))
	}

	orch := orchestrator.New(reg, orchestrator.DefaultConfig(), nil)
	return New(orch, nil, nil, nil, DefaultConfig(), nil)
}

func TestPipeline_Process_HappyPath(t *testing.T) {
	p := newTestPipeline(t)

	out, err := p.Process(context.Background(), TurnInput{
		ConversationID: "conv-1",
		TenantID:       "tenant-a",
		UserID:         "user-1",
		Channel:        "web_chat",
		Content:        "I have a question about my invoice",
		CurrentState:   fsm.StateProcessing,
	})
	require.NoError(t, err)

	assert.Equal(t, "billing_inquiry", out.Annotations.Intent)
	assert.Equal(t, "en", out.Annotations.Language)
	require.NotNil(t, out.IntentResult)
	assert.True(t, out.IntentResult.Success)
	assert.NotEmpty(t, out.ResponseText)
	assert.Equal(t, fsm.StateActive, out.NextState)
	assert.False(t, out.RequiresEscalation)
}

func TestPipeline_Process_EscalatesOnAngryHighIntensity(t *testing.T) {
	reg := providers.NewRegistry()
	fp := &fakeProvider{outputs: map[convotypes.Capability]providers.Result{
		convotypes.CapabilityLanguageDetection: {Output: "en", ModelUsed: "lang-model", Confidence: 0.95},
		convotypes.CapabilityIntentClassify: {
			Output:     map[string]any{"intent": "general_question"},
			ModelUsed:  "intent-model",
			Confidence: 0.9,
		},
		convotypes.CapabilitySentimentAnalysis: {
			Output:     map[string]any{"sentiment": "negative", "score": -0.8},
			ModelUsed:  "sentiment-model",
			Confidence: 0.85,
		},
		convotypes.CapabilityEmotionDetection: {
			Output:     map[string]any{"emotion": "angry", "intensity": 0.9},
			ModelUsed:  "emotion-model",
			Confidence: 0.9,
		},
		convotypes.CapabilityEntityExtraction: {Output: []convotypes.Entity{}, ModelUsed: "entity-model", Confidence: 0.9},
		convotypes.CapabilityChatCompletion:   {Output: "I understand your frustration.", ModelUsed: "chat-model", Confidence: 0.9},
	}}

	for _, cap := range []convotypes.Capability{
		convotypes.CapabilityLanguageDetection,
		convotypes.CapabilityIntentClassify,
		convotypes.CapabilitySentimentAnalysis,
		convotypes.CapabilityEmotionDetection,
		convotypes.CapabilityEntityExtraction,
		convotypes.CapabilityChatCompletion,
	} {
		desc := &convotypes.ModelDescriptor{
			Name:         string(cap) + "-model",
			Provider:     "fake",
			Capabilities: map[convotypes.Capability]struct{}{cap: {}},
			Active:       true,
		}
		require.NoError(t, reg.Register(desc, fp))
	}

	orch := orchestrator.New(reg, orchestrator.DefaultConfig(), nil)
	cfg := DefaultConfig()
	cfg.EnableKnowledge = false
	p := New(orch, nil, nil, nil, cfg, nil)

	out, err := p.Process(context.Background(), TurnInput{
		ConversationID: "conv-2",
		Channel:        "web_chat",
		Content:        "this is unacceptable, hello",
		CurrentState:   fsm.StateProcessing,
		SentimentTrend: "negative",
	})
	require.NoError(t, err)

	assert.True(t, out.RequiresEscalation)
	assert.Equal(t, fsm.StateEscalated, out.NextState)
	require.NotNil(t, out.ToneAdaptation)
	assert.Contains(t, out.ToneAdaptation.ModificationsMade, "added_empathy_marker")
}

func TestPipeline_AggregateConfidenceUsesWeights(t *testing.T) {
	p := newTestPipeline(t)
	p.cfg.Weights = Weights{Intent: 1, Sentiment: 0, Emotion: 0}

	conf := p.aggregateConfidence(analysisResult{intentConfidence: 0.42})
	assert.InDelta(t, 0.42, conf, 0.001)
}

func TestDetermineNextState_LowConfidenceWaitsForUser(t *testing.T) {
	p := newTestPipeline(t)
	state := p.determineNextState(fsm.StateActive, 0.3, 0.9, false, true)
	assert.Equal(t, fsm.StateWaitingForUser, state)
}
