package adaptation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseCtx(intent string) IntentContext {
	return IntentContext{
		Intent: intent, Confidence: 0.95, OriginalMessage: "",
		Channel: "web_chat", Parameters: map[string]any{},
	}
}

func TestIntentRegistry_RegistersDefaults(t *testing.T) {
	r := NewIntentRegistry(nil)
	intents := r.SupportedIntents()
	assert.Len(t, intents, 5)
}

func TestTechnicalSupportHandler_CanHandleRequiresKeyword(t *testing.T) {
	h := &TechnicalSupportHandler{}
	ictx := baseCtx("technical_support")
	ictx.OriginalMessage = "I'm getting an error when I log in"
	assert.True(t, h.CanHandle(ictx))

	ictx.OriginalMessage = "hello there"
	assert.False(t, h.CanHandle(ictx))
}

func TestTechnicalSupportHandler_EscalatesOnCriticalComponent(t *testing.T) {
	h := &TechnicalSupportHandler{}
	ictx := baseCtx("technical_support")
	ictx.OriginalMessage = "database error occurred"
	ictx.Parameters = map[string]any{"system_component": "database"}

	result := h.Process(context.Background(), ictx)
	assert.True(t, result.RequiresEscalation)
	assert.Equal(t, "critical_system_component", result.EscalationReason)
}

func TestEscalationRequestHandler_AlwaysEscalates(t *testing.T) {
	h := &EscalationRequestHandler{}
	ictx := baseCtx("escalation_request")
	ictx.OriginalMessage = "I want to speak to human"

	result := h.Process(context.Background(), ictx)
	assert.True(t, result.RequiresEscalation)
	assert.Equal(t, 0.95, result.Confidence)
}

func TestIntentRegistry_ProcessIntent_FallsBackWhenNoHandlerMatches(t *testing.T) {
	r := NewIntentRegistry(nil)
	ictx := baseCtx("technical_support")
	ictx.OriginalMessage = "hello there"

	result := r.ProcessIntent(context.Background(), ictx)
	assert.False(t, result.Success)
	assert.Equal(t, "technical_support", result.Intent)
}

func TestIntentRegistry_ProcessIntent_DispatchesToMatchingHandler(t *testing.T) {
	r := NewIntentRegistry(nil)
	ictx := baseCtx("billing_inquiry")
	ictx.OriginalMessage = "I have a question about my invoice"
	ictx.Parameters = map[string]any{"billing_type": "invoice_question"}

	result := r.ProcessIntent(context.Background(), ictx)
	require.True(t, result.Success)
	assert.Equal(t, "billing_inquiry", result.Intent)
}
