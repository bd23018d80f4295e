package analytics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorder_RecordsMessagesAndAICalls(t *testing.T) {
	r := NewPrometheusRecorder("convoengine_test")
	r.RecordMessage("user", 100)
	r.RecordAICall("gpt-4o", "intent", 250, true)
	r.RecordAIFallback("gpt-4o", "intent")
	r.RecordConversationFinalized("web_chat", 42.0, true, false)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.messagesTotal.WithLabelValues("user")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.aiCallsTotal.WithLabelValues("gpt-4o", "intent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.aiCacheHits.WithLabelValues("gpt-4o", "intent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.aiFallbackTotal.WithLabelValues("gpt-4o", "intent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.conversationsTotal.WithLabelValues("web_chat", "true")))
}

func TestCollector_WithRecorderForwardsEvents(t *testing.T) {
	rec := NewPrometheusRecorder("convoengine_test2")
	c, _ := newTestCollector(t)
	c.recorder = rec

	c.StartConversationTracking("conv-1", "tenant-a", "user-1", "web_chat")
	c.RecordMessageProcessed("conv-1", "msg-1", "user", 10, 50, MessageEvent{})
	c.FinalizeConversation("conv-1")

	assert.Equal(t, float64(1), testutil.ToFloat64(rec.messagesTotal.WithLabelValues("user")))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.conversationsTotal.WithLabelValues("web_chat", "false")))
}
