package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) (*Collector, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCollector(100, nil)
	c.now = clock.now
	return c, clock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCollector_StartAndFinalizeConversation(t *testing.T) {
	c, clock := newTestCollector(t)

	c.StartConversationTracking("conv-1", "tenant-a", "user-1", "web_chat")
	clock.advance(5 * time.Second)

	c.RecordMessageProcessed("conv-1", "msg-1", "user", 42, 120, MessageEvent{})
	c.RecordMessageProcessed("conv-1", "msg-2", "ai_agent", 80, 340, MessageEvent{
		IntentConfidence: 0.9, ModelUsed: "gpt-4o", Capability: "intent",
	})

	metrics, ok := c.FinalizeConversation("conv-1")
	require.True(t, ok)
	assert.Equal(t, 2, metrics.MessageCount)
	assert.Equal(t, 1, metrics.UserMessageCount)
	assert.Equal(t, 1, metrics.AIMessageCount)
	assert.InDelta(t, 5.0, metrics.DurationSeconds, 0.001)
	assert.InDelta(t, 0.9, metrics.AvgIntentConfidence, 0.001)

	_, stillActive := c.GetActiveConversationMetrics("conv-1")
	assert.False(t, stillActive)
}

func TestCollector_FinalizeUnknownConversationReturnsFalse(t *testing.T) {
	c, _ := newTestCollector(t)
	_, ok := c.FinalizeConversation("missing")
	assert.False(t, ok)
}

func TestCollector_RecordStateTransitionTracksEscalations(t *testing.T) {
	c, _ := newTestCollector(t)
	c.StartConversationTracking("conv-1", "tenant-a", "user-1", "web_chat")

	c.RecordStateTransition("conv-1", "active", "escalated", "angry customer")
	snap, ok := c.GetActiveConversationMetrics("conv-1")
	require.True(t, ok)
	assert.Equal(t, 1, snap.Escalations)
	assert.Equal(t, 1, snap.StateTransitions)
}

func TestCollector_AIPerformanceTracksLatencyAndFallback(t *testing.T) {
	c, _ := newTestCollector(t)
	c.StartConversationTracking("conv-1", "tenant-a", "user-1", "web_chat")

	for i := 0; i < 10; i++ {
		c.RecordMessageProcessed("conv-1", "msg", "ai_agent", 10, 100+i*10, MessageEvent{
			ModelUsed: "gpt-4o", Capability: "intent", Confidence: 0.8,
		})
	}
	c.RecordMessageProcessed("conv-1", "msg-fb", "ai_agent", 10, 50, MessageEvent{
		ModelUsed: "gpt-4o", Capability: "intent", FallbackTriggered: true,
	})

	summary := c.GetAIPerformanceSummary()
	m, ok := summary.Models["gpt-4o:intent"]
	require.True(t, ok)
	assert.Equal(t, 11, m.TotalRequests)
	assert.Equal(t, 10, m.SuccessfulRequests)
	assert.Greater(t, m.P99LatencyMS, m.P50LatencyMS)
	assert.Greater(t, m.FallbackRate, 0.0)
}

func TestCollector_HistoricalMetricsFiltersByTimeRange(t *testing.T) {
	c, clock := newTestCollector(t)

	c.StartConversationTracking("conv-old", "tenant-a", "user-1", "web_chat")
	c.FinalizeConversation("conv-old")

	clock.advance(48 * time.Hour)
	c.StartConversationTracking("conv-new", "tenant-a", "user-1", "web_chat")
	c.FinalizeConversation("conv-new")

	hist := c.GetHistoricalMetrics(24)
	assert.Equal(t, 1, hist.TotalConversations)
}

func TestCollector_CleanupOldMetricsRemovesStaleRecords(t *testing.T) {
	c, clock := newTestCollector(t)

	c.StartConversationTracking("conv-1", "tenant-a", "user-1", "web_chat")
	c.FinalizeConversation("conv-1")

	clock.advance(100 * 24 * time.Hour)
	removed := c.CleanupOldMetrics(90)
	assert.Equal(t, 1, removed)
}

func TestLatencyWindow_Percentiles(t *testing.T) {
	w := newLatencyWindow(5)
	for _, v := range []float64{10, 20, 30, 40, 50} {
		w.add(v)
	}
	p50, p95, p99 := w.percentiles()
	assert.InDelta(t, 30, p50, 0.001)
	assert.Greater(t, p99, p95)
}

func TestLatencyWindow_EvictsOldestWhenFull(t *testing.T) {
	w := newLatencyWindow(3)
	for _, v := range []float64{1, 2, 3, 100, 200, 300} {
		w.add(v)
	}
	p50, _, p99 := w.percentiles()
	assert.GreaterOrEqual(t, p50, 100.0)
	assert.LessOrEqual(t, p99, 300.0)
}
