package convocontext

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserLayer_SentimentHistoryCapped(t *testing.T) {
	u := newUserLayer()
	now := time.Now()
	for i := 0; i < sentimentHistoryCap+10; i++ {
		u.AddSentimentRecord("neutral", 0.1, 0.9, now)
	}
	assert.Len(t, u.SentimentHistory, sentimentHistoryCap)
}

func TestUserLayer_SentimentTrend(t *testing.T) {
	u := newUserLayer()
	now := time.Now()

	assert.Equal(t, "neutral", u.SentimentTrend().Trend)

	for i := 0; i < 5; i++ {
		u.AddSentimentRecord("positive", 0.8, 0.9, now)
	}
	assert.Equal(t, "positive", u.SentimentTrend().Trend)
}

func TestAILayer_IntentHistoryCapped(t *testing.T) {
	a := newAILayer()
	now := time.Now()
	for i := 0; i < userIntentCap+5; i++ {
		a.RecordIntent("billing_inquiry", 0.8, nil, now)
	}
	assert.Len(t, a.IntentHistory, userIntentCap)
	assert.Equal(t, "billing_inquiry", a.LastIntent)
}

func TestAILayer_EmotionTrend(t *testing.T) {
	a := newAILayer()
	now := time.Now()

	assert.Equal(t, "neutral", a.EmotionTrend().PrimaryEmotion)

	a.RecordEmotion("frustration", 0.6, 0.9, now)
	a.RecordEmotion("frustration", 0.7, 0.9, now)
	a.RecordEmotion("anger", 0.5, 0.9, now)

	trend := a.EmotionTrend()
	assert.Equal(t, "frustration", trend.PrimaryEmotion)
}

func TestSessionLayer_RecordStateChangeCapped(t *testing.T) {
	s := newSessionLayer()
	now := time.Now()
	for i := 0; i < stateHistoryCap+5; i++ {
		s.RecordStateChange("active", "msg_received", nil, now)
	}
	assert.Len(t, s.StateHistory, stateHistoryCap)
}

func TestSessionLayer_IsTimedOut(t *testing.T) {
	s := newSessionLayer()
	now := time.Now()
	s.UpdateActivity(now)

	assert.False(t, s.IsTimedOut(time.Minute, now.Add(30*time.Second)))
	assert.True(t, s.IsTimedOut(time.Minute, now.Add(2*time.Minute)))
}

func TestBusinessLayer_AddComplianceFlagDeduplicates(t *testing.T) {
	b := newBusinessLayer()
	b.AddComplianceFlag("pii_detected", "ssn")
	b.AddComplianceFlag("pii_detected", "ssn")
	assert.Len(t, b.ComplianceFlags, 1)
}
