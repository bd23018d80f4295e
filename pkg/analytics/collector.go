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

package analytics

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type stateRecord struct {
	fromState string
	toState   string
	reason    string
	timestamp time.Time
}

type emotionRecord struct {
	emotion   string
	intensity float64
	timestamp time.Time
}

type resolution struct {
	resolved          bool
	resolutionType    string
	satisfactionScore *float64
	npsScore          *int
	timestamp         time.Time
}

type activeConversation struct {
	tenantID   string
	userID     string
	channel    string
	startTime  time.Time

	messageCount      int
	userMessageCount  int
	aiMessageCount    int
	agentMessageCount int

	stateTransitions int
	escalations      int
	transfers         int

	aiFallbackCount    int
	knowledgeUsedCount int

	intentConfidences []float64
	sentimentScores   []float64
	emotionIntensities []float64
	responseTimes      []float64

	firstResponseTime *float64
	emotions          []string
	emotionTimeline   []emotionRecord

	businessRulesApplied int
	workflowsTriggered   int

	slaBreached            bool
	slaBreachDurationSecs  float64
	slaBreachStart         *time.Time

	currentState string
	stateHistory []stateRecord
	resolution   *resolution
}

// Collector tracks live conversations and accumulates finalized
// conversation/message/AI-performance metrics, mirroring
// ConversationAnalytics from the system this was modeled on.
type Collector struct {
	mu sync.Mutex

	active      map[string]*activeConversation
	finalized   []ConversationMetrics
	messages    []MessageMetrics
	aiPerf      map[string]*aiPerfState
	percentileWindow int

	maxMessageHistory int

	logger *slog.Logger
	now    func() time.Time

	recorder Recorder
}

type aiPerfState struct {
	metrics AIPerformanceMetrics
	latency *latencyWindow
}

// Option configures a Collector.
type Option func(*Collector)

// WithRecorder attaches a Prometheus (or other) Recorder that mirrors
// every recorded event into external metrics.
func WithRecorder(r Recorder) Option {
	return func(c *Collector) { c.recorder = r }
}

// WithMaxMessageHistory bounds the in-memory per-message metrics slice;
// zero means unbounded.
func WithMaxMessageHistory(n int) Option {
	return func(c *Collector) { c.maxMessageHistory = n }
}

// NewCollector creates a Collector. percentileWindow bounds how many
// latency samples are retained per (model, capability) pair for
// percentile computation (AnalyticsConfig.PercentileWindow).
func NewCollector(percentileWindow int, logger *slog.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if percentileWindow <= 0 {
		percentileWindow = 1000
	}
	c := &Collector{
		active:           make(map[string]*activeConversation),
		aiPerf:           make(map[string]*aiPerfState),
		percentileWindow: percentileWindow,
		logger:           logger,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartConversationTracking begins tracking a new conversation.
func (c *Collector) StartConversationTracking(conversationID, tenantID, userID, channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active[conversationID] = &activeConversation{
		tenantID:     tenantID,
		userID:       userID,
		channel:      channel,
		startTime:    c.now(),
		currentState: "initialized",
	}
	c.logger.Info("started conversation tracking", "conversation_id", conversationID, "tenant_id", tenantID, "channel", channel)
}

// RecordMessageProcessed records per-message metrics and rolls them up
// into the live conversation aggregates and, for AI-sourced messages,
// the per-model performance table.
func (c *Collector) RecordMessageProcessed(conversationID, messageID, senderType string, contentLength, processingTimeMS int, ev MessageEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.active[conversationID]
	if !ok {
		c.logger.Warn("attempted to record message for untracked conversation", "conversation_id", conversationID)
		return
	}

	conv.messageCount++
	switch senderType {
	case "user":
		conv.userMessageCount++
	case "ai_agent":
		conv.aiMessageCount++
	case "human_agent":
		conv.agentMessageCount++
	}

	if conv.firstResponseTime == nil && senderType == "ai_agent" {
		for _, sr := range conv.stateHistory {
			if sr.toState == "active" {
				elapsed := c.now().Sub(sr.timestamp).Seconds()
				conv.firstResponseTime = &elapsed
				break
			}
		}
	}

	conv.responseTimes = append(conv.responseTimes, float64(processingTimeMS)/1000.0)

	if ev.IntentConfidence > 0 {
		conv.intentConfidences = append(conv.intentConfidences, ev.IntentConfidence)
	}
	if ev.HasSentimentScore {
		conv.sentimentScores = append(conv.sentimentScores, ev.SentimentScore)
	}
	if ev.HasEmotionIntensity {
		conv.emotionIntensities = append(conv.emotionIntensities, ev.EmotionIntensity)
	}
	if ev.Emotion != "" {
		conv.emotions = append(conv.emotions, ev.Emotion)
		conv.emotionTimeline = append(conv.emotionTimeline, emotionRecord{
			emotion:   ev.Emotion,
			intensity: ev.EmotionIntensity,
			timestamp: c.now(),
		})
	}

	if ev.ModelUsed != "" {
		c.recordAIPerformanceLocked(ev.ModelUsed, ev.Capability, processingTimeMS, ev.Confidence, ev.TokenUsage, ev.CacheHit, ev.FallbackTriggered)
	}

	msg := MessageMetrics{
		MessageID:           messageID,
		ConversationID:      conversationID,
		SenderType:          senderType,
		ContentLength:       contentLength,
		ProcessingTimeMS:    processingTimeMS,
		Intent:              ev.Intent,
		IntentConfidence:    ev.IntentConfidence,
		Sentiment:           ev.Sentiment,
		SentimentScore:      ev.SentimentScore,
		SentimentConfidence: ev.SentimentConfidence,
		Emotion:             ev.Emotion,
		EmotionIntensity:    ev.EmotionIntensity,
		EmotionConfidence:   ev.EmotionConfidence,
		EntitiesCount:       ev.EntitiesCount,
		Language:            firstNonEmpty(ev.Language, "en"),
		TranslationUsed:     ev.TranslationUsed,
		ModelUsed:           ev.ModelUsed,
		TokenUsage:          ev.TokenUsage,
		Confidence:          ev.Confidence,
		Timestamp:           c.now(),
	}
	c.messages = append(c.messages, msg)
	if c.maxMessageHistory > 0 && len(c.messages) > c.maxMessageHistory {
		c.messages = c.messages[len(c.messages)-c.maxMessageHistory:]
	}

	if c.recorder != nil {
		c.recorder.RecordMessage(senderType, processingTimeMS)
	}

	c.logger.Debug("recorded message metrics", "conversation_id", conversationID, "message_id", messageID, "sender_type", senderType, "processing_time_ms", processingTimeMS)
}

func firstNonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// RecordStateTransition records an FSM transition against the
// conversation's live aggregates.
func (c *Collector) RecordStateTransition(conversationID, fromState, toState, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.active[conversationID]
	if !ok {
		return
	}

	conv.stateTransitions++
	conv.currentState = toState
	conv.stateHistory = append(conv.stateHistory, stateRecord{
		fromState: fromState,
		toState:   toState,
		reason:    reason,
		timestamp: c.now(),
	})

	switch toState {
	case "escalated":
		conv.escalations++
	case "transferred":
		conv.transfers++
	}

	c.logger.Debug("recorded state transition", "conversation_id", conversationID, "from_state", fromState, "to_state", toState)
}

// RecordResolution records the terminal resolution outcome of a
// conversation.
func (c *Collector) RecordResolution(conversationID string, resolved bool, resolutionType string, satisfactionScore *float64, npsScore *int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.active[conversationID]
	if !ok {
		return
	}

	conv.resolution = &resolution{
		resolved:          resolved,
		resolutionType:    resolutionType,
		satisfactionScore: satisfactionScore,
		npsScore:          npsScore,
		timestamp:         c.now(),
	}

	c.logger.Info("recorded conversation resolution", "conversation_id", conversationID, "resolved", resolved, "resolution_type", resolutionType)
}

// RecordSLABreach marks the conversation as having breached its SLA.
func (c *Collector) RecordSLABreach(conversationID, breachType string, breachDurationSeconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.active[conversationID]
	if !ok {
		return
	}

	conv.slaBreached = true
	conv.slaBreachDurationSecs = breachDurationSeconds
	if conv.slaBreachStart == nil {
		t := c.now()
		conv.slaBreachStart = &t
	}

	c.logger.Warn("recorded sla breach", "conversation_id", conversationID, "breach_type", breachType, "duration_seconds", breachDurationSeconds)
}

// RecordBusinessRuleApplied increments the business-rule counter.
func (c *Collector) RecordBusinessRuleApplied(conversationID, ruleID, ruleName, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.active[conversationID]
	if !ok {
		return
	}
	conv.businessRulesApplied++
	c.logger.Debug("recorded business rule application", "conversation_id", conversationID, "rule_id", ruleID, "result", result)
}

// RecordWorkflowTriggered increments the workflow-trigger counter.
func (c *Collector) RecordWorkflowTriggered(conversationID, workflowID, workflowName, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.active[conversationID]
	if !ok {
		return
	}
	conv.workflowsTriggered++
	c.logger.Debug("recorded workflow trigger", "conversation_id", conversationID, "workflow_id", workflowID, "status", status)
}

func (c *Collector) recordAIPerformanceLocked(modelName, capability string, latencyMS int, confidence float64, tokenUsage map[string]int, cacheHit, fallbackTriggered bool) {
	if capability == "" {
		capability = "unknown"
	}
	key := fmt.Sprintf("%s:%s", modelName, capability)

	st, ok := c.aiPerf[key]
	if !ok {
		st = &aiPerfState{
			metrics: AIPerformanceMetrics{ModelName: modelName, Capability: capability},
			latency: newLatencyWindow(c.percentileWindow),
		}
		c.aiPerf[key] = st
	}

	m := &st.metrics
	m.TotalRequests++

	if fallbackTriggered {
		m.FallbackRate = (m.FallbackRate*float64(m.TotalRequests-1) + 1) / float64(m.TotalRequests)
		if c.recorder != nil {
			c.recorder.RecordAIFallback(modelName, capability)
		}
		return
	}

	m.SuccessfulRequests++
	n := float64(m.SuccessfulRequests)

	m.AvgLatencyMS = (m.AvgLatencyMS*(n-1) + float64(latencyMS)) / n
	st.latency.add(float64(latencyMS))
	m.P50LatencyMS, m.P95LatencyMS, m.P99LatencyMS = st.latency.percentiles()

	m.AvgConfidence = (m.AvgConfidence*(n-1) + confidence) / n

	totalTokens := tokenUsage["total_tokens"]
	m.AvgTokensUsed = (m.AvgTokensUsed*(n-1) + float64(totalTokens)) / n

	if cacheHit {
		m.CacheHitRate = (m.CacheHitRate*(n-1) + 1) / n
	} else {
		m.CacheHitRate = (m.CacheHitRate * (n - 1)) / n
	}

	if c.recorder != nil {
		c.recorder.RecordAICall(modelName, capability, latencyMS, cacheHit)
	}
}

// FinalizeConversation computes derived metrics for a conversation,
// moves it out of the live tracking table, and returns the finalized
// record. Returns false if the conversation isn't tracked.
func (c *Collector) FinalizeConversation(conversationID string) (ConversationMetrics, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.active[conversationID]
	if !ok {
		c.logger.Warn("attempted to finalize untracked conversation", "conversation_id", conversationID)
		return ConversationMetrics{}, false
	}

	endTime := c.now()
	duration := endTime.Sub(conv.startTime).Seconds()

	avgIntentConfidence := avg(conv.intentConfidences)
	avgSentimentScore := avg(conv.sentimentScores)
	avgEmotionIntensity := avg(conv.emotionIntensities)

	var avgResponseTime, maxResponseTime *float64
	if len(conv.responseTimes) > 0 {
		a := avg(conv.responseTimes)
		avgResponseTime = &a
		m := conv.responseTimes[0]
		for _, v := range conv.responseTimes[1:] {
			if v > m {
				m = v
			}
		}
		maxResponseTime = &m
	}

	var primaryEmotion string
	if len(conv.emotions) > 0 {
		counts := make(map[string]int)
		for _, e := range conv.emotions {
			counts[e]++
		}
		best, bestCount := "", -1
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if counts[k] > bestCount {
				best, bestCount = k, counts[k]
			}
		}
		primaryEmotion = best
	}

	var negativeDuration, positiveDuration float64
	for i, rec := range conv.emotionTimeline {
		if i == 0 {
			continue
		}
		diff := rec.timestamp.Sub(conv.emotionTimeline[i-1].timestamp).Seconds()
		switch rec.emotion {
		case "angry", "frustrated":
			negativeDuration += diff
		case "happy", "excited", "satisfied":
			positiveDuration += diff
		}
	}

	var resolved bool
	var resolutionType string
	var satisfactionScore *float64
	var npsScore *int
	var resolutionTime *float64
	if conv.resolution != nil {
		resolved = conv.resolution.resolved
		resolutionType = conv.resolution.resolutionType
		satisfactionScore = conv.resolution.satisfactionScore
		npsScore = conv.resolution.npsScore
		t := conv.resolution.timestamp.Sub(conv.startTime).Seconds()
		resolutionTime = &t
	}

	metrics := ConversationMetrics{
		ConversationID:           conversationID,
		TenantID:                 conv.tenantID,
		UserID:                   conv.userID,
		Channel:                  conv.channel,
		StartTime:                conv.startTime,
		EndTime:                  endTime,
		DurationSeconds:          duration,
		MessageCount:             conv.messageCount,
		UserMessageCount:         conv.userMessageCount,
		AIMessageCount:           conv.aiMessageCount,
		AgentMessageCount:        conv.agentMessageCount,
		StateTransitions:         conv.stateTransitions,
		Escalations:              conv.escalations,
		Transfers:                conv.transfers,
		AvgIntentConfidence:      avgIntentConfidence,
		AvgSentimentScore:        avgSentimentScore,
		AvgEmotionIntensity:      avgEmotionIntensity,
		AIFallbackCount:          conv.aiFallbackCount,
		KnowledgeUsedCount:       conv.knowledgeUsedCount,
		Resolved:                 resolved,
		ResolutionTimeSeconds:    resolutionTime,
		ResolutionType:           resolutionType,
		SatisfactionScore:        satisfactionScore,
		NPSScore:                 npsScore,
		FirstResponseTimeSeconds: conv.firstResponseTime,
		AvgResponseTimeSeconds:   avgResponseTime,
		MaxResponseTimeSeconds:   maxResponseTime,
		PrimaryEmotion:           primaryEmotion,
		EmotionChanges:           len(conv.emotionTimeline),
		NegativeEmotionDuration:  negativeDuration,
		PositiveEmotionDuration:  positiveDuration,
		SLABreached:              conv.slaBreached,
		SLABreachDurationSeconds: conv.slaBreachDurationSecs,
		BusinessRulesApplied:     conv.businessRulesApplied,
		WorkflowsTriggered:       conv.workflowsTriggered,
	}

	c.finalized = append(c.finalized, metrics)
	delete(c.active, conversationID)

	if c.recorder != nil {
		c.recorder.RecordConversationFinalized(conv.channel, duration, resolved, conv.escalations > 0)
	}

	c.logger.Info("finalized conversation metrics", "conversation_id", conversationID, "duration_seconds", duration, "message_count", conv.messageCount, "resolved", resolved)

	return metrics, true
}

func avg(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// ActiveSnapshot is a point-in-time view of a still-open conversation.
type ActiveSnapshot struct {
	ConversationID      string
	DurationSeconds     float64
	MessageCount        int
	UserMessageCount    int
	AIMessageCount      int
	StateTransitions    int
	Escalations         int
	AvgIntentConfidence float64
	AvgSentimentScore   float64
	FirstResponseTime   *float64
	AvgResponseTime     *float64
	SLABreached         bool
	CurrentState        string
}

// GetActiveConversationMetrics returns a live snapshot for an open
// conversation, or false if it isn't tracked.
func (c *Collector) GetActiveConversationMetrics(conversationID string) (ActiveSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.active[conversationID]
	if !ok {
		return ActiveSnapshot{}, false
	}

	var avgResponseTime *float64
	if len(conv.responseTimes) > 0 {
		a := avg(conv.responseTimes)
		avgResponseTime = &a
	}

	return ActiveSnapshot{
		ConversationID:      conversationID,
		DurationSeconds:     c.now().Sub(conv.startTime).Seconds(),
		MessageCount:        conv.messageCount,
		UserMessageCount:    conv.userMessageCount,
		AIMessageCount:      conv.aiMessageCount,
		StateTransitions:    conv.stateTransitions,
		Escalations:         conv.escalations,
		AvgIntentConfidence: avg(conv.intentConfidences),
		AvgSentimentScore:   avg(conv.sentimentScores),
		FirstResponseTime:   conv.firstResponseTime,
		AvgResponseTime:     avgResponseTime,
		SLABreached:         conv.slaBreached,
		CurrentState:        conv.currentState,
	}, true
}

// HistoricalMetrics aggregates finalized conversations over a time
// window.
type HistoricalMetrics struct {
	TimeRangeHours           int
	TotalConversations       int
	ResolvedConversations    int
	ResolutionRate           float64
	EscalatedConversations   int
	EscalationRate           float64
	AvgDurationSeconds       float64
	AvgMessageCount          float64
	AvgIntentConfidence      float64
	AvgSentimentScore        float64
	AvgSatisfactionScore     *float64
	AvgNPSScore              *float64
	AvgResponseTimeSeconds   *float64
	AvgFirstResponseSeconds  *float64
	SLABreachCount           int
	SLABreachRate            float64
}

// GetHistoricalMetrics aggregates finalized conversations that started
// within the last timeRangeHours.
func (c *Collector) GetHistoricalMetrics(timeRangeHours int) HistoricalMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-time.Duration(timeRangeHours) * time.Hour)

	var recent []ConversationMetrics
	for _, m := range c.finalized {
		if !m.StartTime.Before(cutoff) {
			recent = append(recent, m)
		}
	}

	if len(recent) == 0 {
		return HistoricalMetrics{TimeRangeHours: 0}
	}

	total := len(recent)
	resolved, escalated, slaBreaches := 0, 0, 0
	var durationSum, messageSum, intentSum, sentimentSum float64
	var satisfactionScores []float64
	var npsScores []float64
	var responseTimes []float64
	var firstResponseTimes []float64

	for _, m := range recent {
		if m.Resolved {
			resolved++
		}
		if m.Escalations > 0 {
			escalated++
		}
		if m.SLABreached {
			slaBreaches++
		}
		durationSum += m.DurationSeconds
		messageSum += float64(m.MessageCount)
		intentSum += m.AvgIntentConfidence
		sentimentSum += m.AvgSentimentScore
		if m.SatisfactionScore != nil {
			satisfactionScores = append(satisfactionScores, *m.SatisfactionScore)
		}
		if m.NPSScore != nil {
			npsScores = append(npsScores, float64(*m.NPSScore))
		}
		if m.AvgResponseTimeSeconds != nil {
			responseTimes = append(responseTimes, *m.AvgResponseTimeSeconds)
		}
		if m.FirstResponseTimeSeconds != nil {
			firstResponseTimes = append(firstResponseTimes, *m.FirstResponseTimeSeconds)
		}
	}

	hm := HistoricalMetrics{
		TimeRangeHours:         timeRangeHours,
		TotalConversations:     total,
		ResolvedConversations:  resolved,
		ResolutionRate:         float64(resolved) / float64(total),
		EscalatedConversations: escalated,
		EscalationRate:         float64(escalated) / float64(total),
		AvgDurationSeconds:     durationSum / float64(total),
		AvgMessageCount:        messageSum / float64(total),
		AvgIntentConfidence:    intentSum / float64(total),
		AvgSentimentScore:      sentimentSum / float64(total),
		SLABreachCount:         slaBreaches,
		SLABreachRate:          float64(slaBreaches) / float64(total),
	}
	if len(satisfactionScores) > 0 {
		v := avg(satisfactionScores)
		hm.AvgSatisfactionScore = &v
	}
	if len(npsScores) > 0 {
		v := avg(npsScores)
		hm.AvgNPSScore = &v
	}
	if len(responseTimes) > 0 {
		v := avg(responseTimes)
		hm.AvgResponseTimeSeconds = &v
	}
	if len(firstResponseTimes) > 0 {
		v := avg(firstResponseTimes)
		hm.AvgFirstResponseSeconds = &v
	}
	return hm
}

// AIPerformanceSummary is the full per-model breakdown plus overall
// rollups.
type AIPerformanceSummary struct {
	Models  map[string]AIPerformanceMetrics
	Overall AIPerformanceMetrics
}

// GetAIPerformanceSummary returns per-model metrics plus an overall
// rollup across all tracked models.
func (c *Collector) GetAIPerformanceSummary() AIPerformanceSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary := AIPerformanceSummary{Models: make(map[string]AIPerformanceMetrics, len(c.aiPerf))}
	if len(c.aiPerf) == 0 {
		return summary
	}

	var totalRequests, totalSuccessful, totalFailed int
	var totalLatency, totalConfidence, totalCacheHit, totalFallback float64

	for key, st := range c.aiPerf {
		summary.Models[key] = st.metrics
		totalRequests += st.metrics.TotalRequests
		totalSuccessful += st.metrics.SuccessfulRequests
		totalFailed += st.metrics.FailedRequests
		totalLatency += st.metrics.AvgLatencyMS
		totalConfidence += st.metrics.AvgConfidence
		totalCacheHit += st.metrics.CacheHitRate
		totalFallback += st.metrics.FallbackRate
	}

	modelCount := float64(len(c.aiPerf))
	summary.Overall = AIPerformanceMetrics{
		TotalRequests:      totalRequests,
		SuccessfulRequests: totalSuccessful,
		FailedRequests:     totalFailed,
		AvgLatencyMS:       totalLatency / modelCount,
		AvgConfidence:      totalConfidence / modelCount,
		CacheHitRate:       totalCacheHit / modelCount,
		FallbackRate:       totalFallback / modelCount,
	}
	return summary
}

// EmitEvent logs a structured analytics event for external consumption
// (the original forwarded these to an event bus; here the recorder, if
// any, plays that role and this always logs).
func (c *Collector) EmitEvent(eventType string, data map[string]any) {
	c.logger.Info("analytics event emitted", "event_type", eventType, "timestamp", c.now(), "data", data)
}

// CleanupOldMetrics drops finalized conversation and message metrics
// older than maxAgeDays and returns the number of records removed.
func (c *Collector) CleanupOldMetrics(maxAgeDays int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().AddDate(0, 0, -maxAgeDays)

	keptConv := c.finalized[:0:0]
	removedConv := 0
	for _, m := range c.finalized {
		if m.StartTime.Before(cutoff) {
			removedConv++
			continue
		}
		keptConv = append(keptConv, m)
	}
	c.finalized = keptConv

	keptMsg := c.messages[:0:0]
	removedMsg := 0
	for _, m := range c.messages {
		if m.Timestamp.Before(cutoff) {
			removedMsg++
			continue
		}
		keptMsg = append(keptMsg, m)
	}
	c.messages = keptMsg

	c.logger.Info("cleaned up old metrics", "removed_conversations", removedConv, "removed_messages", removedMsg, "max_age_days", maxAgeDays)
	return removedConv + removedMsg
}

// MetricsSummary is the top-level SystemMetrics view exposed by the
// facade.
type MetricsSummary struct {
	ActiveConversations      int
	TotalConversationsTracked int
	TotalMessagesTracked     int
	AIModelsTracked          int
	Recent                   HistoricalMetrics
	AIPerformance            AIPerformanceSummary
}

// GetMetricsSummary produces the full system metrics snapshot.
func (c *Collector) GetMetricsSummary() MetricsSummary {
	c.mu.Lock()
	active := len(c.active)
	totalConv := len(c.finalized)
	totalMsg := len(c.messages)
	totalModels := len(c.aiPerf)
	c.mu.Unlock()

	return MetricsSummary{
		ActiveConversations:       active,
		TotalConversationsTracked: totalConv,
		TotalMessagesTracked:      totalMsg,
		AIModelsTracked:           totalModels,
		Recent:                    c.GetHistoricalMetrics(24),
		AIPerformance:             c.GetAIPerformanceSummary(),
	}
}
