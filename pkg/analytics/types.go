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

// Package analytics implements the Analytics Collector (C8): live and
// finalized conversation metrics, per-message metrics, and per-model AI
// performance metrics with windowed percentile latency tracking.
package analytics

import "time"

// ConversationMetrics is the finalized metric record produced when a
// conversation ends.
type ConversationMetrics struct {
	ConversationID string
	TenantID       string
	UserID         string
	Channel        string
	StartTime      time.Time
	EndTime        time.Time
	DurationSeconds float64

	MessageCount      int
	UserMessageCount  int
	AIMessageCount    int
	AgentMessageCount int

	StateTransitions int
	Escalations      int
	Transfers        int

	AvgIntentConfidence  float64
	AvgSentimentScore    float64
	AvgEmotionIntensity  float64
	AIFallbackCount      int
	KnowledgeUsedCount   int

	Resolved               bool
	ResolutionTimeSeconds  *float64
	ResolutionType         string
	SatisfactionScore      *float64
	NPSScore               *int

	FirstResponseTimeSeconds *float64
	AvgResponseTimeSeconds   *float64
	MaxResponseTimeSeconds   *float64

	PrimaryEmotion          string
	EmotionChanges          int
	NegativeEmotionDuration float64
	PositiveEmotionDuration float64

	SLABreached             bool
	SLABreachDurationSeconds float64
	BusinessRulesApplied    int
	WorkflowsTriggered      int
}

// MessageMetrics is recorded for every individual message processed.
type MessageMetrics struct {
	MessageID         string
	ConversationID    string
	SenderType        string
	ContentLength     int
	ProcessingTimeMS  int
	Intent            string
	IntentConfidence  float64
	Sentiment         string
	SentimentScore    float64
	SentimentConfidence float64
	Emotion           string
	EmotionIntensity  float64
	EmotionConfidence float64
	EntitiesCount     int
	Language          string
	TranslationUsed   bool
	ModelUsed         string
	TokenUsage        map[string]int
	Confidence        float64
	Timestamp         time.Time
}

// MessageEvent is the input passed to RecordMessageProcessed; it mirrors
// the loosely-typed "metrics" dict the original passes per message but
// keeps the fields that are actually consumed typed.
type MessageEvent struct {
	Intent            string
	IntentConfidence  float64
	Sentiment         string
	SentimentScore    float64
	HasSentimentScore bool
	SentimentConfidence float64
	Emotion           string
	EmotionIntensity  float64
	HasEmotionIntensity bool
	EmotionConfidence float64
	EntitiesCount     int
	Language          string
	TranslationUsed   bool
	ModelUsed         string
	Capability        string
	TokenUsage        map[string]int
	Confidence        float64
	CacheHit          bool
	FallbackTriggered bool
}

// AIPerformanceMetrics aggregates latency, confidence and cost figures
// for one (model, capability) pair.
type AIPerformanceMetrics struct {
	ModelName  string
	Capability string

	TotalRequests      int
	SuccessfulRequests int
	FailedRequests     int

	AvgLatencyMS float64
	P50LatencyMS float64
	P95LatencyMS float64
	P99LatencyMS float64

	AvgConfidence  float64
	AvgTokensUsed  float64
	AvgCost        float64
	CacheHitRate   float64
	FallbackRate   float64
}
