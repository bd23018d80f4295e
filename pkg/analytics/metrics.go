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

import "github.com/prometheus/client_golang/prometheus"

// Recorder mirrors collector events into an external metrics backend.
// Collector calls it synchronously under its own lock, so implementations
// must not block.
type Recorder interface {
	RecordMessage(senderType string, processingTimeMS int)
	RecordAICall(modelName, capability string, latencyMS int, cacheHit bool)
	RecordAIFallback(modelName, capability string)
	RecordConversationFinalized(channel string, durationSeconds float64, resolved, escalated bool)
}

// PrometheusRecorder implements Recorder on top of a dedicated
// prometheus.Registry, built from namespaced CounterVec/HistogramVec
// pairs.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	messagesTotal   *prometheus.CounterVec
	messageDuration *prometheus.HistogramVec

	aiCallsTotal    *prometheus.CounterVec
	aiCallDuration  *prometheus.HistogramVec
	aiFallbackTotal *prometheus.CounterVec
	aiCacheHits     *prometheus.CounterVec

	conversationsTotal    *prometheus.CounterVec
	conversationDuration  *prometheus.HistogramVec
	conversationsEscalated *prometheus.CounterVec
}

// NewPrometheusRecorder builds a Recorder with its own registry under
// the given namespace (e.g. "convoengine").
func NewPrometheusRecorder(namespace string) *PrometheusRecorder {
	r := &PrometheusRecorder{registry: prometheus.NewRegistry()}

	r.messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "processed_total",
			Help:      "Total number of conversation messages processed",
		},
		[]string{"sender_type"},
	)
	r.messageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "processing_duration_seconds",
			Help:      "Message processing duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"sender_type"},
	)

	r.aiCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "calls_total",
			Help:      "Total number of successful AI provider calls",
		},
		[]string{"model", "capability"},
	)
	r.aiCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "call_duration_seconds",
			Help:      "AI provider call duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"model", "capability"},
	)
	r.aiFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "fallbacks_total",
			Help:      "Total number of AI provider fallback triggers",
		},
		[]string{"model", "capability"},
	)
	r.aiCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "cache_hits_total",
			Help:      "Total number of AI response cache hits",
		},
		[]string{"model", "capability"},
	)

	r.conversationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversations",
			Name:      "finalized_total",
			Help:      "Total number of conversations finalized",
		},
		[]string{"channel", "resolved"},
	)
	r.conversationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "conversations",
			Name:      "duration_seconds",
			Help:      "Conversation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 15),
		},
		[]string{"channel"},
	)
	r.conversationsEscalated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversations",
			Name:      "escalated_total",
			Help:      "Total number of conversations that escalated at least once",
		},
		[]string{"channel"},
	)

	r.registry.MustRegister(
		r.messagesTotal, r.messageDuration,
		r.aiCallsTotal, r.aiCallDuration, r.aiFallbackTotal, r.aiCacheHits,
		r.conversationsTotal, r.conversationDuration, r.conversationsEscalated,
	)
	return r
}

// Registry exposes the underlying registry for wiring into an HTTP
// /metrics handler.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) RecordMessage(senderType string, processingTimeMS int) {
	r.messagesTotal.WithLabelValues(senderType).Inc()
	r.messageDuration.WithLabelValues(senderType).Observe(float64(processingTimeMS) / 1000.0)
}

func (r *PrometheusRecorder) RecordAICall(modelName, capability string, latencyMS int, cacheHit bool) {
	r.aiCallsTotal.WithLabelValues(modelName, capability).Inc()
	r.aiCallDuration.WithLabelValues(modelName, capability).Observe(float64(latencyMS) / 1000.0)
	if cacheHit {
		r.aiCacheHits.WithLabelValues(modelName, capability).Inc()
	}
}

func (r *PrometheusRecorder) RecordAIFallback(modelName, capability string) {
	r.aiFallbackTotal.WithLabelValues(modelName, capability).Inc()
}

func (r *PrometheusRecorder) RecordConversationFinalized(channel string, durationSeconds float64, resolved, escalated bool) {
	r.conversationsTotal.WithLabelValues(channel, boolLabel(resolved)).Inc()
	r.conversationDuration.WithLabelValues(channel).Observe(durationSeconds)
	if escalated {
		r.conversationsEscalated.WithLabelValues(channel).Inc()
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
