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

package convotypes

import "time"

// ModelType classifies what a Model descriptor is good for at a coarse
// level, independent of the finer-grained Capability tags it advertises.
type ModelType string

const (
	ModelTypeChat           ModelType = "chat"
	ModelTypeEmbedding      ModelType = "embedding"
	ModelTypeClassification ModelType = "classification"
)

// Capability is a named behaviour a model may offer.
type Capability string

const (
	CapabilityTextGeneration     Capability = "text_generation"
	CapabilityEmbedding          Capability = "embedding"
	CapabilityIntentClassify     Capability = "intent_classification"
	CapabilitySentimentAnalysis  Capability = "sentiment_analysis"
	CapabilityEmotionDetection   Capability = "emotion_detection"
	CapabilityLanguageDetection  Capability = "language_detection"
	CapabilityEntityExtraction   Capability = "named_entity_recognition"
	CapabilityRetrieval          Capability = "retrieval"
	CapabilityChatCompletion     Capability = "chat_completion"
)

// ModelDescriptor describes one entry in the Provider Registry.
type ModelDescriptor struct {
	Name     string
	Provider string
	Type     ModelType

	Capabilities map[Capability]struct{}

	MaxTokens         int
	ContextWindow     int
	Temperature       float64
	TopP              float64
	FrequencyPenalty  float64
	PresencePenalty   float64

	CostPer1kTokens float64
	RequestTimeout  time.Duration
	RetryCount      int

	FallbackChain []string // ordered model names
	Active        bool

	// insertionOrder breaks capability-candidate ties deterministically;
	// set by the registry at Register time, not by callers.
	insertionOrder int
}

// HasCapability reports whether the descriptor advertises cap.
func (m *ModelDescriptor) HasCapability(cap Capability) bool {
	if m.Capabilities == nil {
		return false
	}
	_, ok := m.Capabilities[cap]
	return ok
}

// InsertionOrder returns the registry insertion index used for tie-breaks.
func (m *ModelDescriptor) InsertionOrder() int {
	return m.insertionOrder
}

// SetInsertionOrder is called by the registry on Register; exported so the
// registry (a different package) can stamp it without a friend-class hack.
func (m *ModelDescriptor) SetInsertionOrder(n int) {
	m.insertionOrder = n
}
