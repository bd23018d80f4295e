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

package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nordeim/convoengine/pkg/convotypes"
)

// capabilityInstruction renders the system instruction a chat-completions
// model needs to produce the exact Result.Output shape pkg/pipeline expects
// for cap, so every HTTP-backed Provider in this package shares one prompt
// contract instead of each vendor adapter inventing its own.
func capabilityInstruction(cap convotypes.Capability) string {
	switch cap {
	case convotypes.CapabilityIntentClassify:
		return `Classify the customer-service intent of the user's message. ` +
			`Reply with ONLY a JSON object, no prose: {"intent": "<short_snake_case_label>", "parameters": {}}`
	case convotypes.CapabilitySentimentAnalysis:
		return `Rate the sentiment of the user's message. ` +
			`Reply with ONLY a JSON object, no prose: {"sentiment": "positive|neutral|negative", "score": <float from -1 to 1>}`
	case convotypes.CapabilityEmotionDetection:
		return `Identify the dominant emotion in the user's message. ` +
			`Reply with ONLY a JSON object, no prose: {"emotion": "<label>", "intensity": <float from 0 to 1>}`
	case convotypes.CapabilityLanguageDetection:
		return `Identify the ISO 639-1 language code of the user's message. Reply with ONLY the two-letter code, nothing else.`
	case convotypes.CapabilityEntityExtraction:
		return `Extract named entities from the user's message. ` +
			`Reply with ONLY a JSON array, no prose: [{"type": "<label>", "value": "<text>", "start": <int>, "end": <int>}]`
	default: // chat_completion and anything else: answer the user directly
		return ""
	}
}

// parseCapabilityOutput decodes a model's raw text reply into the Output
// shape Result.Output is expected to carry for cap (see pkg/pipeline's
// per-capability goroutines).
func parseCapabilityOutput(cap convotypes.Capability, text string) (any, error) {
	switch cap {
	case convotypes.CapabilityLanguageDetection, convotypes.CapabilityChatCompletion:
		return strings.TrimSpace(text), nil
	case convotypes.CapabilityEntityExtraction:
		var entities []convotypes.Entity
		if err := json.Unmarshal([]byte(extractJSONSpan(text, '[', ']')), &entities); err != nil {
			return nil, fmt.Errorf("parse entity extraction output: %w", err)
		}
		return entities, nil
	case convotypes.CapabilityIntentClassify, convotypes.CapabilitySentimentAnalysis, convotypes.CapabilityEmotionDetection:
		var out map[string]any
		if err := json.Unmarshal([]byte(extractJSONSpan(text, '{', '}')), &out); err != nil {
			return nil, fmt.Errorf("parse %s output: %w", cap, err)
		}
		return out, nil
	default:
		return strings.TrimSpace(text), nil
	}
}

// extractJSONSpan trims a model reply down to its first balanced-looking
// JSON span, tolerating the markdown code fences chat models routinely
// wrap structured replies in.
func extractJSONSpan(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
