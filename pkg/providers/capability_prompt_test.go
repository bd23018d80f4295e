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
	"testing"

	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityInstruction_NonEmptyForStructuredCapabilities(t *testing.T) {
	for _, cap := range []convotypes.Capability{
		convotypes.CapabilityIntentClassify,
		convotypes.CapabilitySentimentAnalysis,
		convotypes.CapabilityEmotionDetection,
		convotypes.CapabilityLanguageDetection,
		convotypes.CapabilityEntityExtraction,
	} {
		assert.NotEmpty(t, capabilityInstruction(cap), "capability %s should have an instruction", cap)
	}
}

func TestCapabilityInstruction_EmptyForChatCompletion(t *testing.T) {
	assert.Empty(t, capabilityInstruction(convotypes.CapabilityChatCompletion))
}

func TestParseCapabilityOutput_ChatCompletionTrimsWhitespace(t *testing.T) {
	out, err := parseCapabilityOutput(convotypes.CapabilityChatCompletion, "  hello there  \n")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
}

func TestParseCapabilityOutput_LanguageDetection(t *testing.T) {
	out, err := parseCapabilityOutput(convotypes.CapabilityLanguageDetection, "en\n")
	require.NoError(t, err)
	assert.Equal(t, "en", out)
}

func TestParseCapabilityOutput_IntentClassify(t *testing.T) {
	text := "here you go:\n```json\n{\"intent\": \"billing_question\", \"parameters\": {\"invoice_id\": \"123\"}}\n```"
	out, err := parseCapabilityOutput(convotypes.CapabilityIntentClassify, text)
	require.NoError(t, err)
	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "billing_question", result["intent"])
	params, ok := result["parameters"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "123", params["invoice_id"])
}

func TestParseCapabilityOutput_SentimentAnalysis(t *testing.T) {
	out, err := parseCapabilityOutput(convotypes.CapabilitySentimentAnalysis, `{"sentiment": "negative", "score": -0.6}`)
	require.NoError(t, err)
	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "negative", result["sentiment"])
	assert.Equal(t, -0.6, result["score"])
}

func TestParseCapabilityOutput_EmotionDetection(t *testing.T) {
	out, err := parseCapabilityOutput(convotypes.CapabilityEmotionDetection, `{"emotion": "frustration", "intensity": 0.8}`)
	require.NoError(t, err)
	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "frustration", result["emotion"])
	assert.Equal(t, 0.8, result["intensity"])
}

func TestParseCapabilityOutput_EntityExtraction(t *testing.T) {
	text := `prose before [{"type": "order_id", "value": "ABC123", "start": 10, "end": 16}] prose after`
	out, err := parseCapabilityOutput(convotypes.CapabilityEntityExtraction, text)
	require.NoError(t, err)
	entities, ok := out.([]convotypes.Entity)
	require.True(t, ok)
	require.Len(t, entities, 1)
	assert.Equal(t, "order_id", entities[0].Type)
	assert.Equal(t, "ABC123", entities[0].Value)
	assert.Equal(t, 10, entities[0].Start)
	assert.Equal(t, 16, entities[0].End)
}

func TestParseCapabilityOutput_MalformedJSONErrors(t *testing.T) {
	_, err := parseCapabilityOutput(convotypes.CapabilityIntentClassify, "not json at all")
	require.Error(t, err)
}

func TestExtractJSONSpan_StripsMarkdownFence(t *testing.T) {
	text := "```json\n{\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, extractJSONSpan(text, '{', '}'))
}

func TestExtractJSONSpan_NoDelimitersReturnsOriginal(t *testing.T) {
	text := "no braces here"
	assert.Equal(t, text, extractJSONSpan(text, '{', '}'))
}
