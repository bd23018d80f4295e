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

package main

import (
	"testing"
	"time"

	"github.com/nordeim/convoengine/pkg/convoconfig"
	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/nordeim/convoengine/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProvider_DispatchesByVendor(t *testing.T) {
	tests := []struct {
		provider string
		wantType any
	}{
		{"openai", &providers.OpenAIHTTPProvider{}},
		{"OpenAI", &providers.OpenAIHTTPProvider{}},
		{"ollama", &providers.OpenAIHTTPProvider{}},
		{"openai-compatible", &providers.OpenAIHTTPProvider{}},
		{"anthropic", &providers.AnthropicHTTPProvider{}},
	}
	for _, tt := range tests {
		mc := convoconfig.ModelConfig{Name: "m", Provider: tt.provider, RequestTimeout: "5s"}
		p, err := buildProvider(mc)
		require.NoError(t, err, tt.provider)
		assert.IsType(t, tt.wantType, p, tt.provider)
	}
}

func TestBuildProvider_UnsupportedVendorErrors(t *testing.T) {
	mc := convoconfig.ModelConfig{Name: "m", Provider: "unknown-vendor"}
	_, err := buildProvider(mc)
	assert.Error(t, err)
}

func TestBuildProvider_InvalidTimeoutFallsBackToDefault(t *testing.T) {
	mc := convoconfig.ModelConfig{Name: "m", Provider: "openai", RequestTimeout: "not-a-duration"}
	p, err := buildProvider(mc)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestApiKeyFor_UnknownProviderReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", apiKeyFor("some-other-vendor"))
}

func TestDescriptorFrom_MapsFieldsAndCapabilities(t *testing.T) {
	mc := convoconfig.ModelConfig{
		Name:            "gpt-4o-mini",
		Provider:        "openai",
		Type:            "classifier",
		Capabilities:    []string{"intent_classify", "sentiment_analysis"},
		MaxTokens:       512,
		ContextWindow:   8192,
		Temperature:     0.2,
		CostPer1kTokens: 0.01,
		RequestTimeout:  "5s",
		RetryCount:      2,
		FallbackChain:   []string{"gpt-3.5"},
	}

	d := descriptorFrom(mc)
	assert.Equal(t, "gpt-4o-mini", d.Name)
	assert.Equal(t, "openai", d.Provider)
	assert.Equal(t, convotypes.ModelTypeClassification, d.Type)
	assert.True(t, d.HasCapability(convotypes.Capability("intent_classify")))
	assert.True(t, d.HasCapability(convotypes.Capability("sentiment_analysis")))
	assert.Equal(t, 512, d.MaxTokens)
	assert.Equal(t, 5*time.Second, d.RequestTimeout)
	assert.True(t, d.Active)
}

func TestDescriptorFrom_DefaultsToChatType(t *testing.T) {
	d := descriptorFrom(convoconfig.ModelConfig{Name: "m", Provider: "openai"})
	assert.Equal(t, convotypes.ModelTypeChat, d.Type)
}

func TestDescriptorFrom_InactiveWhenExplicitlySet(t *testing.T) {
	inactive := false
	d := descriptorFrom(convoconfig.ModelConfig{Name: "m", Provider: "openai", Active: &inactive})
	assert.False(t, d.Active)
}
