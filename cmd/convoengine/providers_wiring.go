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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nordeim/convoengine/pkg/convoconfig"
	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/nordeim/convoengine/pkg/providers"
)

// buildProvider dispatches a ModelConfig to the HTTP adapter for its
// vendor. "openai"-compatible covers OpenAI itself plus any gateway that
// mirrors its wire format (Ollama's /v1 shim included); "anthropic" uses
// the native Messages API. convoconfig.ModelConfig carries no per-model
// host override: the OpenAI-compatible adapter takes its base URL from the
// OPENAI_BASE_URL environment variable (empty means the adapter's
// default), and the Anthropic adapter always uses its default base URL.
func buildProvider(mc convoconfig.ModelConfig) (providers.Provider, error) {
	timeout, err := time.ParseDuration(mc.RequestTimeout)
	if err != nil {
		timeout = 10 * time.Second
	}

	switch strings.ToLower(mc.Provider) {
	case "openai", "ollama", "openai-compatible":
		baseURL := os.Getenv("OPENAI_BASE_URL")
		return providers.NewOpenAIHTTPProvider(mc.Name, apiKeyFor(mc.Provider), baseURL, timeout), nil
	case "anthropic":
		return providers.NewAnthropicHTTPProvider(mc.Name, apiKeyFor(mc.Provider), "", mc.MaxTokens, timeout), nil
	default:
		return nil, fmt.Errorf("model %q: unsupported provider %q (supported: openai, anthropic, ollama)", mc.Name, mc.Provider)
	}
}

// apiKeyFor reads the vendor API key from its conventional environment
// variable. Models that don't need one (a local Ollama gateway) simply
// get an empty key, which the HTTP adapters treat as "no auth header".
func apiKeyFor(provider string) string {
	switch strings.ToLower(provider) {
	case "openai", "openai-compatible":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}

// descriptorFrom converts a convoconfig.ModelConfig into the runtime
// convotypes.ModelDescriptor the registry indexes by.
func descriptorFrom(mc convoconfig.ModelConfig) *convotypes.ModelDescriptor {
	caps := make(map[convotypes.Capability]struct{}, len(mc.Capabilities))
	for _, c := range mc.Capabilities {
		caps[convotypes.Capability(c)] = struct{}{}
	}

	timeout, err := time.ParseDuration(mc.RequestTimeout)
	if err != nil {
		timeout = 10 * time.Second
	}

	modelType := convotypes.ModelTypeChat
	switch mc.Type {
	case "embedding":
		modelType = convotypes.ModelTypeEmbedding
	case "classifier":
		modelType = convotypes.ModelTypeClassification
	}

	return &convotypes.ModelDescriptor{
		Name:            mc.Name,
		Provider:        mc.Provider,
		Type:            modelType,
		Capabilities:    caps,
		MaxTokens:       mc.MaxTokens,
		ContextWindow:   mc.ContextWindow,
		Temperature:     mc.Temperature,
		CostPer1kTokens: mc.CostPer1kTokens,
		RequestTimeout:  timeout,
		RetryCount:      mc.RetryCount,
		FallbackChain:   mc.FallbackChain,
		Active:          mc.IsActive(),
	}
}
