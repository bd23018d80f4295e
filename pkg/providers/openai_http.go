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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nordeim/convoengine/pkg/httpclient"
)

const openAIDefaultBaseURL = "https://api.openai.com/v1"

// OpenAIHTTPProvider calls an OpenAI-compatible /chat/completions endpoint.
// "OpenAI-compatible" covers OpenAI itself and the many self-hosted
// gateways (including Ollama's /v1 shim) that mirror its wire format, so
// one adapter serves all of them — only BaseURL and APIKey change.
type OpenAIHTTPProvider struct {
	model   string
	apiKey  string
	baseURL string
	http    *httpclient.Client
}

// NewOpenAIHTTPProvider builds an adapter bound to model, authenticating
// with apiKey (may be empty for providers that don't require one, such as
// a local Ollama gateway). An empty baseURL defaults to OpenAI's own API.
func NewOpenAIHTTPProvider(model, apiKey, baseURL string, timeout time.Duration) *OpenAIHTTPProvider {
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenAIHTTPProvider{
		model:   model,
		apiKey:  apiKey,
		baseURL: baseURL,
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: timeout}),
			httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
		),
	}
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *OpenAIHTTPProvider) Invoke(ctx context.Context, req Request) (Result, error) {
	input, _ := req.Input.(string)

	messages := make([]openAIChatMessage, 0, 2)
	if instr := capabilityInstruction(req.Capability); instr != "" {
		messages = append(messages, openAIChatMessage{Role: "system", Content: instr})
	}
	messages = append(messages, openAIChatMessage{Role: "user", Content: input})

	body, err := json.Marshal(openAIChatRequest{Model: p.model, Messages: messages, Temperature: 0.2})
	if err != nil {
		return Result{}, fmt.Errorf("openai: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("openai: unexpected status %d", resp.StatusCode)
	}

	var decoded openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return Result{}, fmt.Errorf("openai: empty choices in response")
	}

	text := decoded.Choices[0].Message.Content
	output, err := parseCapabilityOutput(req.Capability, text)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Output:           output,
		ModelUsed:        p.model,
		PromptTokens:     decoded.Usage.PromptTokens,
		CompletionTokens: decoded.Usage.CompletionTokens,
		Confidence:       0.8,
	}, nil
}

var _ Provider = (*OpenAIHTTPProvider)(nil)
