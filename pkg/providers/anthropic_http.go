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

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
	anthropicDefaultMaxOut  = 1024
)

// AnthropicHTTPProvider calls Anthropic's Messages API.
type AnthropicHTTPProvider struct {
	model     string
	apiKey    string
	baseURL   string
	maxTokens int
	http      *httpclient.Client
}

// NewAnthropicHTTPProvider builds an adapter bound to model, authenticating
// with apiKey via Anthropic's x-api-key header.
func NewAnthropicHTTPProvider(model, apiKey, baseURL string, maxTokens int, timeout time.Duration) *AnthropicHTTPProvider {
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxOut
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AnthropicHTTPProvider{
		model:     model,
		apiKey:    apiKey,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: timeout}),
			httpclient.WithHeaderParser(httpclient.ParseAnthropicHeaders),
		),
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *AnthropicHTTPProvider) Invoke(ctx context.Context, req Request) (Result, error) {
	input, _ := req.Input.(string)

	body, err := json.Marshal(anthropicRequest{
		Model:     p.model,
		System:    capabilityInstruction(req.Capability),
		Messages:  []anthropicMessage{{Role: "user", Content: input}},
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("anthropic: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("anthropic: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	if p.apiKey != "" {
		httpReq.Header.Set("x-api-key", p.apiKey)
	}

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("anthropic: unexpected status %d", resp.StatusCode)
	}

	var decoded anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("anthropic: decode response: %w", err)
	}

	var text string
	for _, block := range decoded.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return Result{}, fmt.Errorf("anthropic: no text content in response")
	}

	output, err := parseCapabilityOutput(req.Capability, text)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Output:           output,
		ModelUsed:        p.model,
		PromptTokens:     decoded.Usage.InputTokens,
		CompletionTokens: decoded.Usage.OutputTokens,
		Confidence:       0.8,
	}, nil
}

var _ Provider = (*AnthropicHTTPProvider)(nil)
