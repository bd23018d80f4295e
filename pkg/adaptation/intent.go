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

// Package adaptation implements the Adaptation Layer (C6): per-emotion
// response tone adjustment and an intent-handler registry, both tables
// driven rather than branching on string comparisons scattered through
// the pipeline.
package adaptation

import (
	"context"
	"log/slog"
	"strings"
)

// IntentContext carries everything a handler needs to process one
// classified intent.
type IntentContext struct {
	Intent            string
	Confidence        float64
	Parameters        map[string]any
	OriginalMessage   string
	ConversationID    string
	UserID            string
	TenantID          string
	Channel           string
	PreviousIntents   []string
}

// IntentResult is what a handler produces.
type IntentResult struct {
	Intent            string
	Success           bool
	ResponseText      string
	ContextUpdates    map[string]any
	Metadata          map[string]any
	RequiresEscalation bool
	EscalationReason  string
	SuggestedActions  []string
	Confidence        float64
}

// IntentHandler is the can_handle/validate/process contract; concrete
// handlers hold no shared base, matching the registry's type-indexed
// dispatch rather than inheritance.
type IntentHandler interface {
	IntentName() string
	CanHandle(ictx IntentContext) bool
	ValidateContext(ictx IntentContext) bool
	Process(ctx context.Context, ictx IntentContext) IntentResult
	RequiredParameters() []string
	OptionalParameters() []string
}

var defaultSupportedChannels = []string{"web_chat", "mobile_ios", "mobile_android", "email", "slack", "teams"}

func channelSupported(channel string, supported []string) bool {
	for _, c := range supported {
		if c == channel {
			return true
		}
	}
	return false
}

func containsKeyword(message string, keywords []string) bool {
	lower := strings.ToLower(message)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func missingParameters(params map[string]any, required []string) []string {
	var missing []string
	for _, p := range required {
		v, ok := params[p]
		if !ok || v == nil || v == "" {
			missing = append(missing, p)
		}
	}
	return missing
}

func errorResult(intent, handlerName, message string) IntentResult {
	return IntentResult{
		Intent:             intent,
		Success:            false,
		ResponseText:       "I apologize, but I'm having trouble processing your request. Could you please rephrase or provide more details?",
		Metadata:           map[string]any{"error_type": "processing_error", "error_message": message, "handler": handlerName},
		Confidence:         0.3,
		RequiresEscalation: true,
		EscalationReason:   handlerName + "_processing_error",
	}
}

// IntentRegistry maps intent names to their handler and dispatches
// classified turns to the matching one.
type IntentRegistry struct {
	handlers map[string]IntentHandler
	logger   *slog.Logger
}

// NewIntentRegistry creates a registry pre-populated with the standard
// handler set.
func NewIntentRegistry(logger *slog.Logger) *IntentRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &IntentRegistry{handlers: make(map[string]IntentHandler), logger: logger}
	r.Register(&TechnicalSupportHandler{})
	r.Register(&AccountManagementHandler{})
	r.Register(&BillingInquiryHandler{})
	r.Register(&GeneralQuestionHandler{})
	r.Register(&EscalationRequestHandler{})
	return r
}

// Register adds or replaces a handler by its IntentName.
func (r *IntentRegistry) Register(h IntentHandler) {
	r.handlers[h.IntentName()] = h
	r.logger.Debug("registered intent handler", "intent", h.IntentName())
}

// Unregister removes a handler.
func (r *IntentRegistry) Unregister(intentName string) {
	delete(r.handlers, intentName)
}

// Handler returns the handler registered for intentName, if any.
func (r *IntentRegistry) Handler(intentName string) (IntentHandler, bool) {
	h, ok := r.handlers[intentName]
	return h, ok
}

// SupportedIntents lists every registered intent name.
func (r *IntentRegistry) SupportedIntents() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// FindSuitableHandler returns the handler for ictx.Intent only if it can
// handle and validates this specific context.
func (r *IntentRegistry) FindSuitableHandler(ictx IntentContext) (IntentHandler, bool) {
	h, ok := r.handlers[ictx.Intent]
	if !ok {
		return nil, false
	}
	if !h.CanHandle(ictx) || !h.ValidateContext(ictx) {
		return nil, false
	}
	return h, true
}

// ProcessIntent dispatches ictx to its handler, falling back to a
// low-confidence non-escalating result when no handler matches.
func (r *IntentRegistry) ProcessIntent(ctx context.Context, ictx IntentContext) IntentResult {
	h, ok := r.FindSuitableHandler(ictx)
	if !ok {
		r.logger.Warn("no suitable handler found for intent", "intent", ictx.Intent)
		return IntentResult{
			Intent:       ictx.Intent,
			Success:      false,
			ResponseText: "I'm not sure how to help with that specific request. Could you please rephrase or provide more details about what you're looking for?",
			Metadata:     map[string]any{"fallback": true, "reason": "no_suitable_handler"},
			Confidence:   0.3,
		}
	}
	return h.Process(ctx, ictx)
}
