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

package adaptation

import (
	"context"
	"fmt"
	"strings"
)

// TechnicalSupportHandler handles technical-issue intents.
type TechnicalSupportHandler struct{}

var technicalKeywords = []string{
	"error", "bug", "issue", "problem", "broken", "not working",
	"failure", "crash", "exception", "timeout", "connection",
	"api", "database", "server", "deployment", "configuration",
}

func (h *TechnicalSupportHandler) IntentName() string { return "technical_support" }

func (h *TechnicalSupportHandler) CanHandle(ictx IntentContext) bool {
	return ictx.Intent == h.IntentName() && containsKeyword(ictx.OriginalMessage, technicalKeywords)
}

func (h *TechnicalSupportHandler) ValidateContext(ictx IntentContext) bool {
	return ictx.Intent != "" && ictx.Confidence >= 0.75 && channelSupported(ictx.Channel, defaultSupportedChannels)
}

func (h *TechnicalSupportHandler) RequiredParameters() []string { return nil }
func (h *TechnicalSupportHandler) OptionalParameters() []string {
	return []string{"error_code", "system_component", "issue_description", "steps_taken", "environment"}
}

func componentGuidance(component string) string {
	guidance := map[string]string{
		"api":            "Let me check our API documentation for this specific error.",
		"database":       "This could be related to connection settings or query optimization.",
		"deployment":     "Deployment issues often relate to configuration or environment settings.",
		"authentication": "Authentication issues typically involve token validation or user permissions.",
		"integration":    "Integration issues may require checking external service connectivity.",
	}
	return guidance[strings.ToLower(component)]
}

func troubleshootingSteps(errorCode string) string {
	steps := []string{
		"Here are some steps we can try:",
		"1. Verify your connection and authentication settings",
		"2. Check if there are any recent changes to your configuration",
		"3. Review the error logs for more detailed information",
	}
	if errorCode != "" {
		steps = append(steps, fmt.Sprintf("4. Look up error code %s in our documentation", errorCode))
	}
	return strings.Join(steps, " ")
}

func isCriticalComponent(component string) bool {
	switch strings.ToLower(component) {
	case "database", "authentication", "core_api":
		return true
	default:
		return false
	}
}

func isCriticalErrorCode(code string) bool {
	upper := strings.ToUpper(code)
	return strings.Contains(upper, "CRITICAL") || strings.Contains(upper, "FATAL") || strings.Contains(upper, "SYSTEM")
}

func issueComplexity(errorCode, component string) string {
	switch {
	case errorCode != "" && component != "":
		return "high"
	case errorCode != "" || component != "":
		return "medium"
	default:
		return "low"
	}
}

func stringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

func (h *TechnicalSupportHandler) Process(_ context.Context, ictx IntentContext) IntentResult {
	missing, required := missingParameters(ictx.Parameters, h.RequiredParameters()), h.RequiredParameters()
	if len(missing) > 0 {
		_ = required
		return errorResult(h.IntentName(), h.IntentName(), "missing required parameters: "+strings.Join(missing, ", "))
	}

	errorCode := stringParam(ictx.Parameters, "error_code")
	systemComponent := stringParam(ictx.Parameters, "system_component")

	var response []string
	switch {
	case errorCode != "":
		response = append(response, fmt.Sprintf("I see you're encountering error code %s.", errorCode))
	case systemComponent != "":
		response = append(response, fmt.Sprintf("I understand you're having issues with %s.", systemComponent))
	default:
		response = append(response, "I understand you're experiencing a technical issue.")
	}
	if g := componentGuidance(systemComponent); g != "" {
		response = append(response, g)
	}
	response = append(response, troubleshootingSteps(errorCode))
	response = append(response, "If these steps don't resolve the issue, I can escalate this to our technical team for further assistance.")

	requiresEscalation, escalationReason := false, ""
	switch {
	case errorCode != "" && isCriticalErrorCode(errorCode):
		requiresEscalation, escalationReason = true, "critical_error_code"
	case systemComponent != "" && isCriticalComponent(systemComponent):
		requiresEscalation, escalationReason = true, "critical_system_component"
	}

	confidence := ictx.Confidence
	if errorCode != "" || systemComponent != "" {
		confidence += 0.1
	}
	if confidence < 0.3 {
		confidence = 0.3
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	return IntentResult{
		Intent:       h.IntentName(),
		Success:      true,
		ResponseText: strings.Join(response, " "),
		ContextUpdates: map[string]any{
			"last_technical_issue": map[string]any{
				"error_code": errorCode, "system_component": systemComponent, "resolved": !requiresEscalation,
			},
		},
		Metadata: map[string]any{
			"error_code": errorCode, "system_component": systemComponent,
			"issue_complexity": issueComplexity(errorCode, systemComponent),
		},
		RequiresEscalation: requiresEscalation,
		EscalationReason:   escalationReason,
		SuggestedActions:   []string{"technical_diagnosis", "knowledge_base_lookup"},
		Confidence:         confidence,
	}
}

// AccountManagementHandler handles account/profile/billing-adjacent intents.
type AccountManagementHandler struct{}

var accountKeywords = []string{
	"account", "profile", "password", "login", "sign in", "billing", "subscription",
	"payment", "invoice", "plan", "upgrade", "downgrade", "cancel",
}

func (h *AccountManagementHandler) IntentName() string { return "account_management" }

func (h *AccountManagementHandler) CanHandle(ictx IntentContext) bool {
	return ictx.Intent == h.IntentName() && containsKeyword(ictx.OriginalMessage, accountKeywords)
}

func (h *AccountManagementHandler) ValidateContext(ictx IntentContext) bool {
	return ictx.Intent != "" && ictx.Confidence >= 0.7 && channelSupported(ictx.Channel, defaultSupportedChannels)
}

func (h *AccountManagementHandler) RequiredParameters() []string { return nil }
func (h *AccountManagementHandler) OptionalParameters() []string { return []string{"action"} }

func (h *AccountManagementHandler) Process(_ context.Context, ictx IntentContext) IntentResult {
	action := stringParam(ictx.Parameters, "action")
	if action == "" {
		action = "general_inquiry"
	}

	switch action {
	case "password_reset":
		return IntentResult{
			Intent:         h.IntentName(),
			Success:        true,
			ResponseText:   "I can help you reset your password. I'll send a password reset link to your registered email address. Please check your email and follow the instructions to create a new password.",
			ContextUpdates: map[string]any{"password_reset_requested": true},
			Metadata:       map[string]any{"action": "password_reset"},
			SuggestedActions: []string{"email_verification", "security_check"},
			Confidence:     0.9,
		}
	case "billing_inquiry":
		billingType := stringParam(ictx.Parameters, "billing_type")
		response := "I can help you with your billing questions. What specific billing issue would you like me to address?"
		switch billingType {
		case "invoice":
			response = "I can help you with invoice inquiries. Let me check your recent invoices and payment history."
		case "payment_method":
			response = "I can help you update your payment method. Would you like to add a new credit card or bank account?"
		case "refund":
			response = "I understand you're requesting a refund. Let me review your account to see what options are available."
		}
		return IntentResult{
			Intent: h.IntentName(), Success: true, ResponseText: response,
			Metadata:         map[string]any{"billing_type": billingType},
			SuggestedActions: []string{"account_verification", "billing_history_review"},
			Confidence:       0.8,
		}
	case "plan_change":
		changeType := stringParam(ictx.Parameters, "change_type")
		response := "I can help you with plan changes. Would you like to upgrade, downgrade, or just explore your options?"
		switch changeType {
		case "upgrade":
			response = "I'd be happy to help you upgrade your plan! Let me show you the available upgrade options and their benefits."
		case "downgrade":
			response = "I can help you explore downgrade options. Let me review your current plan usage to ensure a downgrade won't impact your service."
		}
		return IntentResult{
			Intent: h.IntentName(), Success: true, ResponseText: response,
			Metadata:         map[string]any{"change_type": changeType},
			SuggestedActions: []string{"plan_comparison", "usage_analysis"},
			Confidence:       0.8,
		}
	case "profile_update":
		return IntentResult{
			Intent: h.IntentName(), Success: true,
			ResponseText:     "I can help you update your profile information. What specific details would you like to change?",
			Metadata:         map[string]any{"update_type": stringParam(ictx.Parameters, "update_type")},
			SuggestedActions: []string{"profile_verification", "update_form"},
			Confidence:       0.8,
		}
	default:
		return IntentResult{
			Intent: h.IntentName(), Success: true,
			ResponseText:     "I can help you with various account-related tasks. What would you like to do with your account today?",
			Metadata:         map[string]any{"action": "general_inquiry"},
			SuggestedActions: []string{"account_overview", "help_menu"},
			Confidence:       0.7,
		}
	}
}

// BillingInquiryHandler handles billing-specific intents distinct from
// general account management.
type BillingInquiryHandler struct{}

var billingKeywords = []string{
	"billing", "payment", "invoice", "charge", "refund", "subscription",
	"plan", "price", "cost", "amount", "credit card", "bank", "transaction",
}

func (h *BillingInquiryHandler) IntentName() string { return "billing_inquiry" }

func (h *BillingInquiryHandler) CanHandle(ictx IntentContext) bool {
	return ictx.Intent == h.IntentName() && containsKeyword(ictx.OriginalMessage, billingKeywords)
}

func (h *BillingInquiryHandler) ValidateContext(ictx IntentContext) bool {
	return ictx.Intent != "" && ictx.Confidence >= 0.8 && channelSupported(ictx.Channel, defaultSupportedChannels)
}

func (h *BillingInquiryHandler) RequiredParameters() []string { return nil }
func (h *BillingInquiryHandler) OptionalParameters() []string {
	return []string{"billing_type", "amount", "date_range"}
}

func (h *BillingInquiryHandler) Process(_ context.Context, ictx IntentContext) IntentResult {
	billingType := stringParam(ictx.Parameters, "billing_type")
	amount := stringParam(ictx.Parameters, "amount")

	var response string
	switch {
	case billingType == "refund_request":
		response = "I understand you're requesting a refund. Let me review your account and recent transactions to see what options are available to you."
	case billingType == "payment_issue":
		response = "I can help you resolve payment issues. Let me check your payment methods and recent payment history."
	case billingType == "invoice_question":
		response = "I can help you understand your invoice. Let me pull up your recent billing details."
	case amount != "":
		response = fmt.Sprintf("I see you're asking about a charge of %s. Let me review this transaction for you.", amount)
	default:
		response = "I can help you with billing questions. What specific billing matter would you like me to address?"
	}

	return IntentResult{
		Intent: h.IntentName(), Success: true, ResponseText: response,
		Metadata: map[string]any{
			"billing_type": billingType, "amount": amount, "date_range": stringParam(ictx.Parameters, "date_range"),
		},
		SuggestedActions: []string{"billing_history", "payment_method_review", "refund_eligibility"},
		Confidence:        0.85,
	}
}

// GeneralQuestionHandler is the catch-all for non-specific questions.
type GeneralQuestionHandler struct{}

func (h *GeneralQuestionHandler) IntentName() string { return "general_question" }

func (h *GeneralQuestionHandler) CanHandle(ictx IntentContext) bool {
	return ictx.Intent == h.IntentName()
}

func (h *GeneralQuestionHandler) ValidateContext(ictx IntentContext) bool {
	return ictx.Intent != "" && ictx.Confidence >= 0.6 && channelSupported(ictx.Channel, defaultSupportedChannels)
}

func (h *GeneralQuestionHandler) RequiredParameters() []string { return nil }
func (h *GeneralQuestionHandler) OptionalParameters() []string {
	return []string{"question_type", "topic"}
}

func (h *GeneralQuestionHandler) Process(_ context.Context, ictx IntentContext) IntentResult {
	topic := stringParam(ictx.Parameters, "topic")
	if topic == "" {
		topic = "general"
	}
	return IntentResult{
		Intent:       h.IntentName(),
		Success:      true,
		ResponseText: fmt.Sprintf("I can help answer your question about %s. Let me provide you with the most relevant information.", topic),
		Metadata:     map[string]any{"question_type": stringParam(ictx.Parameters, "question_type"), "topic": topic},
		SuggestedActions: []string{"related_topics", "further_assistance"},
		Confidence:        0.7,
	}
}

// EscalationRequestHandler handles explicit human-handoff requests.
type EscalationRequestHandler struct{}

var escalationKeywords = []string{
	"speak to human", "talk to agent", "escalate", "supervisor", "manager",
	"human help", "real person", "live agent", "transfer to human",
}

func (h *EscalationRequestHandler) IntentName() string { return "escalation_request" }

func (h *EscalationRequestHandler) CanHandle(ictx IntentContext) bool {
	return ictx.Intent == h.IntentName() && containsKeyword(ictx.OriginalMessage, escalationKeywords)
}

func (h *EscalationRequestHandler) ValidateContext(ictx IntentContext) bool {
	return ictx.Intent != "" && ictx.Confidence >= 0.9 && channelSupported(ictx.Channel, defaultSupportedChannels)
}

func (h *EscalationRequestHandler) RequiredParameters() []string { return nil }
func (h *EscalationRequestHandler) OptionalParameters() []string {
	return []string{"reason", "urgency"}
}

func (h *EscalationRequestHandler) Process(_ context.Context, ictx IntentContext) IntentResult {
	reason := stringParam(ictx.Parameters, "reason")
	if reason == "" {
		reason = "user_requested"
	}
	urgency := stringParam(ictx.Parameters, "urgency")
	if urgency == "" {
		urgency = "normal"
	}

	return IntentResult{
		Intent:       h.IntentName(),
		Success:      true,
		ResponseText: "I understand you'd like to speak with a human agent. I'm transferring you to one of our customer service representatives who will be able to assist you further. Please hold while I connect you.",
		ContextUpdates: map[string]any{
			"escalation_requested": true, "escalation_reason": reason, "urgency_level": urgency,
		},
		Metadata: map[string]any{
			"escalation_reason": reason, "urgency_level": urgency, "user_requested": true,
		},
		RequiresEscalation: true,
		EscalationReason:   reason,
		SuggestedActions:   []string{"immediate_agent_transfer", "priority_queue"},
		Confidence:         0.95,
	}
}
