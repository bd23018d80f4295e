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

import "errors"

// Public error taxonomy (spec §7). Each sentinel is wrapped by a typed
// error where extra diagnostics are useful, so callers can both
// errors.Is() the sentinel and errors.As() the richer type.
var (
	ErrInvalidTenant       = errors.New("invalid tenant")
	ErrUnknownConversation = errors.New("unknown conversation")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrNotReceivable       = errors.New("conversation cannot receive messages in its current state")
	ErrNoCandidate         = errors.New("no model supports the requested capability")
	ErrAllProvidersFailed  = errors.New("all providers failed")
	ErrPipelineTimeout     = errors.New("per-turn budget exceeded")
	ErrSyncConflict        = errors.New("sync conflict")
	ErrSyncFailure         = errors.New("sync failure")
	ErrConversationBusy    = errors.New("conversation is processing a prior turn")
)

// ProviderErrorKind classifies a single provider attempt's failure.
type ProviderErrorKind string

const (
	ProviderErrTimeout         ProviderErrorKind = "timeout"
	ProviderErrRateLimit       ProviderErrorKind = "rate_limit"
	ProviderErrQuotaExceeded   ProviderErrorKind = "quota_exceeded"
	ProviderErrAuth            ProviderErrorKind = "authentication_error"
	ProviderErrNetwork         ProviderErrorKind = "network_error"
	ProviderErrModelUnavailable ProviderErrorKind = "model_unavailable"
	ProviderErrLowConfidence   ProviderErrorKind = "low_confidence"
	ProviderErrInvalidResponse ProviderErrorKind = "invalid_response"
	ProviderErrUnknown         ProviderErrorKind = "unknown_error"
)

// AttemptDiagnostic records one model attempt inside an AllProvidersFailed
// error.
type AttemptDiagnostic struct {
	Model             string
	Elapsed           float64 // seconds
	ErrorKind         ProviderErrorKind
	Message           string
	ObservedConfidence float64
}

// AllProvidersFailedError carries per-attempt diagnostics alongside the
// ErrAllProvidersFailed sentinel.
type AllProvidersFailedError struct {
	Capability string
	Attempts   []AttemptDiagnostic
}

func (e *AllProvidersFailedError) Error() string {
	return "all providers failed for capability " + e.Capability
}

func (e *AllProvidersFailedError) Unwrap() error {
	return ErrAllProvidersFailed
}

// TransitionRejectedError carries the rejected from/to states alongside
// ErrInvalidTransition.
type TransitionRejectedError struct {
	From, To string
	Reason   string
}

func (e *TransitionRejectedError) Error() string {
	if e.Reason != "" {
		return "invalid transition from " + e.From + " to " + e.To + ": " + e.Reason
	}
	return "invalid transition from " + e.From + " to " + e.To
}

func (e *TransitionRejectedError) Unwrap() error {
	return ErrInvalidTransition
}

// IsAllProvidersFailed reports whether err wraps ErrAllProvidersFailed.
func IsAllProvidersFailed(err error) bool {
	return errors.Is(err, ErrAllProvidersFailed)
}

// AttemptsOf extracts the per-attempt diagnostics from err, if present.
func AttemptsOf(err error) []AttemptDiagnostic {
	var apf *AllProvidersFailedError
	if errors.As(err, &apf) {
		return apf.Attempts
	}
	return nil
}
