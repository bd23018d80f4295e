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

package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/nordeim/convoengine/pkg/convotypes"
)

// classifyError maps a provider-call error into the orchestrator's error
// taxonomy. Providers are not expected to return typed errors of their
// own; classification falls back to substring sniffing on the message,
// mirroring the source's string-keyed classification.
func classifyError(err error) convotypes.ProviderErrorKind {
	if err == nil {
		return convotypes.ProviderErrUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return convotypes.ProviderErrTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return convotypes.ProviderErrTimeout
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429"):
		return convotypes.ProviderErrRateLimit
	case strings.Contains(msg, "quota"):
		return convotypes.ProviderErrQuotaExceeded
	case strings.Contains(msg, "auth") || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return convotypes.ProviderErrAuth
	case strings.Contains(msg, "unavailable") || strings.Contains(msg, "503"):
		return convotypes.ProviderErrModelUnavailable
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection"):
		return convotypes.ProviderErrNetwork
	case strings.Contains(msg, "invalid response") || strings.Contains(msg, "malformed"):
		return convotypes.ProviderErrInvalidResponse
	default:
		return convotypes.ProviderErrUnknown
	}
}

// errLowConfidence is a sentinel the orchestrator raises itself when a
// provider succeeds but its confidence falls below threshold.
var errLowConfidence = errors.New("response confidence below threshold")
