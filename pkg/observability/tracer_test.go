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

package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitGlobalTracer_DisabledInstallsNoop(t *testing.T) {
	tp, shutdown, err := InitGlobalTracer(context.Background(), TracerConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tp)
	require.NoError(t, shutdown(context.Background()))

	tracer := tp.Tracer("test")
	_, span := tracer.Start(context.Background(), "noop-span")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestInitGlobalTracer_EnabledExportsToWriter(t *testing.T) {
	var buf bytes.Buffer
	tp, shutdown, err := InitGlobalTracer(context.Background(), TracerConfig{
		Enabled:      true,
		ServiceName:  "convoengine-test",
		SamplingRate: 1.0,
		Writer:       &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, tp)

	tracer := Tracer("convoengine-test/tracer")
	_, span := tracer.Start(context.Background(), SpanOrchestratorAttempt)
	span.End()

	require.NoError(t, shutdown(context.Background()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, SpanOrchestratorAttempt, decoded["Name"])
}
