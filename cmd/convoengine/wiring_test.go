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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineConfigFrom_OverridesBudgetAndWeights(t *testing.T) {
	pc := convoconfig.PipelineConfig{
		TurnBudget:      "45s",
		IntentWeight:    0.6,
		SentimentWeight: 0.25,
		EmotionWeight:   0.15,
	}

	cfg, err := pipelineConfigFrom(pc)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.TurnBudget)
	assert.Equal(t, 0.6, cfg.Weights.Intent)
	assert.Equal(t, 0.25, cfg.Weights.Sentiment)
	assert.Equal(t, 0.15, cfg.Weights.Emotion)
	// Fields pipelineConfigFrom doesn't override keep pipeline.DefaultConfig's values.
	assert.Equal(t, 0.7, cfg.ConfidenceThreshold)
	assert.True(t, cfg.EnableKnowledge)
}

func TestPipelineConfigFrom_InvalidDurationErrors(t *testing.T) {
	pc := convoconfig.PipelineConfig{TurnBudget: "not-a-duration"}
	_, err := pipelineConfigFrom(pc)
	assert.Error(t, err)
}
