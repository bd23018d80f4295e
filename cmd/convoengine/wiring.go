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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nordeim/convoengine/convo"
	"github.com/nordeim/convoengine/pkg/adaptation"
	"github.com/nordeim/convoengine/pkg/analytics"
	"github.com/nordeim/convoengine/pkg/convoconfig"
	"github.com/nordeim/convoengine/pkg/convocontext"
	"github.com/nordeim/convoengine/pkg/fsm"
	"github.com/nordeim/convoengine/pkg/observability"
	"github.com/nordeim/convoengine/pkg/orchestrator"
	"github.com/nordeim/convoengine/pkg/pipeline"
	"github.com/nordeim/convoengine/pkg/providers"
)

// initTracing installs the global TracerProvider per cfg.Tracing, returning
// a shutdown func the caller must run before exit. Disabled tracing (the
// default) installs a no-op provider at negligible cost.
func initTracing(ctx context.Context, cfg convoconfig.TracingConfig) (func(context.Context) error, error) {
	_, shutdown, err := observability.InitGlobalTracer(ctx, observability.TracerConfig{
		Enabled:      cfg.Enabled,
		ServiceName:  cfg.ServiceName,
		SamplingRate: cfg.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	return shutdown, nil
}

// buildEngine wires one convo.Engine out of a loaded Config, the way
// cmd/hector's ServeCmd.Run wires a runtime out of its config.Config:
// registry first (so the orchestrator has something to route over),
// then the orchestrator, then the pipeline's remaining collaborators,
// then the facade itself.
func buildEngine(cfg *convoconfig.Config, logger *slog.Logger) (*convo.Engine, error) {
	registry := providers.NewRegistry()
	for _, mc := range cfg.Models {
		if !mc.IsActive() {
			continue
		}
		provider, err := buildProvider(mc)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(descriptorFrom(mc), provider); err != nil {
			return nil, fmt.Errorf("register model %q: %w", mc.Name, err)
		}
	}

	orchCfg, err := cfg.Orchestrator.ToOrchestratorConfig()
	if err != nil {
		return nil, fmt.Errorf("orchestrator config: %w", err)
	}
	orch := orchestrator.New(registry, orchCfg, logger)

	machine := fsm.New(logger)
	intents := adaptation.NewIntentRegistry(logger)
	emotions := adaptation.NewEmotionHandler()

	pipelineCfg, err := pipelineConfigFrom(cfg.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	pl := pipeline.New(orch, intents, emotions, machine, pipelineCfg, logger)

	ttl, err := time.ParseDuration(cfg.ContextStore.TTL)
	if err != nil {
		return nil, fmt.Errorf("context store ttl: %w", err)
	}
	contextStore := convocontext.NewStore(ttl, logger)

	collector := analytics.NewCollector(cfg.Analytics.PercentileWindow, logger)

	store := newMemoryStore()

	if cfg.CRM.Enabled {
		logger.Warn("crm sync requested but no concrete CRM client adapter is wired into this build; running without it")
	}

	return convo.New(store, contextStore, machine, pl, collector, orch, registry, logger), nil
}

func pipelineConfigFrom(pc convoconfig.PipelineConfig) (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()

	budget, err := time.ParseDuration(pc.TurnBudget)
	if err != nil {
		return cfg, fmt.Errorf("turn_budget: %w", err)
	}
	cfg.TurnBudget = budget
	cfg.Weights = pipeline.Weights{
		Intent:    pc.IntentWeight,
		Sentiment: pc.SentimentWeight,
		Emotion:   pc.EmotionWeight,
	}
	return cfg, nil
}
