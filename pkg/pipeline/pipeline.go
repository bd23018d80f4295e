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

// Package pipeline implements the Message Pipeline (C5): fan-out
// language/intent/sentiment/emotion/entity analysis over the AI
// Orchestrator, knowledge retrieval, response generation, weighted
// confidence aggregation, intent/emotion adaptation handoff, and FSM
// transition decision — all under a single per-turn timeout budget.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nordeim/convoengine/pkg/adaptation"
	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/nordeim/convoengine/pkg/fsm"
	"github.com/nordeim/convoengine/pkg/observability"
	"github.com/nordeim/convoengine/pkg/orchestrator"
	"github.com/nordeim/convoengine/pkg/providers"
)

// Weights controls how the three classification confidences are blended
// into one turn-level confidence score (PipelineConfig default
// 0.5/0.3/0.2, matching original_source's intent/sentiment/emotion split).
type Weights struct {
	Intent    float64
	Sentiment float64
	Emotion   float64
}

// DefaultWeights mirrors convoconfig's PipelineConfig defaults.
func DefaultWeights() Weights {
	return Weights{Intent: 0.5, Sentiment: 0.3, Emotion: 0.2}
}

// Config controls pipeline-level behavior independent of the
// orchestrator's own retry/circuit-breaker tunables.
type Config struct {
	TurnBudget          time.Duration // default 30s
	Weights             Weights
	ConfidenceThreshold float64 // below this, the turn asks the user to retry (default 0.7)
	EnableKnowledge     bool
}

// DefaultConfig returns the spec's literal pipeline defaults.
func DefaultConfig() Config {
	return Config{
		TurnBudget:          30 * time.Second,
		Weights:             DefaultWeights(),
		ConfidenceThreshold: 0.7,
		EnableKnowledge:     true,
	}
}

// TurnInput is one user message entering the pipeline.
type TurnInput struct {
	ConversationID  string
	TenantID        string
	UserID          string
	Channel         string
	Content         string
	CurrentState    fsm.State
	PreviousIntents []string
	SentimentTrend  string // "positive" | "negative" | "neutral", projected from convocontext
}

// TurnOutput is everything the caller (the convo facade) needs to
// finalize the turn: what to say, what was learned about the message,
// and where the conversation should go next.
type TurnOutput struct {
	ResponseText string
	Annotations  convotypes.AnnotatedMessage

	IntentResult   *adaptation.IntentResult
	ToneAdaptation *adaptation.ToneAdaptation

	Confidence         float64
	RequiresEscalation bool
	EscalationReason   string
	NextState          fsm.State

	// GenerationFailed is true when every provider in the response-
	// generation chain failed and ResponseText is the canned fallback
	// rather than a model-produced reply. The facade surfaces this as
	// the spec's user-visible AllProvidersFailed case.
	GenerationFailed bool

	// TimedOut is true when the turn's cfg.TurnBudget deadline was
	// reached before Process finished — the facade's user-visible
	// PipelineTimeout case.
	TimedOut bool
}

// Pipeline wires the orchestrator, intent registry, emotion handler, and
// FSM together for one-turn processing.
type Pipeline struct {
	orch     *orchestrator.Orchestrator
	intents  *adaptation.IntentRegistry
	emotions *adaptation.EmotionHandler
	machine  *fsm.Machine
	cfg      Config
	logger   *slog.Logger
}

// New creates a Pipeline bound to orch for capability dispatch.
func New(orch *orchestrator.Orchestrator, intents *adaptation.IntentRegistry, emotions *adaptation.EmotionHandler, machine *fsm.Machine, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if intents == nil {
		intents = adaptation.NewIntentRegistry(logger)
	}
	if emotions == nil {
		emotions = adaptation.NewEmotionHandler()
	}
	if machine == nil {
		machine = fsm.New(logger)
	}
	return &Pipeline{orch: orch, intents: intents, emotions: emotions, machine: machine, cfg: cfg, logger: logger}
}

// analysisResult holds the fan-out step outcomes; a step that failed or
// wasn't confident enough simply leaves its fields at zero value rather
// than failing the whole turn (per-step isolation).
type analysisResult struct {
	language string

	intent           string
	intentConfidence float64
	intentParams     map[string]any

	sentiment      string
	sentimentScore float64
	sentimentConf  float64

	emotion          string
	emotionIntensity float64
	emotionConf      float64

	entities []convotypes.Entity
}

// Process runs one full turn: analysis fan-out, knowledge retrieval,
// response generation, adaptation, and next-state determination. It
// enforces cfg.TurnBudget as an overall deadline on ctx.
func (p *Pipeline) Process(ctx context.Context, in TurnInput) (TurnOutput, error) {
	tracer := observability.Tracer("convoengine/pipeline")
	ctx, span := tracer.Start(ctx, observability.SpanPipelineProcessTurn,
		trace.WithAttributes(
			attribute.String(observability.AttrConversationID, in.ConversationID),
		),
	)
	defer span.End()

	budget := p.cfg.TurnBudget
	if budget <= 0 {
		budget = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	analysis := p.analyze(ctx, in)

	confidence := p.aggregateConfidence(analysis)

	var knowledge string
	if p.cfg.EnableKnowledge {
		knowledge = p.retrieveKnowledge(ctx, in, analysis)
	}

	responseText, genModel, genFailed := p.generateResponse(ctx, in, analysis, knowledge)

	out := TurnOutput{
		ResponseText: responseText,
		Annotations: convotypes.AnnotatedMessage{
			Intent:           analysis.intent,
			IntentConfidence: analysis.intentConfidence,
			SentimentLabel:   analysis.sentiment,
			SentimentScore:   analysis.sentimentScore,
			Emotion:          analysis.emotion,
			EmotionIntensity: analysis.emotionIntensity,
			Entities:         analysis.entities,
			Language:         analysis.language,
			ModelUsed:        genModel,
		},
		Confidence:       confidence,
		GenerationFailed: genFailed,
	}

	var intentResult *adaptation.IntentResult
	if analysis.intent != "" {
		ictx := adaptation.IntentContext{
			Intent:          analysis.intent,
			Confidence:      analysis.intentConfidence,
			Parameters:      analysis.intentParams,
			OriginalMessage: in.Content,
			ConversationID:  in.ConversationID,
			UserID:          in.UserID,
			TenantID:        in.TenantID,
			Channel:         in.Channel,
			PreviousIntents: in.PreviousIntents,
		}
		result := p.intents.ProcessIntent(ctx, ictx)
		intentResult = &result
		if result.Success && result.ResponseText != "" {
			out.ResponseText = result.ResponseText
		}
	}
	out.IntentResult = intentResult

	var tone *adaptation.ToneAdaptation
	if analysis.emotion != "" {
		t := p.emotions.AdaptTone(
			out.ResponseText,
			adaptation.Emotion(analysis.emotion),
			analysis.emotionIntensity,
			analysis.emotionConf,
			adaptation.SentimentTrendSnapshot{Trend: in.SentimentTrend},
		)
		tone = &t
		out.ResponseText = t.AdaptedText
	}
	out.ToneAdaptation = tone

	requiresEscalation, reason := p.shouldEscalate(confidence, intentResult, tone)
	out.RequiresEscalation = requiresEscalation
	out.EscalationReason = reason

	out.NextState = p.determineNextState(in.CurrentState, confidence, analysis.intentConfidence, requiresEscalation, out.ResponseText != "")
	out.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)

	span.SetAttributes(
		attribute.Float64(observability.AttrConfidence, confidence),
		attribute.String(observability.AttrNextState, string(out.NextState)),
		attribute.Bool(observability.AttrEscalated, out.RequiresEscalation),
	)
	if out.GenerationFailed || out.TimedOut {
		span.SetStatus(codes.Error, "turn degraded: generation failed or timed out")
	} else {
		span.SetStatus(codes.Ok, "success")
	}

	return out, nil
}

// analyze fans the five classification capabilities out concurrently.
// Each step is isolated: a failing or low-confidence step logs and leaves
// its analysisResult fields at zero value instead of failing the turn.
func (p *Pipeline) analyze(ctx context.Context, in TurnInput) analysisResult {
	var result analysisResult

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		resp, err := p.call(gctx, convotypes.CapabilityLanguageDetection, in.Content, nil)
		if err != nil {
			p.logger.Warn("language detection failed", "conversation_id", in.ConversationID, "error", err)
			return nil
		}
		if lang, ok := resp.Output.(string); ok {
			result.language = lang
		}
		return nil
	})

	g.Go(func() error {
		resp, err := p.call(gctx, convotypes.CapabilityIntentClassify, in.Content, map[string]any{"previous_intents": in.PreviousIntents})
		if err != nil {
			p.logger.Warn("intent classification failed", "conversation_id", in.ConversationID, "error", err)
			return nil
		}
		if out, ok := resp.Output.(map[string]any); ok {
			if v, ok := out["intent"].(string); ok {
				result.intent = v
			}
			if v, ok := out["parameters"].(map[string]any); ok {
				result.intentParams = v
			}
		}
		result.intentConfidence = resp.Confidence
		return nil
	})

	g.Go(func() error {
		resp, err := p.call(gctx, convotypes.CapabilitySentimentAnalysis, in.Content, nil)
		if err != nil {
			p.logger.Warn("sentiment analysis failed", "conversation_id", in.ConversationID, "error", err)
			return nil
		}
		if out, ok := resp.Output.(map[string]any); ok {
			if v, ok := out["sentiment"].(string); ok {
				result.sentiment = v
			}
			if v, ok := out["score"].(float64); ok {
				result.sentimentScore = v
			}
		}
		result.sentimentConf = resp.Confidence
		return nil
	})

	g.Go(func() error {
		resp, err := p.call(gctx, convotypes.CapabilityEmotionDetection, in.Content, nil)
		if err != nil {
			p.logger.Warn("emotion detection failed", "conversation_id", in.ConversationID, "error", err)
			return nil
		}
		if out, ok := resp.Output.(map[string]any); ok {
			if v, ok := out["emotion"].(string); ok {
				result.emotion = v
			}
			if v, ok := out["intensity"].(float64); ok {
				result.emotionIntensity = v
			}
		}
		result.emotionConf = resp.Confidence
		return nil
	})

	g.Go(func() error {
		resp, err := p.call(gctx, convotypes.CapabilityEntityExtraction, in.Content, nil)
		if err != nil {
			p.logger.Warn("entity extraction failed", "conversation_id", in.ConversationID, "error", err)
			return nil
		}
		if out, ok := resp.Output.([]convotypes.Entity); ok {
			result.entities = out
		}
		return nil
	})

	_ = g.Wait() // steps never return errors; isolation happens inside each goroutine
	return result
}

func (p *Pipeline) call(ctx context.Context, cap convotypes.Capability, content string, overrides map[string]any) (orchestrator.Response, error) {
	req := providers.Request{Capability: cap, Input: content, Overrides: overrides}
	return p.orch.Process(ctx, req, "", nil)
}

// aggregateConfidence blends the three classification confidences using
// cfg.Weights (default intent 0.5 / sentiment 0.3 / emotion 0.2).
func (p *Pipeline) aggregateConfidence(a analysisResult) float64 {
	w := p.cfg.Weights
	if w.Intent == 0 && w.Sentiment == 0 && w.Emotion == 0 {
		w = DefaultWeights()
	}
	return a.intentConfidence*w.Intent + a.sentimentConf*w.Sentiment + a.emotionConf*w.Emotion
}

func (p *Pipeline) retrieveKnowledge(ctx context.Context, in TurnInput, a analysisResult) string {
	resp, err := p.call(ctx, convotypes.CapabilityRetrieval, in.Content, map[string]any{"intent": a.intent})
	if err != nil {
		p.logger.Debug("knowledge retrieval unavailable", "conversation_id", in.ConversationID, "error", err)
		return ""
	}
	if s, ok := resp.Output.(string); ok {
		return s
	}
	return ""
}

func (p *Pipeline) generateResponse(ctx context.Context, in TurnInput, a analysisResult, knowledge string) (text, model string, failed bool) {
	resp, err := p.call(ctx, convotypes.CapabilityChatCompletion, in.Content, map[string]any{
		"intent":    a.intent,
		"emotion":   a.emotion,
		"knowledge": knowledge,
	})
	if err != nil {
		p.logger.Warn("response generation failed", "conversation_id", in.ConversationID, "error", err)
		return "I'm sorry, I wasn't able to generate a response just now. Could you try rephrasing?", "", true
	}
	if s, ok := resp.Output.(string); ok {
		return s, resp.ModelUsed, false
	}
	return "", resp.ModelUsed, false
}
