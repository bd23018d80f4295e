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
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/nordeim/convoengine/pkg/observability"
	"github.com/nordeim/convoengine/pkg/providers"
)

// Response is what process() returns on success.
type Response struct {
	Output           any
	ModelUsed        string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	Confidence       float64
	Elapsed          time.Duration
	FallbackUsed     bool
}

// Orchestrator routes capability requests across the provider registry's
// fallback chains, gating on confidence, circuit breaker state, and retry
// backoff, per spec §4.2.
type Orchestrator struct {
	registry *providers.Registry
	config   Config
	logger   *slog.Logger

	breakersMu sync.Mutex
	breakers   map[string]*CircuitBreaker

	usage *usageTracker

	now func() time.Time
}

// New creates an Orchestrator bound to registry.
func New(registry *providers.Registry, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		registry: registry,
		config:   cfg,
		logger:   logger,
		breakers: make(map[string]*CircuitBreaker),
		usage:    newUsageTracker(),
		now:      time.Now,
	}
}

func (o *Orchestrator) breakerFor(model string) *CircuitBreaker {
	o.breakersMu.Lock()
	defer o.breakersMu.Unlock()
	b, ok := o.breakers[model]
	if !ok {
		b = NewCircuitBreaker(o.config.CircuitBreakerThreshold, o.config.CircuitBreakerCooldown)
		o.breakers[model] = b
	}
	return b
}

// BreakerState exposes a model's circuit state for health/diagnostics.
func (o *Orchestrator) BreakerState(model string) BreakerState {
	return o.breakerFor(model).State()
}

// UsageSnapshot returns a copy of per-model usage counters.
func (o *Orchestrator) UsageSnapshot() map[string]ModelUsage {
	return o.usage.Snapshot()
}

// ResetStats clears usage counters, as an explicit operator action.
func (o *Orchestrator) ResetStats() {
	o.usage.Reset()
}

// Process routes req according to o.config.Strategy, returning a Response
// or failing with ErrAllProvidersFailed / ErrNoCandidate.
func (o *Orchestrator) Process(ctx context.Context, req providers.Request, preferredModel string, confidenceOverride *float64) (Response, error) {
	chain := o.registry.ResolveChain(req.Capability, preferredModel)
	if len(chain) == 0 {
		return Response{}, convotypes.ErrNoCandidate
	}

	threshold := o.config.ConfidenceThreshold
	if confidenceOverride != nil {
		threshold = *confidenceOverride
	}

	switch o.config.Strategy {
	case StrategyParallel:
		return o.processParallel(ctx, req, chain, threshold)
	case StrategyHybrid:
		return o.processHybrid(ctx, req, chain, threshold)
	default:
		return o.processSequential(ctx, req, chain, threshold)
	}
}

func (o *Orchestrator) processSequential(ctx context.Context, req providers.Request, chain []*convotypes.ModelDescriptor, threshold float64) (Response, error) {
	var attempts []convotypes.AttemptDiagnostic

	for i, desc := range chain {
		if i > 0 {
			delay := o.config.delayFor(i - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Response{}, ctx.Err()
			}
		}

		resp, err := o.attempt(ctx, desc, req, threshold)
		if err == nil {
			resp.FallbackUsed = i > 0
			return resp, nil
		}
		attempts = append(attempts, o.diagnosticFor(desc.Name, err))
	}

	return Response{}, &convotypes.AllProvidersFailedError{Capability: string(req.Capability), Attempts: attempts}
}

// processParallel launches all chain candidates concurrently; the first
// result meeting threshold wins and the rest are cancelled. Bounded by
// config.ParallelTimeout; on expiry the best-so-far result above threshold
// is returned, else failure.
func (o *Orchestrator) processParallel(ctx context.Context, req providers.Request, chain []*convotypes.ModelDescriptor, threshold float64) (Response, error) {
	pctx, cancel := context.WithTimeout(ctx, o.config.ParallelTimeout)
	defer cancel()

	type outcome struct {
		resp Response
		err  error
		name string
	}
	results := make(chan outcome, len(chain))

	var wg sync.WaitGroup
	for _, desc := range chain {
		desc := desc
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := o.attempt(pctx, desc, req, threshold)
			select {
			case results <- outcome{resp, err, desc.Name}:
			case <-pctx.Done():
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var attempts []convotypes.AttemptDiagnostic
	var best *Response

	for res := range results {
		if res.err != nil {
			attempts = append(attempts, convotypes.AttemptDiagnostic{
				Model:     res.name,
				ErrorKind: classifyError(res.err),
				Message:   res.err.Error(),
			})
			continue
		}
		r := res.resp
		cancel() // first qualifying result wins; cancel the rest
		if best == nil || r.Confidence > best.Confidence {
			best = &r
		}
		break
	}

	if best != nil {
		best.FallbackUsed = best.ModelUsed != chain[0].Name
		return *best, nil
	}
	return Response{}, &convotypes.AllProvidersFailedError{Capability: string(req.Capability), Attempts: attempts}
}

// processHybrid tries the primary model sequentially, then falls back to
// the remaining chain in parallel.
func (o *Orchestrator) processHybrid(ctx context.Context, req providers.Request, chain []*convotypes.ModelDescriptor, threshold float64) (Response, error) {
	if len(chain) == 0 {
		return Response{}, convotypes.ErrNoCandidate
	}

	primary := chain[0]
	resp, err := o.attempt(ctx, primary, req, threshold)
	if err == nil {
		return resp, nil
	}

	if len(chain) == 1 {
		return Response{}, &convotypes.AllProvidersFailedError{
			Capability: string(req.Capability),
			Attempts:   []convotypes.AttemptDiagnostic{o.diagnosticFor(primary.Name, err)},
		}
	}

	result, ferr := o.processParallel(ctx, req, chain[1:], threshold)
	if ferr == nil {
		result.FallbackUsed = true
		return result, nil
	}

	var apf *convotypes.AllProvidersFailedError
	attempts := []convotypes.AttemptDiagnostic{o.diagnosticFor(primary.Name, err)}
	if errors.As(ferr, &apf) {
		attempts = append(attempts, apf.Attempts...)
	}
	return Response{}, &convotypes.AllProvidersFailedError{Capability: string(req.Capability), Attempts: attempts}
}

// attempt executes one provider call against desc, enforcing the
// per-attempt timeout and circuit breaker, and classifying/recording the
// outcome.
func (o *Orchestrator) attempt(ctx context.Context, desc *convotypes.ModelDescriptor, req providers.Request, threshold float64) (Response, error) {
	tracer := observability.Tracer("convoengine/orchestrator")
	ctx, span := tracer.Start(ctx, observability.SpanOrchestratorAttempt,
		trace.WithAttributes(
			attribute.String(observability.AttrModel, desc.Name),
			attribute.String(observability.AttrProvider, desc.Provider),
			attribute.String(observability.AttrCapability, string(req.Capability)),
		),
	)
	defer span.End()

	breaker := o.breakerFor(desc.Name)
	now := o.now()

	if !breaker.CanExecute(now) {
		err := &circuitOpenError{model: desc.Name}
		o.usage.recordFailure(desc.Name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}

	timeout := desc.RequestTimeout
	if timeout <= 0 {
		timeout = o.config.TimeoutPerAttempt
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	provider, ok := o.registry.ProviderFor(desc.Name)
	if !ok {
		breaker.RecordFailure(o.now())
		err := &modelUnavailableError{model: desc.Name}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}

	start := o.now()
	result, err := provider.Invoke(attemptCtx, req)
	elapsed := o.now().Sub(start)

	if err != nil {
		breaker.RecordFailure(o.now())
		o.usage.recordFailure(desc.Name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}

	if result.Confidence < threshold {
		breaker.RecordFailure(o.now())
		o.usage.recordFailure(desc.Name)
		span.RecordError(errLowConfidence)
		span.SetStatus(codes.Error, errLowConfidence.Error())
		return Response{}, errLowConfidence
	}

	breaker.RecordSuccess()
	cost := costOf(desc, result.PromptTokens+result.CompletionTokens)
	o.usage.recordSuccess(desc.Name, result.PromptTokens+result.CompletionTokens, cost, result.Confidence, elapsed)

	span.SetAttributes(
		attribute.Int(observability.AttrTokensInput, result.PromptTokens),
		attribute.Int(observability.AttrTokensOutput, result.CompletionTokens),
		attribute.Float64(observability.AttrConfidence, result.Confidence),
	)
	span.SetStatus(codes.Ok, "success")

	return Response{
		Output:           result.Output,
		ModelUsed:        result.ModelUsed,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		Cost:             cost,
		Confidence:       result.Confidence,
		Elapsed:          elapsed,
	}, nil
}

func costOf(desc *convotypes.ModelDescriptor, tokens int) float64 {
	return float64(tokens) / 1000.0 * desc.CostPer1kTokens
}

func (o *Orchestrator) diagnosticFor(model string, err error) convotypes.AttemptDiagnostic {
	return convotypes.AttemptDiagnostic{
		Model:     model,
		ErrorKind: classifyError(err),
		Message:   err.Error(),
	}
}

type circuitOpenError struct{ model string }

func (e *circuitOpenError) Error() string {
	return "circuit breaker open for model " + e.model
}

type modelUnavailableError struct{ model string }

func (e *modelUnavailableError) Error() string {
	return "no provider bound for model " + e.model
}
