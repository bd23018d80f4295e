// Package convoconfig provides configuration types and loading utilities
// for the conversation orchestrator.
package convoconfig

import (
	"fmt"
	"time"

	"github.com/nordeim/convoengine/pkg/orchestrator"
)

// Config is the root configuration document for convoengine.
type Config struct {
	Server       ServerConfig       `yaml:"server,omitempty" jsonschema:"title=Server"`
	Models       []ModelConfig      `yaml:"models,omitempty" jsonschema:"title=Models"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator,omitempty"`
	ContextStore ContextStoreConfig `yaml:"context_store,omitempty"`
	Pipeline     PipelineConfig     `yaml:"pipeline,omitempty"`
	CRM          CRMConfig          `yaml:"crm,omitempty"`
	Analytics    AnalyticsConfig    `yaml:"analytics,omitempty"`
	Tracing      TracingConfig      `yaml:"tracing,omitempty"`
}

// ServerConfig describes the process-level listener and logging posture.
type ServerConfig struct {
	Host     string `yaml:"host,omitempty" jsonschema:"default=0.0.0.0"`
	Port     int    `yaml:"port,omitempty" jsonschema:"default=8080"`
	LogLevel string `yaml:"log_level,omitempty" jsonschema:"default=info"`
}

// SetDefaults fills in zero-valued fields of ServerConfig.
func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// ModelConfig declares one AI-provider model entry, mirroring
// convotypes.ModelDescriptor but YAML-friendly (capabilities as strings).
type ModelConfig struct {
	Name             string   `yaml:"name"`
	Provider         string   `yaml:"provider"`
	Type             string   `yaml:"type,omitempty" jsonschema:"enum=llm,enum=classifier,enum=embedding"`
	Capabilities     []string `yaml:"capabilities,omitempty"`
	MaxTokens        int      `yaml:"max_tokens,omitempty"`
	ContextWindow    int      `yaml:"context_window,omitempty"`
	Temperature      float64  `yaml:"temperature,omitempty"`
	CostPer1kTokens  float64  `yaml:"cost_per_1k_tokens,omitempty"`
	RequestTimeout   string   `yaml:"request_timeout,omitempty" jsonschema:"default=10s"`
	RetryCount       int      `yaml:"retry_count,omitempty"`
	FallbackChain    []string `yaml:"fallback_chain,omitempty"`
	Active           *bool    `yaml:"active,omitempty"`
}

// Validate checks a ModelConfig for required fields.
func (c *ModelConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("model: name is required")
	}
	if c.Provider == "" {
		return fmt.Errorf("model %q: provider is required", c.Name)
	}
	if c.RequestTimeout != "" {
		if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
			return fmt.Errorf("model %q: invalid request_timeout: %w", c.Name, err)
		}
	}
	return nil
}

// IsActive reports whether the model is active, defaulting to true.
func (c *ModelConfig) IsActive() bool {
	return c.Active == nil || *c.Active
}

// OrchestratorConfig maps YAML onto orchestrator.Config.
type OrchestratorConfig struct {
	Strategy                string  `yaml:"strategy,omitempty" jsonschema:"enum=sequential,enum=parallel,enum=hybrid,default=sequential"`
	ConfidenceThreshold     float64 `yaml:"confidence_threshold,omitempty" jsonschema:"default=0.7"`
	MaxAttempts             int     `yaml:"max_attempts,omitempty" jsonschema:"default=3"`
	TimeoutPerAttempt       string  `yaml:"timeout_per_attempt,omitempty" jsonschema:"default=30s"`
	ParallelTimeout         string  `yaml:"parallel_timeout,omitempty" jsonschema:"default=60s"`
	RetryBaseDelay          string  `yaml:"retry_base_delay,omitempty" jsonschema:"default=1s"`
	RetryMaxDelay           string  `yaml:"retry_max_delay,omitempty" jsonschema:"default=30s"`
	ExponentialBackoff      *bool   `yaml:"exponential_backoff,omitempty" jsonschema:"default=true"`
	CircuitBreakerThreshold int     `yaml:"circuit_breaker_threshold,omitempty" jsonschema:"default=5"`
	CircuitBreakerCooldown  string  `yaml:"circuit_breaker_cooldown,omitempty" jsonschema:"default=300s"`
}

// ToOrchestratorConfig converts the YAML-friendly form into orchestrator.Config,
// applying orchestrator.DefaultConfig() for anything left unset.
func (c *OrchestratorConfig) ToOrchestratorConfig() (orchestrator.Config, error) {
	out := orchestrator.DefaultConfig()

	switch c.Strategy {
	case "", "sequential":
		out.Strategy = orchestrator.StrategySequential
	case "parallel":
		out.Strategy = orchestrator.StrategyParallel
	case "hybrid":
		out.Strategy = orchestrator.StrategyHybrid
	default:
		return out, fmt.Errorf("orchestrator: unknown strategy %q", c.Strategy)
	}

	if c.ConfidenceThreshold != 0 {
		out.ConfidenceThreshold = c.ConfidenceThreshold
	}
	if c.MaxAttempts != 0 {
		out.MaxAttempts = c.MaxAttempts
	}
	if c.CircuitBreakerThreshold != 0 {
		out.CircuitBreakerThreshold = c.CircuitBreakerThreshold
	}
	if c.ExponentialBackoff != nil {
		out.ExponentialBackoff = *c.ExponentialBackoff
	}

	var err error
	if out.TimeoutPerAttempt, err = durationOr(c.TimeoutPerAttempt, out.TimeoutPerAttempt); err != nil {
		return out, err
	}
	if out.ParallelTimeout, err = durationOr(c.ParallelTimeout, out.ParallelTimeout); err != nil {
		return out, err
	}
	if out.RetryBaseDelay, err = durationOr(c.RetryBaseDelay, out.RetryBaseDelay); err != nil {
		return out, err
	}
	if out.RetryMaxDelay, err = durationOr(c.RetryMaxDelay, out.RetryMaxDelay); err != nil {
		return out, err
	}
	if out.CircuitBreakerCooldown, err = durationOr(c.CircuitBreakerCooldown, out.CircuitBreakerCooldown); err != nil {
		return out, err
	}

	return out, nil
}

func durationOr(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}

// ContextStoreConfig configures the layered context store's TTL sweep.
type ContextStoreConfig struct {
	TTL             string `yaml:"ttl,omitempty" jsonschema:"default=24h"`
	SweepInterval   string `yaml:"sweep_interval,omitempty" jsonschema:"default=5m"`
}

// SetDefaults fills in zero-valued fields.
func (c *ContextStoreConfig) SetDefaults() {
	if c.TTL == "" {
		c.TTL = "24h"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "5m"
	}
}

// PipelineConfig configures the per-turn message pipeline.
type PipelineConfig struct {
	TurnBudget          string  `yaml:"turn_budget,omitempty" jsonschema:"default=30s"`
	IntentWeight        float64 `yaml:"intent_weight,omitempty" jsonschema:"default=0.5"`
	SentimentWeight     float64 `yaml:"sentiment_weight,omitempty" jsonschema:"default=0.3"`
	EmotionWeight       float64 `yaml:"emotion_weight,omitempty" jsonschema:"default=0.2"`
}

// SetDefaults fills in zero-valued fields.
func (c *PipelineConfig) SetDefaults() {
	if c.TurnBudget == "" {
		c.TurnBudget = "30s"
	}
	if c.IntentWeight == 0 && c.SentimentWeight == 0 && c.EmotionWeight == 0 {
		c.IntentWeight, c.SentimentWeight, c.EmotionWeight = 0.5, 0.3, 0.2
	}
}

// Validate checks the pipeline's confidence weights sum to ~1.0.
func (c *PipelineConfig) Validate() error {
	sum := c.IntentWeight + c.SentimentWeight + c.EmotionWeight
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("pipeline: confidence weights must sum to 1.0, got %.2f", sum)
	}
	return nil
}

// CRMConfig configures the CRM synchroniser.
type CRMConfig struct {
	Enabled             bool   `yaml:"enabled,omitempty"`
	ConflictStrategy    string `yaml:"conflict_strategy,omitempty" jsonschema:"enum=last_write_wins,enum=merge,enum=manual,default=last_write_wins"`
	DeadLetterTTL       string `yaml:"dead_letter_ttl,omitempty" jsonschema:"default=168h"`
	ConflictQueueTTL    string `yaml:"conflict_queue_ttl,omitempty" jsonschema:"default=720h"`
	RealtimeDebounce    string `yaml:"realtime_debounce,omitempty" jsonschema:"default=2s"`
}

// SetDefaults fills in zero-valued fields.
func (c *CRMConfig) SetDefaults() {
	if c.ConflictStrategy == "" {
		c.ConflictStrategy = "last_write_wins"
	}
	if c.DeadLetterTTL == "" {
		c.DeadLetterTTL = "168h"
	}
	if c.ConflictQueueTTL == "" {
		c.ConflictQueueTTL = "720h"
	}
	if c.RealtimeDebounce == "" {
		c.RealtimeDebounce = "2s"
	}
}

// AnalyticsConfig configures the live/finalized metrics collector.
type AnalyticsConfig struct {
	PercentileWindow int `yaml:"percentile_window,omitempty" jsonschema:"default=1000"`
}

// SetDefaults fills in zero-valued fields.
func (c *AnalyticsConfig) SetDefaults() {
	if c.PercentileWindow == 0 {
		c.PercentileWindow = 1000
	}
}

// TracingConfig configures OTel span export around provider calls and
// pipeline turns. Disabled by default: a no-op TracerProvider is installed
// until an operator opts in, matching AnalyticsConfig's posture of needing
// no external collector to run locally.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled,omitempty"`
	ServiceName  string  `yaml:"service_name,omitempty" jsonschema:"default=convoengine"`
	SamplingRate float64 `yaml:"sampling_rate,omitempty" jsonschema:"default=1.0"`
}

// SetDefaults fills in zero-valued fields.
func (c *TracingConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "convoengine"
	}
	if c.SamplingRate == 0 {
		c.SamplingRate = 1.0
	}
}

// SetDefaults applies defaults across the whole document.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.ContextStore.SetDefaults()
	c.Pipeline.SetDefaults()
	c.CRM.SetDefaults()
	c.Analytics.SetDefaults()
	c.Tracing.SetDefaults()
	for i := range c.Models {
		if c.Models[i].RequestTimeout == "" {
			c.Models[i].RequestTimeout = "10s"
		}
	}
}

// Validate checks the whole document for structural errors.
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Models))
	for _, m := range c.Models {
		if err := m.Validate(); err != nil {
			return err
		}
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("duplicate model name %q", m.Name)
		}
		seen[m.Name] = struct{}{}
	}
	return nil
}
