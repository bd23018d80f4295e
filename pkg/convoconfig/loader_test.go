package convoconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nordeim/convoengine/pkg/convoconfig/provider"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoader_LoadAppliesDefaultsAndEnvExpansion(t *testing.T) {
	t.Setenv("TEST_MODEL_NAME", "gpt-4o")

	path := writeTempConfig(t, `
server:
  port: 9090
models:
  - name: ${TEST_MODEL_NAME}
    provider: openai
orchestrator:
  strategy: parallel
`)
	fp, err := provider.NewFileProvider(path)
	require.NoError(t, err)

	loader := NewLoader(fp)
	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Len(t, cfg.Models, 1)
	require.Equal(t, "gpt-4o", cfg.Models[0].Name)
	require.Equal(t, "10s", cfg.Models[0].RequestTimeout)
	require.Equal(t, "24h", cfg.ContextStore.TTL)
}

func TestLoader_LoadRejectsDuplicateModelNames(t *testing.T) {
	path := writeTempConfig(t, `
models:
  - name: gpt-4o
    provider: openai
  - name: gpt-4o
    provider: openai
`)
	fp, err := provider.NewFileProvider(path)
	require.NoError(t, err)

	_, err = NewLoader(fp).Load(context.Background())
	require.Error(t, err)
}

func TestOrchestratorConfig_ToOrchestratorConfig(t *testing.T) {
	oc := OrchestratorConfig{Strategy: "hybrid", ConfidenceThreshold: 0.8}
	cfg, err := oc.ToOrchestratorConfig()
	require.NoError(t, err)
	require.Equal(t, 0.8, cfg.ConfidenceThreshold)
}

func TestOrchestratorConfig_UnknownStrategy(t *testing.T) {
	oc := OrchestratorConfig{Strategy: "bogus"}
	_, err := oc.ToOrchestratorConfig()
	require.Error(t, err)
}

func TestPipelineConfig_ValidateRejectsBadWeights(t *testing.T) {
	p := PipelineConfig{IntentWeight: 0.9, SentimentWeight: 0.9, EmotionWeight: 0.9}
	require.Error(t, p.Validate())
}
