package providers

import (
	"context"
	"testing"

	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{ name string }

func (s *stubProvider) Invoke(ctx context.Context, req Request) (Result, error) {
	return Result{ModelUsed: s.name, Confidence: 0.9}, nil
}

func descriptor(name string, active bool, caps []convotypes.Capability, fallback ...string) *convotypes.ModelDescriptor {
	capSet := make(map[convotypes.Capability]struct{}, len(caps))
	for _, c := range caps {
		capSet[c] = struct{}{}
	}
	return &convotypes.ModelDescriptor{
		Name:          name,
		Capabilities:  capSet,
		Active:        active,
		FallbackChain: fallback,
	}
}

func TestRegistry_CandidatesForCapability_InsertionOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(descriptor("gpt-4o", true, []convotypes.Capability{convotypes.CapabilityChatCompletion}), &stubProvider{"gpt-4o"}))
	require.NoError(t, r.Register(descriptor("claude", true, []convotypes.Capability{convotypes.CapabilityChatCompletion}), &stubProvider{"claude"}))
	require.NoError(t, r.Register(descriptor("embed-only", true, []convotypes.Capability{convotypes.CapabilityEmbedding}), &stubProvider{"embed-only"}))

	candidates := r.CandidatesForCapability(convotypes.CapabilityChatCompletion)
	require.Len(t, candidates, 2)
	assert.Equal(t, "gpt-4o", candidates[0].Name)
	assert.Equal(t, "claude", candidates[1].Name)
}

func TestRegistry_CandidatesForCapability_SkipsInactive(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(descriptor("a", false, []convotypes.Capability{convotypes.CapabilityChatCompletion}), &stubProvider{"a"}))
	require.NoError(t, r.Register(descriptor("b", true, []convotypes.Capability{convotypes.CapabilityChatCompletion}), &stubProvider{"b"}))

	candidates := r.CandidatesForCapability(convotypes.CapabilityChatCompletion)
	require.Len(t, candidates, 1)
	assert.Equal(t, "b", candidates[0].Name)
}

func TestRegistry_FallbackChain_StartsWithNameNoDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(descriptor("primary", true, nil, "secondary", "tertiary"), &stubProvider{"primary"}))
	require.NoError(t, r.Register(descriptor("secondary", true, nil, "tertiary"), &stubProvider{"secondary"}))
	require.NoError(t, r.Register(descriptor("tertiary", true, nil), &stubProvider{"tertiary"}))

	chain := r.FallbackChain("primary")
	names := namesOf(chain)
	assert.Equal(t, []string{"primary", "secondary", "tertiary"}, names)
}

func TestRegistry_FallbackChain_CycleSafe(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(descriptor("a", true, nil, "b"), &stubProvider{"a"}))
	require.NoError(t, r.Register(descriptor("b", true, nil, "a"), &stubProvider{"b"})) // cycle back to a

	chain := r.FallbackChain("a")
	assert.Equal(t, []string{"a", "b"}, namesOf(chain))
}

func TestRegistry_FallbackChain_SkipsInactive(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(descriptor("a", true, nil, "b", "c"), &stubProvider{"a"}))
	require.NoError(t, r.Register(descriptor("b", false, nil), &stubProvider{"b"}))
	require.NoError(t, r.Register(descriptor("c", true, nil), &stubProvider{"c"}))

	chain := r.FallbackChain("a")
	assert.Equal(t, []string{"a", "c"}, namesOf(chain))
}

func TestRegistry_ResolveChain_PreferredFirst(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(descriptor("preferred", true, []convotypes.Capability{convotypes.CapabilityChatCompletion}, "fallback"), &stubProvider{"preferred"}))
	require.NoError(t, r.Register(descriptor("fallback", true, []convotypes.Capability{convotypes.CapabilityChatCompletion}), &stubProvider{"fallback"}))
	require.NoError(t, r.Register(descriptor("other", true, []convotypes.Capability{convotypes.CapabilityChatCompletion}), &stubProvider{"other"}))

	chain := r.ResolveChain(convotypes.CapabilityChatCompletion, "preferred")
	assert.Equal(t, []string{"preferred", "fallback"}, namesOf(chain))
}

func TestRegistry_ResolveChain_FallsBackToCapabilityList(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(descriptor("a", true, []convotypes.Capability{convotypes.CapabilityChatCompletion}), &stubProvider{"a"}))
	require.NoError(t, r.Register(descriptor("b", true, []convotypes.Capability{convotypes.CapabilityChatCompletion}), &stubProvider{"b"}))

	chain := r.ResolveChain(convotypes.CapabilityChatCompletion, "unknown-model")
	assert.Equal(t, []string{"a", "b"}, namesOf(chain))
}

func namesOf(descs []*convotypes.ModelDescriptor) []string {
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}
	return names
}
