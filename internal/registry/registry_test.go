package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maestro/internal/config"
	"maestro/internal/invoker"
	"maestro/internal/model"
)

type fakeDaemon struct {
	models      []invoker.ListedModel
	listErr     error
	describeErr map[string]error
}

func (f *fakeDaemon) List(context.Context) ([]invoker.ListedModel, error) {
	return f.models, f.listErr
}

func (f *fakeDaemon) Describe(_ context.Context, name string) error {
	if f.describeErr == nil {
		return nil
	}
	return f.describeErr[name]
}

type fakeKeys map[string]string

func (f fakeKeys) Get(p string) (string, bool) { v, ok := f[p]; return v, ok }
func (f fakeKeys) Has(p string) bool           { _, ok := f[p]; return ok }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Providers = map[string]config.ProviderConfig{
		"anthropic": {
			BaseURL: "https://api.anthropic.com/v1",
			Models: []model.Capabilities{{
				Name:                "claude-sonnet",
				Source:              model.SourceAnthropic,
				ContextLength:       200000,
				Parameters:          0,
				MemoryEstimateGB:    0.1,
				MinMemoryGB:         0.1,
				RecommendedMemoryGB: 0.1,
				Skills:              model.Skills{Reasoning: 0.9, Coding: 0.9, Creativity: 0.85, Multilingual: 0.9},
			}},
		},
	}
	return cfg
}

func TestRefreshMergesAllSources(t *testing.T) {
	daemon := &fakeDaemon{models: []invoker.ListedModel{
		{Name: "llama3.1:8b", Size: 4_900_000_000},   // has a configured profile
		{Name: "mistral:7b", Size: 4_100_000_000},    // daemon-only
	}}
	reg := New(testConfig(), daemon, fakeKeys{"anthropic": "sk"})

	require.NoError(t, reg.Refresh(context.Background(), true))

	// Configured profile wins over the size-derived estimate.
	info, found := reg.Lookup("llama3.1:8b")
	require.True(t, found)
	assert.True(t, info.Validated)
	assert.Equal(t, "Llama 3.1 8B", info.Capabilities.DisplayName)

	// Daemon-only model gets estimated capabilities.
	info, found = reg.Lookup("mistral:7b")
	require.True(t, found)
	assert.True(t, info.Capabilities.IsLocal())
	assert.InDelta(t, 7e9, float64(info.Capabilities.Parameters), 1e9)
	assert.Greater(t, info.Capabilities.RecommendedMemoryGB, 0.0)

	// Remote model validated by credential presence alone.
	info, found = reg.Lookup("claude-sonnet")
	require.True(t, found)
	assert.True(t, info.Validated)
}

func TestValidationFailureIsIsolated(t *testing.T) {
	daemon := &fakeDaemon{
		models:      []invoker.ListedModel{{Name: "broken:7b", Size: 4e9}},
		describeErr: map[string]error{"broken:7b": errors.New("model manifest corrupt")},
	}
	reg := New(testConfig(), daemon, fakeKeys{"anthropic": "sk"})

	err := reg.Refresh(context.Background(), true)
	require.Error(t, err) // aggregated failures reported

	info, found := reg.Lookup("broken:7b")
	require.True(t, found, "failed model must stay listed")
	assert.False(t, info.Validated)
	assert.Contains(t, info.ValidationError, "manifest corrupt")

	info, found = reg.Lookup("llama3.1:8b")
	require.True(t, found)
	assert.True(t, info.Validated, "other models unaffected")
}

func TestRemoteWithoutCredentialIsUnvalidated(t *testing.T) {
	reg := New(testConfig(), &fakeDaemon{}, fakeKeys{})
	_ = reg.Refresh(context.Background(), true)

	info, found := reg.Lookup("claude-sonnet")
	require.True(t, found)
	assert.False(t, info.Validated)
}

func TestRefreshRateLimit(t *testing.T) {
	daemon := &fakeDaemon{models: []invoker.ListedModel{{Name: "a:7b", Size: 4e9}}}
	reg := New(testConfig(), daemon, fakeKeys{"anthropic": "sk"})
	require.NoError(t, reg.Refresh(context.Background(), true))

	// Second unforced refresh inside the window is a no-op even if the
	// daemon changed its list.
	daemon.models = append(daemon.models, invoker.ListedModel{Name: "b:13b", Size: 8e9})
	require.NoError(t, reg.Refresh(context.Background(), false))
	_, found := reg.Lookup("b:13b")
	assert.False(t, found)

	// Forced refresh bypasses the limit.
	_ = reg.Refresh(context.Background(), true)
	_, found = reg.Lookup("b:13b")
	assert.True(t, found)
}

func TestForRoleOrderingAndCloudFallback(t *testing.T) {
	cfg := testConfig()
	rc := cfg.Roles[model.RolePlanner]
	rc.CloudFallbacks = []string{"claude-sonnet"}
	cfg.Roles[model.RolePlanner] = rc

	reg := New(cfg, &fakeDaemon{}, fakeKeys{"anthropic": "sk"})
	_ = reg.Refresh(context.Background(), true)

	names := func(infos []Info) []string {
		var out []string
		for _, i := range infos {
			out = append(out, i.Capabilities.Name)
		}
		return out
	}

	// Fallbacks excluded while cloud is disabled.
	assert.Equal(t, []string{"qwen2.5:14b", "llama3.1:8b"}, names(reg.ForRole(model.RolePlanner)))

	cfg.System.CloudFallbacksEnabled = true
	assert.Equal(t, []string{"qwen2.5:14b", "llama3.1:8b", "claude-sonnet"}, names(reg.ForRole(model.RolePlanner)))
}

func TestBySource(t *testing.T) {
	reg := New(testConfig(), &fakeDaemon{}, fakeKeys{"anthropic": "sk"})
	_ = reg.Refresh(context.Background(), true)

	for _, info := range reg.BySource(model.SourceLocal) {
		assert.True(t, info.Capabilities.IsLocal())
	}
	remote := reg.BySource(model.SourceAnthropic)
	require.Len(t, remote, 1)
	assert.Equal(t, "claude-sonnet", remote[0].Capabilities.Name)
}
