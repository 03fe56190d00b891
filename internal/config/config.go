// Package config holds all maestro configuration: model profiles, role
// requirements, system limits, and the ambient settings for cache,
// orchestrator, and logging. Loaded from YAML with MAESTRO_* env
// overrides applied on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"maestro/internal/fault"
	"maestro/internal/model"
)

// Config is the root configuration document.
type Config struct {
	Models       []model.Capabilities      `yaml:"models"`
	Providers    map[string]ProviderConfig `yaml:"providers"`
	Roles        map[model.Role]RoleConfig `yaml:"roles"`
	System       SystemConfig              `yaml:"system"`
	Cache        CacheConfig               `yaml:"cache"`
	Orchestrator OrchestratorConfig        `yaml:"orchestrator"`
	Invoker      InvokerConfig             `yaml:"invoker"`
	Logging      LoggingConfig             `yaml:"logging"`
}

// ProviderConfig describes one remote provider catalog.
type ProviderConfig struct {
	BaseURL string               `yaml:"base_url"`
	Models  []model.Capabilities `yaml:"models"`
}

// RoleConfig maps a role to its preferred models and requirements.
type RoleConfig struct {
	Preferred      []string           `yaml:"preferred"`
	CloudFallbacks []string           `yaml:"cloud_fallbacks"`
	Requirements   model.Requirements `yaml:"requirements"`
}

// SystemConfig holds the resource limits selections run under.
type SystemConfig struct {
	MaxMemoryGB           float64  `yaml:"max_memory_gb"`
	SafetyBufferGB        float64  `yaml:"safety_buffer_gb"`
	ThermalThresholdPct   float64  `yaml:"thermal_threshold_pct"`
	MaxThermalSensitivity float64  `yaml:"max_thermal_sensitivity"`
	LocalOnly             bool     `yaml:"local_only"`
	CloudFallbacksEnabled bool     `yaml:"cloud_fallbacks_enabled"`
	PollInterval          Duration `yaml:"poll_interval"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Capacity    int      `yaml:"capacity"`
	TTL         Duration `yaml:"ttl"`
	PersistPath string   `yaml:"persist_path"`
}

// OrchestratorConfig tunes the planner/critic/executor workflow.
type OrchestratorConfig struct {
	MaxIterations  int      `yaml:"max_iterations"`
	RiskThreshold  float64  `yaml:"risk_threshold"`
	RefineBackoff  Duration `yaml:"refine_backoff"`
	InvokeTimeout  Duration `yaml:"invoke_timeout"`
	LoadDeadline   Duration `yaml:"load_deadline"`
	MaxIdleSeconds int      `yaml:"max_idle_seconds"`
}

// InvokerConfig selects backends.
type InvokerConfig struct {
	OllamaURL     string `yaml:"ollama_url"`
	OllamaCommand string `yaml:"ollama_command"`
}

// LoggingConfig mirrors logging.Options in YAML form.
type LoggingConfig struct {
	Debug      bool            `yaml:"debug"`
	Dir        string          `yaml:"dir"`
	JSON       bool            `yaml:"json"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the built-in configuration: a small local model set
// with the three workflow roles wired to it.
func Default() *Config {
	return &Config{
		Models: defaultModels(),
		Roles: map[model.Role]RoleConfig{
			model.RolePlanner: {
				Preferred:    []string{"qwen2.5:14b", "llama3.1:8b"},
				Requirements: model.Requirements{MinSkills: model.Skills{Reasoning: 0.6}, ContextLengthMin: 8192, MemoryGBMax: 12},
			},
			model.RoleCritic: {
				Preferred:    []string{"llama3.1:8b", "qwen2.5:14b"},
				Requirements: model.Requirements{MinSkills: model.Skills{Reasoning: 0.55}, ContextLengthMin: 8192, MemoryGBMax: 12},
			},
			model.RoleExecutor: {
				Preferred:    []string{"qwen2.5-coder:7b", "llama3.1:8b"},
				Requirements: model.Requirements{MinSkills: model.Skills{Coding: 0.6}, ContextLengthMin: 8192, MemoryGBMax: 12},
			},
		},
		System: SystemConfig{
			MaxMemoryGB:           12,
			SafetyBufferGB:        2,
			ThermalThresholdPct:   85,
			MaxThermalSensitivity: 0.8,
			PollInterval:          Duration(30 * time.Second),
		},
		Cache: CacheConfig{
			Capacity: 1000,
			TTL:      Duration(time.Hour),
		},
		Orchestrator: OrchestratorConfig{
			MaxIterations:  3,
			RiskThreshold:  0.3,
			RefineBackoff:  Duration(time.Second),
			InvokeTimeout:  Duration(120 * time.Second),
			LoadDeadline:   Duration(60 * time.Second),
			MaxIdleSeconds: 300,
		},
		Invoker: InvokerConfig{
			OllamaURL:     "http://localhost:11434",
			OllamaCommand: "ollama",
		},
	}
}

// Load reads a YAML file over the defaults and applies env overrides.
// An empty path loads defaults plus env overrides only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fault.Wrap(fault.KindConfig, "config.load", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fault.Wrap(fault.KindConfig, "config.load", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv layers MAESTRO_* environment variables over file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("MAESTRO_DEBUG"); v != "" {
		c.Logging.Debug = v == "true" || v == "1"
	}
	if v := os.Getenv("MAESTRO_OLLAMA_URL"); v != "" {
		c.Invoker.OllamaURL = v
	}
	if v := os.Getenv("MAESTRO_LOCAL_ONLY"); v != "" {
		c.System.LocalOnly = v == "true" || v == "1"
	}
	if v := os.Getenv("MAESTRO_MAX_MEMORY_GB"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.System.MaxMemoryGB = f
		}
	}
}

// Validate checks internal consistency. systemTotalGB is the detected
// machine memory; 0 skips that check. Inconsistencies are fatal
// ConfigErrors surfaced at startup.
func (c *Config) Validate(systemTotalGB float64) error {
	if c.System.MaxMemoryGB <= 0 {
		return fault.New(fault.KindConfig, "config.validate", "system.max_memory_gb must be positive")
	}
	if systemTotalGB > 0 && c.System.MaxMemoryGB > systemTotalGB {
		return fault.New(fault.KindConfig, "config.validate",
			"system.max_memory_gb %.1f exceeds machine memory %.1f", c.System.MaxMemoryGB, systemTotalGB)
	}

	known := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.Name == "" {
			return fault.New(fault.KindConfig, "config.validate", "model profile with empty name")
		}
		known[m.Name] = true
	}
	for _, p := range c.Providers {
		for _, m := range p.Models {
			known[m.Name] = true
		}
	}
	for role, rc := range c.Roles {
		for _, name := range append(append([]string{}, rc.Preferred...), rc.CloudFallbacks...) {
			if !known[name] {
				return fault.New(fault.KindConfig, "config.validate", "role %s references unknown model %q", role, name)
			}
		}
	}

	if c.Cache.Capacity < 0 {
		return fault.New(fault.KindConfig, "config.validate", "cache.capacity must not be negative")
	}
	if c.Orchestrator.MaxIterations <= 0 {
		return fault.New(fault.KindConfig, "config.validate", "orchestrator.max_iterations must be positive")
	}
	return nil
}

// Constraints builds the selection constraint snapshot from configured
// limits plus live availability and thermal readings.
func (c *Config) Constraints(availableGB float64, thermal model.ThermalState) model.Constraints {
	return model.Constraints{
		MaxMemoryGB:           c.System.MaxMemoryGB,
		AvailableMemoryGB:     availableGB,
		MaxThermalSensitivity: c.System.MaxThermalSensitivity,
		ThermalState:          thermal,
		LocalOnly:             c.System.LocalOnly,
		CloudFallbacksEnabled: c.System.CloudFallbacksEnabled,
	}
}

// Role returns the config for a role, or an error naming the gap.
func (c *Config) Role(role model.Role) (RoleConfig, error) {
	rc, found := c.Roles[role]
	if !found {
		return RoleConfig{}, fmt.Errorf("no configuration for role %s", role)
	}
	return rc, nil
}
