// Package model defines the capability vocabulary shared by the
// registry, role mapper, and factory: what a model can do, what a role
// needs, and the snapshot of system constraints a selection runs under.
package model

// Source identifies where a model is served from.
type Source string

const (
	SourceLocal     Source = "local"     // Local inference daemon
	SourceAnthropic Source = "anthropic" // Remote provider
	SourceOpenAI    Source = "openai"    // Remote provider
)

// Quantization is the weight format of a local model build.
type Quantization string

const (
	QuantNone Quantization = "none"
	QuantQ8   Quantization = "q8_0"
	QuantQ6K  Quantization = "q6_k"
	QuantQ5KM Quantization = "q5_k_m"
	QuantQ4KM Quantization = "q4_k_m"
	QuantQ4   Quantization = "q4_0"
)

// ThermalState is the coarse device thermal level.
type ThermalState string

const (
	ThermalNormal   ThermalState = "normal"
	ThermalModerate ThermalState = "moderate"
	ThermalHigh     ThermalState = "high"
	ThermalCritical ThermalState = "critical"
)

// Skills are the four scored capability axes, each in [0,1].
type Skills struct {
	Reasoning    float64 `yaml:"reasoning" json:"reasoning"`
	Coding       float64 `yaml:"coding" json:"coding"`
	Creativity   float64 `yaml:"creativity" json:"creativity"`
	Multilingual float64 `yaml:"multilingual" json:"multilingual"`
}

// Features are binary model capabilities a role may require.
type Features struct {
	FunctionCalling bool `yaml:"function_calling" json:"function_calling"`
	Vision          bool `yaml:"vision" json:"vision"`
	Tools           bool `yaml:"tools" json:"tools"`
}

// Capabilities is the immutable description of one model. Owned by the
// registry; other components hold read-only copies.
type Capabilities struct {
	Name               string       `yaml:"name" json:"name"`
	DisplayName        string       `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Source             Source       `yaml:"source" json:"source"`
	RequiresCredential bool         `yaml:"requires_credential" json:"requires_credential"`
	Tags               []string     `yaml:"tags,omitempty" json:"tags,omitempty"`
	ContextLength      int          `yaml:"context_length" json:"context_length"`
	Quantization       Quantization `yaml:"quantization" json:"quantization"`
	Parameters         int64        `yaml:"parameters" json:"parameters"`

	MemoryEstimateGB    float64 `yaml:"memory_estimate_gb" json:"memory_estimate_gb"`
	MinMemoryGB         float64 `yaml:"min_memory_gb" json:"min_memory_gb"`
	RecommendedMemoryGB float64 `yaml:"recommended_memory_gb" json:"recommended_memory_gb"`

	Skills   Skills   `yaml:"skills" json:"skills"`
	Features Features `yaml:"features" json:"features"`

	// ThermalSensitivity in [0,1]: how aggressively this model heats the
	// device relative to its class.
	ThermalSensitivity float64 `yaml:"thermal_sensitivity" json:"thermal_sensitivity"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Normalize clamps skill and thermal values into [0,1] and repairs the
// memory triple so min ≤ estimate ≤ recommended holds.
func (c Capabilities) Normalize() Capabilities {
	c.Skills.Reasoning = clamp01(c.Skills.Reasoning)
	c.Skills.Coding = clamp01(c.Skills.Coding)
	c.Skills.Creativity = clamp01(c.Skills.Creativity)
	c.Skills.Multilingual = clamp01(c.Skills.Multilingual)
	c.ThermalSensitivity = clamp01(c.ThermalSensitivity)

	if c.MemoryEstimateGB < c.MinMemoryGB {
		c.MemoryEstimateGB = c.MinMemoryGB
	}
	if c.RecommendedMemoryGB < c.MemoryEstimateGB {
		c.RecommendedMemoryGB = c.MemoryEstimateGB
	}
	return c
}

// IsLocal reports whether the model is served by the local daemon.
func (c Capabilities) IsLocal() bool { return c.Source == SourceLocal }

// SkillMean is the unweighted mean of the four skill axes.
func (s Skills) SkillMean() float64 {
	return (s.Reasoning + s.Coding + s.Creativity + s.Multilingual) / 4
}
