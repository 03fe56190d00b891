package model

import "fmt"

// Role names a workflow or cascade stage role.
type Role string

const (
	RolePlanner  Role = "planner"
	RoleCritic   Role = "critic"
	RoleExecutor Role = "executor"

	// Cascade stage roles select subtask models by task kind.
	RoleAnalysis Role = "analysis"
	RoleCoding   Role = "coding"
	RoleWriting  Role = "writing"
	RoleResearch Role = "research"
)

// Requirements captures the minima and constraints a role places on a
// model. Zero values mean "no requirement" on that axis.
type Requirements struct {
	MinSkills             Skills   `yaml:"min_skills" json:"min_skills"`
	ContextLengthMin      int      `yaml:"context_length_min" json:"context_length_min"`
	MemoryGBMax           float64  `yaml:"memory_gb_max" json:"memory_gb_max"`
	RequiredFeatures      Features `yaml:"required_features" json:"required_features"`
	MaxThermalSensitivity float64  `yaml:"max_thermal_sensitivity" json:"max_thermal_sensitivity"`
	RequiresLocal         bool     `yaml:"requires_local" json:"requires_local"`
}

// Report is the outcome of validating capabilities against requirements.
type Report struct {
	Valid    bool     `json:"valid"`
	Issues   []string `json:"issues,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	// Score in [0,1]: 0.6 skills, 0.2 context headroom, 0.2 memory headroom.
	Score float64 `json:"score"`
}

// Validate checks capabilities against the requirements and scores the
// fit. A model is valid iff every minimum is met, every required
// feature is present, recommended memory fits the budget, thermal
// sensitivity is within bounds, and locality matches.
func (r Requirements) Validate(c Capabilities) Report {
	var rep Report

	type axis struct {
		name string
		min  float64
		got  float64
	}
	for _, a := range []axis{
		{"reasoning", r.MinSkills.Reasoning, c.Skills.Reasoning},
		{"coding", r.MinSkills.Coding, c.Skills.Coding},
		{"creativity", r.MinSkills.Creativity, c.Skills.Creativity},
		{"multilingual", r.MinSkills.Multilingual, c.Skills.Multilingual},
	} {
		if a.got < a.min {
			rep.Issues = append(rep.Issues, fmt.Sprintf("%s %.2f below minimum %.2f", a.name, a.got, a.min))
		}
	}

	if r.ContextLengthMin > 0 && c.ContextLength < r.ContextLengthMin {
		rep.Issues = append(rep.Issues, fmt.Sprintf("context length %d below minimum %d", c.ContextLength, r.ContextLengthMin))
	}
	if r.MemoryGBMax > 0 && c.RecommendedMemoryGB > r.MemoryGBMax {
		rep.Issues = append(rep.Issues, fmt.Sprintf("recommended memory %.1fGB exceeds budget %.1fGB", c.RecommendedMemoryGB, r.MemoryGBMax))
	}
	if r.RequiredFeatures.FunctionCalling && !c.Features.FunctionCalling {
		rep.Issues = append(rep.Issues, "function calling required but unsupported")
	}
	if r.RequiredFeatures.Vision && !c.Features.Vision {
		rep.Issues = append(rep.Issues, "vision required but unsupported")
	}
	if r.RequiredFeatures.Tools && !c.Features.Tools {
		rep.Issues = append(rep.Issues, "tool use required but unsupported")
	}
	if r.MaxThermalSensitivity > 0 && c.ThermalSensitivity > r.MaxThermalSensitivity {
		rep.Issues = append(rep.Issues, fmt.Sprintf("thermal sensitivity %.2f exceeds maximum %.2f", c.ThermalSensitivity, r.MaxThermalSensitivity))
	}
	if r.RequiresLocal && !c.IsLocal() {
		rep.Issues = append(rep.Issues, fmt.Sprintf("local model required but source is %s", c.Source))
	}

	if r.MemoryGBMax > 0 && c.RecommendedMemoryGB > r.MemoryGBMax*0.9 {
		rep.Warnings = append(rep.Warnings, "recommended memory is within 10% of the budget")
	}

	rep.Valid = len(rep.Issues) == 0
	rep.Score = r.score(c)
	return rep
}

// score is the 0.6/0.2/0.2 weighted fit used for ranking. Components
// saturate at 1 so oversized models do not score above well-fitted ones.
func (r Requirements) score(c Capabilities) float64 {
	skills := c.Skills.SkillMean()

	contextFit := 1.0
	if r.ContextLengthMin > 0 {
		contextFit = clamp01(float64(c.ContextLength) / float64(r.ContextLengthMin))
	}

	memoryHeadroom := 1.0
	if r.MemoryGBMax > 0 {
		memoryHeadroom = clamp01((r.MemoryGBMax - c.RecommendedMemoryGB) / r.MemoryGBMax)
	}

	return clamp01(0.6*skills + 0.2*contextFit + 0.2*memoryHeadroom)
}

// Constraints is a point-in-time snapshot of the system limits that a
// selection must respect.
type Constraints struct {
	MaxMemoryGB           float64      `json:"max_memory_gb"`
	AvailableMemoryGB     float64      `json:"available_memory_gb"`
	MaxThermalSensitivity float64      `json:"max_thermal_sensitivity"`
	ThermalState          ThermalState `json:"thermal_state"`
	LocalOnly             bool         `json:"local_only"`
	CloudFallbacksEnabled bool         `json:"cloud_fallbacks_enabled"`
}
