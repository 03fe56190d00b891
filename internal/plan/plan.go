// Package plan defines the JSON wire shapes exchanged with planner and
// critic models, and the parsing that tolerates the markdown wrappers
// models put around their JSON.
package plan

import (
	"encoding/json"
	"strings"

	"maestro/internal/fault"
)

// Complexity grades a plan.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Step is one planned unit of work.
type Step struct {
	StepNumber    int      `json:"step_number"`
	Description   string   `json:"description"`
	Dependencies  []int    `json:"dependencies"`
	ToolsNeeded   []string `json:"tools_needed"`
	EstimatedTime string   `json:"estimated_time"`
}

// Plan is the planner's output.
type Plan struct {
	PlanSummary string     `json:"plan_summary"`
	Steps       []Step     `json:"steps"`
	TotalSteps  int        `json:"total_steps"`
	Complexity  Complexity `json:"complexity"`
}

// IssueType classifies a critique finding.
type IssueType string

const (
	IssueLogic        IssueType = "logic"
	IssueDependency   IssueType = "dependency"
	IssueResource     IssueType = "resource"
	IssueCompleteness IssueType = "completeness"
)

// IssueSeverity grades a critique finding.
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

// Issue is one finding against a plan step.
type Issue struct {
	StepNumber  int           `json:"step_number"`
	IssueType   IssueType     `json:"issue_type"`
	Description string        `json:"description"`
	Severity    IssueSeverity `json:"severity"`
}

// Critique is the critic's output.
type Critique struct {
	IsValid           bool    `json:"is_valid"`
	RiskScore         float64 `json:"risk_score"`
	IssuesFound       []Issue `json:"issues_found"`
	Suggestions       []string `json:"suggestions"`
	OverallAssessment string  `json:"overall_assessment"`
}

// ExtractJSON finds the first balanced JSON object in a model response,
// skipping markdown fences and prose around it. Returns "" when no
// object is present.
func ExtractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

// ParsePlan decodes a model response into a Plan. Shape violations are
// ShapeError; structural validity against the invariants is the prompt
// catalog validator's job.
func ParsePlan(response string) (Plan, error) {
	raw := ExtractJSON(response)
	if raw == "" {
		return Plan{}, fault.New(fault.KindShape, "plan.parse", "no JSON object in planner response")
	}
	var p Plan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Plan{}, fault.Wrap(fault.KindShape, "plan.parse", err)
	}
	return p, nil
}

// ParseCritique decodes a model response into a Critique.
func ParseCritique(response string) (Critique, error) {
	raw := ExtractJSON(response)
	if raw == "" {
		return Critique{}, fault.New(fault.KindShape, "critique.parse", "no JSON object in critic response")
	}
	var c Critique
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Critique{}, fault.Wrap(fault.KindShape, "critique.parse", err)
	}
	return c, nil
}

// Encode renders a plan back to indented JSON for refinement prompts.
func (p Plan) Encode() string {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
