// Package cascade refines raw user input into an executable plan through
// a fixed eight-stage pipeline: ambiguity detection, clarification,
// constraint extraction, feasibility validation, path generation,
// execution planning, progress monitoring, and prompt adjustment. Each
// stage's output is inspectable by later stages and by callers.
package cascade

import "time"

// AmbiguityKind names one of the six detector families.
type AmbiguityKind string

const (
	AmbiguityVagueQuantifier    AmbiguityKind = "vague_quantifier"
	AmbiguityUndefinedTerm      AmbiguityKind = "undefined_term"
	AmbiguityMissingContext     AmbiguityKind = "missing_context"
	AmbiguityAmbiguousReference AmbiguityKind = "ambiguous_reference"
	AmbiguityUnclearScope       AmbiguityKind = "unclear_scope"
	AmbiguitySubjectiveCriteria AmbiguityKind = "subjective_criteria"
)

// Ambiguity is one detected unclear span in the input.
type Ambiguity struct {
	Kind            AmbiguityKind `json:"kind"`
	Span            string        `json:"span"`
	Start           int           `json:"start"`
	End             int           `json:"end"`
	Confidence      float64       `json:"confidence"`
	Interpretations []string      `json:"interpretations"`
	Suggestions     []string      `json:"suggestions"`
}

// ConstraintKind names one of the seven constraint families.
type ConstraintKind string

const (
	ConstraintTime            ConstraintKind = "time"
	ConstraintBudget          ConstraintKind = "budget"
	ConstraintSkill           ConstraintKind = "skill"
	ConstraintComplexity      ConstraintKind = "complexity"
	ConstraintScope           ConstraintKind = "scope"
	ConstraintQuality         ConstraintKind = "quality"
	ConstraintMaintainability ConstraintKind = "maintainability"
)

// ConstraintOrigin records how a constraint was obtained.
type ConstraintOrigin string

const (
	OriginExplicit ConstraintOrigin = "explicit"
	OriginInferred ConstraintOrigin = "inferred"
	OriginImplicit ConstraintOrigin = "implicit"
)

// Constraint is one extracted limit on the task. Value holds either a
// qualitative enum string or, for numeric time/budget, the normalized
// amount rendered by the extractor; Hours carries the numeric value for
// time constraints.
type Constraint struct {
	Kind        ConstraintKind   `json:"kind"`
	Value       string           `json:"value"`
	Hours       float64          `json:"hours,omitempty"`
	Confidence  float64          `json:"confidence"`
	Origin      ConstraintOrigin `json:"origin"`
	Description string           `json:"description"`
}

// FeasibilityStatus is the discrete judgment over a constrained task.
type FeasibilityStatus string

const (
	StatusFeasible   FeasibilityStatus = "feasible"
	StatusMarginal   FeasibilityStatus = "marginal"
	StatusInfeasible FeasibilityStatus = "infeasible"
	StatusUnknown    FeasibilityStatus = "unknown"
)

// Alternative is one concrete relaxation offered for an infeasible task.
type Alternative struct {
	Description    string   `json:"description"`
	EstimatedHours float64  `json:"estimated_hours"`
	Addresses      []string `json:"addresses"`
	Score          int      `json:"score"`
}

// Feasibility is the outcome of validating a task against its
// constraints.
type Feasibility struct {
	Status         FeasibilityStatus `json:"status"`
	Confidence     float64           `json:"confidence"`
	EstimatedHours float64           `json:"estimated_hours"`
	Reasons        []string          `json:"reasons"`
	Blockers       []string          `json:"blockers"`
	Alternatives   []Alternative     `json:"alternatives"`
	Suggestions    []string          `json:"suggestions"`
}

// PathKind names an execution strategy template.
type PathKind string

const (
	PathOptimal     PathKind = "optimal"
	PathFast        PathKind = "fast"
	PathThorough    PathKind = "thorough"
	PathMinimal     PathKind = "minimal"
	PathAlternative PathKind = "alternative"
	PathWorkaround  PathKind = "workaround"
)

// ExecutionPath is one candidate strategy with its own step list and
// estimates.
type ExecutionPath struct {
	Kind              PathKind `json:"kind"`
	Steps             []string `json:"steps"`
	EstimatedHours    float64  `json:"estimated_hours"`
	EstimatedCost     float64  `json:"estimated_cost"`
	RequiredSkills    []string `json:"required_skills"`
	RequiredResources []string `json:"required_resources"`
	Pros              []string `json:"pros"`
	Cons              []string `json:"cons"`
	Confidence        float64  `json:"confidence"`
}

// TaskKind is the detected nature of the work.
type TaskKind string

const (
	TaskCoding   TaskKind = "coding"
	TaskWriting  TaskKind = "writing"
	TaskAnalysis TaskKind = "analysis"
	TaskResearch TaskKind = "research"
)

// SubtaskStatus tracks one subtask through execution.
type SubtaskStatus string

const (
	SubtaskPending    SubtaskStatus = "pending"
	SubtaskInProgress SubtaskStatus = "in_progress"
	SubtaskCompleted  SubtaskStatus = "completed"
	SubtaskFailed     SubtaskStatus = "failed"
	SubtaskSkipped    SubtaskStatus = "skipped"
)

// Priority orders subtasks by importance.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Subtask is an atomic unit of work scheduled to a specific model.
type Subtask struct {
	ID             string        `json:"id"`
	Description    string        `json:"description"`
	Status         SubtaskStatus `json:"status"`
	Priority       Priority      `json:"priority"`
	Dependencies   []string      `json:"dependencies"`
	EstimatedHours float64       `json:"estimated_hours"`
	RequiredModel  string        `json:"required_model"`
	Prompt         string        `json:"prompt"`
	OutputFormat   string        `json:"output_format"`
	Context        []string      `json:"context,omitempty"`
}

// WorkflowKind describes how subtasks are scheduled.
type WorkflowKind string

const (
	WorkflowSequential   WorkflowKind = "sequential"
	WorkflowParallel     WorkflowKind = "parallel"
	WorkflowHierarchical WorkflowKind = "hierarchical"
	WorkflowIterative    WorkflowKind = "iterative"
)

// ExecutionPlan is the cascade's final artifact for one request.
type ExecutionPlan struct {
	ID                  string       `json:"id"`
	Description         string       `json:"description"`
	Subtasks            []Subtask    `json:"subtasks"`
	TotalEstimatedHours float64      `json:"total_estimated_hours"`
	WorkflowKind        WorkflowKind `json:"workflow_kind"`
	Parallelizable      bool         `json:"parallelizable"`
	CheckpointInterval  int          `json:"checkpoint_interval"`
}

// ObstacleKind classifies an execution failure or slowdown.
type ObstacleKind string

const (
	ObstacleTimeout           ObstacleKind = "timeout"
	ObstacleError             ObstacleKind = "error"
	ObstacleResourceLimit     ObstacleKind = "resource_limit"
	ObstacleDependencyFailure ObstacleKind = "dependency_failure"
	ObstacleQualityIssue      ObstacleKind = "quality_issue"
	ObstaclePerformanceIssue  ObstacleKind = "performance_issue"
	ObstacleUnknown           ObstacleKind = "unknown"
)

// ObstacleSeverity grades an obstacle.
type ObstacleSeverity string

const (
	ObstacleInfo     ObstacleSeverity = "info"
	ObstacleWarning  ObstacleSeverity = "warning"
	ObstacleErrorSev ObstacleSeverity = "error"
	ObstacleCritical ObstacleSeverity = "critical"
)

// Obstacle is a classified event observed during execution.
type Obstacle struct {
	Kind             ObstacleKind     `json:"kind"`
	SubtaskID        string           `json:"subtask_id"`
	Severity         ObstacleSeverity `json:"severity"`
	SuggestedActions []string         `json:"suggested_actions"`
	Context          string           `json:"context"`
	Timestamp        time.Time        `json:"timestamp"`
}

// AdjustmentKind names a prompt rewriting strategy.
type AdjustmentKind string

const (
	AdjustSimplify    AdjustmentKind = "simplify"
	AdjustExpand      AdjustmentKind = "expand"
	AdjustRefine      AdjustmentKind = "refine"
	AdjustRestructure AdjustmentKind = "restructure"
	AdjustAddContext  AdjustmentKind = "add_context"
	AdjustReduceScope AdjustmentKind = "reduce_scope"
	AdjustChangeModel AdjustmentKind = "change_model"
	AdjustBreakDown   AdjustmentKind = "break_down"
)

// PromptAdjustment is one candidate rewrite of an underperforming
// prompt.
type PromptAdjustment struct {
	Kind                AdjustmentKind `json:"kind"`
	Original            string         `json:"original"`
	Adjusted            string         `json:"adjusted"`
	Reason              string         `json:"reason"`
	ExpectedImprovement string         `json:"expected_improvement"`
	Confidence          float64        `json:"confidence"`
}
