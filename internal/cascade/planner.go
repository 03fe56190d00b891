package cascade

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// tightTimeHours is the threshold below which the planner prefers a
// parallel workflow to fit the deadline.
const tightTimeHours = 10

// subtaskTemplates is the per-kind decomposition before scope trimming.
var subtaskTemplates = map[TaskKind][]struct {
	description  string
	priority     Priority
	weight       float64
	outputFormat string
}{
	TaskCoding: {
		{"analyze the requirements", PriorityHigh, 1, "notes"},
		{"implement the solution", PriorityCritical, 3, "code"},
		{"add error handling", PriorityHigh, 1, "code"},
		{"write tests", PriorityHigh, 1.5, "code"},
		{"refactor for clarity", PriorityMedium, 1, "code"},
		{"document the result", PriorityLow, 0.5, "markdown"},
	},
	TaskWriting: {
		{"outline the piece", PriorityHigh, 1, "outline"},
		{"draft the content", PriorityCritical, 3, "text"},
		{"revise for structure and tone", PriorityHigh, 1.5, "text"},
		{"proofread and format", PriorityMedium, 0.5, "text"},
	},
	TaskAnalysis: {
		{"gather and clean the data", PriorityHigh, 1.5, "dataset"},
		{"run the analysis", PriorityCritical, 2.5, "notes"},
		{"synthesize the findings", PriorityHigh, 1.5, "notes"},
		{"write the report", PriorityMedium, 1, "markdown"},
	},
	TaskResearch: {
		{"define the research questions", PriorityHigh, 1, "notes"},
		{"survey and evaluate sources", PriorityCritical, 2.5, "notes"},
		{"summarize conclusions", PriorityHigh, 1, "markdown"},
	},
}

// subtasksKept maps a scope value to how many template entries survive.
func subtasksKept(scope string, total int) int {
	switch scope {
	case ScopeMinimal:
		if total < 2 {
			return total
		}
		return 2
	case ScopeComprehensive:
		return total
	default:
		// standard drops the tail polish steps
		if total <= 4 {
			return total
		}
		return 4
	}
}

// modelGrid maps (taskKind, complexity) to the preferred model. Coding
// work goes to the coder fine-tune until complexity demands the larger
// generalist.
var modelGrid = map[TaskKind]map[string]string{
	TaskCoding: {
		ComplexitySimple:   "qwen2.5-coder:7b",
		ComplexityModerate: "qwen2.5-coder:7b",
		ComplexityComplex:  "qwen2.5:14b",
	},
	TaskWriting: {
		ComplexitySimple:   "phi3.5:3.8b",
		ComplexityModerate: "llama3.1:8b",
		ComplexityComplex:  "qwen2.5:14b",
	},
	TaskAnalysis: {
		ComplexitySimple:   "llama3.1:8b",
		ComplexityModerate: "qwen2.5:14b",
		ComplexityComplex:  "qwen2.5:14b",
	},
	TaskResearch: {
		ComplexitySimple:   "llama3.1:8b",
		ComplexityModerate: "llama3.1:8b",
		ComplexityComplex:  "qwen2.5:14b",
	},
}

// ModelFor returns the grid model for a task kind and complexity.
func ModelFor(kind TaskKind, complexity string) string {
	row, ok := modelGrid[kind]
	if !ok {
		row = modelGrid[TaskCoding]
	}
	if m, ok := row[complexity]; ok {
		return m
	}
	return row[ComplexityModerate]
}

// checkpointInterval follows the quality constraint: polished work is
// checked after every subtask, mvp work only at coarse milestones.
func checkpointInterval(quality string, n int) int {
	if quality == QualityMVP {
		half := n / 2
		if half < 2 {
			return 2
		}
		return half
	}
	return 1
}

// PlanExecution decomposes the clarified request into a dependency-
// chained execution plan with per-subtask model assignments.
func PlanExecution(request string, constraints []Constraint, feas Feasibility) *ExecutionPlan {
	byKind := constraintsByKind(constraints)
	d := dimsFrom(byKind)
	taskKind := DetectTaskKind(request)

	tmpl := subtaskTemplates[taskKind]
	kept := subtasksKept(d.scope, len(tmpl))
	tmpl = tmpl[:kept]

	totalHours := feas.EstimatedHours
	if totalHours <= 0 {
		totalHours = d.estimateHours()
	}
	var weightSum float64
	for _, t := range tmpl {
		weightSum += t.weight
	}

	model := ModelFor(taskKind, d.complexity)
	subtasks := make([]Subtask, 0, len(tmpl))
	var prevID string
	for _, t := range tmpl {
		id := uuid.NewString()
		var deps []string
		if prevID != "" {
			deps = []string{prevID}
		}
		subtasks = append(subtasks, Subtask{
			ID:             id,
			Description:    t.description,
			Status:         SubtaskPending,
			Priority:       t.priority,
			Dependencies:   deps,
			EstimatedHours: totalHours * t.weight / weightSum,
			RequiredModel:  model,
			Prompt:         buildSubtaskPrompt(t.description, request, t.outputFormat),
			OutputFormat:   t.outputFormat,
		})
		prevID = id
	}

	// The chain makes execution sequential by default; a parallel
	// workflow is chosen only with no dependencies or a tight deadline.
	workflow := WorkflowSequential
	parallelizable := false
	timeLimit := 0.0
	if t, ok := byKind[ConstraintTime]; ok {
		timeLimit = t.Hours
		if timeLimit == 0 && t.Value == TimeUrgent {
			timeLimit = urgentLimitHours
		}
	}
	if len(subtasks) <= 1 || (timeLimit > 0 && timeLimit < tightTimeHours) {
		workflow = WorkflowParallel
		parallelizable = true
	}

	return &ExecutionPlan{
		ID:                  uuid.NewString(),
		Description:         request,
		Subtasks:            subtasks,
		TotalEstimatedHours: totalHours,
		WorkflowKind:        workflow,
		Parallelizable:      parallelizable,
		CheckpointInterval:  checkpointInterval(d.quality, len(subtasks)),
	}
}

func buildSubtaskPrompt(step, request, outputFormat string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", request)
	fmt.Fprintf(&b, "Your part: %s.\n", step)
	fmt.Fprintf(&b, "Respond with %s only.", outputFormat)
	return b.String()
}
