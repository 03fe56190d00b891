package cascade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The observed stage order must be exactly the fixed cascade sequence.
func TestPipelineStageOrder(t *testing.T) {
	p := NewPipeline(PipelineOptions{})
	state, trace, err := p.Run(context.Background(), "Write a Python function to reverse a string")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"detect_ambiguities",
		"clarify",
		"extract_constraints",
		"validate_feasibility",
		"generate_paths",
		"plan_execution",
		"monitor_progress",
		"adjust_prompts",
	}, trace.Names())

	require.NotNil(t, state.Plan)
	require.NotNil(t, state.Monitor)
	assert.NotEmpty(t, state.Plan.Subtasks)
	assert.NotEmpty(t, state.Paths)
}

func TestPipelineCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(PipelineOptions{})
	_, trace, err := p.Run(ctx, "anything")
	require.Error(t, err)
	assert.Empty(t, trace.Stages)
}

// A resolver error cancels the session and aborts the run at clarify.
func TestPipelineResolverFailure(t *testing.T) {
	p := NewPipeline(PipelineOptions{Resolver: failingResolver{}})
	_, trace, err := p.Run(context.Background(), "make it faster")
	require.Error(t, err)
	assert.Equal(t, []string{"detect_ambiguities", "clarify"}, trace.Names())
}

type failingResolver struct{}

func (failingResolver) Resolve(Ambiguity, []Choice) (string, string, error) {
	return "", "", assert.AnError
}

func TestDetectTaskKind(t *testing.T) {
	cases := []struct {
		input string
		want  TaskKind
	}{
		{"implement a parser", TaskCoding},
		{"write a blog post about Go", TaskWriting},
		{"analyze last quarter's numbers", TaskAnalysis},
		{"research vector databases", TaskResearch},
		{"something unclassifiable", TaskCoding},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectTaskKind(tc.input), tc.input)
	}
}

func TestGeneratePathsPerStatus(t *testing.T) {
	feas := func(status FeasibilityStatus) Feasibility {
		return Feasibility{Status: status, EstimatedHours: 16}
	}
	cases := []struct {
		status FeasibilityStatus
		kinds  []PathKind
	}{
		{StatusFeasible, []PathKind{PathOptimal, PathFast, PathThorough}},
		{StatusMarginal, []PathKind{PathFast, PathMinimal, PathAlternative}},
		{StatusInfeasible, []PathKind{PathMinimal, PathWorkaround}},
		{StatusUnknown, []PathKind{PathOptimal, PathFast}},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			paths := GeneratePaths("implement a parser", feas(tc.status), nil)
			var kinds []PathKind
			for _, p := range paths {
				kinds = append(kinds, p.Kind)
			}
			assert.Equal(t, tc.kinds, kinds)
			for _, p := range paths {
				assert.NotEmpty(t, p.Steps)
				assert.Greater(t, p.EstimatedHours, 0.0)
				assert.GreaterOrEqual(t, p.Confidence, 0.0)
				assert.LessOrEqual(t, p.Confidence, 1.0)
			}
		})
	}
}

func TestPathStepAdjustments(t *testing.T) {
	base := baseSteps[TaskCoding]

	minimal := adjustSteps(PathMinimal, base)
	assert.Equal(t, []string{base[0], base[len(base)/2], base[len(base)-1]}, minimal)

	fast := adjustSteps(PathFast, base)
	assert.NotContains(t, fast, "add error handling")
	assert.NotContains(t, fast, "refactoring")

	thorough := adjustSteps(PathThorough, base)
	assert.Contains(t, thorough, "security review")
	assert.Len(t, thorough, len(base)+3)

	workaround := adjustSteps(PathWorkaround, base)
	assert.Less(t, len(workaround), len(base))
}

func TestPlanExecutionSequentialChain(t *testing.T) {
	plan := PlanExecution("implement a parser", []Constraint{
		{Kind: ConstraintComplexity, Value: ComplexityModerate},
		{Kind: ConstraintScope, Value: ScopeComprehensive},
	}, Feasibility{EstimatedHours: 32})

	require.Len(t, plan.Subtasks, 6)
	assert.Equal(t, WorkflowSequential, plan.WorkflowKind)
	assert.False(t, plan.Parallelizable)
	assert.Equal(t, 1, plan.CheckpointInterval)

	// Linear dependency chain: each subtask depends on its predecessor.
	assert.Empty(t, plan.Subtasks[0].Dependencies)
	for i := 1; i < len(plan.Subtasks); i++ {
		require.Len(t, plan.Subtasks[i].Dependencies, 1)
		assert.Equal(t, plan.Subtasks[i-1].ID, plan.Subtasks[i].Dependencies[0])
	}

	// Hours split across subtasks sums to the estimate.
	var sum float64
	for _, st := range plan.Subtasks {
		sum += st.EstimatedHours
		assert.Equal(t, "qwen2.5-coder:7b", st.RequiredModel)
		assert.NotEmpty(t, st.Prompt)
	}
	assert.InDelta(t, 32, sum, 1e-9)
}

func TestPlanExecutionTightDeadlineParallel(t *testing.T) {
	plan := PlanExecution("implement a parser", []Constraint{
		{Kind: ConstraintTime, Value: "4h", Hours: 4},
	}, Feasibility{EstimatedHours: 4})
	assert.Equal(t, WorkflowParallel, plan.WorkflowKind)
	assert.True(t, plan.Parallelizable)
}

func TestPlanExecutionScopeTrimsSubtasks(t *testing.T) {
	minimal := PlanExecution("implement a parser", []Constraint{
		{Kind: ConstraintScope, Value: ScopeMinimal},
	}, Feasibility{EstimatedHours: 8})
	assert.Len(t, minimal.Subtasks, 2)

	standard := PlanExecution("implement a parser", nil, Feasibility{EstimatedHours: 16})
	assert.Len(t, standard.Subtasks, 4)
}

func TestCheckpointInterval(t *testing.T) {
	assert.Equal(t, 1, checkpointInterval(QualityPolished, 6))
	assert.Equal(t, 3, checkpointInterval(QualityMVP, 6))
	assert.Equal(t, 2, checkpointInterval(QualityMVP, 3))
	assert.Equal(t, 1, checkpointInterval(QualityProduction, 6))
}

func TestModelGrid(t *testing.T) {
	assert.Equal(t, "qwen2.5-coder:7b", ModelFor(TaskCoding, ComplexitySimple))
	assert.Equal(t, "qwen2.5:14b", ModelFor(TaskCoding, ComplexityComplex))
	assert.Equal(t, "phi3.5:3.8b", ModelFor(TaskWriting, ComplexitySimple))
	assert.Equal(t, "llama3.1:8b", ModelFor(TaskResearch, ComplexityModerate))
}
