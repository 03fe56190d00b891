package cascade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan(t *testing.T) *ExecutionPlan {
	t.Helper()
	plan := PlanExecution("implement a parser", []Constraint{
		{Kind: ConstraintScope, Value: ScopeComprehensive},
	}, Feasibility{EstimatedHours: 6})
	require.Len(t, plan.Subtasks, 6)
	return plan
}

func TestFailureClassification(t *testing.T) {
	cases := []struct {
		message  string
		kind     ObstacleKind
		severity ObstacleSeverity
	}{
		{"Request timed out after 60s", ObstacleTimeout, ObstacleWarning},
		{"connection timeout", ObstacleTimeout, ObstacleWarning},
		{"out of memory while loading", ObstacleResourceLimit, ObstacleCritical},
		{"resource exhausted", ObstacleResourceLimit, ObstacleCritical},
		{"dependency not satisfied", ObstacleDependencyFailure, ObstacleErrorSev},
		{"unexpected token in response", ObstacleError, ObstacleErrorSev},
	}
	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			kind, severity := classifyFailure(tc.message)
			assert.Equal(t, tc.kind, kind)
			assert.Equal(t, tc.severity, severity)
		})
	}
}

// A subtask timeout is recorded as a warning obstacle and the adjuster
// answers with simplify as the top candidate.
func TestTimeoutObstacleTriggersSimplify(t *testing.T) {
	plan := testPlan(t)
	m := NewProgressMonitor(plan, MonitorOptions{})

	st := plan.Subtasks[1]
	m.Update(st.ID, SubtaskInProgress, "")
	m.Update(st.ID, SubtaskFailed, "Request timed out after 60s")

	obstacles := m.Obstacles()
	require.Len(t, obstacles, 1)
	assert.Equal(t, ObstacleTimeout, obstacles[0].Kind)
	assert.Equal(t, ObstacleWarning, obstacles[0].Severity)
	assert.NotEmpty(t, obstacles[0].SuggestedActions)

	candidates := AdjustPrompt(obstacles[0], st)
	require.GreaterOrEqual(t, len(candidates), 3)

	var simplify *PromptAdjustment
	for i, c := range candidates {
		if c.Kind == AdjustSimplify {
			simplify = &candidates[i]
		}
	}
	require.NotNil(t, simplify)
	assert.Equal(t, 0.9, simplify.Confidence)

	best, ok := BestAdjustment(candidates)
	require.True(t, ok)
	assert.Equal(t, AdjustSimplify, best.Kind)
}

func TestPerformanceIssueRecorded(t *testing.T) {
	clock := &fakeCascadeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	plan := testPlan(t)
	m := NewProgressMonitor(plan, MonitorOptions{Clock: clock.Now})

	st := plan.Subtasks[0]
	m.Update(st.ID, SubtaskInProgress, "")
	// Three times the estimate blows the default 2.0x threshold.
	clock.Advance(time.Duration(st.EstimatedHours * 3 * float64(time.Hour)))
	m.Update(st.ID, SubtaskCompleted, "")

	obstacles := m.Obstacles()
	require.Len(t, obstacles, 1)
	assert.Equal(t, ObstaclePerformanceIssue, obstacles[0].Kind)
	assert.Equal(t, ObstacleWarning, obstacles[0].Severity)

	// A performance issue alone never stops execution.
	assert.False(t, m.ShouldStopExecution())
}

func TestTighterPerformanceThreshold(t *testing.T) {
	clock := &fakeCascadeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	plan := testPlan(t)
	m := NewProgressMonitor(plan, MonitorOptions{PerformanceThreshold: 1.5, Clock: clock.Now})

	st := plan.Subtasks[0]
	m.Update(st.ID, SubtaskInProgress, "")
	clock.Advance(time.Duration(st.EstimatedHours * 1.8 * float64(time.Hour)))
	m.Update(st.ID, SubtaskCompleted, "")

	require.Len(t, m.Obstacles(), 1)
	assert.Equal(t, ObstaclePerformanceIssue, m.Obstacles()[0].Kind)
}

func TestShouldStopExecution(t *testing.T) {
	plan := testPlan(t)

	t.Run("critical obstacle stops immediately", func(t *testing.T) {
		m := NewProgressMonitor(plan, MonitorOptions{})
		m.Update(plan.Subtasks[0].ID, SubtaskFailed, "out of memory")
		assert.True(t, m.ShouldStopExecution())
	})

	t.Run("error threshold", func(t *testing.T) {
		m := NewProgressMonitor(plan, MonitorOptions{})
		for i := 0; i < 2; i++ {
			m.Update(plan.Subtasks[i].ID, SubtaskFailed, "unexpected output")
		}
		assert.False(t, m.ShouldStopExecution())
		m.Update(plan.Subtasks[2].ID, SubtaskFailed, "unexpected output")
		assert.True(t, m.ShouldStopExecution())
	})
}

func TestGenerateReport(t *testing.T) {
	clock := &fakeCascadeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	plan := testPlan(t)
	m := NewProgressMonitor(plan, MonitorOptions{Clock: clock.Now})

	first := plan.Subtasks[0]
	m.Update(first.ID, SubtaskInProgress, "")
	clock.Advance(30 * time.Minute)
	m.Update(first.ID, SubtaskCompleted, "")
	m.Update(plan.Subtasks[1].ID, SubtaskInProgress, "")

	report := m.GenerateReport()
	assert.InDelta(t, 100.0/6, report.ProgressPct, 0.01)
	assert.Equal(t, plan.Subtasks[1].Description, report.CurrentSubtask)
	assert.Equal(t, 30*time.Minute, report.Elapsed)
	assert.Greater(t, report.EstimatedRemaining, time.Duration(0))
	assert.Empty(t, report.Alerts)
}

func TestAdjustmentStrategiesPerObstacle(t *testing.T) {
	st := Subtask{ID: "s1", Description: "implement", Prompt: "Please ensure that you implement the parser", RequiredModel: "qwen2.5-coder:7b"}

	cases := []struct {
		kind  ObstacleKind
		wants []AdjustmentKind
	}{
		{ObstacleTimeout, []AdjustmentKind{AdjustSimplify, AdjustReduceScope, AdjustChangeModel}},
		{ObstacleResourceLimit, []AdjustmentKind{AdjustChangeModel, AdjustReduceScope, AdjustSimplify}},
		{ObstacleError, []AdjustmentKind{AdjustRefine, AdjustAddContext, AdjustBreakDown}},
		{ObstacleDependencyFailure, []AdjustmentKind{AdjustRestructure, AdjustAddContext}},
		{ObstacleQualityIssue, []AdjustmentKind{AdjustExpand, AdjustRefine, AdjustAddContext}},
		{ObstacleUnknown, []AdjustmentKind{AdjustRefine, AdjustSimplify}},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			candidates := AdjustPrompt(Obstacle{Kind: tc.kind, SubtaskID: st.ID}, st)
			var kinds []AdjustmentKind
			for _, c := range candidates {
				kinds = append(kinds, c.Kind)
				assert.NotEmpty(t, c.Adjusted)
				assert.GreaterOrEqual(t, c.Confidence, 0.7)
				assert.LessOrEqual(t, c.Confidence, 0.9)
			}
			assert.Equal(t, tc.wants, kinds)
		})
	}
}

func TestSimplifyStripsBoilerplate(t *testing.T) {
	st := Subtask{Prompt: "Please ensure that you implement the parser. It is important to keep it fast."}
	candidates := AdjustPrompt(Obstacle{Kind: ObstacleTimeout}, st)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "you implement the parser. keep it fast.", candidates[0].Adjusted)
}

type fakeCascadeClock struct {
	now time.Time
}

func (f *fakeCascadeClock) Now() time.Time          { return f.now }
func (f *fakeCascadeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }
