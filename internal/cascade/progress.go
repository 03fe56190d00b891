package cascade

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"maestro/internal/logging"
)

// DefaultPerformanceThreshold flags a completed subtask whose actual
// duration exceeded the estimate by this factor. Configurations with
// tighter tolerances set a lower value.
const DefaultPerformanceThreshold = 2.0

// DefaultErrorThreshold stops execution after this many non-performance
// errors.
const DefaultErrorThreshold = 3

var suggestedActionsByKind = map[ObstacleKind][]string{
	ObstacleTimeout: {
		"simplify the prompt",
		"reduce the subtask scope",
		"switch to a faster model",
	},
	ObstacleResourceLimit: {
		"unload other models first",
		"use a smaller model",
		"reduce the context size",
	},
	ObstacleDependencyFailure: {
		"re-run the prerequisite subtask",
		"relax the dependency and continue",
	},
	ObstacleError: {
		"inspect the error message",
		"retry once",
		"adjust the prompt",
	},
	ObstaclePerformanceIssue: {
		"switch to a faster model",
		"split the subtask",
	},
}

// classifyFailure maps an error message to an obstacle kind and
// severity by substring.
func classifyFailure(message string) (ObstacleKind, ObstacleSeverity) {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return ObstacleTimeout, ObstacleWarning
	case strings.Contains(lower, "memory") || strings.Contains(lower, "resource"):
		return ObstacleResourceLimit, ObstacleCritical
	case strings.Contains(lower, "dependency"):
		return ObstacleDependencyFailure, ObstacleErrorSev
	default:
		return ObstacleError, ObstacleErrorSev
	}
}

// ProgressReport is a point-in-time view of a running plan.
type ProgressReport struct {
	ProgressPct        float64       `json:"progress_pct"`
	CurrentSubtask     string        `json:"current_subtask"`
	Obstacles          []Obstacle    `json:"obstacles"`
	Alerts             []string      `json:"alerts"`
	Elapsed            time.Duration `json:"elapsed"`
	EstimatedRemaining time.Duration `json:"estimated_remaining"`
}

// ProgressMonitor tracks one execution plan through status updates,
// classifying failures into obstacles. It holds the only read-write
// view of the plan during execution.
type ProgressMonitor struct {
	mu                   sync.Mutex
	plan                 *ExecutionPlan
	startedAt            time.Time
	subtaskStart         map[string]time.Time
	subtaskDuration      map[string]time.Duration
	obstacles            []Obstacle
	performanceThreshold float64
	errorThreshold       int
	now                  func() time.Time
}

// MonitorOptions tunes a ProgressMonitor. Zero values use defaults.
type MonitorOptions struct {
	PerformanceThreshold float64
	ErrorThreshold       int
	Clock                func() time.Time
}

// NewProgressMonitor binds a monitor to a plan.
func NewProgressMonitor(plan *ExecutionPlan, opts MonitorOptions) *ProgressMonitor {
	if opts.PerformanceThreshold <= 0 {
		opts.PerformanceThreshold = DefaultPerformanceThreshold
	}
	if opts.ErrorThreshold <= 0 {
		opts.ErrorThreshold = DefaultErrorThreshold
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &ProgressMonitor{
		plan:                 plan,
		startedAt:            opts.Clock(),
		subtaskStart:         make(map[string]time.Time),
		subtaskDuration:      make(map[string]time.Duration),
		performanceThreshold: opts.PerformanceThreshold,
		errorThreshold:       opts.ErrorThreshold,
		now:                  opts.Clock,
	}
}

// Update records a subtask status change. Failed subtasks produce a
// classified obstacle; completions that blew their estimate produce a
// performance_issue obstacle.
func (m *ProgressMonitor) Update(subtaskID string, status SubtaskStatus, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.subtask(subtaskID)
	if st == nil {
		return
	}
	st.Status = status
	now := m.now()

	switch status {
	case SubtaskInProgress:
		m.subtaskStart[subtaskID] = now
	case SubtaskCompleted, SubtaskFailed:
		if start, ok := m.subtaskStart[subtaskID]; ok {
			m.subtaskDuration[subtaskID] = now.Sub(start)
		}
	}

	if status == SubtaskFailed {
		kind, severity := classifyFailure(errMsg)
		m.addObstacleLocked(Obstacle{
			Kind:             kind,
			SubtaskID:        subtaskID,
			Severity:         severity,
			SuggestedActions: suggestedActionsByKind[kind],
			Context:          errMsg,
			Timestamp:        now,
		})
		return
	}

	if status == SubtaskCompleted {
		expected := time.Duration(st.EstimatedHours * float64(time.Hour))
		actual := m.subtaskDuration[subtaskID]
		if expected > 0 && actual > time.Duration(float64(expected)*m.performanceThreshold) {
			m.addObstacleLocked(Obstacle{
				Kind:      ObstaclePerformanceIssue,
				SubtaskID: subtaskID,
				Severity:  ObstacleWarning,
				SuggestedActions: suggestedActionsByKind[ObstaclePerformanceIssue],
				Context: fmt.Sprintf("took %s, expected %s (threshold %.1fx)",
					actual.Round(time.Second), expected.Round(time.Second), m.performanceThreshold),
				Timestamp: now,
			})
		}
	}
}

func (m *ProgressMonitor) addObstacleLocked(o Obstacle) {
	m.obstacles = append(m.obstacles, o)
	logging.Get(logging.CategoryCascade).Warnw("obstacle recorded",
		"kind", o.Kind, "severity", o.Severity, "subtask", o.SubtaskID, "context", o.Context)
}

func (m *ProgressMonitor) subtask(id string) *Subtask {
	for i := range m.plan.Subtasks {
		if m.plan.Subtasks[i].ID == id {
			return &m.plan.Subtasks[i]
		}
	}
	return nil
}

// Obstacles returns a copy of the recorded obstacles.
func (m *ProgressMonitor) Obstacles() []Obstacle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Obstacle, len(m.obstacles))
	copy(out, m.obstacles)
	return out
}

// ShouldStopExecution reports whether execution must halt: any critical
// obstacle, or too many non-performance errors.
func (m *ProgressMonitor) ShouldStopExecution() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	errors := 0
	for _, o := range m.obstacles {
		if o.Severity == ObstacleCritical {
			return true
		}
		if o.Kind != ObstaclePerformanceIssue {
			errors++
		}
	}
	return errors >= m.errorThreshold
}

// GenerateReport summarizes progress, remaining effort, and observed
// obstacles. Remaining time is scaled by the empirical ratio of actual
// to expected duration over the completed subtasks.
func (m *ProgressMonitor) GenerateReport() ProgressReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	var done, total int
	var current string
	var expectedDone, remainingHours float64
	var actualDone time.Duration
	for _, st := range m.plan.Subtasks {
		total++
		switch st.Status {
		case SubtaskCompleted, SubtaskSkipped:
			done++
			expectedDone += st.EstimatedHours
			actualDone += m.subtaskDuration[st.ID]
		case SubtaskInProgress:
			if current == "" {
				current = st.Description
			}
			remainingHours += st.EstimatedHours
		default:
			remainingHours += st.EstimatedHours
		}
	}

	ratio := 1.0
	if expectedDone > 0 && actualDone > 0 {
		ratio = actualDone.Hours() / expectedDone
	}

	report := ProgressReport{
		CurrentSubtask:     current,
		Obstacles:          append([]Obstacle(nil), m.obstacles...),
		Elapsed:            m.now().Sub(m.startedAt),
		EstimatedRemaining: time.Duration(remainingHours * ratio * float64(time.Hour)),
	}
	if total > 0 {
		report.ProgressPct = 100 * float64(done) / float64(total)
	}
	for _, o := range m.obstacles {
		if o.Severity == ObstacleCritical {
			report.Alerts = append(report.Alerts, fmt.Sprintf("critical %s on subtask %s", o.Kind, o.SubtaskID))
		}
	}
	return report
}
