package cascade

import (
	"context"
	"fmt"
	"time"

	"maestro/internal/fault"
	"maestro/internal/logging"
)

// Resolver answers clarification choices on behalf of the user. The
// CLI wires an interactive resolver; non-interactive runs use
// AutoSkipResolver.
type Resolver interface {
	Resolve(a Ambiguity, choices []Choice) (choiceID, input string, err error)
}

// AutoSkipResolver keeps every ambiguous span as written.
type AutoSkipResolver struct{}

func (AutoSkipResolver) Resolve(Ambiguity, []Choice) (string, string, error) {
	return SkipChoiceID, "", nil
}

// State accumulates the artifacts of a pipeline run; each stage reads
// what earlier stages produced.
type State struct {
	Input       string
	Clarified   string
	Ambiguities []Ambiguity
	Constraints []Constraint
	Validation  ConstraintValidation
	Feasibility Feasibility
	Paths       []ExecutionPath
	Plan        *ExecutionPlan
	Monitor     *ProgressMonitor
}

// StageRecord is one trace entry.
type StageRecord struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Summary  string        `json:"summary"`
}

// Trace records the observed stage order and per-stage summaries.
type Trace struct {
	Stages []StageRecord `json:"stages"`
}

// Names returns the stage names in execution order.
func (t *Trace) Names() []string {
	out := make([]string, len(t.Stages))
	for i, s := range t.Stages {
		out[i] = s.Name
	}
	return out
}

type stage struct {
	name string
	run  func(ctx context.Context, s *State) (summary string, err error)
}

// Pipeline runs the eight cascade stages in their fixed order.
type Pipeline struct {
	resolver Resolver
	monitor  MonitorOptions
}

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	Resolver Resolver       // nil means AutoSkipResolver
	Monitor  MonitorOptions // forwarded to the progress monitor stage
}

// NewPipeline builds a cascade pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	if opts.Resolver == nil {
		opts.Resolver = AutoSkipResolver{}
	}
	return &Pipeline{resolver: opts.Resolver, monitor: opts.Monitor}
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{"detect_ambiguities", func(_ context.Context, s *State) (string, error) {
			s.Ambiguities = DetectAmbiguities(s.Input)
			return fmt.Sprintf("%d ambiguities", len(s.Ambiguities)), nil
		}},
		{"clarify", func(_ context.Context, s *State) (string, error) {
			clarified, err := p.runClarification(s)
			if err != nil {
				return "", err
			}
			s.Clarified = clarified
			return fmt.Sprintf("clarified to %d chars", len(clarified)), nil
		}},
		{"extract_constraints", func(_ context.Context, s *State) (string, error) {
			s.Constraints = ExtractConstraints(s.Clarified)
			s.Validation = ValidateConstraints(s.Constraints)
			// Contradictions are not fatal: the feasibility stage
			// turns them into an infeasible judgment with
			// alternatives, which is more useful than an abort.
			if !s.Validation.Valid {
				logging.Get(logging.CategoryCascade).Warnw("contradictory constraints",
					"conflicts", s.Validation.Conflicts)
			}
			return fmt.Sprintf("%d constraints", len(s.Constraints)), nil
		}},
		{"validate_feasibility", func(_ context.Context, s *State) (string, error) {
			s.Feasibility = ValidateFeasibility(s.Constraints)
			return fmt.Sprintf("%s (%.0fh)", s.Feasibility.Status, s.Feasibility.EstimatedHours), nil
		}},
		{"generate_paths", func(_ context.Context, s *State) (string, error) {
			s.Paths = GeneratePaths(s.Clarified, s.Feasibility, s.Constraints)
			return fmt.Sprintf("%d paths", len(s.Paths)), nil
		}},
		{"plan_execution", func(_ context.Context, s *State) (string, error) {
			s.Plan = PlanExecution(s.Clarified, s.Constraints, s.Feasibility)
			return fmt.Sprintf("%d subtasks, %s", len(s.Plan.Subtasks), s.Plan.WorkflowKind), nil
		}},
		{"monitor_progress", func(_ context.Context, s *State) (string, error) {
			s.Monitor = NewProgressMonitor(s.Plan, p.monitor)
			return "monitor attached", nil
		}},
		{"adjust_prompts", func(_ context.Context, s *State) (string, error) {
			// The adjuster is stateless; this stage verifies every
			// subtask prompt has at least one viable adjustment path
			// should execution hit an obstacle.
			for _, st := range s.Plan.Subtasks {
				probe := Obstacle{Kind: ObstacleUnknown, SubtaskID: st.ID}
				if len(AdjustPrompt(probe, st)) == 0 {
					return "", fault.New(fault.KindInternal, "cascade.adjust",
						fmt.Sprintf("no adjustment strategy for subtask %s", st.ID))
				}
			}
			return "adjuster ready", nil
		}},
	}
}

// Run drives the stages in order. Any stage error aborts the run; the
// trace covers the stages that ran.
func (p *Pipeline) Run(ctx context.Context, input string) (*State, *Trace, error) {
	log := logging.Get(logging.CategoryCascade)
	s := &State{Input: input, Clarified: input}
	trace := &Trace{}

	for _, st := range p.stages() {
		if err := ctx.Err(); err != nil {
			return s, trace, fault.Wrap(fault.KindCancelled, "cascade."+st.name, err)
		}
		start := time.Now()
		summary, err := st.run(ctx, s)
		trace.Stages = append(trace.Stages, StageRecord{
			Name:     st.name,
			Duration: time.Since(start),
			Summary:  summary,
		})
		if err != nil {
			log.Warnw("stage failed", "stage", st.name, "error", err)
			return s, trace, err
		}
		log.Debugw("stage complete", "stage", st.name, "summary", summary)
	}
	return s, trace, nil
}

// runClarification walks a session over the detected ambiguities,
// asking the resolver for each answer.
func (p *Pipeline) runClarification(s *State) (string, error) {
	session := NewSession(s.Input, s.Ambiguities)
	for session.State() == SessionPresentingChoices {
		a, choices, err := session.Current()
		if err != nil {
			return "", err
		}
		choiceID, input, err := p.resolver.Resolve(a, choices)
		if err != nil {
			session.Cancel()
			return "", fault.Wrap(fault.KindInternal, "cascade.clarify", err)
		}
		if err := session.Answer(choiceID, input); err != nil {
			return "", err
		}
	}
	return session.Clarified()
}
