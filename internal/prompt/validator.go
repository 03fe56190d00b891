package prompt

import (
	"fmt"

	"maestro/internal/plan"
)

const (
	wellFormedRisk = 0.1
	malformedRisk  = 0.8
)

// ValidatePlan runs the structural checks a plan must pass before the
// critique loop sees it. Well-formed plans score the baseline risk of
// 0.1; any structural failure is at least 0.8 plus a small increment
// per additional problem.
func ValidatePlan(p plan.Plan) (bool, float64, []string) {
	var problems []string

	if p.PlanSummary == "" {
		problems = append(problems, "plan_summary is empty")
	}
	if len(p.Steps) == 0 {
		problems = append(problems, "steps is empty")
	}
	if p.TotalSteps != len(p.Steps) {
		problems = append(problems, fmt.Sprintf("total_steps %d does not match %d steps", p.TotalSteps, len(p.Steps)))
	}
	switch p.Complexity {
	case plan.ComplexitySimple, plan.ComplexityModerate, plan.ComplexityComplex:
	default:
		problems = append(problems, fmt.Sprintf("unknown complexity %q", p.Complexity))
	}

	// Step numbers must be exactly 1..N in order, dependencies must
	// reference earlier steps only.
	for i, step := range p.Steps {
		want := i + 1
		if step.StepNumber != want {
			problems = append(problems, fmt.Sprintf("step %d has step_number %d", want, step.StepNumber))
		}
		if step.Description == "" {
			problems = append(problems, fmt.Sprintf("step %d has no description", want))
		}
		for _, dep := range step.Dependencies {
			if dep < 1 || dep >= want {
				problems = append(problems, fmt.Sprintf("step %d depends on step %d, which is not an earlier step", want, dep))
			}
		}
	}

	if len(problems) == 0 {
		return true, wellFormedRisk, nil
	}
	risk := malformedRisk + 0.05*float64(len(problems)-1)
	if risk > 1 {
		risk = 1
	}
	return false, risk, problems
}
