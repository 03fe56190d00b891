package cascade

import (
	"regexp"
	"strconv"
	"strings"
)

// nominalHourlyCost prices an estimated hour for path comparison. The
// absolute number matters less than the ratio between paths.
const nominalHourlyCost = 25.0

var taskKindPatterns = []struct {
	kind    TaskKind
	pattern *regexp.Regexp
}{
	{TaskWriting, regexp.MustCompile(`(?i)\b(write|draft|essay|article|blog|documentation|docs|readme)\b`)},
	{TaskAnalysis, regexp.MustCompile(`(?i)\b(analy[sz]e|analysis|compare|evaluate|assess|benchmark)\b`)},
	{TaskResearch, regexp.MustCompile(`(?i)\b(research|investigate|explore|survey|literature)\b`)},
	{TaskCoding, regexp.MustCompile(`(?i)\b(code|implement|function|class|bug|fix|api|refactor|script|program)\b`)},
}

// DetectTaskKind classifies the request by keyword, defaulting to
// coding. Writing/analysis/research are checked first because coding
// verbs ("implement", "fix") often appear alongside them.
func DetectTaskKind(input string) TaskKind {
	for _, tp := range taskKindPatterns {
		if tp.pattern.MatchString(input) {
			return tp.kind
		}
	}
	return TaskCoding
}

// baseSteps is the canonical step list per task kind; path templates
// derive their step lists from it.
var baseSteps = map[TaskKind][]string{
	TaskCoding: {
		"understand requirements",
		"design the approach",
		"implement the solution",
		"add error handling",
		"write tests",
		"refactoring",
		"document the result",
	},
	TaskWriting: {
		"outline the piece",
		"draft the content",
		"revise for structure",
		"proofread",
		"format for publication",
	},
	TaskAnalysis: {
		"gather the data",
		"explore and clean",
		"run the analysis",
		"synthesize findings",
		"write the report",
	},
	TaskResearch: {
		"define the questions",
		"survey the sources",
		"evaluate the evidence",
		"summarize conclusions",
	},
}

// pathTemplate fixes per-kind adjustments to the base step list and the
// effort factor relative to the base estimate.
type pathTemplate struct {
	kind       PathKind
	hoursRatio float64
	pros       []string
	cons       []string
}

var pathTemplates = map[PathKind]pathTemplate{
	PathOptimal:     {PathOptimal, 1.0, []string{"balanced quality and speed"}, []string{"no slack for surprises"}},
	PathFast:        {PathFast, 0.6, []string{"quickest to a working result"}, []string{"skips error handling and cleanup"}},
	PathThorough:    {PathThorough, 1.5, []string{"highest quality and coverage"}, []string{"slowest option"}},
	PathMinimal:     {PathMinimal, 0.4, []string{"smallest possible effort"}, []string{"covers only the core"}},
	PathAlternative: {PathAlternative, 1.0, []string{"different ordering may surface problems early"}, []string{"unconventional flow"}},
	PathWorkaround:  {PathWorkaround, 0.5, []string{"sidesteps the blocking constraint"}, []string{"accrues debt to repay later"}},
}

// kindsFor selects which 2-3 path templates suit a feasibility status.
func kindsFor(status FeasibilityStatus) []PathKind {
	switch status {
	case StatusFeasible:
		return []PathKind{PathOptimal, PathFast, PathThorough}
	case StatusMarginal:
		return []PathKind{PathFast, PathMinimal, PathAlternative}
	case StatusInfeasible:
		return []PathKind{PathMinimal, PathWorkaround}
	default:
		return []PathKind{PathOptimal, PathFast}
	}
}

// adjustSteps derives a template's step list from the base list.
func adjustSteps(kind PathKind, base []string) []string {
	switch kind {
	case PathMinimal:
		// First, middle, last: the irreducible skeleton.
		if len(base) <= 3 {
			return append([]string(nil), base...)
		}
		return []string{base[0], base[len(base)/2], base[len(base)-1]}
	case PathFast:
		var out []string
		for _, s := range base {
			if s == "add error handling" || s == "refactoring" {
				continue
			}
			out = append(out, s)
		}
		return out
	case PathThorough:
		out := append([]string(nil), base...)
		return append(out, "integration tests", "performance tuning", "security review")
	case PathAlternative:
		// Pull verification forward: prototype first, specify after.
		out := append([]string(nil), base...)
		if len(out) > 2 {
			out[0], out[1] = out[1], out[0]
		}
		return out
	case PathWorkaround:
		// Collapse adjacent steps into compound moves.
		var out []string
		for i := 0; i < len(base); i += 2 {
			if i+1 < len(base) {
				out = append(out, base[i]+" and "+base[i+1])
			} else {
				out = append(out, base[i])
			}
		}
		return out
	default:
		return append([]string(nil), base...)
	}
}

// GeneratePaths produces the candidate execution paths for a request
// given its feasibility and constraints. Paths are scored against the
// time, budget, and skill constraints.
func GeneratePaths(input string, feas Feasibility, constraints []Constraint) []ExecutionPath {
	taskKind := DetectTaskKind(input)
	base := baseSteps[taskKind]
	baseHours := feas.EstimatedHours
	if baseHours <= 0 {
		baseHours = dimsFrom(constraintsByKind(constraints)).estimateHours()
	}

	byKind := constraintsByKind(constraints)
	var out []ExecutionPath
	for _, pk := range kindsFor(feas.Status) {
		tpl := pathTemplates[pk]
		hours := baseHours * tpl.hoursRatio
		p := ExecutionPath{
			Kind:              pk,
			Steps:             adjustSteps(pk, base),
			EstimatedHours:    hours,
			EstimatedCost:     hours * nominalHourlyCost,
			RequiredSkills:    requiredSkills(taskKind, byKind),
			RequiredResources: []string{"local model runtime"},
			Pros:              tpl.pros,
			Cons:              tpl.cons,
			Confidence:        scorePath(hours, byKind),
		}
		out = append(out, p)
	}
	return out
}

func constraintsByKind(constraints []Constraint) map[ConstraintKind]Constraint {
	byKind := make(map[ConstraintKind]Constraint, len(constraints))
	for _, c := range constraints {
		byKind[c.Kind] = c
	}
	return byKind
}

func requiredSkills(kind TaskKind, byKind map[ConstraintKind]Constraint) []string {
	skills := map[TaskKind][]string{
		TaskCoding:   {"programming"},
		TaskWriting:  {"writing"},
		TaskAnalysis: {"data analysis"},
		TaskResearch: {"source evaluation"},
	}[kind]
	if c, ok := byKind[ConstraintComplexity]; ok && c.Value == ComplexityComplex {
		skills = append(skills, "architecture")
	}
	return skills
}

// scorePath rates a path's fit to the stated constraints, starting
// from a neutral 0.5 and clamped to [0,1].
func scorePath(hours float64, byKind map[ConstraintKind]Constraint) float64 {
	score := 0.5
	if t, ok := byKind[ConstraintTime]; ok {
		limit := t.Hours
		if limit == 0 && t.Value == TimeUrgent {
			limit = urgentLimitHours
		}
		switch {
		case limit == 0:
			// Qualitative "thorough" does not constrain.
		case hours <= limit:
			score += 0.2
		default:
			score -= 0.2
		}
	}
	if b, ok := byKind[ConstraintBudget]; ok {
		if budget, err := parseBudget(b.Value); err == nil && hours*nominalHourlyCost <= budget {
			score += 0.1
		}
	}
	if s, ok := byKind[ConstraintSkill]; ok && s.Value != SkillBeginner {
		score += 0.1
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func parseBudget(v string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}
