package cascade

import (
	"fmt"
	"sort"
)

// baseHoursTable is indexed by (complexity, scope). Each scope step
// halves or doubles the effort; complexity rows grow steeply because
// coordination cost is not linear.
var baseHoursTable = map[string]map[string]float64{
	ComplexitySimple:   {ScopeMinimal: 2, ScopeStandard: 4, ScopeComprehensive: 8},
	ComplexityModerate: {ScopeMinimal: 8, ScopeStandard: 16, ScopeComprehensive: 32},
	ComplexityComplex:  {ScopeMinimal: 20, ScopeStandard: 40, ScopeComprehensive: 80},
}

var qualityMultiplier = map[string]float64{
	QualityMVP:        0.5,
	QualityProduction: 1.0,
	QualityPolished:   1.5,
}

var maintainabilityMultiplier = map[string]float64{
	MaintQuickHack:    0.3,
	MaintMaintainable: 1.0,
	MaintEnterprise:   1.5,
}

// urgentLimitHours is the implied ceiling of a qualitative "urgent"
// time constraint.
const urgentLimitHours = 4

// admissibleComplexity maps a skill level to the complexities it can
// take on.
var admissibleComplexity = map[string]map[string]bool{
	SkillBeginner:     {ComplexitySimple: true},
	SkillIntermediate: {ComplexitySimple: true, ComplexityModerate: true},
	SkillExpert:       {ComplexitySimple: true, ComplexityModerate: true, ComplexityComplex: true},
}

// dims bundles the effort-relevant constraint values with defaults
// applied.
type dims struct {
	complexity string
	scope      string
	quality    string
	maint      string
}

func dimsFrom(byKind map[ConstraintKind]Constraint) dims {
	d := dims{
		complexity: ComplexityModerate,
		scope:      ScopeStandard,
		quality:    QualityProduction,
		maint:      MaintMaintainable,
	}
	if c, ok := byKind[ConstraintComplexity]; ok {
		d.complexity = c.Value
	}
	if c, ok := byKind[ConstraintScope]; ok {
		d.scope = c.Value
	}
	if c, ok := byKind[ConstraintQuality]; ok {
		if _, known := qualityMultiplier[c.Value]; known {
			d.quality = c.Value
		}
	}
	if c, ok := byKind[ConstraintMaintainability]; ok {
		if _, known := maintainabilityMultiplier[c.Value]; known {
			d.maint = c.Value
		}
	}
	return d
}

func (d dims) estimateHours() float64 {
	row, ok := baseHoursTable[d.complexity]
	if !ok {
		row = baseHoursTable[ComplexityModerate]
	}
	base, ok := row[d.scope]
	if !ok {
		base = row[ScopeStandard]
	}
	return base * qualityMultiplier[d.quality] * maintainabilityMultiplier[d.maint]
}

// ValidateFeasibility estimates the effort implied by the constraint
// set and judges whether the stated time and skill constraints admit
// it. With no constraints at all the judgment is unknown.
func ValidateFeasibility(constraints []Constraint) Feasibility {
	if len(constraints) == 0 {
		return Feasibility{
			Status:      StatusUnknown,
			Confidence:  0.5,
			Reasons:     []string{"no constraints stated"},
			Suggestions: []string{"state time, quality, and scope constraints for a reliable judgment"},
		}
	}

	byKind := make(map[ConstraintKind]Constraint, len(constraints))
	for _, c := range constraints {
		byKind[c.Kind] = c
	}
	d := dimsFrom(byKind)
	estimate := d.estimateHours()

	f := Feasibility{EstimatedHours: estimate}
	timeOK, timeApplies, timeReason := timeFeasible(byKind, estimate)
	skillOK, skillApplies, skillReason := skillFeasible(byKind, d.complexity)
	f.Reasons = append(f.Reasons, timeReason, skillReason)

	// Only checks backed by a stated constraint count toward the
	// judgment; an absent constraint cannot rescue a failing one.
	applicable, failed := 0, 0
	var failing []string
	if timeApplies {
		applicable++
		if !timeOK {
			failed++
			failing = append(failing, "time")
			f.Blockers = append(f.Blockers, timeReason)
		}
	}
	if skillApplies {
		applicable++
		if !skillOK {
			failed++
			failing = append(failing, "skill")
			f.Blockers = append(f.Blockers, skillReason)
		}
	}

	switch {
	case failed == 0:
		f.Status = StatusFeasible
		f.Confidence = 0.8
	case failed == applicable:
		f.Status = StatusInfeasible
		f.Confidence = 0.7
	default:
		f.Status = StatusMarginal
		f.Confidence = 0.6
	}
	if len(failing) > 0 {
		f.Alternatives = alternatives(d, byKind, failing)
		f.Suggestions = append(f.Suggestions,
			"consider one of the alternatives, or relax the failing constraint")
	}
	return f
}

func timeFeasible(byKind map[ConstraintKind]Constraint, estimate float64) (ok, applies bool, reason string) {
	t, present := byKind[ConstraintTime]
	if !present {
		return true, false, "no time constraint"
	}
	switch {
	case t.Hours > 0:
		if t.Hours >= estimate {
			return true, true, fmt.Sprintf("estimate %.0fh fits the %.0fh limit", estimate, t.Hours)
		}
		return false, true, fmt.Sprintf("estimate %.0fh exceeds the %.0fh limit", estimate, t.Hours)
	case t.Value == TimeUrgent:
		if estimate <= urgentLimitHours {
			return true, true, fmt.Sprintf("estimate %.0fh fits the urgent window (%dh)", estimate, urgentLimitHours)
		}
		return false, true, fmt.Sprintf("estimate %.0fh exceeds the urgent window (%dh)", estimate, urgentLimitHours)
	case t.Value == TimeThorough:
		return true, true, "no deadline pressure"
	default:
		return true, false, "time constraint not limiting"
	}
}

func skillFeasible(byKind map[ConstraintKind]Constraint, complexity string) (ok, applies bool, reason string) {
	s, present := byKind[ConstraintSkill]
	if !present {
		return true, false, "no skill constraint"
	}
	admissible, known := admissibleComplexity[s.Value]
	if !known {
		return true, false, "skill level unrecognized, not limiting"
	}
	if admissible[complexity] {
		return true, true, fmt.Sprintf("%s skill admits %s complexity", s.Value, complexity)
	}
	return false, true, fmt.Sprintf("%s skill does not admit %s complexity", s.Value, complexity)
}

// alternatives re-estimates the task with one dimension relaxed at a
// time and scores each option by how many failing dimensions it
// addresses.
func alternatives(d dims, byKind map[ConstraintKind]Constraint, failing []string) []Alternative {
	failsTime := contains(failing, "time")
	failsSkill := contains(failing, "skill")
	var out []Alternative

	add := func(desc string, reduced dims, addresses []string) {
		score := 0
		for _, a := range addresses {
			if contains(failing, a) {
				score++
			}
		}
		out = append(out, Alternative{
			Description:    desc,
			EstimatedHours: reduced.estimateHours(),
			Addresses:      addresses,
			Score:          score,
		})
	}

	if d.scope != ScopeMinimal {
		reduced := d
		reduced.scope = ScopeMinimal
		add("reduce scope to minimal", reduced, []string{"time"})
	}
	if d.quality != QualityMVP {
		reduced := d
		reduced.quality = QualityMVP
		add("reduce quality target to mvp", reduced, []string{"time"})
	}
	if lower := lowerComplexity(d.complexity); lower != "" {
		reduced := d
		reduced.complexity = lower
		add(fmt.Sprintf("reduce complexity to %s", lower), reduced, []string{"time", "skill"})
	}

	// General fallbacks that do not change the estimate.
	if failsTime {
		add("split the work into phases with separate deadlines", d, []string{"time"})
	}
	if failsSkill {
		add("pair with a more experienced collaborator", d, []string{"skill"})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func lowerComplexity(c string) string {
	switch c {
	case ComplexityComplex:
		return ComplexityModerate
	case ComplexityModerate:
		return ComplexitySimple
	default:
		return ""
	}
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
