package cascade

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Qualitative constraint values. Each family keeps a small closed set.
const (
	TimeUrgent   = "urgent"
	TimeThorough = "thorough"

	SkillBeginner     = "beginner"
	SkillIntermediate = "intermediate"
	SkillExpert       = "expert"

	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"

	ScopeMinimal       = "minimal"
	ScopeStandard      = "standard"
	ScopeComprehensive = "comprehensive"

	QualityMVP        = "mvp"
	QualityProduction = "production"
	QualityPolished   = "polished"

	MaintQuickHack    = "quick_hack"
	MaintMaintainable = "maintainable"
	MaintEnterprise   = "enterprise"
)

var (
	numericTimePattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(minutes?|mins?|hours?|hrs?|h|days?|weeks?)\b`)
	budgetPattern      = regexp.MustCompile(`(?i)\$\s*(\d+(?:\.\d+)?)`)
)

// qualitativePattern binds a regex to a (kind, value, confidence)
// triple. Explicit matches carry 0.7–0.85 confidence by specificity.
type qualitativePattern struct {
	pattern    *regexp.Regexp
	kind       ConstraintKind
	value      string
	confidence float64
}

var qualitativePatterns = []qualitativePattern{
	{regexp.MustCompile(`(?i)\b(urgent(ly)?|asap|as soon as possible|right away|quickly)\b`), ConstraintTime, TimeUrgent, 0.8},
	{regexp.MustCompile(`(?i)\b(thorough(ly)?|no rush|take your time|whenever)\b`), ConstraintTime, TimeThorough, 0.7},

	{regexp.MustCompile(`(?i)\b(cheap(ly)?|free|low budget|no budget)\b`), ConstraintBudget, "low", 0.7},

	{regexp.MustCompile(`(?i)\b(beginner|novice|new to (this|programming|coding))\b`), ConstraintSkill, SkillBeginner, 0.8},
	{regexp.MustCompile(`(?i)\b(intermediate)\b`), ConstraintSkill, SkillIntermediate, 0.8},
	{regexp.MustCompile(`(?i)\b(expert|experienced|advanced user)\b`), ConstraintSkill, SkillExpert, 0.8},

	{regexp.MustCompile(`(?i)\b(simple|easy|trivial|straightforward)\b`), ConstraintComplexity, ComplexitySimple, 0.7},
	{regexp.MustCompile(`(?i)\b(moderate(ly)?( complex)?)\b`), ConstraintComplexity, ComplexityModerate, 0.7},
	{regexp.MustCompile(`(?i)\b(complex|complicated|sophisticated|intricate)\b`), ConstraintComplexity, ComplexityComplex, 0.75},

	{regexp.MustCompile(`(?i)\b(minimal|bare minimum|just the basics|only the essentials)\b`), ConstraintScope, ScopeMinimal, 0.8},
	{regexp.MustCompile(`(?i)\b(comprehensive|complete|full(-| )featured|end.to.end)\b`), ConstraintScope, ScopeComprehensive, 0.75},

	{regexp.MustCompile(`(?i)\b(mvp|proof of concept|quick demo)\b`), ConstraintQuality, QualityMVP, 0.85},
	{regexp.MustCompile(`(?i)\b(production(-| )ready|robust|reliable|production quality)\b`), ConstraintQuality, QualityProduction, 0.8},
	{regexp.MustCompile(`(?i)\b(polished|flawless|perfect)\b`), ConstraintQuality, QualityPolished, 0.75},

	{regexp.MustCompile(`(?i)\b(quick hack|throwaway|one.off|disposable)\b`), ConstraintMaintainability, MaintQuickHack, 0.8},
	{regexp.MustCompile(`(?i)\b(maintainable|clean code|well.structured)\b`), ConstraintMaintainability, MaintMaintainable, 0.7},
	{regexp.MustCompile(`(?i)\b(enterprise([- ]grade)?|long.term|built to last)\b`), ConstraintMaintainability, MaintEnterprise, 0.8},
}

// inferredConfidence applies to constraints derived from project
// context rather than explicit wording.
const inferredConfidence = 0.6

// normalizeHours converts a numeric quantity and unit to hours. Days
// and weeks are working time (8 h days, 40 h weeks).
func normalizeHours(amount float64, unit string) float64 {
	switch {
	case strings.HasPrefix(unit, "min"):
		return amount / 60
	case strings.HasPrefix(unit, "day"):
		return amount * 8
	case strings.HasPrefix(unit, "week"):
		return amount * 40
	default:
		return amount
	}
}

// ExtractConstraints runs all seven constraint families over the input.
// At most one constraint per family is kept: the highest-confidence
// match wins.
func ExtractConstraints(input string) []Constraint {
	best := make(map[ConstraintKind]Constraint)
	keep := func(c Constraint) {
		if prev, ok := best[c.Kind]; !ok || c.Confidence > prev.Confidence {
			best[c.Kind] = c
		}
	}

	if m := numericTimePattern.FindStringSubmatch(input); m != nil {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			hours := normalizeHours(amount, strings.ToLower(m[2]))
			keep(Constraint{
				Kind:        ConstraintTime,
				Value:       fmt.Sprintf("%gh", hours),
				Hours:       hours,
				Confidence:  0.85,
				Origin:      OriginExplicit,
				Description: fmt.Sprintf("time limit %s %s", m[1], m[2]),
			})
		}
	}
	if m := budgetPattern.FindStringSubmatch(input); m != nil {
		keep(Constraint{
			Kind:        ConstraintBudget,
			Value:       m[1],
			Confidence:  0.85,
			Origin:      OriginExplicit,
			Description: "budget $" + m[1],
		})
	}
	for _, qp := range qualitativePatterns {
		if m := qp.pattern.FindString(input); m != "" {
			keep(Constraint{
				Kind:        qp.kind,
				Value:       qp.value,
				Confidence:  qp.confidence,
				Origin:      OriginExplicit,
				Description: fmt.Sprintf("%s=%s (matched %q)", qp.kind, qp.value, strings.ToLower(m)),
			})
		}
	}

	// Context-derived constraints carry lower confidence and never
	// override an explicit match.
	if regexp.MustCompile(`(?i)\bprototype\b`).MatchString(input) {
		if _, ok := best[ConstraintQuality]; !ok {
			best[ConstraintQuality] = Constraint{
				Kind:        ConstraintQuality,
				Value:       QualityMVP,
				Confidence:  inferredConfidence,
				Origin:      OriginInferred,
				Description: "prototype project implies mvp quality",
			}
		}
		if _, ok := best[ConstraintMaintainability]; !ok {
			best[ConstraintMaintainability] = Constraint{
				Kind:        ConstraintMaintainability,
				Value:       MaintQuickHack,
				Confidence:  inferredConfidence,
				Origin:      OriginInferred,
				Description: "prototype project implies short-lived code",
			}
		}
	}

	// Fixed family order keeps output deterministic.
	order := []ConstraintKind{
		ConstraintTime, ConstraintBudget, ConstraintSkill, ConstraintComplexity,
		ConstraintScope, ConstraintQuality, ConstraintMaintainability,
	}
	out := make([]Constraint, 0, len(best))
	for _, k := range order {
		if c, ok := best[k]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ConstraintValidation reports contradictions, warnings, and
// suggestions over an extracted constraint set.
type ConstraintValidation struct {
	Valid       bool     `json:"valid"`
	Conflicts   []string `json:"conflicts"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

// conflictRule is one row of the fixed contradiction table.
type conflictRule struct {
	kindA  ConstraintKind
	valueA string
	kindB  ConstraintKind
	valueB string
}

var conflictTable = []conflictRule{
	{ConstraintTime, TimeUrgent, ConstraintComplexity, ComplexityComplex},
	{ConstraintQuality, QualityMVP, ConstraintMaintainability, MaintEnterprise},
	{ConstraintScope, ScopeMinimal, ConstraintQuality, QualityPolished},
}

// ValidateConstraints checks the set against the conflict table, emits
// warnings for risky combinations, and suggests filling in missing
// time/quality/scope constraints.
func ValidateConstraints(constraints []Constraint) ConstraintValidation {
	byKind := make(map[ConstraintKind]Constraint, len(constraints))
	for _, c := range constraints {
		byKind[c.Kind] = c
	}

	v := ConstraintValidation{Valid: true}
	for _, rule := range conflictTable {
		a, okA := byKind[rule.kindA]
		b, okB := byKind[rule.kindB]
		if okA && okB && a.Value == rule.valueA && b.Value == rule.valueB {
			v.Valid = false
			v.Conflicts = append(v.Conflicts,
				fmt.Sprintf("%s=%s conflicts with %s=%s", rule.kindA, rule.valueA, rule.kindB, rule.valueB))
		}
	}

	if s, ok := byKind[ConstraintSkill]; ok && s.Value == SkillBeginner {
		if c, ok := byKind[ConstraintComplexity]; ok && c.Value == ComplexityComplex {
			v.Warnings = append(v.Warnings, "complex task with beginner skill level; expect a steep curve")
		}
	}
	if t, ok := byKind[ConstraintTime]; ok && t.Hours > 0 && t.Hours < 4 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("very tight time limit (%.1fh); consider reducing scope", t.Hours))
	}

	for _, kind := range []ConstraintKind{ConstraintTime, ConstraintQuality, ConstraintScope} {
		if _, ok := byKind[kind]; !ok {
			v.Suggestions = append(v.Suggestions, fmt.Sprintf("no %s constraint stated; a default will be assumed", kind))
		}
	}
	return v
}
