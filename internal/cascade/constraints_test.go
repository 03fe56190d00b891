package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constraintByKind(t *testing.T, cs []Constraint, kind ConstraintKind) Constraint {
	t.Helper()
	for _, c := range cs {
		if c.Kind == kind {
			return c
		}
	}
	t.Fatalf("no %s constraint in %+v", kind, cs)
	return Constraint{}
}

func TestExtractNumericTime(t *testing.T) {
	cases := []struct {
		input string
		hours float64
	}{
		{"finish this in 3 hours", 3},
		{"I have 90 minutes", 1.5},
		{"due in 2 days", 16},
		{"a 1 week project", 40},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			c := constraintByKind(t, ExtractConstraints(tc.input), ConstraintTime)
			assert.Equal(t, tc.hours, c.Hours)
			assert.Equal(t, OriginExplicit, c.Origin)
			assert.Equal(t, 0.85, c.Confidence)
		})
	}
}

func TestExtractQualitative(t *testing.T) {
	cases := []struct {
		input string
		kind  ConstraintKind
		value string
	}{
		{"I need this urgently", ConstraintTime, TimeUrgent},
		{"I'm a beginner at this", ConstraintSkill, SkillBeginner},
		{"build something complex", ConstraintComplexity, ComplexityComplex},
		{"just the basics please", ConstraintScope, ScopeMinimal},
		{"it must be production-ready", ConstraintQuality, QualityProduction},
		{"a quick hack is fine", ConstraintMaintainability, MaintQuickHack},
		{"keep it cheap", ConstraintBudget, "low"},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			c := constraintByKind(t, ExtractConstraints(tc.input), tc.kind)
			assert.Equal(t, tc.value, c.Value)
			assert.Equal(t, OriginExplicit, c.Origin)
			assert.GreaterOrEqual(t, c.Confidence, 0.7)
			assert.LessOrEqual(t, c.Confidence, 0.85)
		})
	}
}

func TestInferredConstraintsFromProjectType(t *testing.T) {
	cs := ExtractConstraints("build a prototype dashboard")
	quality := constraintByKind(t, cs, ConstraintQuality)
	assert.Equal(t, QualityMVP, quality.Value)
	assert.Equal(t, OriginInferred, quality.Origin)
	assert.Equal(t, 0.6, quality.Confidence)

	// An explicit quality statement wins over the inference.
	cs = ExtractConstraints("build a polished prototype")
	quality = constraintByKind(t, cs, ConstraintQuality)
	assert.Equal(t, QualityPolished, quality.Value)
	assert.Equal(t, OriginExplicit, quality.Origin)
}

func TestOneConstraintPerFamily(t *testing.T) {
	cs := ExtractConstraints("a simple but complex thing")
	seen := map[ConstraintKind]int{}
	for _, c := range cs {
		seen[c.Kind]++
	}
	for kind, n := range seen {
		assert.Equal(t, 1, n, "family %s extracted %d times", kind, n)
	}
}

func TestValidateConflictTable(t *testing.T) {
	cases := []struct {
		name        string
		constraints []Constraint
		valid       bool
	}{
		{
			"urgent complex",
			[]Constraint{
				{Kind: ConstraintTime, Value: TimeUrgent},
				{Kind: ConstraintComplexity, Value: ComplexityComplex},
			},
			false,
		},
		{
			"mvp enterprise",
			[]Constraint{
				{Kind: ConstraintQuality, Value: QualityMVP},
				{Kind: ConstraintMaintainability, Value: MaintEnterprise},
			},
			false,
		},
		{
			"minimal polished",
			[]Constraint{
				{Kind: ConstraintScope, Value: ScopeMinimal},
				{Kind: ConstraintQuality, Value: QualityPolished},
			},
			false,
		},
		{
			"urgent simple is fine",
			[]Constraint{
				{Kind: ConstraintTime, Value: TimeUrgent},
				{Kind: ConstraintComplexity, Value: ComplexitySimple},
			},
			true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := ValidateConstraints(tc.constraints)
			assert.Equal(t, tc.valid, v.Valid)
			if !tc.valid {
				assert.NotEmpty(t, v.Conflicts)
			}
		})
	}
}

func TestValidateWarningsAndSuggestions(t *testing.T) {
	v := ValidateConstraints([]Constraint{
		{Kind: ConstraintSkill, Value: SkillBeginner},
		{Kind: ConstraintComplexity, Value: ComplexityComplex},
		{Kind: ConstraintTime, Value: "2h", Hours: 2},
	})
	require.True(t, v.Valid, "warnings are not conflicts")
	assert.Len(t, v.Warnings, 2)

	// Missing time/quality/scope produce suggestions, never errors.
	v = ValidateConstraints(nil)
	assert.True(t, v.Valid)
	assert.Len(t, v.Suggestions, 3)
}
