package prompt

import (
	"strings"
	"testing"

	"maestro/internal/model"
	"maestro/internal/plan"
)

func TestFormatSubstitutesVariables(t *testing.T) {
	out, err := Format("Request: {{task}}\n\nContext:\n{{context}}", map[string]string{
		"task":    "reverse a string",
		"context": "python project",
	})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(out, "reverse a string") || !strings.Contains(out, "python project") {
		t.Fatalf("substitution incomplete: %q", out)
	}
	if strings.Contains(out, "{{") {
		t.Fatalf("unreplaced marker left in output: %q", out)
	}
}

func TestFormatFailsOnMissingVariable(t *testing.T) {
	_, err := Format("{{task}} with {{missing}}", map[string]string{"task": "x"})
	if err == nil {
		t.Fatal("expected error for unbound variable")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Fatalf("error does not name the unbound variable: %v", err)
	}
}

func TestCatalogCoversAllRolesAndIntents(t *testing.T) {
	c := NewCatalog()
	for _, role := range []model.Role{model.RolePlanner, model.RoleCritic, model.RoleExecutor, RoleRefinement} {
		cfg, err := c.ForRole(role)
		if err != nil {
			t.Fatalf("ForRole(%s): %v", role, err)
		}
		if cfg.SystemPrompt == "" || cfg.UserTemplate == "" || cfg.MaxTokens <= 0 {
			t.Fatalf("incomplete config for %s: %+v", role, cfg)
		}
	}
	for _, intent := range []Intent{IntentDebug, IntentGenerate, IntentExplain} {
		if _, err := c.ForIntent(intent); err != nil {
			t.Fatalf("ForIntent(%s): %v", intent, err)
		}
	}
	if _, err := c.ForRole("ghost"); err == nil {
		t.Fatal("unknown role resolved")
	}
}

func wellFormedPlan() plan.Plan {
	return plan.Plan{
		PlanSummary: "Reverse a string in Python",
		Steps: []plan.Step{
			{StepNumber: 1, Description: "Define the function", Dependencies: []int{}},
			{StepNumber: 2, Description: "Implement slicing", Dependencies: []int{1}},
			{StepNumber: 3, Description: "Add a doctest", Dependencies: []int{2}},
		},
		TotalSteps: 3,
		Complexity: plan.ComplexitySimple,
	}
}

func TestValidatePlanWellFormed(t *testing.T) {
	ok, risk, problems := ValidatePlan(wellFormedPlan())
	if !ok || risk != 0.1 || len(problems) != 0 {
		t.Fatalf("ValidatePlan = (%v, %v, %v), want (true, 0.1, none)", ok, risk, problems)
	}
}

func TestValidatePlanRejectionsScoreHigh(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*plan.Plan)
	}{
		{"missing summary", func(p *plan.Plan) { p.PlanSummary = "" }},
		{"total mismatch", func(p *plan.Plan) { p.TotalSteps = 5 }},
		{"non dense step numbers", func(p *plan.Plan) { p.Steps[2].StepNumber = 7 }},
		{"forward dependency", func(p *plan.Plan) { p.Steps[0].Dependencies = []int{3} }},
		{"self dependency", func(p *plan.Plan) { p.Steps[1].Dependencies = []int{2} }},
		{"unknown complexity", func(p *plan.Plan) { p.Complexity = "extreme" }},
		{"empty description", func(p *plan.Plan) { p.Steps[1].Description = "" }},
		{"no steps", func(p *plan.Plan) { p.Steps = nil; p.TotalSteps = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := wellFormedPlan()
			tc.mutate(&p)
			ok, risk, problems := ValidatePlan(p)
			if ok {
				t.Fatal("mutated plan validated")
			}
			if risk < 0.8 {
				t.Fatalf("risk = %v, want >= 0.8", risk)
			}
			if len(problems) == 0 {
				t.Fatal("no problems reported")
			}
		})
	}
}
