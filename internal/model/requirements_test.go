package model

import "testing"

func sampleCaps() Capabilities {
	return Capabilities{
		Name:                "qwen2.5-coder:7b",
		Source:              SourceLocal,
		ContextLength:       32768,
		Parameters:          7_600_000_000,
		MemoryEstimateGB:    5.0,
		MinMemoryGB:         4.5,
		RecommendedMemoryGB: 6.0,
		Skills:              Skills{Reasoning: 0.7, Coding: 0.85, Creativity: 0.5, Multilingual: 0.6},
		ThermalSensitivity:  0.4,
	}
}

func TestNormalizeClampsAndOrdersMemory(t *testing.T) {
	c := Capabilities{
		Skills:              Skills{Reasoning: 1.4, Coding: -0.2},
		ThermalSensitivity:  2.0,
		MinMemoryGB:         8,
		MemoryEstimateGB:    6,
		RecommendedMemoryGB: 5,
	}.Normalize()

	if c.Skills.Reasoning != 1 || c.Skills.Coding != 0 {
		t.Fatalf("skills not clamped: %+v", c.Skills)
	}
	if c.ThermalSensitivity != 1 {
		t.Fatalf("thermal not clamped: %v", c.ThermalSensitivity)
	}
	if !(c.MinMemoryGB <= c.MemoryEstimateGB && c.MemoryEstimateGB <= c.RecommendedMemoryGB) {
		t.Fatalf("memory triple not ordered: min=%v est=%v rec=%v", c.MinMemoryGB, c.MemoryEstimateGB, c.RecommendedMemoryGB)
	}
}

func TestValidateTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		req       Requirements
		mutate    func(*Capabilities)
		wantValid bool
	}{
		{
			name:      "fits",
			req:       Requirements{MinSkills: Skills{Coding: 0.6}, ContextLengthMin: 8192, MemoryGBMax: 8},
			mutate:    func(*Capabilities) {},
			wantValid: true,
		},
		{
			name:      "skill below minimum",
			req:       Requirements{MinSkills: Skills{Reasoning: 0.9}},
			mutate:    func(*Capabilities) {},
			wantValid: false,
		},
		{
			name:      "context too short",
			req:       Requirements{ContextLengthMin: 65536},
			mutate:    func(*Capabilities) {},
			wantValid: false,
		},
		{
			name:      "memory over budget",
			req:       Requirements{MemoryGBMax: 4},
			mutate:    func(*Capabilities) {},
			wantValid: false,
		},
		{
			name:      "missing feature",
			req:       Requirements{RequiredFeatures: Features{Tools: true}},
			mutate:    func(*Capabilities) {},
			wantValid: false,
		},
		{
			name:      "too thermally sensitive",
			req:       Requirements{MaxThermalSensitivity: 0.3},
			mutate:    func(*Capabilities) {},
			wantValid: false,
		},
		{
			name:      "remote rejected when local required",
			req:       Requirements{RequiresLocal: true},
			mutate:    func(c *Capabilities) { c.Source = SourceAnthropic },
			wantValid: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			caps := sampleCaps()
			tc.mutate(&caps)
			rep := tc.req.Validate(caps)
			if rep.Valid != tc.wantValid {
				t.Fatalf("Valid = %v, want %v (issues: %v)", rep.Valid, tc.wantValid, rep.Issues)
			}
			if rep.Score < 0 || rep.Score > 1 {
				t.Fatalf("Score = %v out of [0,1]", rep.Score)
			}
			if !tc.wantValid && len(rep.Issues) == 0 {
				t.Fatal("invalid report carries no issues")
			}
		})
	}
}

func TestScoreWeighting(t *testing.T) {
	req := Requirements{ContextLengthMin: 32768, MemoryGBMax: 12}
	rep := req.Validate(sampleCaps())

	// 0.6*mean(0.7,0.85,0.5,0.6) + 0.2*1.0 + 0.2*(12-6)/12
	want := 0.6*0.6625 + 0.2 + 0.2*0.5
	if diff := rep.Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("Score = %v, want %v", rep.Score, want)
	}
}
