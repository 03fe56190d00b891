// Package rolemap selects models for roles. Selection is a two-stage
// filter-then-rank: candidates come from the registry's role ordering,
// hard constraints eliminate, the requirements score ranks, and
// criteria overlays nudge the ranking without violating score bounds.
package rolemap

import (
	"sort"

	"github.com/samber/lo"

	"maestro/internal/fault"
	"maestro/internal/logging"
	"maestro/internal/model"
	"maestro/internal/registry"
)

// Criteria are optional ranking preferences applied as score overlays.
type Criteria struct {
	PreferLocal   bool
	PreferSmaller bool
	PreferFaster  bool
}

// UserPreferences let the caller steer selection by name.
type UserPreferences struct {
	Preferred []string // Small score bump when matched
	Avoid     []string // Excluded outright
}

// Selection is one ranked candidate.
type Selection struct {
	Name         string
	Capabilities model.Capabilities
	Score        float64
	Report       model.Report
}

// Mapper ranks registry models against role requirements.
type Mapper struct {
	registry *registry.Registry
	log      interface {
		Debugw(msg string, kv ...interface{})
	}
}

// New builds a mapper over a registry.
func New(reg *registry.Registry) *Mapper {
	return &Mapper{registry: reg, log: logging.Get(logging.CategoryRegistry)}
}

const smallModelParams = 7_000_000_000

// candidates runs the filter stage and scores survivors.
func (m *Mapper) candidates(role model.Role, cons model.Constraints, criteria *Criteria, prefs *UserPreferences) []Selection {
	req, _ := m.registry.Requirements(role)

	avoid := map[string]bool{}
	preferred := map[string]bool{}
	if prefs != nil {
		for _, n := range prefs.Avoid {
			avoid[n] = true
		}
		for _, n := range prefs.Preferred {
			preferred[n] = true
		}
	}

	infos := m.registry.ForRole(role)
	selections := lo.FilterMap(infos, func(info registry.Info, _ int) (Selection, bool) {
		caps := info.Capabilities
		switch {
		case !info.Validated:
			return Selection{}, false
		case avoid[caps.Name]:
			return Selection{}, false
		case caps.RecommendedMemoryGB > cons.MaxMemoryGB:
			return Selection{}, false
		case cons.MaxThermalSensitivity > 0 &&
			caps.ThermalSensitivity > cons.MaxThermalSensitivity &&
			cons.ThermalState != model.ThermalNormal && cons.ThermalState != model.ThermalModerate:
			return Selection{}, false
		case cons.LocalOnly && !caps.IsLocal():
			return Selection{}, false
		}

		report := req.Validate(caps)
		if !report.Valid {
			return Selection{}, false
		}

		score := report.Score
		if criteria != nil {
			if criteria.PreferLocal && caps.IsLocal() {
				score += 0.10
			}
			if criteria.PreferSmaller && caps.Parameters < smallModelParams {
				score += 0.10
			}
			if criteria.PreferFaster && caps.ThermalSensitivity < 0.5 {
				score += 0.05
			}
		}
		if preferred[caps.Name] {
			score += 0.05
		}
		if score > 1 {
			score = 1
		}

		return Selection{Name: caps.Name, Capabilities: caps, Score: score, Report: report}, true
	})

	sort.SliceStable(selections, func(i, j int) bool {
		if selections[i].Score != selections[j].Score {
			return selections[i].Score > selections[j].Score
		}
		return selections[i].Capabilities.Parameters > selections[j].Capabilities.Parameters
	})
	return selections
}

// Select returns the top-ranked model for a role, or NotAvailable when
// nothing survives the filter.
func (m *Mapper) Select(role model.Role, cons model.Constraints, criteria *Criteria, prefs *UserPreferences) (Selection, error) {
	ranked := m.candidates(role, cons, criteria, prefs)
	if len(ranked) == 0 {
		return Selection{}, fault.New(fault.KindNotAvailable, "rolemap.select", "no validated model satisfies role %s", role)
	}
	m.log.Debugw("model selected", "role", role, "model", ranked[0].Name, "score", ranked[0].Score)
	return ranked[0], nil
}

// Recommendations returns up to k ranked candidates.
func (m *Mapper) Recommendations(role model.Role, cons model.Constraints, k int) []Selection {
	ranked := m.candidates(role, cons, nil, nil)
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Validate scores a single named model for a role. Unknown models get
// an invalid report rather than an error.
func (m *Mapper) Validate(name string, role model.Role, cons model.Constraints) model.Report {
	info, found := m.registry.Lookup(name)
	if !found {
		return model.Report{Valid: false, Issues: []string{"model not registered: " + name}}
	}
	req, _ := m.registry.Requirements(role)
	report := req.Validate(info.Capabilities)
	if info.Capabilities.RecommendedMemoryGB > cons.MaxMemoryGB {
		report.Valid = false
		report.Issues = append(report.Issues, "recommended memory exceeds system budget")
	}
	return report
}

// FallbackChain returns the ranked model names for a role, best first.
func (m *Mapper) FallbackChain(role model.Role, cons model.Constraints) []string {
	return lo.Map(m.candidates(role, cons, nil, nil), func(s Selection, _ int) string { return s.Name })
}

// SuggestUpgrades lists role candidates that are a clear step up from
// the current model: at least 20% more parameters or reasoning at
// least 0.1 higher.
func (m *Mapper) SuggestUpgrades(currentName string, role model.Role, cons model.Constraints) []Selection {
	current, found := m.registry.Lookup(currentName)
	if !found {
		return nil
	}
	cur := current.Capabilities
	return lo.Filter(m.candidates(role, cons, nil, nil), func(s Selection, _ int) bool {
		if s.Name == currentName {
			return false
		}
		biggerParams := float64(s.Capabilities.Parameters) >= float64(cur.Parameters)*1.2
		betterReasoning := s.Capabilities.Skills.Reasoning >= cur.Skills.Reasoning+0.1
		return biggerParams || betterReasoning
	})
}
