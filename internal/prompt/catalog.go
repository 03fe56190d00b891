// Package prompt holds the read-only catalog of prompt templates used
// by the workflow roles and intent-driven requests, the {{var}}
// substitution they share, and the plan-shape validator the
// orchestrator gates planner output through.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"maestro/internal/model"
)

// Intent routes a request to an intent-specific template instead of the
// full workflow.
type Intent string

const (
	IntentDebug    Intent = "debug"
	IntentGenerate Intent = "generate"
	IntentExplain  Intent = "explain"
)

// Config is one catalog entry.
type Config struct {
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	UserTemplate string
}

// Catalog resolves prompt configs by role or intent.
type Catalog struct {
	roles   map[model.Role]Config
	intents map[Intent]Config
}

// RoleRefinement keys the refinement template; it shares the critic's
// model but not its prompt.
const RoleRefinement model.Role = "refinement"

// NewCatalog returns the built-in catalog.
func NewCatalog() *Catalog {
	return &Catalog{roles: roleConfigs(), intents: intentConfigs()}
}

// ForRole returns the config for a workflow role.
func (c *Catalog) ForRole(role model.Role) (Config, error) {
	cfg, found := c.roles[role]
	if !found {
		return Config{}, fmt.Errorf("no prompt config for role %s", role)
	}
	return cfg, nil
}

// ForIntent returns the config for an intent-driven request.
func (c *Catalog) ForIntent(intent Intent) (Config, error) {
	cfg, found := c.intents[intent]
	if !found {
		return Config{}, fmt.Errorf("no prompt config for intent %s", intent)
	}
	return cfg, nil
}

var varPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Format substitutes {{var}} markers from vars. A marker with no
// binding fails loudly rather than leaking template syntax to a model.
func Format(template string, vars map[string]string) (string, error) {
	var missing []string
	out := varPattern.ReplaceAllStringFunc(template, func(marker string) string {
		name := varPattern.FindStringSubmatch(marker)[1]
		value, found := vars[name]
		if !found {
			missing = append(missing, name)
			return marker
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("template variables unbound: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
