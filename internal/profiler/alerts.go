package profiler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"maestro/internal/logging"
	"maestro/internal/resource"
)

// Rule is one alert trigger evaluated against a live metric value.
type Rule struct {
	Name       string
	Metric     string
	Comparator resource.Comparator
	Threshold  float64
	Severity   resource.Severity
}

func (r Rule) triggered(value float64) bool {
	if r.Comparator == resource.CompareBelow {
		return value < r.Threshold
	}
	return value > r.Threshold
}

// Alert is one active rule violation. It stays active until explicitly
// resolved, even if the metric recovers between checks.
type Alert struct {
	Rule      string            `json:"rule"`
	Metric    string            `json:"metric"`
	Severity  resource.Severity `json:"severity"`
	Value     float64           `json:"value"`
	Threshold float64           `json:"threshold"`
	Message   string            `json:"message"`
	RaisedAt  time.Time         `json:"raised_at"`
}

// DefaultRules cover the performance signals the orchestrator and
// monitor feed into the engine.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "cpu-high", Metric: "cpu_pct", Comparator: resource.CompareAbove, Threshold: 85, Severity: resource.SeverityWarning},
		{Name: "cpu-critical", Metric: "cpu_pct", Comparator: resource.CompareAbove, Threshold: 95, Severity: resource.SeverityCritical},
		{Name: "memory-high", Metric: "memory_pct", Comparator: resource.CompareAbove, Threshold: 80, Severity: resource.SeverityWarning},
		{Name: "memory-critical", Metric: "memory_pct", Comparator: resource.CompareAbove, Threshold: 90, Severity: resource.SeverityCritical},
		{Name: "available-low", Metric: "available_gb", Comparator: resource.CompareBelow, Threshold: 2.0, Severity: resource.SeverityWarning},
		{Name: "available-critical", Metric: "available_gb", Comparator: resource.CompareBelow, Threshold: 1.0, Severity: resource.SeverityCritical},
		{Name: "response-slow", Metric: "response_time_s", Comparator: resource.CompareAbove, Threshold: 5, Severity: resource.SeverityWarning},
		{Name: "response-critical", Metric: "response_time_s", Comparator: resource.CompareAbove, Threshold: 10, Severity: resource.SeverityCritical},
		{Name: "cache-ineffective", Metric: "cache_hit_rate", Comparator: resource.CompareBelow, Threshold: 0.5, Severity: resource.SeverityInfo},
	}
}

// Engine evaluates rules against metric values supplied by the caller.
// At most one alert is active per (rule, metric) pair; re-triggering an
// active alert refreshes its value without raising a duplicate.
type Engine struct {
	mu     sync.Mutex
	rules  []Rule
	active map[string]*Alert
	now    func() time.Time
}

// NewEngine builds an alert engine. Nil rules means DefaultRules.
func NewEngine(rules []Rule, clock func() time.Time) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		rules:  rules,
		active: make(map[string]*Alert),
		now:    clock,
	}
}

func alertKey(rule, metric string) string { return rule + "|" + metric }

// Check evaluates every rule against the supplied metric values and
// returns the alerts raised by this check. Metrics absent from the map
// leave their rules inert.
func (e *Engine) Check(values map[string]float64) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var raised []Alert
	for _, r := range e.rules {
		value, ok := values[r.Metric]
		if !ok || !r.triggered(value) {
			continue
		}
		key := alertKey(r.Name, r.Metric)
		if existing, ok := e.active[key]; ok {
			existing.Value = value
			continue
		}
		a := Alert{
			Rule:      r.Name,
			Metric:    r.Metric,
			Severity:  r.Severity,
			Value:     value,
			Threshold: r.Threshold,
			Message:   fmt.Sprintf("%s: %s %.2f %s threshold %.2f", r.Name, r.Metric, value, r.Comparator, r.Threshold),
			RaisedAt:  e.now(),
		}
		e.active[key] = &a
		raised = append(raised, a)
		logging.Get(logging.CategoryProfiler).Warnw("alert raised",
			"rule", r.Name, "metric", r.Metric, "value", value, "threshold", r.Threshold, "severity", r.Severity)
	}
	return raised
}

// Active returns the currently active alerts, ordered by raise time.
func (e *Engine) Active() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Alert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RaisedAt.Before(out[j].RaisedAt) })
	return out
}

// Resolve clears the active alert for a (rule, metric) pair. Returns
// whether an alert was active.
func (e *Engine) Resolve(rule, metric string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := alertKey(rule, metric)
	_, ok := e.active[key]
	if ok {
		delete(e.active, key)
		logging.Get(logging.CategoryProfiler).Infow("alert resolved", "rule", rule, "metric", metric)
	}
	return ok
}

// ResolveAll clears every active alert and reports how many were active.
func (e *Engine) ResolveAll() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.active)
	e.active = make(map[string]*Alert)
	return n
}
