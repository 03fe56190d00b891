package resource

import (
	"fmt"
	"time"
)

// Severity grades an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one structured monitor event.
type Alert struct {
	Severity  Severity  `json:"severity"`
	Metric    string    `json:"metric"`
	Current   float64   `json:"current"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Comparator orders a metric value against a rule threshold.
type Comparator string

const (
	CompareAbove Comparator = "above"
	CompareBelow Comparator = "below"
)

// AlertRule is a data-driven trigger evaluated against each snapshot.
type AlertRule struct {
	Metric     string
	Comparator Comparator
	Threshold  float64
	Severity   Severity
}

func (r AlertRule) triggered(value float64) bool {
	if r.Comparator == CompareBelow {
		return value < r.Threshold
	}
	return value > r.Threshold
}

// DefaultAlertRules cover the pressure signals the monitor derives.
func DefaultAlertRules() []AlertRule {
	return []AlertRule{
		{Metric: "used_pct", Comparator: CompareAbove, Threshold: 90, Severity: SeverityCritical},
		{Metric: "used_pct", Comparator: CompareAbove, Threshold: 75, Severity: SeverityWarning},
		{Metric: "swap_gb", Comparator: CompareAbove, Threshold: 2.0, Severity: SeverityCritical},
		{Metric: "swap_gb", Comparator: CompareAbove, Threshold: 0.5, Severity: SeverityWarning},
		{Metric: "available_gb", Comparator: CompareBelow, Threshold: 2.0, Severity: SeverityWarning},
		{Metric: "available_gb", Comparator: CompareBelow, Threshold: 1.0, Severity: SeverityCritical},
	}
}

// metricValue extracts a named metric from a snapshot. Unknown metrics
// report false so misconfigured rules stay inert instead of firing.
func metricValue(s Snapshot, metric string) (float64, bool) {
	switch metric {
	case "used_pct":
		return s.UsedPct(), true
	case "swap_gb":
		return s.SwapUsedGB, true
	case "compressed_gb":
		return s.CompressedGB, true
	case "available_gb":
		return s.AvailableGB, true
	case "cpu_pct":
		return s.CPUPercent, true
	default:
		return 0, false
	}
}

func newAlert(rule AlertRule, value float64, at time.Time) Alert {
	return Alert{
		Severity:  rule.Severity,
		Metric:    rule.Metric,
		Current:   value,
		Threshold: rule.Threshold,
		Message:   fmt.Sprintf("%s %.2f %s threshold %.2f", rule.Metric, value, rule.Comparator, rule.Threshold),
		Timestamp: at,
	}
}
