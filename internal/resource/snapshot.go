// Package resource implements the unified-memory and thermal monitor:
// snapshot sampling with rolling history, derived pressure levels, load
// admission checks, and rule-driven alerts.
package resource

import (
	"time"

	"maestro/internal/model"
)

// Snapshot is one sampled view of system memory and thermal state.
type Snapshot struct {
	Timestamp     time.Time          `json:"timestamp"`
	TotalGB       float64            `json:"total_gb"`
	UsedGB        float64            `json:"used_gb"`
	AvailableGB   float64            `json:"available_gb"`
	SwapUsedGB    float64            `json:"swap_used_gb"`
	CompressedGB  float64            `json:"compressed_gb"`
	WiredGB       float64            `json:"wired_gb"`
	AppResidentGB float64            `json:"app_resident_gb"`
	CPUPercent    float64            `json:"cpu_percent"`
	Thermal       model.ThermalState `json:"thermal"`

	// Synthetic marks a best-guess snapshot substituted after a failed poll.
	Synthetic bool `json:"synthetic,omitempty"`
}

// UsedPct is the used fraction of total memory as a percentage.
func (s Snapshot) UsedPct() float64 {
	if s.TotalGB <= 0 {
		return 0
	}
	return s.UsedGB / s.TotalGB * 100
}

// Pressure is the derived unified-memory pressure level.
type Pressure int

const (
	PressureNormal Pressure = iota
	PressureWarning
	PressureCritical
)

func (p Pressure) String() string {
	switch p {
	case PressureCritical:
		return "critical"
	case PressureWarning:
		return "warning"
	default:
		return "normal"
	}
}

// DerivePressure combines percent-used, swap, and compressed memory.
// Swap and compressed pages escalate the percent-derived level but
// never lower it.
func DerivePressure(s Snapshot) Pressure {
	level := PressureNormal
	switch {
	case s.UsedPct() >= 90:
		level = PressureCritical
	case s.UsedPct() >= 75:
		level = PressureWarning
	}
	if s.SwapUsedGB > 2.0 && level < PressureCritical {
		level = PressureCritical
	}
	if (s.SwapUsedGB > 0.5 || s.CompressedGB > 3.0) && level < PressureWarning {
		level = PressureWarning
	}
	return level
}

// estimateThermal maps CPU utilization bands onto a thermal level, used
// when the OS exposes no thermal telemetry.
func estimateThermal(cpuPct float64) model.ThermalState {
	switch {
	case cpuPct > 90:
		return model.ThermalCritical
	case cpuPct > 75:
		return model.ThermalHigh
	case cpuPct > 50:
		return model.ThermalModerate
	default:
		return model.ThermalNormal
	}
}
