package orchestrator

import (
	"context"
	"time"

	"maestro/internal/model"
	"maestro/internal/resource"
)

const healthPingTimeout = 3 * time.Second

// Health returns the system-wide states that block a workflow from
// starting; an empty slice means healthy. The codes are stable and
// surfaced to the CLI as-is.
func (o *Orchestrator) Health(ctx context.Context) []string {
	var unhealthy []string

	if o.deps.Daemon != nil {
		pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
		if err := o.deps.Daemon.Ping(pingCtx); err != nil {
			unhealthy = append(unhealthy, "ollama_down")
		}
		cancel()
	}

	validated := 0
	for _, info := range o.deps.Registry.All() {
		if info.Validated {
			validated++
		}
	}
	if validated == 0 {
		unhealthy = append(unhealthy, "no_models")
	}

	snap := o.deps.Monitor.Latest()
	if snap.Thermal == model.ThermalCritical {
		unhealthy = append(unhealthy, "thermal_throttle")
	}
	if o.deps.Monitor.Pressure() == resource.PressureCritical {
		unhealthy = append(unhealthy, "memory_pressure")
	}
	return unhealthy
}
