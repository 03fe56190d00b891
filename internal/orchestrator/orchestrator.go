// Package orchestrator drives the three-phase planner/critic/executor
// workflow over the models the role mapper selects. It owns nothing:
// registry, factory, monitor, cache, and invoker are passed in, and the
// factory guarantees at most one role's model is resident at a time.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"maestro/internal/cache"
	"maestro/internal/config"
	"maestro/internal/factory"
	"maestro/internal/fault"
	"maestro/internal/invoker"
	"maestro/internal/logging"
	"maestro/internal/metrics"
	"maestro/internal/plan"
	"maestro/internal/profiler"
	"maestro/internal/prompt"
	"maestro/internal/registry"
	"maestro/internal/resource"
	"maestro/internal/rolemap"
	"maestro/internal/usage"
)

// WorkflowResult is the outcome of one Process call.
type WorkflowResult struct {
	Success      bool          `json:"success"`
	Plan         *plan.Plan    `json:"plan,omitempty"`
	Output       string        `json:"output,omitempty"`
	Error        string        `json:"error,omitempty"`
	Warning      string        `json:"warning,omitempty"`
	Iterations   int           `json:"iterations"`
	ModelsUsed   []string      `json:"models_used,omitempty"`
	MemoryUsedGB float64       `json:"memory_used_gb"`
	Duration     time.Duration `json:"duration"`
}

// Deps are the explicit dependencies of an Orchestrator. All are
// required except Retriever, Daemon (health degrades gracefully
// without a daemon to ping), and Usage (token accounting off).
type Deps struct {
	Config    *config.Config
	Registry  *registry.Registry
	Mapper    *rolemap.Mapper
	Factory   *factory.Factory
	Monitor   *resource.Monitor
	Cache     *cache.Cache
	Profiler  *profiler.Profiler
	Invoker   invoker.Invoker
	Catalog   *prompt.Catalog
	Daemon    Pinger
	Retriever invoker.ContextRetriever
	Usage     *usage.Tracker
}

// Pinger reports whether the local daemon answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Orchestrator runs one workflow at a time; the top-level mutex is the
// caller boundary the concurrency model requires.
type Orchestrator struct {
	mu         sync.Mutex
	deps       Deps
	modelsUsed []string // models touched by the current workflow
}

// New wires an orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Process runs the full planning/critique/execution workflow on one
// user request. contextStr is retrieval or conversation context for the
// planner; additionalContext is appended for the executor only.
func (o *Orchestrator) Process(ctx context.Context, userInput, contextStr, additionalContext string) WorkflowResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	log := logging.Get(logging.CategoryOrchestrator)
	start := time.Now()
	o.modelsUsed = nil
	res := WorkflowResult{}
	finish := func(res WorkflowResult) WorkflowResult {
		res.Duration = time.Since(start)
		status := "error"
		if res.Success {
			status = "ok"
		} else if res.Error == "cancelled" {
			status = "cancelled"
		}
		metrics.WorkflowsTotal.WithLabelValues(status).Inc()
		return res
	}

	if unhealthy := o.Health(ctx); len(unhealthy) > 0 {
		res.Error = fmt.Sprintf("system unhealthy: %s", strings.Join(unhealthy, ", "))
		log.Warnw("workflow blocked", "reasons", unhealthy)
		return finish(res)
	}

	initial := o.deps.Monitor.Poll()

	accepted, iterations, warning, err := o.planAndCritique(ctx, userInput, contextStr)
	res.Iterations = iterations
	if err != nil {
		return finish(o.fail(ctx, res, err))
	}
	res.Plan = accepted
	res.Warning = warning

	output, err := o.execute(ctx, accepted, contextStr, additionalContext)
	if err != nil {
		return finish(o.fail(ctx, res, err))
	}
	res.Output = output
	res.Success = true
	res.ModelsUsed = o.modelsUsed

	final := o.deps.Monitor.Poll()
	res.MemoryUsedGB = final.UsedGB - initial.UsedGB

	log.Infow("workflow complete",
		"iterations", iterations, "memory_used_gb", res.MemoryUsedGB, "duration", time.Since(start))
	return finish(res)
}

// fail translates an error into the result shape. Cancellation is not
// an error for reporting purposes.
func (o *Orchestrator) fail(ctx context.Context, res WorkflowResult, err error) WorkflowResult {
	res.Success = false
	if fault.IsCancelled(err) {
		res.Error = "cancelled"
	} else {
		res.Error = err.Error()
	}
	res.ModelsUsed = o.modelsUsed
	o.unloadAll(ctx)
	return res
}

// unloadAll is the best-effort cleanup after failure or cancellation.
func (o *Orchestrator) unloadAll(ctx context.Context) {
	cleanup := context.WithoutCancel(ctx)
	for _, inst := range o.deps.Factory.Snapshot() {
		if inst.State == factory.StateLoaded {
			if err := o.deps.Factory.Unload(cleanup, inst.Name); err != nil {
				logging.Get(logging.CategoryOrchestrator).Warnw("cleanup unload failed",
					"model", inst.Name, "error", err)
			}
		}
	}
}
