// Package factory owns model residency: loading, unloading, and
// hot-swapping instances under the configured memory budget. At most
// one large model occupies the resident slot at any instant; switch
// unloads the old model before the new one starts loading.
package factory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"maestro/internal/fault"
	"maestro/internal/logging"
	"maestro/internal/metrics"
	"maestro/internal/registry"
	"maestro/internal/resource"
)

// State is the lifecycle state of one model instance.
type State string

const (
	StateUnloaded  State = "unloaded"
	StateLoading   State = "loading"
	StateLoaded    State = "loaded"
	StateError     State = "error"
	StateSwitching State = "switching"
)

// Instance is the runtime record for one named model.
type Instance struct {
	Name          string     `json:"name"`
	State         State      `json:"state"`
	LoadedAt      *time.Time `json:"loaded_at,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	MemoryUsageGB float64    `json:"memory_usage_gb"`
	ErrorCount    int        `json:"error_count"`
	LastError     string     `json:"last_error,omitempty"`
}

// Loader performs the actual backend load/unload. The default warms the
// daemon; tests substitute fakes.
type Loader interface {
	Load(ctx context.Context, name string) error
	Unload(ctx context.Context, name string) error
}

// NopLoader satisfies Loader without touching any backend. Remote
// models use it: they have no local residency to manage.
type NopLoader struct{}

func (NopLoader) Load(context.Context, string) error   { return nil }
func (NopLoader) Unload(context.Context, string) error { return nil }

// Options configure a Factory.
type Options struct {
	Loader       Loader
	LoadDeadline time.Duration // Per-load timeout; exceeding it marks the instance errored
}

// Factory manages the instance map. All mutation happens here; readers
// get snapshots.
type Factory struct {
	registry *registry.Registry
	monitor  *resource.Monitor
	opts     Options
	log      interface {
		Debugw(msg string, kv ...interface{})
		Warnw(msg string, kv ...interface{})
	}

	mu         sync.Mutex
	instances  map[string]*Instance
	totalUsage float64

	flight singleflight.Group
}

// New builds a factory over the registry and monitor.
func New(reg *registry.Registry, mon *resource.Monitor, opts Options) *Factory {
	if opts.Loader == nil {
		opts.Loader = NopLoader{}
	}
	if opts.LoadDeadline <= 0 {
		opts.LoadDeadline = 60 * time.Second
	}
	return &Factory{
		registry:  reg,
		monitor:   mon,
		opts:      opts,
		log:       logging.Get(logging.CategoryFactory),
		instances: make(map[string]*Instance),
	}
}

func (f *Factory) instance(name string) *Instance {
	inst, found := f.instances[name]
	if !found {
		inst = &Instance{Name: name, State: StateUnloaded}
		f.instances[name] = inst
	}
	return inst
}

// Load makes the named model resident. Concurrent loads of the same
// name join the in-flight operation and share its outcome. A load past
// the deadline transitions the instance to error; the next Load starts
// fresh.
func (f *Factory) Load(ctx context.Context, name string) error {
	result := f.flight.DoChan(name, func() (interface{}, error) {
		return nil, f.doLoad(context.WithoutCancel(ctx), name)
	})

	select {
	case res := <-result:
		return res.Err
	case <-ctx.Done():
		return fault.Wrap(fault.KindCancelled, "factory.load", ctx.Err())
	}
}

func (f *Factory) doLoad(ctx context.Context, name string) error {
	info, found := f.registry.Lookup(name)
	if !found {
		return fault.New(fault.KindNotAvailable, "factory.load", "model %s not registered", name)
	}
	required := info.Capabilities.RecommendedMemoryGB

	f.mu.Lock()
	inst := f.instance(name)
	if inst.State == StateLoaded {
		f.mu.Unlock()
		return nil
	}
	if inst.State == StateLoading || inst.State == StateSwitching {
		f.mu.Unlock()
		return fault.New(fault.KindInternal, "factory.load", "model %s already transitioning", name)
	}

	if info.Capabilities.IsLocal() {
		if ok, reason := f.monitor.CanLoad(required); !ok {
			f.mu.Unlock()
			metrics.ModelLoadsTotal.WithLabelValues(name, "rejected").Inc()
			return fault.New(fault.KindResourceExhausted, "factory.load", "cannot load %s: %s", name, reason)
		}
		if !f.budgetAllowsLocked(required) {
			f.mu.Unlock()
			metrics.ModelLoadsTotal.WithLabelValues(name, "rejected").Inc()
			return fault.New(fault.KindResourceExhausted, "factory.load",
				"loading %s (%.1fGB) would exceed the %.1fGB budget", name, required, f.registry.Settings().MaxMemoryGB)
		}
	}

	inst.State = StateLoading
	inst.LastError = ""
	f.mu.Unlock()

	loadCtx, cancel := context.WithTimeout(ctx, f.opts.LoadDeadline)
	err := f.opts.Loader.Load(loadCtx, name)
	timedOut := loadCtx.Err() == context.DeadlineExceeded
	cancel()

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil || timedOut {
		inst.State = StateError
		inst.ErrorCount++
		if timedOut {
			inst.LastError = "loading timeout"
			err = fault.New(fault.KindBackend, "factory.load", "loading %s timed out after %s", name, f.opts.LoadDeadline)
		} else {
			inst.LastError = err.Error()
			err = fault.Wrap(fault.KindBackend, "factory.load", err)
		}
		metrics.ModelLoadsTotal.WithLabelValues(name, "error").Inc()
		return err
	}

	now := time.Now()
	inst.State = StateLoaded
	inst.LoadedAt = &now
	inst.MemoryUsageGB = required
	f.totalUsage += required
	metrics.ModelLoadsTotal.WithLabelValues(name, "ok").Inc()
	metrics.ResidentMemoryGB.Set(f.totalUsage)
	f.log.Debugw("model loaded", "model", name, "memory_gb", required, "total_gb", f.totalUsage)
	return nil
}

// Unload releases a resident model. Unloading a model that is not
// loaded is a no-op.
func (f *Factory) Unload(ctx context.Context, name string) error {
	return f.release(ctx, name, StateLoaded)
}

// release transitions an instance from the expected state to unloaded,
// calling the backend and returning its declared memory to the budget.
func (f *Factory) release(ctx context.Context, name string, expect State) error {
	f.mu.Lock()
	inst, found := f.instances[name]
	if !found || inst.State != expect {
		f.mu.Unlock()
		return nil
	}
	usage := inst.MemoryUsageGB
	f.mu.Unlock()

	if err := f.opts.Loader.Unload(ctx, name); err != nil {
		f.log.Warnw("backend unload failed, releasing accounting anyway", "model", name, "error", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	inst.State = StateUnloaded
	inst.LoadedAt = nil
	inst.MemoryUsageGB = 0
	f.totalUsage -= usage
	if f.totalUsage < 0 {
		f.totalUsage = 0
	}
	metrics.ResidentMemoryGB.Set(f.totalUsage)
	f.log.Debugw("model unloaded", "model", name, "total_gb", f.totalUsage)
	return nil
}

// Switch replaces the resident model: current enters switching, is
// fully unloaded, and only then does next start loading — the exclusive
// slot never holds two loaded models. When the second step fails the
// slot stays empty; the caller decides whether to reload the old model.
func (f *Factory) Switch(ctx context.Context, current, next string) error {
	if current == next {
		return f.Load(ctx, current)
	}

	f.mu.Lock()
	if inst, found := f.instances[current]; found && inst.State == StateLoaded {
		inst.State = StateSwitching
	}
	f.mu.Unlock()

	if err := f.release(ctx, current, StateSwitching); err != nil {
		return err
	}
	return f.Load(ctx, next)
}

// Touch stamps last-use after a successful invocation.
func (f *Factory) Touch(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inst, found := f.instances[name]; found {
		now := time.Now()
		inst.LastUsedAt = &now
	}
}

// CleanupIdle unloads instances idle for longer than maxIdle and
// returns how many were unloaded.
func (f *Factory) CleanupIdle(ctx context.Context, maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	f.mu.Lock()
	var idle []string
	for name, inst := range f.instances {
		if inst.State != StateLoaded {
			continue
		}
		last := inst.LoadedAt
		if inst.LastUsedAt != nil {
			last = inst.LastUsedAt
		}
		if last != nil && last.Before(cutoff) {
			idle = append(idle, name)
		}
	}
	f.mu.Unlock()

	for _, name := range idle {
		if err := f.Unload(ctx, name); err != nil {
			f.log.Warnw("idle cleanup unload failed", "model", name, "error", err)
		}
	}
	return len(idle)
}

// ValidateMemoryBudget answers whether extraGB more would still fit the
// configured budget.
func (f *Factory) ValidateMemoryBudget(extraGB float64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.budgetAllowsLocked(extraGB)
}

func (f *Factory) budgetAllowsLocked(extraGB float64) bool {
	return f.totalUsage+extraGB <= f.registry.Settings().MaxMemoryGB
}

// TotalUsageGB is the declared memory of all loaded models.
func (f *Factory) TotalUsageGB() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totalUsage
}

// Snapshot returns value copies of all instances.
func (f *Factory) Snapshot() []Instance {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Instance, 0, len(f.instances))
	for _, inst := range f.instances {
		out = append(out, *inst)
	}
	return out
}

// Get returns a copy of one instance record.
func (f *Factory) Get(name string) (Instance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, found := f.instances[name]
	if !found {
		return Instance{}, false
	}
	return *inst, true
}
