// Package registry discovers and validates model backends. It merges
// configured local profiles, configured remote-provider catalogs, and
// the local daemon's advertised model list into one place, and answers
// lookups by name, source, and role.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"maestro/internal/config"
	"maestro/internal/invoker"
	"maestro/internal/logging"
	"maestro/internal/model"
)

// minRefreshInterval rate-limits full rediscovery.
const minRefreshInterval = 60 * time.Second

// Daemon is the slice of the local daemon API the registry needs.
type Daemon interface {
	List(ctx context.Context) ([]invoker.ListedModel, error)
	Describe(ctx context.Context, name string) error
}

// Info is the registry's record for one model.
type Info struct {
	Capabilities    model.Capabilities `json:"capabilities"`
	Validated       bool               `json:"validated"`
	LastValidation  time.Time          `json:"last_validation"`
	ValidationError string             `json:"validation_error,omitempty"`
}

// Registry owns the merged model catalog. Capabilities handed out are
// value copies; the registry is the single writer.
type Registry struct {
	cfg    *config.Config
	daemon Daemon
	keys   invoker.KeyStore
	log    interface {
		Debugw(msg string, kv ...interface{})
		Warnw(msg string, kv ...interface{})
	}

	mu          sync.RWMutex
	models      map[string]Info
	lastRefresh time.Time
}

// New builds a registry. Call Refresh before first use.
func New(cfg *config.Config, daemon Daemon, keys invoker.KeyStore) *Registry {
	return &Registry{
		cfg:    cfg,
		daemon: daemon,
		keys:   keys,
		log:    logging.Get(logging.CategoryRegistry),
		models: make(map[string]Info),
	}
}

// Refresh rediscovers and revalidates all models. Refreshes within the
// rate limit are skipped unless force is set. Per-model validation
// failures are isolated: the model stays listed with Validated=false,
// and the failures come back aggregated for the caller to log.
func (r *Registry) Refresh(ctx context.Context, force bool) error {
	r.mu.Lock()
	if !force && time.Since(r.lastRefresh) < minRefreshInterval {
		r.mu.Unlock()
		return nil
	}
	r.lastRefresh = time.Now()
	r.mu.Unlock()

	merged := r.merge(ctx)

	var failures error
	var fmu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	now := time.Now()
	for name := range merged {
		name := name
		info := merged[name]
		g.Go(func() error {
			err := r.validate(gctx, info.Capabilities)
			info.LastValidation = now
			if err != nil {
				info.Validated = false
				info.ValidationError = err.Error()
				fmu.Lock()
				failures = multierr.Append(failures, err)
				fmu.Unlock()
			} else {
				info.Validated = true
				info.ValidationError = ""
			}
			r.mu.Lock()
			r.models[name] = info
			r.mu.Unlock()
			return nil // validation failures never abort the group
		})
	}
	_ = g.Wait()

	// Drop entries that vanished from every source.
	r.mu.Lock()
	for name := range r.models {
		if _, still := merged[name]; !still {
			delete(r.models, name)
		}
	}
	count := len(r.models)
	r.mu.Unlock()

	r.log.Debugw("refresh complete", "models", count, "failures", multierr.Errors(failures))
	return failures
}

// merge combines the three discovery sources into one keyed set.
func (r *Registry) merge(ctx context.Context) map[string]Info {
	merged := make(map[string]Info)

	for _, caps := range r.cfg.Models {
		merged[caps.Name] = Info{Capabilities: caps.Normalize()}
	}
	for provider, pc := range r.cfg.Providers {
		for _, caps := range pc.Models {
			caps.RequiresCredential = true
			if caps.Source == "" {
				caps.Source = model.Source(provider)
			}
			merged[caps.Name] = Info{Capabilities: caps.Normalize()}
		}
	}

	if r.daemon != nil {
		listed, err := r.daemon.List(ctx)
		if err != nil {
			r.log.Warnw("daemon listing failed", "error", err)
		}
		for _, lm := range listed {
			if existing, found := merged[lm.Name]; found && existing.Capabilities.IsLocal() {
				continue // configured profile wins over the estimated one
			}
			merged[lm.Name] = Info{Capabilities: estimateCapabilities(lm)}
		}
	}
	return merged
}

// validate checks one model: local models through the daemon's cheap
// describe call, remote models by credential presence only.
func (r *Registry) validate(ctx context.Context, caps model.Capabilities) error {
	if caps.IsLocal() {
		if r.daemon == nil {
			return errNoDaemon(caps.Name)
		}
		return r.daemon.Describe(ctx, caps.Name)
	}
	if r.keys == nil || !r.keys.Has(string(caps.Source)) {
		return errNoCredential(caps.Name, string(caps.Source))
	}
	return nil
}

// Lookup returns the record for a model by name.
func (r *Registry) Lookup(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, found := r.models[name]
	return info, found
}

// All returns every record, sorted by name.
func (r *Registry) All() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.models))
	for _, info := range r.models {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Capabilities.Name < out[j].Capabilities.Name })
	return out
}

// BySource filters records by source.
func (r *Registry) BySource(source model.Source) []Info {
	var out []Info
	for _, info := range r.All() {
		if info.Capabilities.Source == source {
			out = append(out, info)
		}
	}
	return out
}

// ForRole returns the role's preferred models that are present,
// followed by cloud fallbacks when those are enabled.
func (r *Registry) ForRole(role model.Role) []Info {
	rc, err := r.cfg.Role(role)
	if err != nil {
		return nil
	}
	names := append([]string{}, rc.Preferred...)
	if r.cfg.System.CloudFallbacksEnabled {
		names = append(names, rc.CloudFallbacks...)
	}

	out := make([]Info, 0, len(names))
	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if info, found := r.Lookup(name); found {
			out = append(out, info)
		}
	}
	return out
}

// Settings is the read-only view of system limits other components see.
type Settings struct {
	MaxMemoryGB           float64
	ThermalThresholdPct   float64
	CloudFallbacksEnabled bool
	LocalOnly             bool
}

// Settings exposes the configured system limits.
func (r *Registry) Settings() Settings {
	return Settings{
		MaxMemoryGB:           r.cfg.System.MaxMemoryGB,
		ThermalThresholdPct:   r.cfg.System.ThermalThresholdPct,
		CloudFallbacksEnabled: r.cfg.System.CloudFallbacksEnabled,
		LocalOnly:             r.cfg.System.LocalOnly,
	}
}

// Requirements returns the configured requirements for a role.
func (r *Registry) Requirements(role model.Role) (model.Requirements, bool) {
	rc, err := r.cfg.Role(role)
	if err != nil {
		return model.Requirements{}, false
	}
	return rc.Requirements, true
}
