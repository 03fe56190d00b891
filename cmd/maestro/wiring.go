package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"maestro/internal/cache"
	"maestro/internal/config"
	"maestro/internal/factory"
	"maestro/internal/invoker"
	"maestro/internal/logging"
	"maestro/internal/orchestrator"
	"maestro/internal/profiler"
	"maestro/internal/prompt"
	"maestro/internal/registry"
	"maestro/internal/resource"
	"maestro/internal/rolemap"
	"maestro/internal/usage"
)

// envKeys resolves provider credentials from the environment
// (optionally loaded from .env by the root command). The convention is
// <PROVIDER>_API_KEY, uppercased.
type envKeys struct{}

func (envKeys) Get(provider string) (string, bool) {
	key := os.Getenv(strings.ToUpper(provider) + "_API_KEY")
	return key, key != ""
}

func (e envKeys) Has(provider string) bool {
	_, found := e.Get(provider)
	return found
}

// routedInvoker sends provider-catalog models to their HTTP backend and
// everything else to the local daemon subprocess.
type routedInvoker struct {
	local      invoker.Invoker
	remote     map[string]invoker.Invoker
	providerOf map[string]string
}

func newRoutedInvoker(cfg *config.Config, keys invoker.KeyStore) *routedInvoker {
	r := &routedInvoker{
		local:      invoker.NewSubprocess(cfg.Invoker.OllamaCommand),
		remote:     make(map[string]invoker.Invoker),
		providerOf: make(map[string]string),
	}
	for name, pc := range cfg.Providers {
		r.remote[name] = invoker.NewHTTP(name, pc.BaseURL, keys)
		for _, m := range pc.Models {
			r.providerOf[m.Name] = name
		}
	}
	return r
}

func (r *routedInvoker) Invoke(ctx context.Context, req invoker.Request) (invoker.Response, error) {
	if provider, found := r.providerOf[req.Model]; found {
		return r.remote[provider].Invoke(ctx, req)
	}
	return r.local.Invoke(ctx, req)
}

// app is the wired process: every component the subcommands touch.
type app struct {
	cfg      *config.Config
	daemon   *invoker.OllamaClient
	registry *registry.Registry
	watcher  *registry.Watcher
	monitor  *resource.Monitor
	factory  *factory.Factory
	cache    *cache.Cache
	usage    *usage.Tracker
	profiler *profiler.Profiler
	mapper   *rolemap.Mapper
	catalog  *prompt.Catalog
	invoker  invoker.Invoker
	orch     *orchestrator.Orchestrator
}

func stateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".maestro"
	}
	return filepath.Join(home, ".maestro")
}

// buildApp assembles the full component graph from the loaded config.
// A dead daemon does not fail assembly; the health gate reports it.
func buildApp(ctx context.Context) (*app, error) {
	log := logging.Get(logging.CategoryBoot)
	cfg := loadedConfig
	keys := envKeys{}

	daemon := invoker.NewOllamaClient(cfg.Invoker.OllamaURL)
	reg := registry.New(cfg, daemon, keys)
	if err := reg.Refresh(ctx, true); err != nil {
		log.Warnw("initial registry refresh failed", "error", err)
	}

	var watcher *registry.Watcher
	if configPath != "" {
		w, err := registry.NewWatcher(reg, configPath)
		if err != nil {
			log.Warnw("config watcher unavailable", "path", configPath, "error", err)
		} else {
			w.Start(ctx)
			watcher = w
		}
	}

	mon := resource.NewMonitor(resource.Options{
		SafetyBufferGB:      cfg.System.SafetyBufferGB,
		ThermalThresholdPct: cfg.System.ThermalThresholdPct,
		PollInterval:        cfg.System.PollInterval.D(),
	})
	mon.Poll()
	mon.Start()

	fac := factory.New(reg, mon, factory.Options{
		Loader:       daemon,
		LoadDeadline: cfg.Orchestrator.LoadDeadline.D(),
	})

	cachePath := cfg.Cache.PersistPath
	if cachePath == "" {
		cachePath = filepath.Join(stateDir(), "cache.json")
	}
	if err := cache.EnsureDir(cachePath); err != nil {
		log.Warnw("cache directory unavailable; cache is memory-only", "error", err)
		cachePath = ""
	}
	respCache := cache.New(cache.Options{
		Capacity:    cfg.Cache.Capacity,
		TTL:         cfg.Cache.TTL.D(),
		PersistPath: cachePath,
	})

	usagePath := filepath.Join(stateDir(), "usage.json")
	if err := usage.EnsureDir(usagePath); err != nil {
		log.Warnw("usage directory unavailable; accounting is memory-only", "error", err)
		usagePath = ""
	}
	tracker := usage.NewTracker(usage.Options{Path: usagePath, SaveDelay: usage.DefaultSaveDelay})

	prof := profiler.New(profiler.Options{})
	mapper := rolemap.New(reg)
	catalog := prompt.NewCatalog()
	inv := newRoutedInvoker(cfg, keys)

	a := &app{
		cfg:      cfg,
		daemon:   daemon,
		registry: reg,
		watcher:  watcher,
		monitor:  mon,
		factory:  fac,
		cache:    respCache,
		usage:    tracker,
		profiler: prof,
		mapper:   mapper,
		catalog:  catalog,
		invoker:  inv,
	}
	a.orch = orchestrator.New(orchestrator.Deps{
		Config:   cfg,
		Registry: reg,
		Mapper:   mapper,
		Factory:  fac,
		Monitor:  mon,
		Cache:    respCache,
		Profiler: prof,
		Invoker:  inv,
		Catalog:  catalog,
		Daemon:   daemon,
		Usage:    tracker,
	})
	return a, nil
}

func (a *app) close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.monitor.Stop()
	if err := a.usage.Flush(); err != nil {
		logging.Get(logging.CategoryUsage).Warnw("usage flush failed", "error", err)
	}
}
