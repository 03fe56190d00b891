// Package logging provides config-driven categorized logging for maestro.
// Each subsystem logs through a named zap logger; output goes to stderr
// and, when a log directory is configured, to a size-rotated file.
// When debug mode is off only warnings and errors are emitted.
package logging

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Category names a logging subsystem.
type Category string

const (
	CategoryBoot         Category = "boot"         // Startup and wiring
	CategoryResource     Category = "resource"     // Memory/thermal monitor
	CategoryRegistry     Category = "registry"     // Model discovery/validation
	CategoryFactory      Category = "factory"      // Model load/unload lifecycle
	CategoryCascade      Category = "cascade"      // Request refinement pipeline
	CategoryOrchestrator Category = "orchestrator" // Planner/critic/executor workflow
	CategoryCache        Category = "cache"        // Response cache
	CategoryInvoker      Category = "invoker"      // Backend invocation
	CategoryProfiler     Category = "profiler"     // Spans and alerts
	CategoryUsage        Category = "usage"        // Token accounting
)

// Options controls logger construction.
type Options struct {
	Debug      bool              // Emit debug/info; otherwise warn+ only
	Dir        string            // Log directory; empty disables file output
	MaxSizeMB  int               // Rotation threshold per file (default 20)
	MaxBackups int               // Rotated files kept (default 3)
	JSON       bool              // JSON encoding instead of console
	Categories map[Category]bool // nil enables all; false disables a category
}

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	enabled map[Category]bool
)

// Initialize builds the process-wide logger. Safe to call more than once;
// the last call wins. Returns the error from creating the log directory.
func Initialize(opts Options) error {
	level := zapcore.WarnLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return err
		}
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 20
		}
		maxBackups := opts.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 3
		}
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, "maestro.log"),
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		}))
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), level)

	mu.Lock()
	defer mu.Unlock()
	root = zap.New(core)
	enabled = opts.Categories
	return nil
}

// Get returns the sugared logger for a category. Disabled categories get
// a nop logger, so call sites never branch on configuration.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	if enabled != nil {
		if on, found := enabled[category]; found && !on {
			return zap.NewNop().Sugar()
		}
	}
	return root.Named(string(category)).Sugar()
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
