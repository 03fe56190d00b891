// Package usage accumulates token accounting for inference calls:
// totals per model, per workflow phase, and per model source, persisted
// as a JSON document so counts survive restarts. Cache hits consume no
// tokens and are never recorded.
package usage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"maestro/internal/fault"
	"maestro/internal/logging"
)

const schemaVersion = "1.0"

// DefaultSaveDelay debounces autosave after a Record.
const DefaultSaveDelay = 5 * time.Second

// Counts holds input/output token sums for one dimension value.
type Counts struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Total  int64 `json:"total"`
}

func (c *Counts) add(input, output int) {
	c.Input += int64(input)
	c.Output += int64(output)
	c.Total += int64(input + output)
}

// Summary is the persisted accounting document.
type Summary struct {
	Version  string            `json:"version"`
	Total    Counts            `json:"total"`
	ByModel  map[string]Counts `json:"by_model"`
	ByPhase  map[string]Counts `json:"by_phase"`
	BySource map[string]Counts `json:"by_source"`
}

func emptySummary() Summary {
	return Summary{
		Version:  schemaVersion,
		ByModel:  make(map[string]Counts),
		ByPhase:  make(map[string]Counts),
		BySource: make(map[string]Counts),
	}
}

// Options configures a Tracker.
type Options struct {
	// Path is the JSON file. Empty keeps the tracker in-memory only.
	Path string
	// SaveDelay debounces persistence after Record. Zero disables the
	// autosave timer; callers then persist via Flush.
	SaveDelay time.Duration
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	path      string
	saveDelay time.Duration
	data      Summary
	dirty     bool
	pending   bool
}

// NewTracker loads any existing accounting file. A corrupt file is
// logged and replaced with an empty summary rather than failing the
// caller.
func NewTracker(opts Options) *Tracker {
	t := &Tracker{
		path:      opts.Path,
		saveDelay: opts.SaveDelay,
		data:      emptySummary(),
	}
	if t.path == "" {
		return t
	}
	raw, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return t
	}
	log := logging.Get(logging.CategoryUsage)
	if err != nil {
		log.Warnw("usage file unreadable; starting empty", "path", t.path, "error", err)
		return t
	}
	var loaded Summary
	if err := json.Unmarshal(raw, &loaded); err != nil {
		log.Warnw("usage file corrupt; starting empty", "path", t.path, "error", err)
		return t
	}
	if loaded.ByModel == nil {
		loaded.ByModel = make(map[string]Counts)
	}
	if loaded.ByPhase == nil {
		loaded.ByPhase = make(map[string]Counts)
	}
	if loaded.BySource == nil {
		loaded.BySource = make(map[string]Counts)
	}
	loaded.Version = schemaVersion
	t.data = loaded
	return t
}

// Record adds one inference call's tokens under every dimension.
func (t *Tracker) Record(model, phase, source string, input, output int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.Total.add(input, output)
	bump(t.data.ByModel, model, input, output)
	bump(t.data.ByPhase, phase, input, output)
	bump(t.data.BySource, source, input, output)
	t.dirty = true

	if t.path == "" || t.saveDelay <= 0 || t.pending {
		return
	}
	t.pending = true
	time.AfterFunc(t.saveDelay, func() {
		if err := t.Flush(); err != nil {
			logging.Get(logging.CategoryUsage).Warnw("usage autosave failed", "error", err)
		}
	})
}

func bump(m map[string]Counts, key string, input, output int) {
	c := m[key]
	c.add(input, output)
	m[key] = c
}

// Summary returns a deep copy of the current counts.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.data
	out.ByModel = copyCounts(t.data.ByModel)
	out.ByPhase = copyCounts(t.data.ByPhase)
	out.BySource = copyCounts(t.data.BySource)
	return out
}

// Flush persists the summary now. A no-op when nothing changed or the
// tracker is in-memory only.
func (t *Tracker) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = false
	if t.path == "" || !t.dirty {
		return nil
	}
	raw, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fault.Wrap(fault.KindInternal, "usage.flush", err)
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fault.Wrap(fault.KindInternal, "usage.flush", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fault.Wrap(fault.KindInternal, "usage.flush", err)
	}
	t.dirty = false
	return nil
}

func copyCounts(src map[string]Counts) map[string]Counts {
	dst := make(map[string]Counts, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// EnsureDir creates the parent directory of a usage path.
func EnsureDir(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fault.Wrap(fault.KindConfig, "usage.dir", err)
	}
	return nil
}
