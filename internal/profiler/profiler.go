// Package profiler records scoped timing spans for workflow phases and
// runs a rule-driven alert engine over live metric values. Spans are kept
// in a bounded rolling window; summaries aggregate by span name.
package profiler

import (
	"encoding/json"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"maestro/internal/logging"
)

// DefaultWindow is the number of recent spans retained.
const DefaultWindow = 1000

// Span is one completed timed scope.
type Span struct {
	Name          string        `json:"name"`
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	Duration      time.Duration `json:"duration"`
	MemoryDeltaMB float64       `json:"memory_delta_mb"`
}

// Summary aggregates every span recorded under one name.
type Summary struct {
	Name        string        `json:"name"`
	Calls       int           `json:"calls"`
	Total       time.Duration `json:"total"`
	Avg         time.Duration `json:"avg"`
	Min         time.Duration `json:"min"`
	Max         time.Duration `json:"max"`
	AvgMemDelta float64       `json:"avg_mem_delta_mb"`
}

// Profiler keeps a rolling window of spans. Safe for concurrent use.
type Profiler struct {
	mu       sync.Mutex
	spans    []Span
	window   int
	dumpPath string
	now      func() time.Time
}

// Options configures a Profiler. Zero values fall back to defaults.
type Options struct {
	Window   int
	DumpPath string           // empty disables span dumps
	Clock    func() time.Time // test hook
}

// New builds a profiler with a bounded span window.
func New(opts Options) *Profiler {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Profiler{
		spans:    make([]Span, 0, opts.Window),
		window:   opts.Window,
		dumpPath: opts.DumpPath,
		now:      opts.Clock,
	}
}

// Profile opens a scoped span. The returned stop function records it:
//
//	defer p.Profile("orchestrator.plan")()
func (p *Profiler) Profile(name string) func() {
	start := p.now()
	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	return func() {
		end := p.now()
		var after runtime.MemStats
		runtime.ReadMemStats(&after)

		// HeapAlloc can shrink across a GC cycle; a negative delta is
		// real information, not an error.
		delta := (float64(after.HeapAlloc) - float64(before.HeapAlloc)) / (1024 * 1024)
		p.record(Span{
			Name:          name,
			Start:         start,
			End:           end,
			Duration:      end.Sub(start),
			MemoryDeltaMB: delta,
		})
	}
}

func (p *Profiler) record(s Span) {
	p.mu.Lock()
	p.spans = append(p.spans, s)
	if len(p.spans) > p.window {
		p.spans = p.spans[len(p.spans)-p.window:]
	}
	p.mu.Unlock()

	logging.Get(logging.CategoryProfiler).Debugw("span recorded",
		"name", s.Name, "duration", s.Duration, "mem_delta_mb", s.MemoryDeltaMB)
}

// Spans returns a copy of the current window, oldest first.
func (p *Profiler) Spans() []Span {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Span, len(p.spans))
	copy(out, p.spans)
	return out
}

// Summaries aggregates the window by span name, sorted by total time
// descending so the most expensive phases lead.
func (p *Profiler) Summaries() []Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	byName := make(map[string]*Summary)
	for _, s := range p.spans {
		sum, ok := byName[s.Name]
		if !ok {
			sum = &Summary{Name: s.Name, Min: s.Duration, Max: s.Duration}
			byName[s.Name] = sum
		}
		sum.Calls++
		sum.Total += s.Duration
		if s.Duration < sum.Min {
			sum.Min = s.Duration
		}
		if s.Duration > sum.Max {
			sum.Max = s.Duration
		}
		sum.AvgMemDelta += s.MemoryDeltaMB
	}

	out := make([]Summary, 0, len(byName))
	for _, sum := range byName {
		sum.Avg = sum.Total / time.Duration(sum.Calls)
		sum.AvgMemDelta /= float64(sum.Calls)
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// LastDuration reports the duration of the most recent span with the
// given name, or zero when none was recorded.
func (p *Profiler) LastDuration(name string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.spans) - 1; i >= 0; i-- {
		if p.spans[i].Name == name {
			return p.spans[i].Duration
		}
	}
	return 0
}

// Dump appends the current span window to the dump file as one JSON
// array per line. Best-effort: failures are logged and swallowed.
func (p *Profiler) Dump() {
	if p.dumpPath == "" {
		return
	}
	spans := p.Spans()
	data, err := json.Marshal(spans)
	if err != nil {
		logging.Get(logging.CategoryProfiler).Warnw("span dump encode failed", "error", err)
		return
	}
	f, err := os.OpenFile(p.dumpPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logging.Get(logging.CategoryProfiler).Warnw("span dump open failed", "path", p.dumpPath, "error", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		logging.Get(logging.CategoryProfiler).Warnw("span dump write failed", "path", p.dumpPath, "error", err)
	}
}
