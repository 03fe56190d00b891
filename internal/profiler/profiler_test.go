package profiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock advances a fixed amount on every read so span durations are
// deterministic.
type stepClock struct {
	now  time.Time
	step time.Duration
}

func (s *stepClock) Now() time.Time {
	t := s.now
	s.now = s.now.Add(s.step)
	return t
}

func TestProfileRecordsSpan(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), step: 100 * time.Millisecond}
	p := New(Options{Clock: clock.Now})

	stop := p.Profile("orchestrator.plan")
	stop()

	spans := p.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "orchestrator.plan", spans[0].Name)
	assert.Equal(t, 100*time.Millisecond, spans[0].Duration)
	assert.Equal(t, 100*time.Millisecond, p.LastDuration("orchestrator.plan"))
}

func TestWindowBounded(t *testing.T) {
	p := New(Options{Window: 10})
	for i := 0; i < 25; i++ {
		p.Profile(fmt.Sprintf("span-%d", i))()
	}

	spans := p.Spans()
	require.Len(t, spans, 10)
	assert.Equal(t, "span-15", spans[0].Name, "oldest retained span")
	assert.Equal(t, "span-24", spans[9].Name, "newest span")
}

func TestSummaries(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), step: 50 * time.Millisecond}
	p := New(Options{Clock: clock.Now})

	// Each Profile/stop pair reads the clock twice, so every span lasts
	// one step; "invoke" gets three calls, "load" one.
	for i := 0; i < 3; i++ {
		p.Profile("invoke")()
	}
	p.Profile("load")()

	sums := p.Summaries()
	require.Len(t, sums, 2)

	assert.Equal(t, "invoke", sums[0].Name, "highest total first")
	assert.Equal(t, 3, sums[0].Calls)
	assert.Equal(t, 150*time.Millisecond, sums[0].Total)
	assert.Equal(t, 50*time.Millisecond, sums[0].Avg)
	assert.Equal(t, 50*time.Millisecond, sums[0].Min)
	assert.Equal(t, 50*time.Millisecond, sums[0].Max)

	assert.Equal(t, "load", sums[1].Name)
	assert.Equal(t, 1, sums[1].Calls)
}

func TestDumpAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.json")
	p := New(Options{DumpPath: path})

	p.Profile("a")()
	p.Dump()
	p.Profile("b")()
	p.Dump()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2, "each dump appends one JSON array line")
	assert.Contains(t, lines[1], `"name":"a"`)
	assert.Contains(t, lines[1], `"name":"b"`)
}

func TestEngineRaisesOncePerRule(t *testing.T) {
	e := NewEngine(nil, nil)

	raised := e.Check(map[string]float64{"cpu_pct": 97, "memory_pct": 50})
	require.Len(t, raised, 2, "97% CPU trips both the warning and critical rules")

	// Re-checking the same violation must not duplicate alerts.
	raised = e.Check(map[string]float64{"cpu_pct": 98})
	assert.Empty(t, raised)
	assert.Len(t, e.Active(), 2)

	// The active alert tracks the latest observed value.
	for _, a := range e.Active() {
		assert.Equal(t, 98.0, a.Value)
	}
}

func TestEngineExplicitResolution(t *testing.T) {
	e := NewEngine(nil, nil)
	e.Check(map[string]float64{"available_gb": 0.5})
	require.Len(t, e.Active(), 2, "0.5 GB trips both availability rules")

	// Recovery alone does not resolve.
	e.Check(map[string]float64{"available_gb": 8})
	assert.Len(t, e.Active(), 2)

	assert.True(t, e.Resolve("available-low", "available_gb"))
	assert.False(t, e.Resolve("available-low", "available_gb"))
	assert.Len(t, e.Active(), 1)

	assert.Equal(t, 1, e.ResolveAll())
	assert.Empty(t, e.Active())
}

func TestEngineThresholdBoundaries(t *testing.T) {
	cases := []struct {
		name   string
		values map[string]float64
		want   []string
	}{
		{"all healthy", map[string]float64{"cpu_pct": 40, "memory_pct": 50, "available_gb": 10, "response_time_s": 1, "cache_hit_rate": 0.9}, nil},
		{"slow response", map[string]float64{"response_time_s": 6}, []string{"response-slow"}},
		{"very slow response", map[string]float64{"response_time_s": 11}, []string{"response-slow", "response-critical"}},
		{"cold cache", map[string]float64{"cache_hit_rate": 0.4}, []string{"cache-ineffective"}},
		{"missing metric stays inert", map[string]float64{"unrelated": 999}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEngine(nil, nil)
			raised := e.Check(tc.values)
			var names []string
			for _, a := range raised {
				names = append(names, a.Rule)
			}
			assert.ElementsMatch(t, tc.want, names)
		})
	}
}
