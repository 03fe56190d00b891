package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to, so TTL tests are deterministic.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestCache(t *testing.T, opts Options) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	opts.Clock = clock.Now
	return New(opts), clock
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("query", "llama3.1:8b", "ctx")
	b := Fingerprint("query", "llama3.1:8b", "ctx")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	// Any component change produces a different key.
	assert.NotEqual(t, a, Fingerprint("query2", "llama3.1:8b", "ctx"))
	assert.NotEqual(t, a, Fingerprint("query", "qwen2.5:14b", "ctx"))
	assert.NotEqual(t, a, Fingerprint("query", "llama3.1:8b", "ctx2"))
}

func TestSetGet(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	_, ok := c.Get("q", "m", "ctx")
	assert.False(t, ok)

	c.Set("q", "m", "ctx", "answer", nil)
	got, ok := c.Get("q", "m", "ctx")
	require.True(t, ok)
	assert.Equal(t, "answer", got)

	// Different context misses even for the same query and model.
	_, ok = c.Get("q", "m", "other")
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache(t, Options{})
	c.Set("q", "m", "", "answer", nil)

	assert.True(t, c.Invalidate("q", "m", ""))
	_, ok := c.Get("q", "m", "")
	assert.False(t, ok)
	assert.False(t, c.Invalidate("q", "m", ""))
}

func TestTTLExpiry(t *testing.T) {
	c, clock := newTestCache(t, Options{TTL: time.Hour})
	c.Set("q", "m", "", "answer", nil)

	clock.Advance(59 * time.Minute)
	_, ok := c.Get("q", "m", "")
	assert.True(t, ok, "entry inside TTL should hit")

	clock.Advance(2 * time.Minute)
	_, ok = c.Get("q", "m", "")
	assert.False(t, ok, "entry past TTL should miss")
	assert.Equal(t, 0, c.Len(), "expired entry should be removed")
}

func TestLRUEviction(t *testing.T) {
	c, clock := newTestCache(t, Options{Capacity: 20})

	for i := 0; i < 20; i++ {
		c.Set(fmt.Sprintf("q%d", i), "m", "", "r", nil)
		clock.Advance(time.Second)
	}
	// Touch the oldest entries so they become the most recent.
	for i := 0; i < 5; i++ {
		_, ok := c.Get(fmt.Sprintf("q%d", i), "m", "")
		require.True(t, ok)
		clock.Advance(time.Second)
	}

	// Overflow: 10% of capacity (2 entries) should go, and they must be
	// the least recently used, which is q5 and q6 after the touches.
	c.Set("overflow", "m", "", "r", nil)
	assert.Equal(t, 19, c.Len())

	_, ok := c.Get("q5", "m", "")
	assert.False(t, ok, "q5 was LRU and should be evicted")
	_, ok = c.Get("q6", "m", "")
	assert.False(t, ok, "q6 was next LRU and should be evicted")
	_, ok = c.Get("q0", "m", "")
	assert.True(t, ok, "recently touched entry survives")

	assert.Equal(t, uint64(2), c.Stats().Evictions)
}

func TestStats(t *testing.T) {
	c, _ := newTestCache(t, Options{})
	c.Set("q", "m", "", "r", nil)

	c.Get("q", "m", "") // hit
	c.Get("x", "m", "") // miss
	c.Get("q", "m", "") // hit

	s := c.Stats()
	assert.Equal(t, uint64(2), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.InDelta(t, 2.0/3.0, s.HitRate, 1e-9)
	assert.Equal(t, 1, s.Entries)
}

func TestMirrorRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}

	c := New(Options{TTL: time.Hour, PersistPath: path, Clock: clock.Now})
	c.Set("keep", "m", "ctx", "kept answer", map[string]string{"phase": "executor"})
	c.Set("drop", "m", "ctx", "stale answer", nil)
	c.Get("keep", "m", "ctx")

	// Reload after 30 minutes: both entries are inside TTL.
	clock.Advance(30 * time.Minute)
	reloaded := New(Options{TTL: time.Hour, PersistPath: path, Clock: clock.Now})
	assert.Equal(t, 2, reloaded.Len())
	got, ok := reloaded.Get("keep", "m", "ctx")
	require.True(t, ok)
	assert.Equal(t, "kept answer", got)

	// Reload after the TTL has passed: expired entries drop at load.
	clock.Advance(2 * time.Hour)
	expired := New(Options{TTL: time.Hour, PersistPath: path, Clock: clock.Now})
	assert.Equal(t, 0, expired.Len())
}

func TestMirrorCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c := New(Options{PersistPath: path})
	assert.Equal(t, 0, c.Len())
}

func TestClear(t *testing.T) {
	c, _ := newTestCache(t, Options{})
	c.Set("a", "m", "", "1", nil)
	c.Set("b", "m", "", "2", nil)
	c.Get("a", "m", "")

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, uint64(1), c.Stats().Hits, "counters survive a clear")
}
