// Package cache is a fingerprinted, TTL-bounded response cache that sits
// in front of the invoker. Keys are derived from the full invocation
// identity (query, model, context) so a prompt change or model swap never
// returns a stale answer. Persistence is a best-effort JSON mirror; a
// failed disk write degrades to an in-memory cache, never an error.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"maestro/internal/logging"
	"maestro/internal/metrics"
)

const (
	// DefaultCapacity bounds the entry count before LRU eviction.
	DefaultCapacity = 1000
	// DefaultTTL is applied to entries stored without an explicit TTL.
	DefaultTTL = time.Hour
	// evictFraction of the LRU tail is dropped when capacity is exceeded.
	evictFraction = 0.10
)

// Entry is one cached model response.
type Entry struct {
	Query        string            `json:"query"`
	Response     string            `json:"response"`
	Model        string            `json:"model"`
	Timestamp    time.Time         `json:"timestamp"`
	TTL          time.Duration     `json:"ttl"`
	HitCount     int               `json:"hit_count"`
	LastAccessed time.Time         `json:"last_accessed"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (e Entry) expired(now time.Time) bool {
	return now.Sub(e.Timestamp) > e.TTL
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
	Entries   int     `json:"entries"`
}

// Options configures a Cache. Zero values fall back to defaults.
type Options struct {
	Capacity    int
	TTL         time.Duration
	PersistPath string           // empty disables the disk mirror
	Clock       func() time.Time // test hook
}

// Cache is a thread-safe response cache. A single mutex guards the map;
// contention is low because the orchestrator is sequential per request.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*Entry
	capacity  int
	ttl       time.Duration
	path      string
	now       func() time.Time
	hits      uint64
	misses    uint64
	evictions uint64
}

// New builds a cache and, when a persist path is set, loads any prior
// mirror from disk, dropping entries that expired while the process was
// down.
func New(opts Options) *Cache {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	c := &Cache{
		entries:  make(map[string]*Entry),
		capacity: opts.Capacity,
		ttl:      opts.TTL,
		path:     opts.PersistPath,
		now:      opts.Clock,
	}
	if c.path != "" {
		c.loadMirror()
	}
	return c
}

// Fingerprint derives the deterministic cache key for an invocation.
func Fingerprint(query, model, contextStr string) string {
	sum := sha256.Sum256([]byte(query + "|" + model + "|" + contextStr))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for the invocation, if present and
// unexpired. A hit bumps the entry's hit count and recency.
func (c *Cache) Get(query, model, contextStr string) (string, bool) {
	key := Fingerprint(query, model, contextStr)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		metrics.CacheMissesTotal.Inc()
		return "", false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		c.misses++
		metrics.CacheMissesTotal.Inc()
		return "", false
	}
	e.HitCount++
	e.LastAccessed = c.now()
	c.hits++
	metrics.CacheHitsTotal.Inc()
	return e.Response, true
}

// Set stores a response under the invocation fingerprint, evicting the
// least recently used tail when capacity is exceeded. The disk mirror is
// refreshed best-effort.
func (c *Cache) Set(query, model, contextStr, response string, metadata map[string]string) {
	key := Fingerprint(query, model, contextStr)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &Entry{
		Query:        query,
		Response:     response,
		Model:        model,
		Timestamp:    now,
		TTL:          c.ttl,
		LastAccessed: now,
		Metadata:     metadata,
	}
	if len(c.entries) > c.capacity {
		c.evictLocked()
	}
	c.mirrorLocked()
}

// Invalidate removes the entry for an invocation. Returns whether an
// entry was present.
func (c *Cache) Invalidate(query, model, contextStr string) bool {
	key := Fingerprint(query, model, contextStr)

	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
		c.mirrorLocked()
	}
	return ok
}

// Clear drops every entry, keeping the statistics counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	c.mirrorLocked()
}

// Stats returns a snapshot of the effectiveness counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   len(c.entries),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked drops the 10% least recently used entries (at least one).
func (c *Cache) evictLocked() {
	type aged struct {
		key  string
		last time.Time
	}
	victims := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		victims = append(victims, aged{key: k, last: e.LastAccessed})
	}
	sort.Slice(victims, func(i, j int) bool { return victims[i].last.Before(victims[j].last) })

	n := int(float64(c.capacity) * evictFraction)
	if n < 1 {
		n = 1
	}
	if n > len(victims) {
		n = len(victims)
	}
	for _, v := range victims[:n] {
		delete(c.entries, v.key)
	}
	c.evictions += uint64(n)
	metrics.CacheEvictionsTotal.Add(float64(n))
	logging.Get(logging.CategoryCache).Debugw("evicted LRU tail", "count", n, "remaining", len(c.entries))
}

// mirror is the persisted file schema. The fingerprint is stored with
// each entry because the context component of the key is not part of the
// entry itself.
type mirror struct {
	Entries []mirrorEntry `json:"entries"`
	Stats   Stats         `json:"stats"`
}

type mirrorEntry struct {
	Key string `json:"key"`
	Entry
}

// mirrorLocked writes the cache to disk. Failures are logged and
// swallowed: persistence is an optimization, not a contract.
func (c *Cache) mirrorLocked() {
	if c.path == "" {
		return
	}
	m := mirror{
		Entries: make([]mirrorEntry, 0, len(c.entries)),
		Stats: Stats{
			Hits:      c.hits,
			Misses:    c.misses,
			Evictions: c.evictions,
			Entries:   len(c.entries),
		},
	}
	for k, e := range c.entries {
		m.Entries = append(m.Entries, mirrorEntry{Key: k, Entry: *e})
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		logging.Get(logging.CategoryCache).Warnw("cache mirror encode failed", "error", err)
		return
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		logging.Get(logging.CategoryCache).Warnw("cache mirror write failed", "path", c.path, "error", err)
		return
	}
	if err := os.Rename(tmp, c.path); err != nil {
		logging.Get(logging.CategoryCache).Warnw("cache mirror rename failed", "path", c.path, "error", err)
	}
}

// loadMirror restores a prior mirror, dropping entries that expired
// while the process was down. Counters are restored so hit rate stays
// meaningful across restarts.
func (c *Cache) loadMirror() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Get(logging.CategoryCache).Warnw("cache mirror read failed", "path", c.path, "error", err)
		}
		return
	}
	var m mirror
	if err := json.Unmarshal(data, &m); err != nil {
		logging.Get(logging.CategoryCache).Warnw("cache mirror corrupt, starting empty", "path", c.path, "error", err)
		return
	}
	now := c.now()
	dropped := 0
	for i := range m.Entries {
		me := m.Entries[i]
		if me.Key == "" || me.expired(now) {
			dropped++
			continue
		}
		e := me.Entry
		c.entries[me.Key] = &e
	}
	c.hits = m.Stats.Hits
	c.misses = m.Stats.Misses
	c.evictions = m.Stats.Evictions
	logging.Get(logging.CategoryCache).Infow("cache mirror loaded",
		"path", c.path, "entries", len(c.entries), "expired_dropped", dropped)
}

// EnsureDir creates the parent directory for a persist path.
func EnsureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
