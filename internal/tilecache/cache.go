// Package tilecache holds station records partitioned by grid tile,
// bounded by entry count and estimated memory, with LRU eviction.
package tilecache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/openfuelmap/fuelgrid/internal/model"
	"github.com/openfuelmap/fuelgrid/internal/observability"
	"github.com/openfuelmap/fuelgrid/internal/tile"
)

type Config struct {
	TileSize       float64
	MaxEntries     int
	Expiry         time.Duration
	MaxMemoryBytes int64
}

// Stats counters. Evictions counts pressure evictions only; expiry
// sweeps are tracked separately by the hit/miss outcome they cause.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	APICalls  int64 `json:"api_calls"`
}

type entry struct {
	Stations  []model.Station `json:"stations"`
	Timestamp time.Time       `json:"timestamp"`
	Bounds    model.BBox      `json:"bounds"`
	size      int64
}

// Cache is an explicitly constructed instance injected into request
// handlers. A single mutex serializes all mutations so the entry map,
// recency order and memory accounting never diverge.
type Cache struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*entry
	order   []string // recency: front = least recent, back = most recent
	mem     int64
	stats   Stats
	now     func() time.Time
}

func New(cfg Config) *Cache {
	if cfg.TileSize <= 0 {
		cfg.TileSize = 0.25
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = 30 * time.Minute
	}
	if cfg.MaxMemoryBytes <= 0 {
		cfg.MaxMemoryBytes = 50 << 20
	}
	return &Cache{
		cfg:     cfg,
		entries: map[string]*entry{},
		now:     time.Now,
	}
}

// estimated bytes per entry beyond the serialized payload
const entryOverheadBytes = 256

// payload expansion factor for in-memory representation vs JSON
const sizeFactor = 2

// estimateSize is a cheap heuristic, not an exact byte count. Tests
// tolerate estimation error but rely on add/remove being symmetric.
func estimateSize(stations []model.Station) int64 {
	b, err := json.Marshal(stations)
	if err != nil {
		return entryOverheadBytes
	}
	return int64(len(b))*sizeFactor + entryOverheadBytes
}

func (c *Cache) fresh(e *entry) bool {
	return c.now().Sub(e.Timestamp) < c.cfg.Expiry
}

// HasValidData reports whether every tile required for bounds has a
// non-expired entry. Callers must use it before trusting GetStations.
func (c *Cache) HasValidData(bounds model.BBox) bool {
	bounds = bounds.Clamp(model.Envelope)
	tiles := tile.TilesForBounds(bounds, c.cfg.TileSize)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range tiles {
		e, ok := c.entries[t.Key()]
		if !ok || !c.fresh(e) {
			c.stats.Misses++
			observability.IncTileCacheMiss()
			return false
		}
	}
	c.stats.Hits++
	observability.IncTileCacheHit()
	return true
}

// GetStations returns the cached stations inside bounds, deduplicated
// across tiles. Expired tiles contribute nothing. Reading touches each
// valid tile's recency but never changes memory accounting.
func (c *Cache) GetStations(bounds model.BBox) []model.Station {
	bounds = bounds.Clamp(model.Envelope)
	tiles := tile.TilesForBounds(bounds, c.cfg.TileSize)

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := map[string]bool{}
	var out []model.Station
	for _, t := range tiles {
		key := t.Key()
		e, ok := c.entries[key]
		if !ok || !c.fresh(e) {
			continue
		}
		c.touchLocked(key)
		for _, s := range e.Stations {
			if !tile.Contains(bounds, s.Lon, s.Lat, false) {
				continue
			}
			dk := s.DedupKey()
			if seen[dk] {
				continue
			}
			seen[dk] = true
			out = append(out, s)
		}
	}
	return out
}

// OldestAge returns the age of the oldest fresh tile covering bounds,
// zero when no fresh tile contributes. Served alongside GetStations so
// cache headers reflect the stalest data in the response.
func (c *Cache) OldestAge(bounds model.BBox) time.Duration {
	bounds = bounds.Clamp(model.Envelope)
	tiles := tile.TilesForBounds(bounds, c.cfg.TileSize)

	c.mu.Lock()
	defer c.mu.Unlock()

	var oldest time.Time
	for _, t := range tiles {
		e, ok := c.entries[t.Key()]
		if !ok || !c.fresh(e) {
			continue
		}
		if oldest.IsZero() || e.Timestamp.Before(oldest) {
			oldest = e.Timestamp
		}
	}
	if oldest.IsZero() {
		return 0
	}
	return c.now().Sub(oldest)
}

// StoreStations buckets the incoming stations into each tile covering
// bounds, replacing prior entries, and then applies eviction pressure.
// Counts one upstream fetch regardless of tile fan-out.
func (c *Cache) StoreStations(bounds model.BBox, stations []model.Station) {
	bounds = bounds.Clamp(model.Envelope)
	tiles := tile.TilesForBounds(bounds, c.cfg.TileSize)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range tiles {
		tb := tile.BoundsForTile(t, c.cfg.TileSize)
		var inTile []model.Station
		for _, s := range stations {
			// half-open edges: a boundary station lands in exactly one tile
			if tile.Contains(tb, s.Lon, s.Lat, true) {
				inTile = append(inTile, s)
			}
		}

		key := t.Key()
		if prev, ok := c.entries[key]; ok {
			c.mem -= prev.size
		} else {
			c.order = append(c.order, key)
		}
		e := &entry{Stations: inTile, Timestamp: now, Bounds: tb, size: estimateSize(inTile)}
		c.entries[key] = e
		c.mem += e.size
		c.touchLocked(key)
	}
	c.stats.APICalls++

	c.evictLocked()
	observability.SetTileCacheUsage(len(c.entries), c.mem)
}

// evictLocked removes least-recently-touched tiles until both the
// entry-count and memory limits are satisfied. When a single remaining
// tile alone exceeds the memory limit the overage is accepted rather
// than dropping fresh data.
func (c *Cache) evictLocked() {
	for len(c.entries) > c.cfg.MaxEntries || c.mem > c.cfg.MaxMemoryBytes {
		if len(c.entries) == 0 {
			break
		}
		if len(c.entries) == 1 && len(c.entries) <= c.cfg.MaxEntries {
			break
		}
		victim := c.order[0]
		c.order = c.order[1:]
		if e, ok := c.entries[victim]; ok {
			c.mem -= e.size
			delete(c.entries, victim)
			c.stats.Evictions++
			observability.IncTileCacheEviction()
		}
	}
}

// ClearExpired sweeps out entries past the expiry. Not counted as
// evictions: that counter is pressure-eviction only.
func (c *Cache) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearExpiredLocked()
}

func (c *Cache) clearExpiredLocked() int {
	removed := 0
	for key, e := range c.entries {
		if c.fresh(e) {
			continue
		}
		c.mem -= e.size
		delete(c.entries, key)
		c.removeFromOrderLocked(key)
		removed++
	}
	observability.SetTileCacheUsage(len(c.entries), c.mem)
	return removed
}

// Clear drops everything, keeping the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*entry{}
	c.order = nil
	c.mem = 0
	observability.SetTileCacheUsage(0, 0)
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Usage returns the current entry count and estimated memory.
func (c *Cache) Usage() (entries int, memoryBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), c.mem
}

func (c *Cache) touchLocked(key string) {
	c.removeFromOrderLocked(key)
	c.order = append(c.order, key)
}

func (c *Cache) removeFromOrderLocked(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
