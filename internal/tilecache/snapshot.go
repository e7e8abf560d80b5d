package tilecache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// snapshotFile is the persisted form of the cache. Sizes are not
// stored; they are re-estimated on restore so the heuristic can change
// between versions without poisoning the accounting.
type snapshotFile struct {
	SavedAt time.Time         `json:"saved_at"`
	Entries map[string]*entry `json:"entries"`
	Order   []string          `json:"order"`
}

// Snapshot persists the cache state atomically (temp file + rename).
// The cache is a performance optimization, never the source of truth,
// so a failed snapshot is reported but not fatal to the process.
func (c *Cache) Snapshot(path string) error {
	c.mu.Lock()
	snap := snapshotFile{
		SavedAt: c.now(),
		Entries: make(map[string]*entry, len(c.entries)),
		Order:   append([]string{}, c.order...),
	}
	for k, e := range c.entries {
		snap.Entries[k] = e
	}
	c.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("snapshot dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Restore hydrates the cache from a snapshot no older than maxAge.
// Stale or unreadable snapshots leave the cache empty. Expired entries
// are swept immediately after load.
func (c *Cache) Restore(path string, maxAge time.Duration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if maxAge > 0 && c.now().Sub(snap.SavedAt) > maxAge {
		return fmt.Errorf("snapshot from %s is older than %s", snap.SavedAt.Format(time.RFC3339), maxAge)
	}

	c.entries = map[string]*entry{}
	c.order = nil
	c.mem = 0
	for _, key := range snap.Order {
		e, ok := snap.Entries[key]
		if !ok {
			continue
		}
		e.size = estimateSize(e.Stations)
		c.entries[key] = e
		c.order = append(c.order, key)
		c.mem += e.size
	}
	// entries missing from the order list (hand-edited or truncated
	// snapshot) are dropped so the permutation invariant holds

	c.clearExpiredLocked()
	c.evictLocked()
	return nil
}
