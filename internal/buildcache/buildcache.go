// Package buildcache caches compiled template programs between builds.
// Compilation is deterministic, so a cache key derived from the source,
// the compile options, and the compiler version is a sound identity for
// the generated output.
package buildcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Cache stores compiled artifacts under a directory with a JSON index.
type Cache struct {
	mu      sync.RWMutex
	dir     string
	index   *index
	maxSize int64
	maxAge  time.Duration
	stats   Stats
	stopCh  chan struct{}
}

type index struct {
	Version string            `json:"version"`
	Entries map[string]*entry `json:"entries"`
	Updated time.Time         `json:"updated"`
}

type entry struct {
	Key        string    `json:"key"`
	Hash       string    `json:"hash"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	Created    time.Time `json:"created"`
	LastAccess time.Time `json:"last_access"`
}

// Artifact is one cached compilation result: the generated program plus
// the metadata the build manifest records.
type Artifact struct {
	Code       string   `json:"code"`
	Slots      []string `json:"slots,omitempty"`
	Components []string `json:"components,omitempty"`
	Token      string   `json:"token"`
}

// Stats tracks cache performance.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	TotalSize int64 `json:"total_size"`
	Entries   int   `json:"entries"`
}

// Config holds cache configuration.
type Config struct {
	Dir     string        // cache directory
	MaxSize int64         // maximum total size in bytes (default 256 MB)
	MaxAge  time.Duration // maximum entry age (default 7 days)
}

// New opens or creates a cache at config.Dir. Entries that have outlived
// MaxAge are pruned in the background.
func New(config Config) (*Cache, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("buildcache: directory is required")
	}
	if config.MaxSize == 0 {
		config.MaxSize = 256 << 20
	}
	if config.MaxAge == 0 {
		config.MaxAge = 7 * 24 * time.Hour
	}

	if err := os.MkdirAll(filepath.Join(config.Dir, "artifacts"), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	c := &Cache{
		dir:     config.Dir,
		maxSize: config.MaxSize,
		maxAge:  config.MaxAge,
		stopCh:  make(chan struct{}),
	}
	if err := c.loadIndex(); err != nil {
		c.index = &index{Version: "1", Entries: map[string]*entry{}, Updated: time.Now()}
	}

	go c.cleanup()
	return c, nil
}

// Key derives the cache identity for one compilation: compiler version,
// template identity, scoping mode, property contract, and source content.
// Any change to any input produces a different key.
func Key(version, identity, mode string, props []string, source []byte) string {
	h := sha256.New()
	for _, part := range []string{version, identity, mode, strings.Join(props, ",")} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached artifact.
func (c *Cache) Get(key string) (*Artifact, bool) {
	c.mu.RLock()
	e, ok := c.index.Entries[key]
	c.mu.RUnlock()

	if !ok {
		c.miss()
		return nil, false
	}
	if c.expired(e) {
		c.Delete(key)
		c.miss()
		return nil, false
	}

	data, err := os.ReadFile(e.Path)
	if err != nil {
		c.Delete(key)
		c.miss()
		return nil, false
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		c.Delete(key)
		c.miss()
		return nil, false
	}

	c.mu.Lock()
	e.LastAccess = time.Now()
	c.stats.Hits++
	c.mu.Unlock()
	return &art, true
}

// Put stores an artifact under key, evicting least recently used entries
// when the cache would exceed its size limit.
func (c *Cache) Put(key string, art *Artifact) error {
	data, err := json.Marshal(art)
	if err != nil {
		return err
	}
	hash := sha256.Sum256(data)
	sum := hex.EncodeToString(hash[:])

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.index.Entries[key]; ok && existing.Hash == sum {
		return nil
	}

	c.evictFor(int64(len(data)))

	path := filepath.Join(c.dir, "artifacts", key[:16]+"_"+sum[:8]+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write cache artifact: %w", err)
	}

	if old, ok := c.index.Entries[key]; ok {
		c.removeFile(old.Path)
		c.stats.TotalSize -= old.Size
	}
	now := time.Now()
	c.index.Entries[key] = &entry{
		Key:        key,
		Hash:       sum,
		Path:       path,
		Size:       int64(len(data)),
		Created:    now,
		LastAccess: now,
	}
	c.index.Updated = now
	c.stats.TotalSize += int64(len(data))
	c.stats.Entries = len(c.index.Entries)
	return c.saveIndexLocked()
}

// Delete removes one entry.
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index.Entries[key]
	if !ok {
		return nil
	}
	c.removeFile(e.Path)
	delete(c.index.Entries, key)
	c.stats.TotalSize -= e.Size
	c.stats.Entries = len(c.index.Entries)
	c.index.Updated = time.Now()
	return c.saveIndexLocked()
}

// Clear removes all entries.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(c.dir, "artifacts")); err != nil {
		return fmt.Errorf("clear artifacts: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(c.dir, "artifacts"), 0755); err != nil {
		return err
	}
	c.index = &index{Version: "1", Entries: map[string]*entry{}, Updated: time.Now()}
	c.stats = Stats{}
	return c.saveIndexLocked()
}

// GetStats returns a snapshot of cache statistics.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Entries = len(c.index.Entries)
	return s
}

// Close stops background pruning and persists the index.
func (c *Cache) Close() error {
	close(c.stopCh)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveIndexLocked()
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, "index.json"))
	if err != nil {
		return err
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return err
	}
	if idx.Entries == nil {
		idx.Entries = map[string]*entry{}
	}
	c.index = &idx
	for _, e := range idx.Entries {
		c.stats.TotalSize += e.Size
	}
	c.stats.Entries = len(idx.Entries)
	return nil
}

// saveIndexLocked writes the index. Caller holds the write lock.
func (c *Cache) saveIndexLocked() error {
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, "index.json"), data, 0644)
}

func (c *Cache) expired(e *entry) bool {
	if c.maxAge <= 0 {
		return false
	}
	return time.Since(e.Created) > c.maxAge
}

// evictFor frees room for an incoming artifact, least recently used first.
// Caller holds the write lock.
func (c *Cache) evictFor(needed int64) {
	if c.maxSize <= 0 {
		return
	}
	for c.stats.TotalSize+needed > c.maxSize && len(c.index.Entries) > 0 {
		var victimKey string
		var victim *entry
		for key, e := range c.index.Entries {
			if victim == nil || e.LastAccess.Before(victim.LastAccess) {
				victimKey, victim = key, e
			}
		}
		c.removeFile(victim.Path)
		delete(c.index.Entries, victimKey)
		c.stats.TotalSize -= victim.Size
		c.stats.Evictions++
	}
	c.stats.Entries = len(c.index.Entries)
}

// cleanup prunes expired entries hourly until Close.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			for key, e := range c.index.Entries {
				if c.expired(e) {
					c.removeFile(e.Path)
					delete(c.index.Entries, key)
					c.stats.TotalSize -= e.Size
					c.stats.Evictions++
				}
			}
			c.stats.Entries = len(c.index.Entries)
			c.index.Updated = time.Now()
			c.saveIndexLocked()
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to remove cache file %s: %v\n", path, err)
	}
}

func (c *Cache) miss() {
	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
}
