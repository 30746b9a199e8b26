package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"itinerary-planner/internal/models"
)

// FileTravelCacheData represents the structure of the cache file
type FileTravelCacheData struct {
	Entries []models.TravelCacheEntry `json:"entries"`
}

// FileTravelCache is a file-based implementation of TravelCacheRepository
type FileTravelCache struct {
	filePath string
	data     *FileTravelCacheData
	index    map[string]int // lookup key -> position in Entries
	mu       sync.RWMutex
}

// NewFileTravelCache opens (or creates) the travel cache file at filePath
func NewFileTravelCache(filePath string) (*FileTravelCache, error) {
	log.Printf("Using travel cache file: %s", filePath)

	cache := &FileTravelCache{
		filePath: filePath,
		data:     &FileTravelCacheData{Entries: []models.TravelCacheEntry{}},
		index:    make(map[string]int),
	}

	if err := cache.load(); err != nil {
		return nil, err
	}

	return cache, nil
}

func (c *FileTravelCache) load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		c.data = &FileTravelCacheData{Entries: []models.TravelCacheEntry{}}
		return c.saveUnlocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	if err := json.Unmarshal(data, c.data); err != nil {
		return fmt.Errorf("failed to parse cache file: %w", err)
	}

	if c.data.Entries == nil {
		c.data.Entries = []models.TravelCacheEntry{}
	}

	c.rebuildIndex()

	log.Printf("Loaded travel cache: %d entries", len(c.data.Entries))
	return nil
}

func (c *FileTravelCache) saveUnlocked() error {
	data, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	tmpFile := c.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}

	if err := os.Rename(tmpFile, c.filePath); err != nil {
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}

	return nil
}

func (c *FileTravelCache) Get(ctx context.Context, mode models.TravelMode, origin, dest models.Coordinates, bucket string) (*models.TravelCacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.index == nil {
		return nil, nil
	}

	if idx, ok := c.index[TravelCacheKey(mode, origin, dest, bucket)]; ok {
		// Return a copy so callers cannot modify cache data without the lock
		entryCopy := c.data.Entries[idx]
		return &entryCopy, nil
	}
	return nil, nil
}

func (c *FileTravelCache) Set(ctx context.Context, entry *models.TravelCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index == nil {
		c.rebuildIndex()
	}

	key := EntryKey(entry)

	if idx, ok := c.index[key]; ok {
		c.data.Entries[idx] = *entry
		return c.saveUnlocked()
	}

	c.data.Entries = append(c.data.Entries, *entry)
	c.index[key] = len(c.data.Entries) - 1
	return c.saveUnlocked()
}

func (c *FileTravelCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data.Entries = []models.TravelCacheEntry{}
	c.index = make(map[string]int)
	return c.saveUnlocked()
}

// Len returns the number of cached legs
func (c *FileTravelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data.Entries)
}

// rebuildIndex creates the index map from the current entries slice.
// Must be called with the mutex already held.
func (c *FileTravelCache) rebuildIndex() {
	c.index = make(map[string]int)
	for i := range c.data.Entries {
		c.index[EntryKey(&c.data.Entries[i])] = i
	}
}
