package store

import "github.com/desertthunder/floe/internal/models"

// Cache is the persistent classification cache: video ID -> result.
//
// Entries are never evicted, so the cache grows without bound across runs.
// The invariant that matters is dedup: a video ID present here is never
// re-submitted to the categorizer.
type Cache struct {
	entries map[string]models.ClassificationResult
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: map[string]models.ClassificationResult{}}
}

// Lookup returns the cached result for a video ID, if present.
func (c *Cache) Lookup(videoID string) (models.ClassificationResult, bool) {
	result, ok := c.entries[videoID]
	return result, ok
}

// Has reports whether a video ID is cached.
func (c *Cache) Has(videoID string) bool {
	_, ok := c.entries[videoID]
	return ok
}

// UpsertBatch merges results into the cache, last write wins. Results without
// a video ID are dropped.
func (c *Cache) UpsertBatch(results []models.ClassificationResult) {
	for _, result := range results {
		if result.VideoID == "" {
			continue
		}
		c.entries[result.VideoID] = result
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}
