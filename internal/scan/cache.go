// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pdiddy/probsplit/internal/engine"
	"github.com/pdiddy/probsplit/pkg/types"
)

// Cache memoizes marker scans by document content, so identical inputs
// processed in one invocation are scanned once.
type Cache struct {
	cache *gocache.Cache
}

// NewCache creates a cache whose entries expire after ttl.
func NewCache(ttl, cleanupInterval time.Duration) *Cache {
	return &Cache{cache: gocache.New(ttl, cleanupInterval)}
}

// Key derives the cache key for the document at path opened by engineName.
func Key(engineName, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return "probsplit:v1:" + engineName + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// Markers returns the cached scan for key or scans doc and stores it.
// An empty key bypasses the cache.
func (c *Cache) Markers(key string, doc engine.Document, w io.Writer) []types.Marker {
	if key == "" {
		return Markers(doc, w)
	}
	if v, found := c.cache.Get(key); found {
		return slices.Clone(v.([]types.Marker))
	}
	markers := Markers(doc, w)
	c.cache.Set(key, slices.Clone(markers), gocache.DefaultExpiration)
	return markers
}

// Len reports the number of cached scans.
func (c *Cache) Len() int {
	return c.cache.ItemCount()
}
