package template

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of parsed templates kept by NewCache when
// size is not positive.
const DefaultCacheSize = 512

// Cache memoizes Parse results keyed by a hash of the template text.
// It is safe for concurrent use.
type Cache struct {
	entries *lru.Cache[uint64, *Parsed]
}

// NewCache creates a parse cache holding up to size templates.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[uint64, *Parsed](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Parse returns the cached parse of text, parsing and storing it on a miss.
// A nil cache parses every time.
func (c *Cache) Parse(text string) *Parsed {
	if c == nil {
		return Parse(text)
	}
	key := xxhash.Sum64String(text)
	if p, ok := c.entries.Get(key); ok && p.Text == text {
		return p
	}
	p := Parse(text)
	c.entries.Add(key, p)
	return p
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// Purge drops every cached template.
func (c *Cache) Purge() {
	if c != nil {
		c.entries.Purge()
	}
}
