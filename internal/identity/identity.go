// Package identity deduplicates declarations seen more than once.
package identity

import (
	"fmt"
	"sync"
)

// Identity keys a logical declaration by absolute file path and line.
type Identity struct {
	File string
	Line int
}

func (id Identity) String() string {
	return fmt.Sprintf("%s:%d", id.File, id.Line)
}

// Cache records identities that have already produced an entity.
// It is safe for concurrent use.
type Cache struct {
	mu   sync.Mutex
	seen map[Identity]struct{}
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{seen: make(map[Identity]struct{})}
}

// Claim records id and reports whether this is its first sighting.
func (c *Cache) Claim(id Identity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[id]; ok {
		return false
	}
	c.seen[id] = struct{}{}
	return true
}
