package progress

import (
	"sync"

	"github.com/example/dojang/pkg/models"
)

// Summary counts a profile's items per mastery level.
type Summary struct {
	ProfileID   string
	Terminology map[models.MasteryLevel]int
	Patterns    map[models.MasteryLevel]int
	Sparring    map[models.MasteryLevel]int
	Due         int
}

// Total returns the number of tracked items of kind.
func (s Summary) Total(kind models.EntityKind) int {
	var m map[models.MasteryLevel]int
	switch kind {
	case models.KindTerminology:
		m = s.Terminology
	case models.KindPattern:
		m = s.Patterns
	case models.KindSparring:
		m = s.Sparring
	}
	n := 0
	for _, c := range m {
		n += c
	}
	return n
}

// Cache holds computed summaries until a progress change invalidates them.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Summary
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]Summary)}
}

func (c *Cache) Get(profileID string) (Summary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[profileID]
	return s, ok
}

func (c *Cache) Put(s Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[s.ProfileID] = s
}

// Invalidate drops the summary of one profile.
func (c *Cache) Invalidate(profileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, profileID)
}

// Clear drops every summary.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Summary)
}

// Len returns the number of cached summaries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
