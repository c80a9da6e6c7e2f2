package cache

import (
	"fmt"
	"sort"
	"sync"

	"github.com/NotesGenerator/extension/pkg/core"
)

// Entry is what the extension remembers about a placed annotation.
type Entry struct {
	ID      uint
	Objects []core.ObjectID
}

// AnnotationCache maps annotation names to their record IDs and the host
// objects that make them up, for the current scene.
type AnnotationCache struct {
	mu          sync.RWMutex
	annotations map[string]Entry
}

// NewAnnotationCache creates a new AnnotationCache
func NewAnnotationCache() *AnnotationCache {
	return &AnnotationCache{
		annotations: make(map[string]Entry),
	}
}

// Get retrieves an annotation by name
func (c *AnnotationCache) Get(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.annotations[name]
	return e, ok
}

// Set stores an annotation by name
func (c *AnnotationCache) Set(name string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.annotations[name] = e
}

// Delete removes an annotation by name and returns what was stored.
func (c *AnnotationCache) Delete(name string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.annotations[name]
	delete(c.annotations, name)
	return e, ok
}

// Names returns the cached names in sorted order.
func (c *AnnotationCache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.annotations))
	for name := range c.annotations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of cached annotations.
func (c *AnnotationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.annotations)
}

// Reset clears all annotations from the cache
func (c *AnnotationCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.annotations = make(map[string]Entry)
}

// Reserve returns base if unused, otherwise the first free "base.NNN" name,
// and records it with an empty entry so concurrent callers get distinct names.
func (c *AnnotationCache) Reserve(base string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := base
	for i := 1; ; i++ {
		if _, taken := c.annotations[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s.%03d", base, i)
	}
	c.annotations[name] = Entry{}
	return name
}
