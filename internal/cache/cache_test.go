package cache

import (
	"sync"
	"testing"

	"github.com/NotesGenerator/extension/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotationCache_SetAndGet(t *testing.T) {
	cache := NewAnnotationCache()

	cache.Set("Annotation", Entry{ID: 42, Objects: []core.ObjectID{"obj-1", "obj-2"}})

	e, ok := cache.Get("Annotation")
	require.True(t, ok, "expected to find Annotation")
	assert.Equal(t, uint(42), e.ID)
	assert.Equal(t, []core.ObjectID{"obj-1", "obj-2"}, e.Objects)
}

func TestAnnotationCache_Get_NotFound(t *testing.T) {
	cache := NewAnnotationCache()

	_, ok := cache.Get("nonexistent")
	assert.False(t, ok)
}

func TestAnnotationCache_Delete(t *testing.T) {
	cache := NewAnnotationCache()
	cache.Set("a", Entry{ID: 1})
	cache.Set("b", Entry{ID: 2})

	e, ok := cache.Delete("a")
	require.True(t, ok)
	assert.Equal(t, uint(1), e.ID)

	_, ok = cache.Get("a")
	assert.False(t, ok, "expected a to be gone after delete")
	_, ok = cache.Get("b")
	assert.True(t, ok, "expected b to still exist")

	_, ok = cache.Delete("a")
	assert.False(t, ok, "second delete finds nothing")
}

func TestAnnotationCache_NamesAndReset(t *testing.T) {
	cache := NewAnnotationCache()
	cache.Set("Annotation.001", Entry{ID: 2})
	cache.Set("Annotation", Entry{ID: 1})

	assert.Equal(t, []string{"Annotation", "Annotation.001"}, cache.Names())
	assert.Equal(t, 2, cache.Len())

	cache.Reset()
	assert.Empty(t, cache.Names())
	assert.Equal(t, 0, cache.Len())
}

func TestAnnotationCache_Reserve(t *testing.T) {
	cache := NewAnnotationCache()

	assert.Equal(t, "Annotation", cache.Reserve("Annotation"))
	assert.Equal(t, "Annotation.001", cache.Reserve("Annotation"))
	assert.Equal(t, "Annotation.002", cache.Reserve("Annotation"))

	cache.Delete("Annotation.001")
	assert.Equal(t, "Annotation.001", cache.Reserve("Annotation"), "freed names are reused")
	assert.Equal(t, "Note", cache.Reserve("Note"))
}

func TestAnnotationCache_ReserveConcurrent(t *testing.T) {
	cache := NewAnnotationCache()
	var wg sync.WaitGroup
	names := make(chan string, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names <- cache.Reserve("Annotation")
		}()
	}
	wg.Wait()
	close(names)

	seen := make(map[string]bool)
	for n := range names {
		assert.False(t, seen[n], "duplicate name %s", n)
		seen[n] = true
	}
	assert.Len(t, seen, 100)
}

func TestSequence(t *testing.T) {
	var s Sequence
	assert.Equal(t, uint(0), s.Value())
	assert.Equal(t, uint(1), s.Next())
	assert.Equal(t, uint(2), s.Next())

	s.Observe(10)
	assert.Equal(t, uint(11), s.Next())

	s.Observe(3)
	assert.Equal(t, uint(11), s.Value(), "observing a lower id does not rewind")
}

func TestSequence_Concurrent(t *testing.T) {
	var s Sequence
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Next()
		}()
	}
	wg.Wait()
	assert.Equal(t, uint(50), s.Value())
}
