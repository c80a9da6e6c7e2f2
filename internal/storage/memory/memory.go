package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NotesGenerator/extension/internal/cache"
	"github.com/NotesGenerator/extension/internal/config"
	"github.com/NotesGenerator/extension/internal/storage"
	"github.com/NotesGenerator/extension/pkg/core"
)

// record is an annotation plus its deletion state.
type record struct {
	annotation core.Annotation
	removedAt  time.Time
}

func (r *record) deleted() bool {
	return !r.removedAt.IsZero()
}

// Backend keeps annotations in memory and writes them to a JSON file on Close.
type Backend struct {
	cfg     config.MemoryConfig
	version string

	records []*record
	ids     cache.Sequence

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a memory backend. version is written into the export header.
func New(cfg config.MemoryConfig, version string) *Backend {
	return &Backend{cfg: cfg, version: version}
}

// Init is a no-op for the memory backend.
func (b *Backend) Init() error {
	return nil
}

// Close exports the annotations when an output directory is configured.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir == "" || len(b.records) == 0 {
		return nil
	}
	return b.exportJSON()
}

// Export writes the annotations now and returns the file path.
func (b *Backend) Export() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir == "" {
		return "", fmt.Errorf("memory storage has no output directory")
	}
	if err := b.exportJSON(); err != nil {
		return "", err
	}
	return b.lastExportPath, nil
}

// LastExportPath returns the path of the last written export, if any.
func (b *Backend) LastExportPath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// RecordAnnotation stores a copy of a and assigns its ID.
func (b *Backend) RecordAnnotation(a *core.Annotation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	a.ID = b.ids.Next()
	stored := *a
	stored.ObjectIDs = append([]core.ObjectID(nil), a.ObjectIDs...)
	b.records = append(b.records, &record{annotation: stored})
	return nil
}

// DeleteAnnotation marks the live annotation with the given scene and name as removed.
func (b *Backend) DeleteAnnotation(d *core.DeleteAnnotation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.records {
		if r.deleted() || r.annotation.SceneName != d.SceneName || r.annotation.Name != d.Name {
			continue
		}
		r.removedAt = d.DeletedAt
		if r.removedAt.IsZero() {
			r.removedAt = time.Now()
		}
		return nil
	}
	return fmt.Errorf("%w: %s", storage.ErrNotFound, d.Name)
}

// Annotations returns the live annotations of a scene, oldest first.
func (b *Backend) Annotations(scene string) ([]core.Annotation, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.Annotation, 0)
	for _, r := range b.records {
		if r.deleted() || r.annotation.SceneName != scene {
			continue
		}
		out = append(out, r.annotation)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
