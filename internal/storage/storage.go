// Package storage defines where placed annotations are recorded.
package storage

import (
	"errors"

	"github.com/NotesGenerator/extension/pkg/core"
)

// ErrNotFound is returned when deleting an annotation that is not stored.
var ErrNotFound = errors.New("annotation not found")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// RecordAnnotation stores a and assigns its ID.
	RecordAnnotation(a *core.Annotation) error
	// DeleteAnnotation marks the named annotation of a scene as removed.
	DeleteAnnotation(d *core.DeleteAnnotation) error
	// Annotations lists the live annotations of a scene, oldest first.
	Annotations(scene string) ([]core.Annotation, error)
}

// Exporter is an optional interface for backends that can write their
// contents to a file on demand.
type Exporter interface {
	Export() (string, error)
}
