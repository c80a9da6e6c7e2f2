// Package gormstorage records annotations in any SQL database GORM can open.
package gormstorage

import (
	"errors"
	"fmt"
	"time"

	"github.com/NotesGenerator/extension/internal/database"
	"github.com/NotesGenerator/extension/internal/model"
	"github.com/NotesGenerator/extension/internal/model/convert"
	"github.com/NotesGenerator/extension/internal/storage"
	"github.com/NotesGenerator/extension/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Backend writes annotations through GORM.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New wraps an open connection. The backend owns db and closes it on Close.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{db: db, log: log}
}

// DB exposes the connection for wrappers such as the SQLite dump loop.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.db == nil {
		return errors.New("gorm backend has no database")
	}
	return database.Migrate(b.db, b.log)
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("accessing sql interface: %w", err)
	}
	return sqlDB.Close()
}

// RecordAnnotation inserts a and copies the generated ID back.
func (b *Backend) RecordAnnotation(a *core.Annotation) error {
	row := convert.CoreToAnnotation(*a)
	row.ID = 0
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("inserting annotation %s: %w", a.Name, err)
	}
	a.ID = row.ID
	b.log.Debug().Uint("id", row.ID).Str("name", a.Name).Msg("Annotation stored")
	return nil
}

// DeleteAnnotation flags the live annotation with the given scene and name.
func (b *Backend) DeleteAnnotation(d *core.DeleteAnnotation) error {
	removedAt := d.DeletedAt
	if removedAt.IsZero() {
		removedAt = time.Now()
	}

	res := b.db.Model(&model.Annotation{}).
		Where("scene_name = ? AND name = ? AND is_deleted = ?", d.SceneName, d.Name, false).
		Updates(map[string]any{"is_deleted": true, "removed_at": removedAt})
	if res.Error != nil {
		return fmt.Errorf("deleting annotation %s: %w", d.Name, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, d.Name)
	}
	return nil
}

// Annotations lists the live annotations of a scene by ID.
func (b *Backend) Annotations(scene string) ([]core.Annotation, error) {
	var rows []model.Annotation
	err := b.db.Where("scene_name = ? AND is_deleted = ?", scene, false).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing annotations: %w", err)
	}

	out := make([]core.Annotation, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.AnnotationToCore(r))
	}
	return out, nil
}
