// Package sqlitestorage keeps annotations in an in-memory SQLite database and
// periodically dumps it to disk with VACUUM INTO. On Init an earlier dump is
// loaded back so annotations survive a restart of the host.
package sqlitestorage

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/NotesGenerator/extension/internal/database"
	"github.com/NotesGenerator/extension/internal/model"
	gormstorage "github.com/NotesGenerator/extension/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// DumpFileName is the file written inside the configured output directory.
const DumpFileName = "annotations.db"

// Config holds configuration for the SQLite storage backend.
type Config struct {
	// Name identifies the in-memory database; connections sharing a name share data.
	Name         string
	DumpInterval time.Duration
	DumpPath     string
}

// Backend wraps the GORM backend with the in-memory database lifecycle.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      zerolog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New opens the in-memory database.
func New(cfg Config, log zerolog.Logger) (*Backend, error) {
	if cfg.Name == "" {
		cfg.Name = "notesgen"
	}
	db, err := database.OpenSQLite(database.NamedMemoryDSN(cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend:  gormstorage.New(db, log),
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema, restores the last dump and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if err := b.restore(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the database.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.wg.Wait()

	var dumpErr error
	if b.cfg.DumpPath != "" {
		dumpErr = b.Dump()
	}
	return errors.Join(dumpErr, b.Backend.Close())
}

// Dump writes the current database to DumpPath.
func (b *Backend) Dump() error {
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug().Dur("took", time.Since(start)).Str("path", b.cfg.DumpPath).Msg("Dumped to disk")
	return nil
}

// Export dumps the database and returns the dump path.
func (b *Backend) Export() (string, error) {
	if b.cfg.DumpPath == "" {
		return "", fmt.Errorf("sqlite storage has no dump path")
	}
	if err := b.Dump(); err != nil {
		return "", err
	}
	return b.cfg.DumpPath, nil
}

// restore copies every row of an existing dump into the in-memory database.
func (b *Backend) restore() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	if _, err := os.Stat(b.cfg.DumpPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	src, err := database.OpenSQLite(b.cfg.DumpPath)
	if err != nil {
		return fmt.Errorf("opening dump: %w", err)
	}
	defer func() {
		if sqlDB, err := src.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	if !src.Migrator().HasTable(&model.Annotation{}) {
		return nil
	}

	var rows []model.Annotation
	if err := src.Order("id").Find(&rows).Error; err != nil {
		return fmt.Errorf("reading dump: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := b.db.CreateInBatches(&rows, 100).Error; err != nil {
		return fmt.Errorf("restoring dump: %w", err)
	}

	b.log.Info().Int("count", len(rows)).Str("path", b.cfg.DumpPath).Msg("Restored annotations")
	return nil
}

func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error().Err(err).Msg("Error dumping to disk")
			}
		}
	}
}
