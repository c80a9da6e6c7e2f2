package extension

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/NotesGenerator/extension/internal/config"
	"github.com/NotesGenerator/extension/internal/database"
	"github.com/NotesGenerator/extension/internal/logging"
	"github.com/NotesGenerator/extension/internal/storage"
	gormstorage "github.com/NotesGenerator/extension/internal/storage/gorm"
	"github.com/NotesGenerator/extension/internal/storage/memory"
	sqlitestorage "github.com/NotesGenerator/extension/internal/storage/sqlite"
	wsstorage "github.com/NotesGenerator/extension/internal/storage/websocket"
)

// Storage backend types accepted in storage.type.
const (
	StorageMemory    = "memory"
	StorageSQLite    = "sqlite"
	StoragePostgres  = "postgres"
	StorageWebSocket = "websocket"
)

// backendEnv is what the storage factory needs besides the config.
type backendEnv struct {
	dir      string
	version  string
	level    string
	logFile  io.Writer
	logger   *slog.Logger
	dbSuffix string
}

// resolve makes relative output directories relative to the add-on directory.
func (env backendEnv) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(env.dir, path)
}

func newBackend(cfg config.StorageConfig, env backendEnv) (storage.Backend, error) {
	switch cfg.Type {
	case StoragePostgres:
		db, err := database.OpenPostgres(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		env.logger.Info("Postgres storage backend initialized", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		return gormstorage.New(db, logging.NewZerolog(env.logFile, env.level, "postgres")), nil

	case StorageSQLite:
		outputDir := env.resolve(cfg.SQLite.OutputDir)
		var dumpPath string
		if outputDir != "" {
			dumpPath = filepath.Join(outputDir, sqlitestorage.DumpFileName)
		}
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			Name:         "notesgen" + env.dbSuffix,
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
		}, logging.NewZerolog(env.logFile, env.level, "sqlite"))
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		env.logger.Info("SQLite storage backend initialized", "dumpPath", dumpPath)
		return backend, nil

	case StorageWebSocket:
		wsCfg := wsstorage.ConfigFrom(cfg.WebSocket, env.version)
		env.logger.Info("WebSocket storage backend initialized", "url", wsCfg.URL)
		return wsstorage.New(wsCfg, env.logger), nil

	default:
		if cfg.Type != StorageMemory && cfg.Type != "" {
			env.logger.Warn("Unknown storage type, using memory", "type", cfg.Type)
		}
		memCfg := cfg.Memory
		memCfg.OutputDir = env.resolve(memCfg.OutputDir)
		env.logger.Info("Memory storage backend initialized", "outputDir", memCfg.OutputDir)
		return memory.New(memCfg, env.version), nil
	}
}
