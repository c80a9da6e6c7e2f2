// Package extension wires the extension together: config, logging,
// telemetry, storage and the host command handlers. The host registers one
// Extension when the add-on is enabled and unregisters it when disabled.
package extension

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NotesGenerator/extension/internal/api"
	"github.com/NotesGenerator/extension/internal/cache"
	"github.com/NotesGenerator/extension/internal/config"
	"github.com/NotesGenerator/extension/internal/dispatcher"
	"github.com/NotesGenerator/extension/internal/handlers"
	"github.com/NotesGenerator/extension/internal/influx"
	"github.com/NotesGenerator/extension/internal/logging"
	"github.com/NotesGenerator/extension/internal/monitor"
	intOtel "github.com/NotesGenerator/extension/internal/otel"
	"github.com/NotesGenerator/extension/internal/properties"
	"github.com/NotesGenerator/extension/internal/scene"
	"github.com/NotesGenerator/extension/internal/storage"
	"github.com/NotesGenerator/extension/pkg/hostapi"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Name prefixes log files and names the OTel service.
const Name = "notesgen"

// CmdStatus answers with the current monitor status.
const CmdStatus = ":STATUS:"

// StatusFileName is written to the logs directory by the monitor.
const StatusFileName = "status.json"

// Options configures Register.
type Options struct {
	// Dir is the add-on directory holding notesgen.cfg.json. Relative paths
	// in the config are resolved against it.
	Dir     string
	Version string
	// Now is the session clock, time.Now when nil.
	Now func() time.Time
}

// Extension is one registered instance of the add-on.
type Extension struct {
	opts         Options
	sessionStart time.Time

	logManager  *logging.SlogManager
	logger      *slog.Logger
	logFile     *os.File
	logFilePath string
	provider    *intOtel.Provider
	gelfCloser  io.Closer

	backend    storage.Backend
	influx     *influx.Manager
	dispatcher *dispatcher.Dispatcher
	service    atomic.Pointer[handlers.Service]
	bridge     *hostapi.Bridge
	monitor    *monitor.Service

	closeOnce sync.Once
	closeErr  error
}

// Register loads the config and brings up every component. On error the
// components started so far are shut down again.
func Register(ctx context.Context, opts Options) (*Extension, error) {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	e := &Extension{opts: opts, sessionStart: opts.Now()}

	cfgErr := config.Load(opts.Dir)

	if err := e.setupLogging(); err != nil {
		e.shutdown(ctx)
		return nil, err
	}
	if cfgErr != nil {
		e.logger.Warn("Failed to load config, using defaults!", "error", cfgErr)
	} else {
		e.logger.Info("Loaded config", "dir", opts.Dir)
	}

	if err := e.setupStorage(); err != nil {
		e.shutdown(ctx)
		return nil, err
	}
	e.setupInflux(ctx)

	if err := e.setupHandlers(); err != nil {
		e.shutdown(ctx)
		return nil, err
	}

	e.logger.Info("Extension registered", "version", opts.Version, "commands", len(e.dispatcher.Commands()))
	return e, nil
}

func (e *Extension) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.opts.Dir, path)
}

func (e *Extension) setupLogging() error {
	logsDir := e.resolve(config.GetString("logsDir"))
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	e.logFilePath = logging.LogFilePath(logsDir, Name, e.sessionStart)
	if _, err := os.Stat(e.logFilePath); err == nil {
		_ = os.Rename(e.logFilePath, e.logFilePath+".old")
	}
	file, err := os.OpenFile(e.logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	e.logFile = file

	level := config.GetString("logLevel")
	e.logManager = logging.NewSlogManager()

	var otelErr error
	e.provider, otelErr = intOtel.New(intOtel.ConfigFrom(config.GetOTelConfig(), file))
	var logProvider *sdklog.LoggerProvider
	if otelErr == nil {
		logProvider = e.provider.LoggerProvider()
	} else {
		e.provider = nil
	}

	var extra []slog.Handler
	var gelfErr error
	if gl := config.GetGraylogConfig(); gl.Enabled {
		var h slog.Handler
		h, e.gelfCloser, gelfErr = logging.NewGelfHandler(gl.Address, Name, level)
		if gelfErr == nil {
			extra = append(extra, h)
		}
	}

	e.logManager.Configure(logging.Options{
		File:     file,
		Level:    level,
		Provider: logProvider,
		Extra:    extra,
		Context:  e.logContext,
	})
	e.logger = e.logManager.Logger()
	e.logger.Info("Logging to file", "path", e.logFilePath)

	if otelErr != nil {
		e.logger.Error("Failed to initialize OTel provider", "error", otelErr)
	} else if e.provider.Enabled() {
		e.logger.Info("OTel provider initialized", "endpoint", config.GetOTelConfig().Endpoint)
	}
	if gelfErr != nil {
		e.logger.Error("Failed to connect Graylog sink", "error", gelfErr)
	}
	return nil
}

// logContext adds the scene and the operator state to every log record.
func (e *Extension) logContext() []slog.Attr {
	svc := e.service.Load()
	if svc == nil {
		return nil
	}
	return []slog.Attr{
		slog.String("scene", svc.SceneName()),
		slog.String("operator", string(svc.Operator().State())),
	}
}

func (e *Extension) setupStorage() error {
	cfg := config.GetStorageConfig()
	backend, err := newBackend(cfg, backendEnv{
		dir:      e.opts.Dir,
		version:  e.opts.Version,
		level:    config.GetString("logLevel"),
		logFile:  e.logFile,
		logger:   e.logger,
		dbSuffix: "_" + e.sessionStart.Format("20060102_150405.000000"),
	})
	if err != nil {
		e.logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(); err != nil {
		e.logger.Error("Failed to initialize storage backend", "type", cfg.Type, "error", err)
		_ = backend.Close()
		return fmt.Errorf("initializing %s storage: %w", cfg.Type, err)
	}
	e.backend = backend
	return nil
}

// setupInflux connects the optional placement metrics. Failures only
// disable metrics.
func (e *Extension) setupInflux(ctx context.Context) {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return
	}
	backupPath := filepath.Join(filepath.Dir(e.logFilePath),
		fmt.Sprintf("%s_influx_%s.gz", Name, e.sessionStart.Format("20060102_150405")))
	m := influx.NewManager(cfg, logging.NewZerolog(e.logFile, config.GetString("logLevel"), "influx"), backupPath)
	if err := m.Connect(ctx); err != nil {
		e.logger.Error("Failed to set up InfluxDB", "error", err)
		_ = m.Close()
		return
	}
	e.influx = m
}

func (e *Extension) setupHandlers() error {
	zl := logging.NewZerolog(e.logFile, config.GetString("logLevel"), "dispatcher")
	d, err := dispatcher.New(logging.NewDispatcherLogger(zl))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	e.dispatcher = d

	deps := handlers.Dependencies{
		Props:            properties.NewStore(properties.FromConfig(config.GetAnnotationConfig())),
		Scene:            scene.NewContextFromConfig(config.GetGeorefConfig()),
		Cache:            cache.NewAnnotationCache(),
		Backend:          e.backend,
		Influx:           e.influx,
		LogManager:       e.logManager,
		ExtensionVersion: e.opts.Version,
	}
	apiCfg := config.GetAPIConfig()
	if up := e.newUploader(apiCfg); up != nil {
		deps.Uploader = up
		deps.UploadTag = apiCfg.Tag
	}
	if e.provider != nil {
		deps.Meter = e.provider.Meter(handlers.InstrumentationName)
	}
	svc, err := handlers.NewService(deps)
	if err != nil {
		return err
	}
	if err := svc.Reload(); err != nil {
		e.logger.Warn("Failed to load stored annotations", "error", err)
	}
	svc.Register(d)
	e.service.Store(svc)

	monCfg := config.GetMonitorConfig()
	e.monitor = monitor.NewService(monitor.Dependencies{
		Source:      svc,
		LogManager:  e.logManager,
		Influx:      e.influx,
		StorageType: config.GetStorageConfig().Type,
		StatusPath:  filepath.Join(filepath.Dir(e.logFilePath), StatusFileName),
		Interval:    monCfg.Interval,
	})
	d.Register(CmdStatus, func(dispatcher.Event) (any, error) {
		return e.monitor.Status(), nil
	})
	if monCfg.Enabled {
		e.monitor.Start()
	}

	e.bridge = hostapi.NewBridge(d)
	return nil
}

// newUploader returns the export upload client, or nil when no server is
// configured. Reachability is only logged.
func (e *Extension) newUploader(cfg config.APIConfig) handlers.Uploader {
	if cfg.ServerURL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := api.New(cfg.ServerURL, cfg.APIKey, timeout)
	go func(logger *slog.Logger) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := client.Healthcheck(ctx); err != nil {
			logger.Warn("Upload server is not reachable", "url", cfg.ServerURL, "error", err)
			return
		}
		logger.Info("Upload server is reachable", "url", cfg.ServerURL)
	}(e.logger)
	return client
}

// Call answers one host call with a JSON reply.
func (e *Extension) Call(command string, args []string) string {
	return e.bridge.Call(command, args)
}

// Service returns the placement service.
func (e *Extension) Service() *handlers.Service {
	return e.service.Load()
}

// Backend returns the storage backend in use.
func (e *Extension) Backend() storage.Backend {
	return e.backend
}

// LogFilePath returns the session log file.
func (e *Extension) LogFilePath() string {
	return e.logFilePath
}

// Unregister cancels a pending placement and shuts every component down.
// Calling it again returns the first result.
func (e *Extension) Unregister(ctx context.Context) error {
	e.closeOnce.Do(func() {
		e.closeErr = e.shutdown(ctx)
	})
	return e.closeErr
}

func (e *Extension) shutdown(ctx context.Context) error {
	var errs []error
	if svc := e.service.Load(); svc != nil {
		svc.Operator().Abort(nil)
	}
	if e.monitor != nil {
		e.monitor.Stop()
	}
	if e.dispatcher != nil {
		if err := e.dispatcher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing dispatcher: %w", err))
		}
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing storage: %w", err))
		}
	}
	if e.influx != nil {
		if err := e.influx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing influx: %w", err))
		}
	}
	if e.logger != nil {
		e.logger.Info("Extension unregistered")
	}
	if e.provider != nil {
		if err := e.provider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if e.gelfCloser != nil {
		if err := e.gelfCloser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing graylog writer: %w", err))
		}
	}
	if e.logFile != nil {
		if err := e.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing log file: %w", err))
		}
	}
	return errors.Join(errs...)
}
