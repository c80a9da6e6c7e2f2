// Package monitor periodically reports the extension status to a status
// file and, when configured, to InfluxDB.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/NotesGenerator/extension/internal/influx"
	"github.com/NotesGenerator/extension/internal/logging"
	"github.com/NotesGenerator/extension/internal/session"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementStatus is the influx measurement of status reports.
const MeasurementStatus = "extension_status"

// Source is the part of the placement service the monitor reads.
type Source interface {
	SceneName() string
	OperatorState() session.State
	AnnotationCount() int
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Source      Source
	LogManager  *logging.SlogManager
	Influx      *influx.Manager
	StorageType string
	// StatusPath is rewritten on every report; empty disables the file.
	StatusPath string
	Interval   time.Duration
}

// Status is one report.
type Status struct {
	Time         time.Time     `json:"time"`
	Scene        string        `json:"scene"`
	Operator     session.State `json:"operator"`
	Annotations  int           `json:"annotations"`
	Storage      string        `json:"storage"`
	InfluxOnline bool          `json:"influxOnline"`
	Goroutines   int           `json:"goroutines"`
	HeapAllocMB  float64       `json:"heapAllocMb"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	now       func() time.Time
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	return &Service{deps: deps, now: time.Now}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status returns the current status.
func (s *Service) Status() Status {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	st := Status{
		Time:        s.now().UTC(),
		Storage:     s.deps.StorageType,
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(mem.HeapAlloc) / (1 << 20),
	}
	if s.deps.Source != nil {
		st.Scene = s.deps.Source.SceneName()
		st.Operator = s.deps.Source.OperatorState()
		st.Annotations = s.deps.Source.AnnotationCount()
	}
	if s.deps.Influx != nil {
		st.InfluxOnline = s.deps.Influx.Online()
	}
	return st
}

// StatusPoint converts st into an influx point.
func StatusPoint(st Status) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		MeasurementStatus,
		map[string]string{"scene": st.Scene, "storage": st.Storage},
		map[string]any{
			"annotations":   st.Annotations,
			"operator":      string(st.Operator),
			"goroutines":    st.Goroutines,
			"heap_alloc_mb": st.HeapAllocMB,
		},
		st.Time,
	)
}

// Report writes one status report.
func (s *Service) Report() error {
	st := s.Status()

	if s.deps.StatusPath != "" {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding status: %w", err)
		}
		if err := os.WriteFile(s.deps.StatusPath, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("writing status file: %w", err)
		}
	}
	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(StatusPoint(st)); err != nil {
			return fmt.Errorf("writing status point: %w", err)
		}
	}
	return nil
}

func (s *Service) logError(msg string, err error) {
	if s.deps.LogManager != nil {
		s.deps.LogManager.Logger().Error(msg, "error", err)
	}
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go func(stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.Report(); err != nil {
					s.logError("Status report failed", err)
				}
			}
		}
	}(s.stopChan, s.done)
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
