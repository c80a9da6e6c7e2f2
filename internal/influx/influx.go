// Package influx sends placement metrics to InfluxDB. When the server cannot
// be reached points are appended to a gzip line-protocol backup file instead.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/NotesGenerator/extension/internal/config"
	"github.com/NotesGenerator/extension/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// ErrDisabled is returned by Connect when influx is switched off in the config.
var ErrDisabled = errors.New("influx is disabled")

// MeasurementPlacement is the measurement written for every placed annotation.
const MeasurementPlacement = "annotation_placed"

// Manager handles the InfluxDB connection and writes.
type Manager struct {
	cfg        config.InfluxConfig
	log        zerolog.Logger
	backupPath string

	mu           sync.Mutex
	client       influxdb2.Client
	writer       influxdb2_api.WriteAPI
	backupFile   *os.File
	backupWriter *gzip.Writer
	valid        bool
}

// NewManager creates a manager. backupPath receives points while offline.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{cfg: cfg, log: log, backupPath: backupPath}
}

// Online reports whether points go to the server rather than the backup file.
func (m *Manager) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// Connect pings the server and prepares the bucket, or falls back to the backup file.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(100).
			SetFlushInterval(1000),
	)

	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.valid = false
		if m.backupWriter == nil {
			m.log.Info().Str("backupPath", m.backupPath).
				Msg("Failed to reach InfluxDB, writing to backup file")

			file, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %w", err)
			}
			m.backupFile = file
			m.backupWriter = gzip.NewWriter(file)
		}
		return nil
	}

	if err := m.ensureBucket(ctx); err != nil {
		return err
	}

	m.writer = m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.log.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).Msg("Error sending data to InfluxDB")
		}
	}(m.writer.Errors())

	m.valid = true
	m.log.Info().Str("url", m.cfg.URL()).Msg("InfluxDB client initialized")
	return nil
}

// ensureBucket creates the organization and the bucket when missing, with a
// 90 day retention.
func (m *Manager) ensureBucket(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.log.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("creating organization %s: %w", m.cfg.Org, err)
		}
	}

	buckets := m.client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, m.cfg.Bucket); err == nil {
		return nil
	}

	m.log.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	_, err = buckets.CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: 60 * 60 * 24 * 90,
	})
	if err != nil {
		return fmt.Errorf("creating bucket %s: %w", m.cfg.Bucket, err)
	}
	return nil
}

// WritePoint sends a point to the server or appends it to the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		m.writer.WritePoint(point)
		return nil
	}
	if m.backupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// PlacementPoint describes a placed annotation as a point.
func PlacementPoint(a core.Annotation) *influxdb2_write.Point {
	ts := a.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	p := influxdb2_write.NewPoint(MeasurementPlacement,
		map[string]string{
			"scene": a.SceneName,
			"unit":  string(a.Unit),
		},
		map[string]any{
			"name":      a.Name,
			"length":    a.Scaled.Length,
			"thickness": a.Scaled.Thickness,
			"text_size": a.Scaled.LabelSize,
			"strength":  a.Appearance.Strength,
			"x":         a.Origin.X(),
			"y":         a.Origin.Y(),
			"z":         a.Origin.Z(),
			"oriented":  a.Oriented,
		},
		ts,
	)
	if a.Longitude != nil && a.Latitude != nil {
		p.AddField("lon", *a.Longitude)
		p.AddField("lat", *a.Latitude)
	}
	return p
}

// RecordPlacement writes the point of a placed annotation.
func (m *Manager) RecordPlacement(a core.Annotation) error {
	return m.WritePoint(PlacementPoint(a))
}

// ParseMetric builds a point from host metric arguments: the measurement
// name followed by "tag::name::value" and "field::type::name::value" items,
// where type is string, int or float.
func ParseMetric(data []string) (*influxdb2_write.Point, error) {
	if len(data) == 0 || data[0] == "" {
		return nil, errors.New("metric needs a measurement name")
	}
	point := influxdb2_write.NewPointWithMeasurement(data[0])

	fields := 0
	for _, item := range data[1:] {
		parts := strings.Split(item, "::")
		switch {
		case parts[0] == "tag" && len(parts) >= 3:
			point.AddTag(parts[1], parts[2])
		case parts[0] == "field" && len(parts) >= 4:
			value, err := fieldValue(parts[1], parts[3])
			if err != nil {
				return nil, err
			}
			point.AddField(parts[2], value)
			fields++
		}
	}
	if fields == 0 {
		return nil, fmt.Errorf("metric %s has no fields", data[0])
	}
	return point, nil
}

func fieldValue(kind, raw string) (any, error) {
	switch kind {
	case "string":
		return raw, nil
	case "int":
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("error converting field value '%s' to int: %w", raw, err)
		}
		return v, nil
	case "float":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("error converting field value '%s' to float: %w", raw, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown field type %q", kind)
	}
}

// Close flushes pending points and closes the backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writer != nil {
		m.writer.Flush()
	}
	if m.client != nil {
		m.client.Close()
	}

	var errs []error
	if m.backupWriter != nil {
		errs = append(errs, m.backupWriter.Close())
		m.backupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	m.valid = false
	return errors.Join(errs...)
}
