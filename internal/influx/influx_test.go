package influx

import (
	"bufio"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NotesGenerator/extension/internal/config"
	"github.com/NotesGenerator/extension/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unavailableServer answers every request with 503 so Ping fails.
func unavailableServer(t *testing.T) config.InfluxConfig {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return config.InfluxConfig{
		Enabled:  true,
		Protocol: u.Scheme,
		Host:     u.Hostname(),
		Port:     u.Port(),
		Org:      "notesgen",
		Bucket:   "annotations",
	}
}

func readBackup(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var lines []string
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.Online())
	assert.NoError(t, m.Close())
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	err := m.WritePoint(influxdb2_write.NewPointWithMeasurement("x"))
	assert.Error(t, err)
}

func TestConnect_OfflineWritesBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(unavailableServer(t), zerolog.Nop(), backup)

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.Online())

	lon, lat := 15.0, 0.0
	a := core.Annotation{
		Name:       "Annotation",
		SceneName:  "Bridge",
		Unit:       core.UnitCentimeter,
		Scaled:     core.Dimensions{Length: 0.01, Thickness: 0.0005, LabelSize: 0.002},
		Origin:     mgl64.Vec3{1, 2, 3},
		Appearance: core.AppearanceSpec{Strength: 1},
		Longitude:  &lon,
		Latitude:   &lat,
		CreatedAt:  time.Unix(1700000000, 0),
	}
	require.NoError(t, m.RecordPlacement(a))
	require.NoError(t, m.Close())

	lines := readBackup(t, backup)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.True(t, strings.HasPrefix(line, MeasurementPlacement+",scene=Bridge,unit=CM "), line)
	assert.Contains(t, line, "lon=15")
	assert.Contains(t, line, `name="Annotation"`)
	assert.True(t, strings.HasSuffix(line, " 1700000000000000000"), line)
}

func TestParseMetric(t *testing.T) {
	p, err := ParseMetric([]string{
		"viewport",
		"tag::scene::Bridge",
		"field::float::fps::59.5",
		"field::int::objects::12",
		"field::string::mode::edit",
		"ignored",
	})
	require.NoError(t, err)

	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	assert.True(t, strings.HasPrefix(line, "viewport,scene=Bridge "), line)
	assert.Contains(t, line, "fps=59.5")
	assert.Contains(t, line, "objects=12i")
	assert.Contains(t, line, `mode="edit"`)
}

func TestParseMetric_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []string
	}{
		{"empty", nil},
		{"no fields", []string{"m", "tag::a::b"}},
		{"bad int", []string{"m", "field::int::n::x"}},
		{"bad float", []string{"m", "field::float::n::x"}},
		{"unknown type", []string{"m", "field::bool::n::true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMetric(tt.data)
			assert.Error(t, err)
		})
	}
}
