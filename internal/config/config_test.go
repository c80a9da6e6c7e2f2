package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"annotation": { "text": "Crack", "unit": "CM" },
		"storage": { "postgres": { "host": "10.0.0.1", "port": "5433" } }
	}`)

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "Crack", viper.GetString("annotation.text"))
	assert.Equal(t, "CM", viper.GetString("annotation.unit"))
	assert.Equal(t, "10.0.0.1", viper.GetString("storage.postgres.host"))
	assert.Equal(t, "5433", viper.GetString("storage.postgres.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./notesgen_logs", viper.GetString("logsDir"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, "./annotations", viper.GetString("storage.memory.outputDir"))
	assert.Equal(t, true, viper.GetBool("storage.memory.compressOutput"))
	assert.Equal(t, "3m", viper.GetString("storage.sqlite.dumpInterval"))
	assert.Equal(t, "notesgen", viper.GetString("storage.postgres.database"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "annotations", viper.GetString("influx.bucket"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "notesgen", viper.GetString("otel.serviceName"))
	assert.Equal(t, "5s", viper.GetString("otel.batchTimeout"))
	assert.Equal(t, true, viper.GetBool("otel.insecure"))
	assert.Equal(t, false, viper.GetBool("georef.enabled"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)

	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetAnnotationConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := GetAnnotationConfig()
	assert.Equal(t, "Annotation", cfg.Text)
	assert.Equal(t, "M", cfg.Unit)
	assert.Equal(t, 1.0, cfg.Length)
	assert.Equal(t, 0.05, cfg.Thickness)
	assert.Equal(t, 0.2, cfg.TextSize)
	assert.Equal(t, 0.1, cfg.TextDistance)
	assert.Equal(t, []float64{1, 1, 1, 1}, cfg.Color)
	assert.Equal(t, 1.0, cfg.EmissionStrength)
	assert.Equal(t, 16, cfg.Segments)
}

func TestGetAnnotationConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"annotation": {
			"length": 2.5,
			"color": [1, 0, 0, 0.5],
			"segments": 32
		}
	}`)))

	cfg := GetAnnotationConfig()
	assert.Equal(t, 2.5, cfg.Length)
	assert.Equal(t, []float64{1, 0, 0, 0.5}, cfg.Color)
	assert.Equal(t, 32, cfg.Segments)
	assert.Equal(t, "Annotation", cfg.Text, "keys absent from the file keep their defaults")
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./annotations", cfg.Memory.OutputDir)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, 5*time.Second, cfg.WebSocket.AckTimeout)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.ReconnectMax)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false },
			"sqlite": { "dumpInterval": "10m" },
			"websocket": { "url": "ws://viewer:8080/stream" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, false, sc.Memory.CompressOutput)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "ws://viewer:8080/stream", sc.WebSocket.URL)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4318",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4318", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetInfluxConfig_URL(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	ic := GetInfluxConfig()
	assert.Equal(t, "http://localhost:8086", ic.URL())
	assert.Equal(t, "notesgen", ic.Org)
}

func TestGetGraylogAndGeorefConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"graylog": { "enabled": true, "address": "gelf:12201" },
		"georef": { "enabled": true, "epsg": 32633, "originX": 500000, "originY": 5800000 }
	}`)))

	gc := GetGraylogConfig()
	assert.True(t, gc.Enabled)
	assert.Equal(t, "gelf:12201", gc.Address)

	geo := GetGeorefConfig()
	assert.True(t, geo.Enabled)
	assert.Equal(t, 32633, geo.EPSG)
	assert.Equal(t, 500000.0, geo.OriginX)
	assert.Equal(t, 5800000.0, geo.OriginY)
	assert.Equal(t, 0.0, geo.OriginZ)
}

func TestFloatSlice(t *testing.T) {
	assert.Equal(t, []float64{1, 2}, floatSlice([]float64{1, 2}))
	assert.Equal(t, []float64{0.5, 1}, floatSlice([]any{0.5, 1.0}))
	assert.Nil(t, floatSlice([]any{"x"}))
	assert.Nil(t, floatSlice("nope"))
}

func TestGetAPIAndMonitorConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	api := GetAPIConfig()
	assert.Empty(t, api.ServerURL)
	assert.Equal(t, 30*time.Second, api.Timeout)

	mon := GetMonitorConfig()
	assert.True(t, mon.Enabled)
	assert.Equal(t, 10*time.Second, mon.Interval)

	dir := writeConfig(t, `{
		"api": { "serverUrl": "https://viewer.example", "apiKey": "k", "tag": "survey" },
		"monitor": { "enabled": false, "interval": "1m" }
	}`)
	require.NoError(t, Load(dir))

	api = GetAPIConfig()
	assert.Equal(t, "https://viewer.example", api.ServerURL)
	assert.Equal(t, "k", api.APIKey)
	assert.Equal(t, "survey", api.Tag)

	mon = GetMonitorConfig()
	assert.False(t, mon.Enabled)
	assert.Equal(t, time.Minute, mon.Interval)
}
