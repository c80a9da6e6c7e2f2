package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the add-on directory.
const FileName = "notesgen.cfg.json"

// AnnotationConfig holds the initial values of the annotation form.
type AnnotationConfig struct {
	Text             string    `json:"text" mapstructure:"text"`
	Unit             string    `json:"unit" mapstructure:"unit"`
	Length           float64   `json:"length" mapstructure:"length"`
	Thickness        float64   `json:"thickness" mapstructure:"thickness"`
	TextSize         float64   `json:"textSize" mapstructure:"textSize"`
	TextDistance     float64   `json:"textDistance" mapstructure:"textDistance"`
	Color            []float64 `json:"color" mapstructure:"color"`
	EmissionStrength float64   `json:"emissionStrength" mapstructure:"emissionStrength"`
	Segments         int       `json:"segments" mapstructure:"segments"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings of the in-memory SQLite backend.
type SQLiteConfig struct {
	OutputDir    string        `json:"outputDir" mapstructure:"outputDir"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds connection settings of the gorm backend.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode"`
}

// WebSocketConfig holds settings of the live stream backend.
type WebSocketConfig struct {
	URL          string        `json:"url" mapstructure:"url"`
	Secret       string        `json:"secret" mapstructure:"secret"`
	AckTimeout   time.Duration `json:"ackTimeout" mapstructure:"ackTimeout"`
	ReconnectMax time.Duration `json:"reconnectMax" mapstructure:"reconnectMax"`
}

// StorageConfig selects and configures the annotation storage backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	Postgres  PostgresConfig  `json:"postgres" mapstructure:"postgres"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds InfluxDB metrics settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// URL returns the server URL built from protocol, host and port.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds GELF log sink settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// APIConfig holds the viewer server that annotation exports are uploaded to.
// Uploads are disabled while ServerURL is empty.
type APIConfig struct {
	ServerURL string        `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string        `json:"apiKey" mapstructure:"apiKey"`
	Tag       string        `json:"tag" mapstructure:"tag"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
}

// MonitorConfig holds settings of the periodic status report.
type MonitorConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

// GeorefConfig holds the default georeference of a scene.
// Scene units are metres in the projected CRS given by EPSG.
type GeorefConfig struct {
	Enabled bool    `json:"enabled" mapstructure:"enabled"`
	EPSG    int     `json:"epsg" mapstructure:"epsg"`
	OriginX float64 `json:"originX" mapstructure:"originX"`
	OriginY float64 `json:"originY" mapstructure:"originY"`
	OriginZ float64 `json:"originZ" mapstructure:"originZ"`
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./notesgen_logs")

	viper.SetDefault("annotation.text", "Annotation")
	viper.SetDefault("annotation.unit", "M")
	viper.SetDefault("annotation.length", 1.0)
	viper.SetDefault("annotation.thickness", 0.05)
	viper.SetDefault("annotation.textSize", 0.2)
	viper.SetDefault("annotation.textDistance", 0.1)
	viper.SetDefault("annotation.color", []float64{1, 1, 1, 1})
	viper.SetDefault("annotation.emissionStrength", 1.0)
	viper.SetDefault("annotation.segments", 16)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./annotations")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.outputDir", "./annotations")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "notesgen")
	viper.SetDefault("storage.postgres.sslMode", "disable")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/annotations/stream")
	viper.SetDefault("storage.websocket.secret", "")
	viper.SetDefault("storage.websocket.ackTimeout", "5s")
	viper.SetDefault("storage.websocket.reconnectMax", "30s")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "notesgen")
	viper.SetDefault("influx.bucket", "annotations")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("api.serverUrl", "")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.tag", "")
	viper.SetDefault("api.timeout", "30s")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "10s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "notesgen")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("georef.enabled", false)
	viper.SetDefault("georef.epsg", 25832)
	viper.SetDefault("georef.originX", 0.0)
	viper.SetDefault("georef.originY", 0.0)
	viper.SetDefault("georef.originZ", 0.0)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetAnnotationConfig returns the annotation form defaults.
func GetAnnotationConfig() AnnotationConfig {
	return AnnotationConfig{
		Text:             viper.GetString("annotation.text"),
		Unit:             viper.GetString("annotation.unit"),
		Length:           viper.GetFloat64("annotation.length"),
		Thickness:        viper.GetFloat64("annotation.thickness"),
		TextSize:         viper.GetFloat64("annotation.textSize"),
		TextDistance:     viper.GetFloat64("annotation.textDistance"),
		Color:            floatSlice(viper.Get("annotation.color")),
		EmissionStrength: viper.GetFloat64("annotation.emissionStrength"),
		Segments:         viper.GetInt("annotation.segments"),
	}
}

// floatSlice accepts both typed defaults and decoded JSON arrays.
func floatSlice(v any) []float64 {
	switch s := v.(type) {
	case []float64:
		return append([]float64(nil), s...)
	case []any:
		out := make([]float64, 0, len(s))
		for _, e := range s {
			f, ok := e.(float64)
			if !ok {
				return nil
			}
			out = append(out, f)
		}
		return out
	}
	return nil
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			OutputDir:    viper.GetString("storage.sqlite.outputDir"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
			SSLMode:  viper.GetString("storage.postgres.sslMode"),
		},
		WebSocket: WebSocketConfig{
			URL:          viper.GetString("storage.websocket.url"),
			Secret:       viper.GetString("storage.websocket.secret"),
			AckTimeout:   viper.GetDuration("storage.websocket.ackTimeout"),
			ReconnectMax: viper.GetDuration("storage.websocket.reconnectMax"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the GELF sink configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetGeorefConfig returns the default scene georeference.
func GetGeorefConfig() GeorefConfig {
	return GeorefConfig{
		Enabled: viper.GetBool("georef.enabled"),
		EPSG:    viper.GetInt("georef.epsg"),
		OriginX: viper.GetFloat64("georef.originX"),
		OriginY: viper.GetFloat64("georef.originY"),
		OriginZ: viper.GetFloat64("georef.originZ"),
	}
}

// GetAPIConfig returns the upload server configuration.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
		Tag:       viper.GetString("api.tag"),
		Timeout:   viper.GetDuration("api.timeout"),
	}
}

// GetMonitorConfig returns the status report configuration.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:  viper.GetBool("monitor.enabled"),
		Interval: viper.GetDuration("monitor.interval"),
	}
}
