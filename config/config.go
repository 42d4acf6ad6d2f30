package config

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CML_EXCHANGE_UPLOAD_ROOT
const EnvPrefix = "CML"

// Config holds the application configuration
type Config struct {
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Uploads   UploadsConfig   `mapstructure:"uploads"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ExchangeConfig holds the document format settings
type ExchangeConfig struct {
	UploadRoot        string `mapstructure:"upload_root"`
	MajorVersion      int    `mapstructure:"major_version"`
	MinorVersion      int    `mapstructure:"minor_version"`
	SchemaVersion     string `mapstructure:"schema_version"`
	Encoding          string `mapstructure:"encoding"`
	DispatchUnits     bool   `mapstructure:"dispatch_units"`
	OrderFieldsMode   string `mapstructure:"order_fields_mode"`
	DeleteAfterImport bool   `mapstructure:"delete_after_import"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type     string `mapstructure:"type"`
	BasePath string `mapstructure:"base_path"`
}

// UploadRoute tells where a file of some content type is archived and
// which content type it is stored with
type UploadRoute struct {
	Dir         string `mapstructure:"dir"`
	ContentType string `mapstructure:"content_type"`
}

// UploadsConfig maps content types to upload routes. Default serves every
// content type without a route of its own.
type UploadsConfig struct {
	Default UploadRoute            `mapstructure:"default"`
	Routes  map[string]UploadRoute `mapstructure:"routes"`
}

// Route returns the route for contentType. Parameters such as charset are
// ignored; unknown or malformed content types get the default route.
func (u UploadsConfig) Route(contentType string) UploadRoute {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		if route, ok := u.Routes[strings.ToLower(mediaType)]; ok {
			if route.ContentType == "" {
				route.ContentType = mediaType
			}
			if route.Dir == "" {
				route.Dir = u.Default.Dir
			}
			return route
		}
	}
	return u.Default
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// TelemetryConfig holds OpenTelemetry exporter configuration
type TelemetryConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Endpoint       string        `mapstructure:"endpoint"`
	Insecure       bool          `mapstructure:"insecure"`
	ServiceName    string        `mapstructure:"service_name"`
	ExportInterval time.Duration `mapstructure:"export_interval"`
}

var globalConfig *Config

// Load loads the configuration from defaults, file, .env and environment
// variables, in increasing order of precedence
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// .env is optional
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// loadEnvFile loads the first .env file found. Variables already set in the
// environment win.
func loadEnvFile() error {
	for _, dir := range []string{".", "./config"} {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		return nil
	}
	return errors.New("no .env file found")
}

// bindEnvVars binds short environment names kept for compatibility
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("exchange.upload_root", "CML_UPLOAD_ROOT")
	v.BindEnv("storage.base_path", "CML_STORAGE_PATH")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.service_name", "OTEL_SERVICE_NAME")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Exchange defaults
	v.SetDefault("exchange.upload_root", "./data/uploads")
	v.SetDefault("exchange.major_version", 2)
	v.SetDefault("exchange.minor_version", 1)
	v.SetDefault("exchange.schema_version", "2.05")
	v.SetDefault("exchange.encoding", "windows-1251")
	v.SetDefault("exchange.dispatch_units", false)
	v.SetDefault("exchange.order_fields_mode", "per-order")
	v.SetDefault("exchange.delete_after_import", false)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_path", "./data/exchange")

	// Upload routes
	v.SetDefault("uploads.default.dir", "uploads")
	v.SetDefault("uploads.default.content_type", "application/octet-stream")
	v.SetDefault("uploads.routes", map[string]any{
		"application/xml": map[string]any{"dir": "xml", "content_type": "application/xml"},
		"text/xml":        map[string]any{"dir": "xml", "content_type": "application/xml"},
		"application/zip": map[string]any{"dir": "zip", "content_type": "application/zip"},
	})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.no_color", false)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "cml-exchange")
	v.SetDefault("telemetry.export_interval", 30*time.Second)
}

// Get returns the configuration of the last successful Load
func Get() *Config {
	return globalConfig
}
