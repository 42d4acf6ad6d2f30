package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./data/uploads", cfg.Exchange.UploadRoot)
	assert.Equal(t, 2, cfg.Exchange.MajorVersion)
	assert.Equal(t, 1, cfg.Exchange.MinorVersion)
	assert.Equal(t, "2.05", cfg.Exchange.SchemaVersion)
	assert.Equal(t, "windows-1251", cfg.Exchange.Encoding)
	assert.False(t, cfg.Exchange.DispatchUnits)
	assert.Equal(t, "per-order", cfg.Exchange.OrderFieldsMode)
	assert.False(t, cfg.Exchange.DeleteAfterImport)

	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "./data/exchange", cfg.Storage.BasePath)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Telemetry.ExportInterval)

	assert.Same(t, cfg, Get())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exchange.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
exchange:
  encoding: utf-8
  dispatch_units: true
  order_fields_mode: per-item
storage:
  base_path: /var/lib/cml
uploads:
  routes:
    image/png:
      dir: images
`), 0644))

	t.Setenv("CML_EXCHANGE_SCHEMA_VERSION", "2.08")
	t.Setenv("CML_UPLOAD_ROOT", "/srv/uploads")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "utf-8", cfg.Exchange.Encoding)
	assert.True(t, cfg.Exchange.DispatchUnits)
	assert.Equal(t, "per-item", cfg.Exchange.OrderFieldsMode)
	assert.Equal(t, "/var/lib/cml", cfg.Storage.BasePath)
	assert.Equal(t, "2.08", cfg.Exchange.SchemaVersion)
	assert.Equal(t, "/srv/uploads", cfg.Exchange.UploadRoot)
	assert.Equal(t, "debug", cfg.Logging.Level)

	route := cfg.Uploads.Route("image/png")
	assert.Equal(t, "images", route.Dir)
	assert.Equal(t, "image/png", route.ContentType)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestUploadsRoute(t *testing.T) {
	uploads := UploadsConfig{
		Default: UploadRoute{Dir: "uploads", ContentType: "application/octet-stream"},
		Routes: map[string]UploadRoute{
			"application/xml": {Dir: "xml", ContentType: "application/xml"},
			"text/xml":        {Dir: "xml", ContentType: "application/xml"},
			"application/zip": {Dir: "zip"},
			"image/jpeg":      {ContentType: "image/jpeg"},
		},
	}

	tests := []struct {
		contentType string
		expected    UploadRoute
	}{
		{"application/xml", UploadRoute{Dir: "xml", ContentType: "application/xml"}},
		{"text/xml; charset=windows-1251", UploadRoute{Dir: "xml", ContentType: "application/xml"}},
		{"Application/XML", UploadRoute{Dir: "xml", ContentType: "application/xml"}},
		{"application/zip", UploadRoute{Dir: "zip", ContentType: "application/zip"}},
		{"image/jpeg", UploadRoute{Dir: "uploads", ContentType: "image/jpeg"}},
		{"application/pdf", UploadRoute{Dir: "uploads", ContentType: "application/octet-stream"}},
		{"", UploadRoute{Dir: "uploads", ContentType: "application/octet-stream"}},
		{"not a media type", UploadRoute{Dir: "uploads", ContentType: "application/octet-stream"}},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.expected, uploads.Route(tt.contentType))
		})
	}
}
