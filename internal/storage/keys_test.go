package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildExportKey(t *testing.T) {
	date := time.Date(2024, 3, 5, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "exports/2024-03-05/exp0abc.xml", BuildExportKey(date, "exp0abc"))
}

func TestBuildUploadKey(t *testing.T) {
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		dir      string
		filename string
		expected string
	}{
		{"route dir", "xml", "import.xml", "xml/2024-03-05/imp1-import.xml"},
		{"nested dir", "/archive/xml/", "offers.xml", "archive/xml/2024-03-05/imp1-offers.xml"},
		{"empty dir", "", "import.xml", "uploads/2024-03-05/imp1-import.xml"},
		{"traversal dir", "../..", "import.xml", "uploads/2024-03-05/imp1-import.xml"},
		{"path in filename", "zip", "data/in/bundle.zip", "zip/2024-03-05/imp1-bundle.zip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildUploadKey(tt.dir, date, "imp1", tt.filename))
		})
	}
}
