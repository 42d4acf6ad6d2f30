package storage

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// BuildExportKey builds the key of an exported order document
func BuildExportKey(date time.Time, runID string) string {
	return fmt.Sprintf("exports/%s/%s.xml", date.Format("2006-01-02"), runID)
}

// BuildUploadKey builds the key of an archived upload under its route directory
func BuildUploadKey(dir string, date time.Time, runID, filename string) string {
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" {
		dir = "uploads"
	}
	return fmt.Sprintf("%s/%s/%s-%s", dir, date.Format("2006-01-02"), runID, path.Base(filename))
}
