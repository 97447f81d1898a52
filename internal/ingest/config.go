package ingest

import (
	"path"
	"strings"
)

const (
	DefaultMaxFileSizeBytes = 50 * 1024 * 1024
	DefaultMaxRecords       = 1_000_000
	DefaultPreviewRows      = 5
)

// DefaultAllowedExtensions lists the extensions accepted when none are configured.
var DefaultAllowedExtensions = []string{".csv", ".xlsx", ".xls", ".json"}

// Config bounds a pipeline run. It is passed explicitly to every entry point;
// the package keeps no global settings.
type Config struct {
	MaxFileSizeBytes  int64
	AllowedExtensions []string // lowercase, with leading dot
	MaxRecords        int
	StrictValidation  bool
}

// DefaultConfig returns the limits used by the hosted service.
func DefaultConfig() Config {
	return Config{
		MaxFileSizeBytes:  DefaultMaxFileSizeBytes,
		AllowedExtensions: append([]string(nil), DefaultAllowedExtensions...),
		MaxRecords:        DefaultMaxRecords,
		StrictValidation:  true,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxFileSizeBytes <= 0 {
		c.MaxFileSizeBytes = d.MaxFileSizeBytes
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = d.AllowedExtensions
	}
	if c.MaxRecords <= 0 {
		c.MaxRecords = d.MaxRecords
	}
	return c
}

func (c Config) allows(ext string) bool {
	for _, a := range c.AllowedExtensions {
		if strings.EqualFold(normalizeExt(a), ext) {
			return true
		}
	}
	return false
}

// Extension returns the lowercase extension of filename including the dot,
// or "" when there is none.
func Extension(filename string) string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
}

// FormatForExtension maps an extension to the parser that reads it.
func FormatForExtension(ext string) (Format, bool) {
	switch normalizeExt(ext) {
	case ".csv":
		return FormatCSV, true
	case ".xlsx", ".xls":
		return FormatXLSX, true
	case ".json":
		return FormatJSON, true
	default:
		return "", false
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
