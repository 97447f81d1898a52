package ingest

import (
	"bytes"
	"fmt"
	"strings"
)

// ValidationResult is the file validator's verdict. A failed validation is a
// normal outcome and is reported here, never as an error.
type ValidationResult struct {
	Valid    bool     `json:"valid" yaml:"valid"`
	Errors   []string `json:"errors" yaml:"errors"`
	Warnings []string `json:"warnings" yaml:"warnings"`
}

// Err returns the result as a *ValidationError, or nil when it passed.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Errors: append([]string(nil), r.Errors...)}
}

// ValidateFile checks size, extension, emptiness and format before any
// parsing happens. Every check runs so all problems are reported together.
func ValidateFile(content []byte, filename string, cfg Config) ValidationResult {
	cfg = cfg.withDefaults()
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}

	size := int64(len(content))
	if size > cfg.MaxFileSizeBytes {
		res.Errors = append(res.Errors, fmt.Sprintf("file size (%d bytes) exceeds maximum (%d bytes)", size, cfg.MaxFileSizeBytes))
	}

	ext := Extension(filename)
	allowed := cfg.allows(ext)
	if !allowed {
		shown := ext
		if shown == "" {
			shown = "(none)"
		}
		res.Errors = append(res.Errors, fmt.Sprintf("file type %s not allowed (allowed: %s)", shown, strings.Join(cfg.AllowedExtensions, ", ")))
	}

	if size == 0 {
		res.Errors = append(res.Errors, "file is empty")
	}

	if allowed && size > 0 {
		if err := sniff(content, ext, cfg); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("file format validation failed: %v", err))
		}
	}

	if bytes.HasPrefix(content, utf8BOM) {
		res.Warnings = append(res.Warnings, "file starts with a UTF-8 byte order mark")
	}
	if size <= cfg.MaxFileSizeBytes && size*10 >= cfg.MaxFileSizeBytes*9 {
		res.Warnings = append(res.Warnings, "file size is within 10% of the maximum")
	}

	res.Valid = len(res.Errors) == 0
	return res
}
