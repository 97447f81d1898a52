package ingest

import (
	"fmt"
	"strings"
)

// Parse reads content as format. Rows beyond cfg.MaxRecords are dropped and
// the table is marked Truncated.
func Parse(content []byte, format Format, cfg Config) (*RawTable, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(content, cfg)
	case FormatXLSX:
		return ParseXLSX(content, cfg)
	case FormatJSON:
		return ParseJSON(content, cfg)
	default:
		return nil, &ParseError{Format: format, Err: fmt.Errorf("no parser for format %q", format)}
	}
}

// headerNames substitutes a positional name for blank header cells.
func headerNames(fields []string) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		if strings.TrimSpace(f) == "" {
			names[i] = fmt.Sprintf("Unnamed: %d", i)
			continue
		}
		names[i] = f
	}
	return names
}

// fieldCell turns a delimited or spreadsheet field into a cell. Empty fields
// are null; everything else stays text until the cleaner infers types.
func fieldCell(s string) Cell {
	if s == "" {
		return NullCell()
	}
	return TextCell(s)
}

// shapeRow fits fields to the header width. Short rows are padded with
// nulls. Extra non-blank fields are an error in strict mode and are dropped
// otherwise.
func shapeRow(fields []string, width int, strict bool, line int) ([]Cell, error) {
	if len(fields) > width {
		if strict && !allBlank(fields[width:]) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", line, len(fields), width)
		}
		fields = fields[:width]
	}
	row := make([]Cell, width)
	for i, f := range fields {
		row[i] = fieldCell(f)
	}
	return row, nil
}

func allBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
