package ingest

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first sheet of a workbook. The first non-blank row is
// the header; cells are read as raw values so numbers keep full precision.
func ParseXLSX(content []byte, cfg Config) (*RawTable, error) {
	cfg = cfg.withDefaults()
	fail := func(err error) (*RawTable, error) {
		return nil, &ParseError{Format: FormatXLSX, Err: err}
	}

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return fail(fmt.Errorf("open workbook: %w", err))
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fail(errors.New("workbook has no sheets"))
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return fail(fmt.Errorf("read sheet %q: %w", sheets[0], err))
	}
	defer func() { _ = rows.Close() }()

	var t *RawTable
	line := 0
	for rows.Next() {
		line++
		fields, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return fail(fmt.Errorf("row %d: %w", line, err))
		}
		if t == nil {
			if allBlank(fields) {
				continue
			}
			t = &RawTable{Format: FormatXLSX, Columns: headerNames(fields)}
			continue
		}
		if len(t.Rows) == cfg.MaxRecords {
			t.Truncated = true
			break
		}
		row, err := shapeRow(fields, len(t.Columns), cfg.StrictValidation, line)
		if err != nil {
			return fail(err)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Error(); err != nil {
		return fail(err)
	}
	if t == nil {
		return fail(errNoHeader)
	}
	return t, nil
}
