package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
)

// ParseCSV reads UTF-8 delimited text whose first record is the header. The
// delimiter is sniffed from the first kilobyte. Strict mode rejects ragged
// rows and stray quotes; lenient mode pads or trims rows and falls back to a
// comma when no delimiter can be sniffed.
func ParseCSV(content []byte, cfg Config) (*RawTable, error) {
	cfg = cfg.withDefaults()
	fail := func(err error) (*RawTable, error) {
		return nil, &ParseError{Format: FormatCSV, Err: err}
	}

	text, err := decodeText(content)
	if err != nil {
		return fail(err)
	}

	if len(bytes.TrimSpace(text)) == 0 {
		return fail(errNoHeader)
	}

	delim, ok := sniffDelimiter(text)
	if !ok {
		if cfg.StrictValidation {
			return fail(errNoDelimiter)
		}
		delim = ','
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = delim
	if cfg.StrictValidation {
		r.FieldsPerRecord = 0
	} else {
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
	}

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return fail(errNoHeader)
	}
	if err != nil {
		return fail(err)
	}

	t := &RawTable{Format: FormatCSV, Columns: headerNames(header)}
	width := len(t.Columns)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(err)
		}
		if len(t.Rows) == cfg.MaxRecords {
			t.Truncated = true
			break
		}
		line, _ := r.FieldPos(0)
		row, err := shapeRow(rec, width, cfg.StrictValidation, line)
		if err != nil {
			return fail(err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
