package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const sniffSampleBytes = 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidateDelimiters are tried in preference order when sniffing text.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// decodeText checks that content is UTF-8 and strips a leading byte order mark.
func decodeText(content []byte) ([]byte, error) {
	if !utf8.Valid(content) {
		return nil, errInvalidUTF8
	}
	return bytes.TrimPrefix(content, utf8BOM), nil
}

// sniffDelimiter picks the delimiter that splits the first kilobyte of text
// into the most columns with the same width on every line. It reports false
// when no candidate yields at least two consistent columns.
func sniffDelimiter(text []byte) (rune, bool) {
	sample := text
	truncated := false
	if len(sample) > sniffSampleBytes {
		sample = sample[:sniffSampleBytes]
		for i := 0; i < utf8.UTFMax && len(sample) > 0 && !utf8.Valid(sample); i++ {
			sample = sample[:len(sample)-1]
		}
		truncated = true
	}

	var best rune
	bestFields := 1
	for _, d := range candidateDelimiters {
		if n, ok := consistentWidth(sample, d, truncated); ok && n > bestFields {
			best, bestFields = d, n
		}
	}
	return best, best != 0
}

func consistentWidth(sample []byte, delim rune, truncated bool) (int, bool) {
	r := csv.NewReader(bytes.NewReader(sample))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var widths []int
	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		widths = append(widths, len(rec))
	}
	// The last record of a cut sample is usually partial.
	if truncated && len(widths) > 1 {
		widths = widths[:len(widths)-1]
	}
	if len(widths) == 0 || widths[0] < 2 {
		return 0, false
	}
	for _, w := range widths[1:] {
		if w != widths[0] {
			return 0, false
		}
	}
	return widths[0], true
}

// sniff runs the cheap structural check for the format implied by ext.
func sniff(content []byte, ext string, cfg Config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	format, ok := FormatForExtension(ext)
	if !ok {
		return fmt.Errorf("no reader for file type %s", ext)
	}
	switch format {
	case FormatCSV:
		return sniffCSV(content, cfg.StrictValidation)
	case FormatXLSX:
		return sniffXLSX(content)
	case FormatJSON:
		return sniffJSON(content)
	}
	return nil
}

func sniffCSV(content []byte, strict bool) error {
	text, err := decodeText(content)
	if err != nil {
		return err
	}
	if _, ok := sniffDelimiter(text); !ok && strict {
		return errNoDelimiter
	}
	return nil
}

func sniffXLSX(content []byte) error {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return errors.New("workbook has no sheets")
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	defer func() { _ = rows.Close() }()

	if rows.Next() {
		if _, err := rows.Columns(); err != nil {
			return fmt.Errorf("read first row: %w", err)
		}
	}
	return rows.Error()
}

func sniffJSON(content []byte) error {
	text, err := decodeText(content)
	if err != nil {
		return err
	}
	var v json.RawMessage
	return json.Unmarshal(text, &v)
}
