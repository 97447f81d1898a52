package ingest

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/buger/jsonparser"
)

// ParseJSON accepts a top-level array of objects, an object whose "data" key
// holds such an array, or a single object read as one row. Columns appear in
// the order their keys are first seen. Nested objects and arrays are kept as
// compact JSON text.
func ParseJSON(content []byte, cfg Config) (*RawTable, error) {
	cfg = cfg.withDefaults()
	fail := func(err error) (*RawTable, error) {
		return nil, &ParseError{Format: FormatJSON, Err: err}
	}

	if err := sniffJSON(content); err != nil {
		return fail(err)
	}
	text, _ := decodeText(content)

	value, dataType, _, err := jsonparser.Get(bytes.TrimSpace(text))
	if err != nil {
		return fail(err)
	}

	b := newJSONTableBuilder(cfg.MaxRecords)
	var rowsJSON []byte
	switch dataType {
	case jsonparser.Array:
		rowsJSON = value
	case jsonparser.Object:
		data, dt, _, err := jsonparser.Get(value, "data")
		switch {
		case errors.Is(err, jsonparser.KeyPathNotFoundError):
			if err := b.addObject(value); err != nil {
				return fail(err)
			}
			return b.table(), nil
		case err != nil:
			return fail(err)
		case dt != jsonparser.Array:
			return fail(errUnsupportedJSON)
		}
		rowsJSON = data
	default:
		return fail(errUnsupportedJSON)
	}

	var elemErr error
	_, err = jsonparser.ArrayEach(rowsJSON, func(elem []byte, dt jsonparser.ValueType, _ int, err error) {
		if elemErr != nil {
			return
		}
		if err != nil {
			elemErr = err
			return
		}
		if dt != jsonparser.Object {
			elemErr = errUnsupportedJSON
			return
		}
		elemErr = b.addObject(elem)
	})
	if err == nil {
		err = elemErr
	}
	if err != nil {
		return fail(err)
	}
	return b.table(), nil
}

type jsonTableBuilder struct {
	index     map[string]int
	columns   []string
	rows      [][]Cell
	max       int
	truncated bool
}

func newJSONTableBuilder(max int) *jsonTableBuilder {
	return &jsonTableBuilder{index: make(map[string]int), max: max}
}

func (b *jsonTableBuilder) addObject(obj []byte) error {
	if len(b.rows) == b.max {
		b.truncated = true
		return nil
	}
	row := make([]Cell, len(b.columns))
	err := jsonparser.ObjectEach(obj, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
		name, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		cell, err := jsonCell(value, dt)
		if err != nil {
			return err
		}
		i, ok := b.index[name]
		if !ok {
			i = len(b.columns)
			b.index[name] = i
			b.columns = append(b.columns, name)
		}
		for len(row) <= i {
			row = append(row, NullCell())
		}
		row[i] = cell
		return nil
	})
	if err != nil {
		return err
	}
	b.rows = append(b.rows, row)
	return nil
}

func (b *jsonTableBuilder) table() *RawTable {
	width := len(b.columns)
	for i, row := range b.rows {
		for len(row) < width {
			row = append(row, NullCell())
		}
		b.rows[i] = row
	}
	return &RawTable{
		Format:    FormatJSON,
		Columns:   headerNames(b.columns),
		Rows:      b.rows,
		Truncated: b.truncated,
	}
}

func jsonCell(value []byte, dt jsonparser.ValueType) (Cell, error) {
	switch dt {
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		return TextCell(s), err
	case jsonparser.Number:
		f, err := jsonparser.ParseFloat(value)
		if err != nil {
			// Out of float64 range; keep the literal.
			return TextCell(string(value)), nil
		}
		return NumberCell(f), nil
	case jsonparser.Boolean:
		v, err := jsonparser.ParseBoolean(value)
		return BoolCell(v), err
	case jsonparser.Object, jsonparser.Array:
		var buf bytes.Buffer
		if err := json.Compact(&buf, value); err != nil {
			return Cell{}, err
		}
		return TextCell(buf.String()), nil
	case jsonparser.Null:
		return RecordedNullCell(), nil
	default:
		return NullCell(), nil
	}
}
