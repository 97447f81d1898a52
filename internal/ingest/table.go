package ingest

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Format identifies a supported file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// RawTable is the literal structure read from a file. Column names may repeat
// or be blank; every row has exactly len(Columns) cells.
type RawTable struct {
	Format    Format
	Columns   []string
	Rows      [][]Cell
	Truncated bool // rows beyond the configured maximum were dropped
}

// NumRows returns the number of data rows.
func (t *RawTable) NumRows() int { return len(t.Rows) }

// ColumnKind is the inferred scalar kind of a cleaned column.
type ColumnKind string

const (
	KindNumeric ColumnKind = "numeric"
	KindText    ColumnKind = "text"
	KindBoolean ColumnKind = "boolean"
)

// Column describes one cleaned column.
type Column struct {
	Name string     `json:"name" yaml:"name"`
	Kind ColumnKind `json:"kind" yaml:"kind"`
}

// CleanTable is the normalized table every derived artifact is computed from.
// Column names are unique and rows are positional, aligned with Columns.
type CleanTable struct {
	Columns []Column
	Rows    [][]Cell
}

// NumRows returns the number of rows.
func (t *CleanTable) NumRows() int { return len(t.Rows) }

// NumColumns returns the number of columns.
func (t *CleanTable) NumColumns() int { return len(t.Columns) }

// ColumnNames returns the column names in order.
func (t *CleanTable) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnValues returns the cells of column i, top to bottom.
func (t *CleanTable) ColumnValues(i int) []Cell {
	out := make([]Cell, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// Record returns row i keyed by column name.
func (t *CleanTable) Record(i int) Record {
	return Record{columns: t.ColumnNames(), cells: t.Rows[i]}
}

// Records returns every row keyed by column name.
func (t *CleanTable) Records() []Record {
	names := t.ColumnNames()
	out := make([]Record, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = Record{columns: names, cells: row}
	}
	return out
}

// Raw converts the table back into a RawTable so it can be cleaned again.
func (t *CleanTable) Raw() *RawTable {
	rows := make([][]Cell, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = append([]Cell(nil), row...)
	}
	return &RawTable{Columns: t.ColumnNames(), Rows: rows}
}

// Record is a row keyed by column name. It marshals as an object whose keys
// keep the table's column order.
type Record struct {
	columns []string
	cells   []Cell
}

// Get returns the cell stored under name.
func (r Record) Get(name string) (Cell, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.cells[i], true
		}
	}
	return Cell{}, false
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.columns) }

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := r.cells[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r Record) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i, name := range r.columns {
		var k, v yaml.Node
		if err := k.Encode(name); err != nil {
			return nil, err
		}
		if err := v.Encode(r.cells[i].Value()); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &k, &v)
	}
	return node, nil
}
