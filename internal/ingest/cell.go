package ingest

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CellKind tags the variant held by a Cell.
type CellKind uint8

const (
	CellNull CellKind = iota
	CellNumber
	CellText
	CellBool
)

func (k CellKind) String() string {
	switch k {
	case CellNumber:
		return "number"
	case CellText:
		return "text"
	case CellBool:
		return "bool"
	default:
		return "null"
	}
}

// Cell is a single table value: null, a number, a piece of text or a boolean.
// The zero value is null.
type Cell struct {
	kind CellKind
	num  float64
	text string
	flag bool
}

// NullCell returns the null cell.
func NullCell() Cell { return Cell{} }

// RecordedNullCell returns a null that the source spelled out, such as a JSON
// null. It counts as missing data like any null but does not make its row or
// column empty.
func RecordedNullCell() Cell { return Cell{flag: true} }

// NumberCell returns a numeric cell. NaN and infinities are not representable
// and collapse to null.
func NumberCell(f float64) Cell {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Cell{}
	}
	return Cell{kind: CellNumber, num: f}
}

// TextCell returns a text cell holding s verbatim.
func TextCell(s string) Cell { return Cell{kind: CellText, text: s} }

// BoolCell returns a boolean cell.
func BoolCell(b bool) Cell { return Cell{kind: CellBool, flag: b} }

// Kind reports which variant the cell holds.
func (c Cell) Kind() CellKind { return c.kind }

// IsNull reports whether the cell is null.
func (c Cell) IsNull() bool { return c.kind == CellNull }

// IsEmpty reports whether the cell carries no information: an absent value,
// or text that is blank after trimming. Recorded nulls are not empty.
func (c Cell) IsEmpty() bool {
	switch c.kind {
	case CellNull:
		return !c.flag
	case CellText:
		return strings.TrimSpace(c.text) == ""
	default:
		return false
	}
}

// Float returns the value of a numeric cell.
func (c Cell) Float() (float64, bool) {
	if c.kind != CellNumber {
		return 0, false
	}
	return c.num, true
}

// Text returns the value of a text cell.
func (c Cell) Text() (string, bool) {
	if c.kind != CellText {
		return "", false
	}
	return c.text, true
}

// Bool returns the value of a boolean cell.
func (c Cell) Bool() (bool, bool) {
	if c.kind != CellBool {
		return false, false
	}
	return c.flag, true
}

// AsNumber reinterprets the cell as a number. Numbers pass through, text is
// parsed after trimming, everything else is not numeric.
func (c Cell) AsNumber() (float64, bool) {
	switch c.kind {
	case CellNumber:
		return c.num, true
	case CellText:
		return parseNumeric(c.text)
	default:
		return 0, false
	}
}

// String renders the cell for display. Null renders as the empty string.
func (c Cell) String() string {
	switch c.kind {
	case CellNumber:
		return formatNumber(c.num)
	case CellText:
		return c.text
	case CellBool:
		if c.flag {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// Value returns the cell as a plain Go value (nil, float64, string or bool).
func (c Cell) Value() any {
	switch c.kind {
	case CellNumber:
		return c.num
	case CellText:
		return c.text
	case CellBool:
		return c.flag
	default:
		return nil
	}
}

// key identifies the cell for distinct and duplicate counting. Keys of
// different variants never compare equal.
func (c Cell) key() string {
	switch c.kind {
	case CellNumber:
		f := c.num
		if f == 0 {
			f = 0 // fold -0
		}
		return "n" + strconv.FormatFloat(f, 'g', -1, 64)
	case CellText:
		return "s" + c.text
	case CellBool:
		if c.flag {
			return "b1"
		}
		return "b0"
	default:
		return "z"
	}
}

// approxBytes estimates the in-memory footprint of the cell.
func (c Cell) approxBytes() int64 {
	if c.kind == CellText {
		return 16 + int64(len(c.text))
	}
	return 8
}

func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value())
}

func (c Cell) MarshalYAML() (any, error) {
	return c.Value(), nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
