package ingest

// numeric.go holds the string-to-number rules shared by the cleaner, the type
// optimizer and the quality scorer.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex accepts integers, decimals and scientific notation with an
// optional sign. Thousands separators and currency symbols are rejected.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// nonPriceChars matches everything that is not a digit or a dot.
var nonPriceChars = regexp.MustCompile(`[^\d.]`)

// parseNumeric parses s as a finite number after trimming whitespace.
func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parsePrice strips every character except digits and dots, then parses what
// is left. "$15,000" becomes 15000; a leading minus sign is dropped with the
// rest of the noise.
func parsePrice(c Cell) Cell {
	var raw string
	switch c.Kind() {
	case CellNumber:
		raw = formatNumber(c.num)
	case CellText:
		raw = c.text
	case CellNull:
		return c
	default:
		return voided(c)
	}
	f, ok := parseNumeric(nonPriceChars.ReplaceAllString(raw, ""))
	if !ok {
		return voided(c)
	}
	return NumberCell(f)
}

// parseYear returns the cell as a whole year in [minYear, maxYear], or null.
func parseYear(c Cell, minYear, maxYear int) Cell {
	if c.IsNull() {
		return c
	}
	f, ok := c.AsNumber()
	if !ok || f != math.Trunc(f) {
		return voided(c)
	}
	if f < float64(minYear) || f > float64(maxYear) {
		return voided(c)
	}
	return NumberCell(f)
}

// voided is the null that replaces c when c cannot be coerced. A cell that
// held a value becomes a recorded null so a later pass does not mistake the
// row or column for one that never had data.
func voided(c Cell) Cell {
	if c.IsEmpty() {
		return NullCell()
	}
	return RecordedNullCell()
}

// round2 rounds half away from zero to two decimal places.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
