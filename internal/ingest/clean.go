package ingest

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	minPlausibleYear = 1900

	// numericShare is the fraction of non-null cells that must parse as
	// numbers before a text column is converted.
	numericShare = 0.8
)

var (
	priceKeywords = []string{"price"}
	yearKeywords  = []string{"year"}
	titleKeywords = []string{"brand", "model", "condition", "color"}
)

// CleanOptions tunes the cleaner.
type CleanOptions struct {
	// Now supplies the current time for the year plausibility window.
	// Defaults to time.Now.
	Now func() time.Time
}

// Rename records a column name change.
type Rename struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// CleanReport describes what the cleaner changed.
type CleanReport struct {
	RowsDropped    int            `json:"rows_dropped" yaml:"rows_dropped"`
	ColumnsDropped []string       `json:"columns_dropped" yaml:"columns_dropped"`
	Renamed        []Rename       `json:"renamed" yaml:"renamed"`
	Collisions     []Rename       `json:"collisions" yaml:"collisions"`
	Classification Classification `json:"classification" yaml:"classification"`
	Coerced        []string       `json:"coerced" yaml:"coerced"`
	Optimized      []string       `json:"optimized" yaml:"optimized"`
}

// Clean turns a RawTable into a CleanTable. The steps run in a fixed order:
// drop empty rows, drop empty columns, normalize names, apply car-sales
// coercion when the names classify as car data, then optimize column kinds.
// raw is not modified.
func Clean(raw *RawTable, opts CleanOptions) (*CleanTable, CleanReport) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	report := CleanReport{
		ColumnsDropped: []string{},
		Renamed:        []Rename{},
		Collisions:     []Rename{},
		Coerced:        []string{},
		Optimized:      []string{},
	}

	// 1. Rows with no information.
	rows := make([][]Cell, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		if !rowEmpty(row) {
			rows = append(rows, row)
		}
	}
	report.RowsDropped = len(raw.Rows) - len(rows)

	// 2. Columns with no information in the surviving rows.
	keep := make([]int, 0, len(raw.Columns))
	for c, name := range raw.Columns {
		if columnEmpty(rows, c) {
			report.ColumnsDropped = append(report.ColumnsDropped, name)
			continue
		}
		keep = append(keep, c)
	}

	// 3. Canonical names.
	names := make([]string, len(keep))
	for i, c := range keep {
		names[i] = normalizeName(raw.Columns[c])
		if names[i] != raw.Columns[c] {
			report.Renamed = append(report.Renamed, Rename{From: raw.Columns[c], To: names[i]})
		}
	}
	names, report.Collisions = dedupeNames(names)

	t := &CleanTable{
		Columns: make([]Column, len(keep)),
		Rows:    make([][]Cell, len(rows)),
	}
	for i, name := range names {
		t.Columns[i] = Column{Name: name, Kind: KindText}
	}
	for r, row := range rows {
		out := make([]Cell, len(keep))
		for i, c := range keep {
			out[i] = row[c]
		}
		t.Rows[r] = out
	}

	// 4. Car-sales coercion.
	numericHint := make([]bool, len(names))
	report.Classification = ClassifyColumns(names)
	if report.Classification.IsCarDataset {
		report.Coerced = coerceCarColumns(t, now().Year()+1, numericHint)
	}

	// 5. Kinds.
	for i := range t.Columns {
		kind, converted := optimizeColumn(t, i, numericHint[i])
		t.Columns[i].Kind = kind
		if converted {
			report.Optimized = append(report.Optimized, t.Columns[i].Name)
		}
	}
	return t, report
}

func rowEmpty(row []Cell) bool {
	for _, c := range row {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

func columnEmpty(rows [][]Cell, c int) bool {
	for _, row := range rows {
		if !row[c].IsEmpty() {
			return false
		}
	}
	return true
}

// normalizeName trims, lowercases and replaces spaces and hyphens with
// underscores.
func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}

// dedupeNames makes names unique. The first occurrence of a name keeps it;
// later ones get the smallest "_N" suffix (N >= 2) not used by any column.
func dedupeNames(names []string) ([]string, []Rename) {
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, len(names))
	collisions := []Rename{}
	for i, n := range names {
		if !seen[n] {
			seen[n] = true
			out[i] = n
			continue
		}
		for k := 2; ; k++ {
			candidate := fmt.Sprintf("%s_%d", n, k)
			if !taken[candidate] {
				taken[candidate] = true
				out[i] = candidate
				collisions = append(collisions, Rename{From: n, To: candidate})
				break
			}
		}
	}
	return out, collisions
}

// coerceCarColumns rewrites price, year and descriptive text columns in
// place. A column matching several keyword groups goes through each rule in
// turn: price, then year, then title case. numericHint is set for columns
// whose last rule produced numbers.
func coerceCarColumns(t *CleanTable, maxYear int, numericHint []bool) []string {
	caser := cases.Title(language.Und)
	coerced := []string{}
	for i, col := range t.Columns {
		touched := false
		if containsAny(col.Name, priceKeywords) {
			mapColumn(t, i, parsePrice)
			numericHint[i], touched = true, true
		}
		if containsAny(col.Name, yearKeywords) {
			mapColumn(t, i, func(c Cell) Cell { return parseYear(c, minPlausibleYear, maxYear) })
			numericHint[i], touched = true, true
		}
		if containsAny(col.Name, titleKeywords) {
			mapColumn(t, i, func(c Cell) Cell {
				if c.IsNull() {
					return c
				}
				return TextCell(caser.String(strings.TrimSpace(c.String())))
			})
			numericHint[i], touched = false, true
		}
		if touched {
			coerced = append(coerced, col.Name)
		}
	}
	return coerced
}

func containsAny(name string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}

func mapColumn(t *CleanTable, i int, fn func(Cell) Cell) {
	for _, row := range t.Rows {
		row[i] = fn(row[i])
	}
}

// optimizeColumn infers the kind of column i. Text columns where at least
// numericShare of the non-null cells parse as numbers are converted in place,
// with unparsable cells becoming null.
func optimizeColumn(t *CleanTable, i int, numericHint bool) (ColumnKind, bool) {
	var nonNull, numbers, bools, parsable int
	for _, row := range t.Rows {
		c := row[i]
		switch c.Kind() {
		case CellNull:
			continue
		case CellNumber:
			numbers++
			parsable++
		case CellBool:
			bools++
		case CellText:
			if _, ok := parseNumeric(c.text); ok {
				parsable++
			}
		}
		nonNull++
	}

	switch {
	case nonNull == 0:
		if numericHint {
			return KindNumeric, false
		}
		return KindText, false
	case numbers == nonNull:
		return KindNumeric, false
	case bools == nonNull:
		return KindBoolean, false
	case float64(parsable)/float64(nonNull) >= numericShare:
		mapColumn(t, i, func(c Cell) Cell {
			if f, ok := c.AsNumber(); ok {
				return NumberCell(f)
			}
			if c.IsNull() {
				return c
			}
			return voided(c)
		})
		return KindNumeric, true
	default:
		return KindText, false
	}
}
