package ingest

import (
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
)

const topValuesLimit = 5

// columnProfile holds the per-column counts shared by metadata and scoring.
type columnProfile struct {
	nulls    int
	distinct int
}

func profileColumns(t *CleanTable) []columnProfile {
	profiles := make([]columnProfile, len(t.Columns))
	for i := range t.Columns {
		seen := make(map[string]struct{})
		for _, row := range t.Rows {
			c := row[i]
			if c.IsNull() {
				profiles[i].nulls++
				continue
			}
			seen[c.key()] = struct{}{}
		}
		profiles[i].distinct = len(seen)
	}
	return profiles
}

// missingPercentage returns nulls / (rows * columns) * 100, unrounded.
func missingPercentage(t *CleanTable, profiles []columnProfile) float64 {
	cells := t.NumRows() * t.NumColumns()
	if cells == 0 {
		return 0
	}
	nulls := 0
	for _, p := range profiles {
		nulls += p.nulls
	}
	return float64(nulls) / float64(cells) * 100
}

// duplicateRows counts rows identical to an earlier row.
func duplicateRows(t *CleanTable) int {
	seen := make(map[string]struct{}, len(t.Rows))
	dups := 0
	var b strings.Builder
	for _, row := range t.Rows {
		b.Reset()
		for _, c := range row {
			k := c.key()
			b.WriteString(strconv.Itoa(len(k)))
			b.WriteByte(':')
			b.WriteString(k)
		}
		key := b.String()
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// ColumnSummary holds descriptive statistics for one column. Numeric columns
// fill the moment and quantile fields; text and boolean columns fill the
// frequency fields.
type ColumnSummary struct {
	Name   string     `json:"name" yaml:"name"`
	Kind   ColumnKind `json:"kind" yaml:"kind"`
	Count  int        `json:"count" yaml:"count"`
	Unique int        `json:"unique" yaml:"unique"`

	Mean   *float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Std    *float64 `json:"std,omitempty" yaml:"std,omitempty"`
	Min    *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Q25    *float64 `json:"25%,omitempty" yaml:"25%,omitempty"`
	Median *float64 `json:"50%,omitempty" yaml:"50%,omitempty"`
	Q75    *float64 `json:"75%,omitempty" yaml:"75%,omitempty"`
	Max    *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	Top       *string      `json:"top,omitempty" yaml:"top,omitempty"`
	Freq      *int         `json:"freq,omitempty" yaml:"freq,omitempty"`
	TopValues []ValueCount `json:"top_values,omitempty" yaml:"top_values,omitempty"`
}

func summarizeColumn(t *CleanTable, i int) ColumnSummary {
	col := t.Columns[i]
	s := ColumnSummary{Name: col.Name, Kind: col.Kind}
	if col.Kind == KindNumeric {
		describeNumeric(&s, t.ColumnValues(i))
	} else {
		describeCategorical(&s, t.ColumnValues(i))
	}
	return s
}

func describeNumeric(s *ColumnSummary, cells []Cell) {
	values := make([]float64, 0, len(cells))
	distinct := make(map[string]struct{})
	for _, c := range cells {
		if f, ok := c.Float(); ok {
			values = append(values, f)
			distinct[c.key()] = struct{}{}
		}
	}
	s.Count = len(values)
	s.Unique = len(distinct)
	if len(values) == 0 {
		return
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	s.Mean = &mean
	if len(values) > 1 {
		ss := 0.0
		for _, v := range values {
			ss += (v - mean) * (v - mean)
		}
		std := math.Sqrt(ss / float64(len(values)-1))
		s.Std = &std
	}

	slices.Sort(values)
	lo, hi := values[0], values[len(values)-1]
	q25, q50, q75 := quantile(values, 0.25), quantile(values, 0.5), quantile(values, 0.75)
	s.Min, s.Max = &lo, &hi
	s.Q25, s.Median, s.Q75 = &q25, &q50, &q75
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func describeCategorical(s *ColumnSummary, cells []Cell) {
	type entry struct {
		value string
		count int
	}
	byKey := make(map[string]*entry)
	var order []*entry
	for _, c := range cells {
		if c.IsNull() {
			continue
		}
		s.Count++
		k := c.key()
		e, ok := byKey[k]
		if !ok {
			e = &entry{value: c.String()}
			byKey[k] = e
			order = append(order, e)
		}
		e.count++
	}
	s.Unique = len(order)
	if len(order) == 0 {
		return
	}

	// Stable so ties keep first-appearance order.
	sort.SliceStable(order, func(a, b int) bool {
		return order[a].count > order[b].count
	})
	top, freq := order[0].value, order[0].count
	s.Top, s.Freq = &top, &freq
	n := min(topValuesLimit, len(order))
	s.TopValues = make([]ValueCount, n)
	for j := 0; j < n; j++ {
		s.TopValues[j] = ValueCount{Value: order[j].value, Count: order[j].count}
	}
}
