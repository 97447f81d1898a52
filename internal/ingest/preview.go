package ingest

import (
	"math/rand/v2"
	"slices"
)

// PreviewBundle is a small, human-readable view of a cleaned table.
type PreviewBundle struct {
	Head         []Record        `json:"head" yaml:"head"`
	Sample       []Record        `json:"sample" yaml:"sample"`
	SummaryStats []ColumnSummary `json:"summary_stats" yaml:"summary_stats"`
}

func emptyPreview() PreviewBundle {
	return PreviewBundle{Head: []Record{}, Sample: []Record{}, SummaryStats: []ColumnSummary{}}
}

// GeneratePreview returns the first rows of t, a random sample of the same
// size when t has more rows than that, and per-column summary statistics.
// rng drives the sample; nil uses a randomly seeded source. It never fails.
func GeneratePreview(t *CleanTable, rows int, rng *rand.Rand) Outcome[PreviewBundle] {
	if rows <= 0 {
		rows = DefaultPreviewRows
	}
	if rng == nil {
		rng = newRand()
	}
	return guard(emptyPreview(), func() (PreviewBundle, error) {
		p := emptyPreview()
		n := t.NumRows()

		for i := 0; i < min(rows, n); i++ {
			p.Head = append(p.Head, t.Record(i))
		}
		if n > rows {
			for _, i := range sampleIndexes(rng, n, rows) {
				p.Sample = append(p.Sample, t.Record(i))
			}
		}
		if n > 0 {
			for i := range t.Columns {
				p.SummaryStats = append(p.SummaryStats, summarizeColumn(t, i))
			}
		}
		return p, nil
	})
}

// sampleIndexes draws k distinct indexes from [0, n) uniformly (Floyd's
// algorithm) and returns them in ascending order.
func sampleIndexes(rng *rand.Rand, n, k int) []int {
	chosen := make(map[int]struct{}, k)
	out := make([]int, 0, k)
	for j := n - k; j < n; j++ {
		v := rng.IntN(j + 1)
		if _, dup := chosen[v]; dup {
			v = j
		}
		chosen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
