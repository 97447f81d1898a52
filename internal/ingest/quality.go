package ingest

import "math"

// DefaultQualityScore is reported when the score cannot be computed.
const DefaultQualityScore = 50.0

const (
	missingWeight   = 0.5
	duplicateWeight = 0.3
	varietyWeight   = 20.0
	varietyCap      = 10.0
	mixedPenalty    = 5.0
	mixedLow        = 0.1
	mixedHigh       = 0.9
)

// ScoreBreakdown shows how a quality score was assembled.
type ScoreBreakdown struct {
	Rows                int      `json:"rows" yaml:"rows"`
	MissingPercentage   float64  `json:"missing_percentage" yaml:"missing_percentage"`
	DuplicateRows       int      `json:"duplicate_rows" yaml:"duplicate_rows"`
	DuplicatePercentage float64  `json:"duplicate_percentage" yaml:"duplicate_percentage"`
	AverageUniqueRatio  float64  `json:"average_unique_ratio" yaml:"average_unique_ratio"`
	MissingPenalty      float64  `json:"missing_penalty" yaml:"missing_penalty"`
	DuplicatePenalty    float64  `json:"duplicate_penalty" yaml:"duplicate_penalty"`
	VarietyBonus        float64  `json:"variety_bonus" yaml:"variety_bonus"`
	MixedTypeColumns    []string `json:"mixed_type_columns" yaml:"mixed_type_columns"`
	MixedTypePenalty    float64  `json:"mixed_type_penalty" yaml:"mixed_type_penalty"`
	Score               float64  `json:"score" yaml:"score"`
}

// AnalyzeQuality computes the quality score of t term by term. An empty table
// scores exactly 0 and no terms are evaluated.
func AnalyzeQuality(t *CleanTable) ScoreBreakdown {
	b := ScoreBreakdown{Rows: t.NumRows(), MixedTypeColumns: []string{}}
	if b.Rows == 0 {
		return b
	}
	rows := float64(b.Rows)

	profiles := profileColumns(t)
	b.MissingPercentage = missingPercentage(t, profiles)
	b.MissingPenalty = b.MissingPercentage * missingWeight

	b.DuplicateRows = duplicateRows(t)
	b.DuplicatePercentage = float64(b.DuplicateRows) / rows * 100
	b.DuplicatePenalty = b.DuplicatePercentage * duplicateWeight

	if len(profiles) > 0 {
		sum := 0.0
		for _, p := range profiles {
			sum += float64(p.distinct) / rows
		}
		b.AverageUniqueRatio = sum / float64(len(profiles))
	}
	b.VarietyBonus = math.Min(b.AverageUniqueRatio*varietyWeight, varietyCap)

	for i, col := range t.Columns {
		if col.Kind == KindText && mixedType(t, i) {
			b.MixedTypeColumns = append(b.MixedTypeColumns, col.Name)
		}
	}
	b.MixedTypePenalty = float64(len(b.MixedTypeColumns)) * mixedPenalty

	score := 100 - b.MissingPenalty - b.DuplicatePenalty + b.VarietyBonus - b.MixedTypePenalty
	b.Score = round2(math.Max(0, math.Min(100, score)))
	return b
}

// QualityScore returns the 0-100 quality score of t, or DefaultQualityScore
// as a Defaulted outcome if scoring fails.
func QualityScore(t *CleanTable) Outcome[float64] {
	return guard(DefaultQualityScore, func() (float64, error) {
		return AnalyzeQuality(t).Score, nil
	})
}

// mixedType reports whether the share of non-null cells in column i that
// read as numbers lies strictly between mixedLow and mixedHigh.
func mixedType(t *CleanTable, i int) bool {
	nonNull, numeric := 0, 0
	for _, row := range t.Rows {
		c := row[i]
		if c.IsNull() {
			continue
		}
		nonNull++
		if _, ok := c.AsNumber(); ok {
			numeric++
		}
	}
	if nonNull == 0 {
		return false
	}
	ratio := float64(numeric) / float64(nonNull)
	return ratio > mixedLow && ratio < mixedHigh
}
