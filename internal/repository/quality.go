package repository

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// QualityBand counts datasets whose quality score falls in one range.
type QualityBand struct {
	Range string `json:"range"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// QualityStats is the quality score distribution across all datasets.
type QualityStats struct {
	Datasets     int           `json:"datasets"`
	AverageScore float64       `json:"average_quality_score"`
	Distribution []QualityBand `json:"quality_distribution"`
}

// qualityBands run from best to worst. A band covers scores from its floor
// up to, but not including, the floor of the band above it.
var qualityBands = []struct {
	label, rng string
	floor      float64
}{
	{"Excellent", "90-100", 90},
	{"Good", "80-89", 80},
	{"Fair", "70-79", 70},
	{"Poor", "60-69", 60},
	{"Very Poor", "0-59", 0},
}

// qualityQuery is valid in both PostgreSQL and SQLite.
var qualityQuery = func() string {
	var b strings.Builder
	b.WriteString("SELECT COUNT(*), CAST(COALESCE(AVG(quality_score), 0) AS DOUBLE PRECISION)")
	for i, band := range qualityBands {
		var cond string
		switch i {
		case 0:
			cond = fmt.Sprintf("quality_score >= %g", band.floor)
		case len(qualityBands) - 1:
			cond = fmt.Sprintf("quality_score < %g", qualityBands[i-1].floor)
		default:
			cond = fmt.Sprintf("quality_score >= %g AND quality_score < %g", band.floor, qualityBands[i-1].floor)
		}
		fmt.Fprintf(&b, ",\n\tCOALESCE(SUM(CASE WHEN %s THEN 1 ELSE 0 END), 0)", cond)
	}
	b.WriteString("\nFROM datasets")
	return b.String()
}()

// scanQuality reads one row of qualityQuery.
func scanQuality(scan func(dest ...any) error) (QualityStats, error) {
	var (
		total  int64
		avg    float64
		counts = make([]int64, len(qualityBands))
	)
	dest := []any{&total, &avg}
	for i := range counts {
		dest = append(dest, &counts[i])
	}
	if err := scan(dest...); err != nil {
		return QualityStats{}, fmt.Errorf("quality metrics: %w", err)
	}

	stats := QualityStats{
		Datasets:     int(total),
		AverageScore: math.Round(avg*100) / 100,
		Distribution: make([]QualityBand, len(qualityBands)),
	}
	for i, band := range qualityBands {
		stats.Distribution[i] = QualityBand{Range: band.rng, Label: band.label, Count: int(counts[i])}
	}
	return stats, nil
}

func (s *SQLite) QualityMetrics(ctx context.Context) (QualityStats, error) {
	return scanQuality(s.db.QueryRowContext(ctx, qualityQuery).Scan)
}

func (p *Postgres) QualityMetrics(ctx context.Context) (QualityStats, error) {
	return scanQuality(p.pool.QueryRow(ctx, qualityQuery).Scan)
}
