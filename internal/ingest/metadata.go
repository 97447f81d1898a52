package ingest

// ColumnMetadata summarizes one cleaned column.
type ColumnMetadata struct {
	Name        string     `json:"name" yaml:"name"`
	Kind        ColumnKind `json:"type" yaml:"type"`
	NullCount   int        `json:"null_count" yaml:"null_count"`
	UniqueCount int        `json:"unique_count" yaml:"unique_count"`
}

// DatasetMetadata describes the structure of a cleaned table.
type DatasetMetadata struct {
	Filename              string             `json:"filename" yaml:"filename"`
	RecordsCount          int                `json:"records_count" yaml:"records_count"`
	ColumnsCount          int                `json:"columns_count" yaml:"columns_count"`
	Columns               []ColumnMetadata   `json:"columns" yaml:"columns"`
	SizeBytes             int64              `json:"size_bytes" yaml:"size_bytes"`
	SizeMB                float64            `json:"file_size_mb" yaml:"file_size_mb"`
	DataTypes             map[ColumnKind]int `json:"data_types" yaml:"data_types"`
	MissingDataPercentage float64            `json:"missing_data_percentage" yaml:"missing_data_percentage"`
}

// GenerateMetadata computes DatasetMetadata for t. It never fails; on an
// internal error the outcome is Defaulted with metadata carrying only the
// filename.
func GenerateMetadata(t *CleanTable, filename string) Outcome[DatasetMetadata] {
	fallback := DatasetMetadata{
		Filename:  filename,
		Columns:   []ColumnMetadata{},
		DataTypes: map[ColumnKind]int{},
	}
	return guard(fallback, func() (DatasetMetadata, error) {
		profiles := profileColumns(t)
		md := DatasetMetadata{
			Filename:              filename,
			RecordsCount:          t.NumRows(),
			ColumnsCount:          t.NumColumns(),
			Columns:               make([]ColumnMetadata, len(t.Columns)),
			DataTypes:             map[ColumnKind]int{},
			MissingDataPercentage: round2(missingPercentage(t, profiles)),
		}
		for i, col := range t.Columns {
			md.Columns[i] = ColumnMetadata{
				Name:        col.Name,
				Kind:        col.Kind,
				NullCount:   profiles[i].nulls,
				UniqueCount: profiles[i].distinct,
			}
			md.DataTypes[col.Kind]++
		}
		md.SizeBytes = approxSize(t)
		md.SizeMB = round2(float64(md.SizeBytes) / 1024 / 1024)
		return md, nil
	})
}

// approxSize estimates the in-memory footprint of t: eight bytes per scalar,
// a string header plus contents per text cell, and the column names.
func approxSize(t *CleanTable) int64 {
	var n int64
	for _, col := range t.Columns {
		n += 16 + int64(len(col.Name))
	}
	for _, row := range t.Rows {
		for _, c := range row {
			n += c.approxBytes()
		}
	}
	return n
}
