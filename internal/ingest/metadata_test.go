package ingest

import (
	"reflect"
	"testing"
)

func TestGenerateMetadata(t *testing.T) {
	tbl := &CleanTable{
		Columns: []Column{{Name: "brand", Kind: KindText}, {Name: "price", Kind: KindNumeric}, {Name: "used", Kind: KindBoolean}},
		Rows: [][]Cell{
			{TextCell("Kia"), NumberCell(100), BoolCell(true)},
			{TextCell("Kia"), NullCell(), BoolCell(false)},
			{TextCell("BMW"), NumberCell(100), NullCell()},
		},
	}
	got := GenerateMetadata(tbl, "cars.csv")
	if got.IsDefaulted() {
		t.Fatalf("GenerateMetadata() defaulted: %v", got.Cause)
	}
	md := got.Value

	if md.Filename != "cars.csv" || md.RecordsCount != 3 || md.ColumnsCount != 3 {
		t.Errorf("header fields = %q %d %d", md.Filename, md.RecordsCount, md.ColumnsCount)
	}
	wantCols := []ColumnMetadata{
		{Name: "brand", Kind: KindText, NullCount: 0, UniqueCount: 2},
		{Name: "price", Kind: KindNumeric, NullCount: 1, UniqueCount: 1},
		{Name: "used", Kind: KindBoolean, NullCount: 1, UniqueCount: 2},
	}
	if !reflect.DeepEqual(md.Columns, wantCols) {
		t.Errorf("Columns = %+v, want %+v", md.Columns, wantCols)
	}
	wantTypes := map[ColumnKind]int{KindText: 1, KindNumeric: 1, KindBoolean: 1}
	if !reflect.DeepEqual(md.DataTypes, wantTypes) {
		t.Errorf("DataTypes = %v, want %v", md.DataTypes, wantTypes)
	}
	// 2 nulls in 9 cells.
	if md.MissingDataPercentage != 22.22 {
		t.Errorf("MissingDataPercentage = %v, want 22.22", md.MissingDataPercentage)
	}
	if md.SizeBytes <= 0 {
		t.Errorf("SizeBytes = %d, want > 0", md.SizeBytes)
	}
}

func TestGenerateMetadata_Deterministic(t *testing.T) {
	tbl, _ := cleanCSV(t, "brand,model,year,price\nKia,Rio,2015,100\nBMW,X5,,200\n")
	a := GenerateMetadata(tbl, "a.csv")
	b := GenerateMetadata(tbl, "a.csv")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("GenerateMetadata() not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestGenerateMetadata_EmptyTable(t *testing.T) {
	md := GenerateMetadata(&CleanTable{}, "empty.json").Value
	if md.RecordsCount != 0 || md.MissingDataPercentage != 0 || len(md.Columns) != 0 {
		t.Errorf("metadata = %+v, want zero counts", md)
	}
}

func TestGenerateMetadata_Degraded(t *testing.T) {
	got := GenerateMetadata(nil, "broken.csv")
	if !got.IsDefaulted() {
		t.Fatal("GenerateMetadata(nil) not defaulted")
	}
	if got.Value.Filename != "broken.csv" || got.Value.Columns == nil {
		t.Errorf("fallback = %+v", got.Value)
	}
}
