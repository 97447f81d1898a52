package ingest

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func fixedNow() time.Time { return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC) }

func cleanCSV(t *testing.T, content string) (*CleanTable, CleanReport) {
	t.Helper()
	raw, err := ParseCSV([]byte(content), DefaultConfig())
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	return Clean(raw, CleanOptions{Now: fixedNow})
}

func columnFloats(t *testing.T, tbl *CleanTable, name string) []any {
	t.Helper()
	for i, c := range tbl.Columns {
		if c.Name == name {
			out := make([]any, 0, tbl.NumRows())
			for _, cell := range tbl.ColumnValues(i) {
				out = append(out, cell.Value())
			}
			return out
		}
	}
	t.Fatalf("column %q not found in %v", name, tbl.ColumnNames())
	return nil
}

func TestClean_CarScenario(t *testing.T) {
	tbl, report := cleanCSV(t, "Brand,Model,Year,Price\nToyota,Camry,2020,$15000\nHonda,Accord,1850,14000\n")

	if got := strings.Join(tbl.ColumnNames(), ","); got != "brand,model,year,price" {
		t.Errorf("columns = %s, want brand,model,year,price", got)
	}
	if !report.Classification.IsCarDataset {
		t.Error("Classification.IsCarDataset = false, want true")
	}

	years := columnFloats(t, tbl, "year")
	if years[0] != 2020.0 || years[1] != nil {
		t.Errorf("year = %v, want [2020 <nil>]", years)
	}
	prices := columnFloats(t, tbl, "price")
	if prices[0] != 15000.0 || prices[1] != 14000.0 {
		t.Errorf("price = %v, want [15000 14000]", prices)
	}

	wantKinds := map[string]ColumnKind{"brand": KindText, "model": KindText, "year": KindNumeric, "price": KindNumeric}
	for _, c := range tbl.Columns {
		if c.Kind != wantKinds[c.Name] {
			t.Errorf("kind(%s) = %s, want %s", c.Name, c.Kind, wantKinds[c.Name])
		}
	}
}

func TestClean_DropsEmptyRowsAndColumns(t *testing.T) {
	tbl, report := cleanCSV(t, "a,b,c\n1,,x\n,,\n2, ,y\n")

	if tbl.NumRows() != 2 {
		t.Errorf("NumRows() = %d, want 2", tbl.NumRows())
	}
	if report.RowsDropped != 1 {
		t.Errorf("RowsDropped = %d, want 1", report.RowsDropped)
	}
	if got := strings.Join(tbl.ColumnNames(), ","); got != "a,c" {
		t.Errorf("columns = %s, want a,c (blank column dropped)", got)
	}
	if !reflect.DeepEqual(report.ColumnsDropped, []string{"b"}) {
		t.Errorf("ColumnsDropped = %v, want [b]", report.ColumnsDropped)
	}
}

func TestClean_EmptyRowsJudgedBeforeCoercion(t *testing.T) {
	// The second row only holds an implausible year. It survives pruning even
	// though coercion turns its only value into null.
	tbl, _ := cleanCSV(t, "brand,model,year,price\nKia,Rio,2015,100\n,,1700,\n")
	if tbl.NumRows() != 2 {
		t.Fatalf("NumRows() = %d, want 2", tbl.NumRows())
	}
	if years := columnFloats(t, tbl, "year"); years[1] != nil {
		t.Errorf("year[1] = %v, want nil", years[1])
	}
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"  Fuel Type ":   "fuel_type",
		"Body-Style":     "body_style",
		"PRICE (NGN)":    "price_(ngn)",
		"already_clean":  "already_clean",
		"Two  Spaces":    "two__spaces",
		"Mixed-Case Key": "mixed_case_key",
	}
	for in, want := range tests {
		if got := normalizeName(in); got != want {
			t.Errorf("normalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClean_NameCollisions(t *testing.T) {
	raw := &RawTable{
		Columns: []string{"Price", "price ", "price_2", "Model"},
		Rows: [][]Cell{
			{TextCell("1"), TextCell("2"), TextCell("3"), TextCell("x")},
		},
	}
	tbl, report := Clean(raw, CleanOptions{Now: fixedNow})

	want := []string{"price", "price_3", "price_2", "model"}
	if !reflect.DeepEqual(tbl.ColumnNames(), want) {
		t.Errorf("columns = %v, want %v", tbl.ColumnNames(), want)
	}
	if len(report.Collisions) != 1 || report.Collisions[0].To != "price_3" {
		t.Errorf("Collisions = %+v", report.Collisions)
	}
	// Every original value survives under some column.
	if v, _ := tbl.Record(0).Get("price_3"); v.String() != "2" {
		t.Errorf("price_3 = %v, want 2", v)
	}
}

func TestClean_NonCarDatasetNotCoerced(t *testing.T) {
	tbl, report := cleanCSV(t, "price,region\n$100,north\n$200,south\n")
	if report.Classification.IsCarDataset {
		t.Fatal("one keyword should not classify as car data")
	}
	if len(report.Coerced) != 0 {
		t.Errorf("Coerced = %v, want none", report.Coerced)
	}
	if tbl.Columns[0].Kind != KindText {
		t.Errorf("price kind = %s, want text (currency text is not numeric)", tbl.Columns[0].Kind)
	}
}

func TestClean_CoercionRules(t *testing.T) {
	content := "brand,model,year,price,color\n" +
		" toyota ,land cruiser,2019.5,\"₦12,500,000\",PEARL WHITE\n" +
		"HONDA,civic,2027,free,\n" +
		"kia,rio,2028,-500,red\n"
	tbl, _ := cleanCSV(t, content)

	if got := columnFloats(t, tbl, "brand"); got[0] != "Toyota" || got[1] != "Honda" {
		t.Errorf("brand = %v", got)
	}
	if got := columnFloats(t, tbl, "model"); got[0] != "Land Cruiser" {
		t.Errorf("model = %v", got)
	}
	if got := columnFloats(t, tbl, "color"); got[0] != "Pearl White" || got[1] != nil {
		t.Errorf("color = %v, want null kept null", got)
	}
	// Fractional years and years past next year are not plausible.
	if got := columnFloats(t, tbl, "year"); got[0] != nil || got[1] != 2027.0 || got[2] != nil {
		t.Errorf("year = %v, want [<nil> 2027 <nil>]", got)
	}
	if got := columnFloats(t, tbl, "price"); got[0] != 12500000.0 || got[1] != nil || got[2] != 500.0 {
		t.Errorf("price = %v, want [12500000 <nil> 500]", got)
	}
}

func TestClean_TypeOptimization(t *testing.T) {
	tests := []struct {
		name      string
		cells     []Cell
		wantKind  ColumnKind
		wantNulls int
	}{
		{"all numeric text", []Cell{TextCell("1"), TextCell(" 2.5 "), TextCell("3e2")}, KindNumeric, 0},
		{"exactly 80 percent", []Cell{TextCell("1"), TextCell("2"), TextCell("3"), TextCell("4"), TextCell("n/a")}, KindNumeric, 1},
		{"below threshold", []Cell{TextCell("1"), TextCell("2"), TextCell("3"), TextCell("x"), TextCell("y")}, KindText, 0},
		{"nulls ignored", []Cell{TextCell("1"), RecordedNullCell(), RecordedNullCell(), TextCell("2")}, KindNumeric, 2},
		{"json numbers", []Cell{NumberCell(1), NumberCell(2)}, KindNumeric, 0},
		{"booleans", []Cell{BoolCell(true), BoolCell(false)}, KindBoolean, 0},
		{"thousands separators stay text", []Cell{TextCell("1,000"), TextCell("2,000")}, KindText, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &RawTable{Columns: []string{"value"}}
			for _, c := range tt.cells {
				raw.Rows = append(raw.Rows, []Cell{c})
			}
			tbl, _ := Clean(raw, CleanOptions{Now: fixedNow})
			if tbl.Columns[0].Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", tbl.Columns[0].Kind, tt.wantKind)
			}
			nulls := 0
			for _, c := range tbl.ColumnValues(0) {
				if c.IsNull() {
					nulls++
				}
			}
			if nulls != tt.wantNulls {
				t.Errorf("nulls = %d, want %d", nulls, tt.wantNulls)
			}
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	first, _ := cleanCSV(t, "Brand,Model,Year,Price,Fuel Type,Mileage\n"+
		"Toyota,Camry,2020,\"$15,000\",Petrol,120000\n"+
		"Honda,Accord,1850,14000,Diesel,\n"+
		"Lexus,RX 350,2017,9800000,Petrol,88000\n")

	second, report := Clean(first.Raw(), CleanOptions{Now: fixedNow})

	if !reflect.DeepEqual(first.Columns, second.Columns) {
		t.Errorf("columns changed: %v -> %v", first.Columns, second.Columns)
	}
	if !reflect.DeepEqual(first.Rows, second.Rows) {
		t.Errorf("rows changed:\n%v\n%v", first.Rows, second.Rows)
	}
	if report.RowsDropped != 0 || len(report.ColumnsDropped) != 0 || len(report.Renamed) != 0 || len(report.Collisions) != 0 {
		t.Errorf("second pass reported changes: %+v", report)
	}
}

func TestClean_IdempotentWhenCoercionEmptiesData(t *testing.T) {
	first, _ := cleanCSV(t, "Brand,Model,Year,Price,Notes\n"+
		",,1850,n/a,\n"+
		"Toyota,Camry,1850,15000,ok\n")

	if got := strings.Join(first.ColumnNames(), ","); got != "brand,model,year,price,notes" {
		t.Fatalf("columns = %s", got)
	}
	if first.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", first.NumRows())
	}

	second, report := Clean(first.Raw(), CleanOptions{Now: fixedNow})
	if report.RowsDropped != 0 {
		t.Errorf("RowsDropped = %d, want 0 for a row emptied by coercion", report.RowsDropped)
	}
	if len(report.ColumnsDropped) != 0 {
		t.Errorf("ColumnsDropped = %v, want none for an all-null year column", report.ColumnsDropped)
	}
	if !reflect.DeepEqual(first.Columns, second.Columns) {
		t.Errorf("columns changed: %v -> %v", first.Columns, second.Columns)
	}
	if !reflect.DeepEqual(first.Rows, second.Rows) {
		t.Errorf("rows changed:\n%v\n%v", first.Rows, second.Rows)
	}
}

func TestClean_OptimizedNullsSurviveRecleaning(t *testing.T) {
	raw := &RawTable{
		Columns: []string{"value", "label"},
		Rows: [][]Cell{
			{TextCell("1"), TextCell("a")},
			{TextCell("2"), TextCell("b")},
			{TextCell("3"), TextCell("c")},
			{TextCell("4"), TextCell("d")},
			{TextCell("n/a"), NullCell()},
		},
	}
	first, _ := Clean(raw, CleanOptions{Now: fixedNow})
	if first.Columns[0].Kind != KindNumeric {
		t.Fatalf("kind = %s, want numeric", first.Columns[0].Kind)
	}

	second, report := Clean(first.Raw(), CleanOptions{Now: fixedNow})
	if report.RowsDropped != 0 || second.NumRows() != 5 {
		t.Errorf("rows = %d dropped = %d, want 5 rows kept", second.NumRows(), report.RowsDropped)
	}
}

func TestClean_DoesNotModifyRaw(t *testing.T) {
	raw := &RawTable{
		Columns: []string{"Brand", "Model", "Price"},
		Rows:    [][]Cell{{TextCell("kia"), TextCell("rio"), TextCell("$5")}},
	}
	Clean(raw, CleanOptions{Now: fixedNow})
	if s, _ := raw.Rows[0][2].Text(); s != "$5" || raw.Columns[0] != "Brand" {
		t.Errorf("raw table modified: %v %v", raw.Columns, raw.Rows)
	}
}

func TestClassifyColumns(t *testing.T) {
	tests := []struct {
		names       []string
		wantCar     bool
		wantMatched []string
	}{
		{[]string{"brand", "model", "year"}, true, []string{"brand", "model", "year"}},
		{[]string{"car_brand", "model_year", "asking_price"}, true, []string{"brand", "model", "year", "price"}},
		{[]string{"brand", "price", "region"}, false, []string{"brand", "price"}},
		{[]string{"BRAND", "Color", "Mileage"}, true, []string{"brand", "mileage", "color"}},
		{nil, false, []string{}},
	}
	for _, tt := range tests {
		got := ClassifyColumns(tt.names)
		if got.IsCarDataset != tt.wantCar || !reflect.DeepEqual(got.Matched, tt.wantMatched) {
			t.Errorf("ClassifyColumns(%v) = %+v, want %v %v", tt.names, got, tt.wantCar, tt.wantMatched)
		}
	}
}
