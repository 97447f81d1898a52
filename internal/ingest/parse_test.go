package ingest

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	content := "\xef\xbb\xbfBrand,Model,,Price\nToyota,Camry,x,$15000\nHonda,,y,14000\n"
	raw, err := ParseCSV([]byte(content), DefaultConfig())
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}

	wantCols := []string{"Brand", "Model", "Unnamed: 2", "Price"}
	if strings.Join(raw.Columns, "|") != strings.Join(wantCols, "|") {
		t.Errorf("Columns = %q, want %q", raw.Columns, wantCols)
	}
	if raw.NumRows() != 2 {
		t.Fatalf("NumRows() = %d, want 2", raw.NumRows())
	}
	if s, _ := raw.Rows[0][3].Text(); s != "$15000" {
		t.Errorf("Rows[0][3] = %q, want $15000", s)
	}
	if !raw.Rows[1][1].IsNull() {
		t.Errorf("empty field parsed as %v, want null", raw.Rows[1][1])
	}
	if raw.Format != FormatCSV || raw.Truncated {
		t.Errorf("Format = %q, Truncated = %v", raw.Format, raw.Truncated)
	}
}

func TestParseCSV_Semicolon(t *testing.T) {
	raw, err := ParseCSV([]byte("brand;price\nKia;2,5\n"), DefaultConfig())
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(raw.Columns) != 2 {
		t.Fatalf("Columns = %q, want 2 columns", raw.Columns)
	}
	if s, _ := raw.Rows[0][1].Text(); s != "2,5" {
		t.Errorf("price = %q, want 2,5", s)
	}
}

func TestParseCSV_RaggedRows(t *testing.T) {
	content := []byte("a,b,c\n1,2,3\n4,5\n6,7,8,9\n")

	_, err := ParseCSV(content, Config{StrictValidation: true})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("strict ParseCSV() error = %v, want *ParseError", err)
	}
	if pe.Format != FormatCSV {
		t.Errorf("ParseError.Format = %q, want csv", pe.Format)
	}

	raw, err := ParseCSV(content, Config{StrictValidation: false})
	if err != nil {
		t.Fatalf("lenient ParseCSV() error = %v", err)
	}
	if raw.NumRows() != 3 {
		t.Fatalf("NumRows() = %d, want 3", raw.NumRows())
	}
	for i, row := range raw.Rows {
		if len(row) != 3 {
			t.Errorf("row %d has %d cells, want 3", i, len(row))
		}
	}
	if !raw.Rows[1][2].IsNull() {
		t.Errorf("short row not padded with null: %v", raw.Rows[1][2])
	}
}

func TestParseCSV_Truncation(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,value\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%d,v%d\n", i, i)
	}
	raw, err := ParseCSV([]byte(b.String()), Config{MaxRecords: 4, StrictValidation: true})
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if raw.NumRows() != 4 || !raw.Truncated {
		t.Errorf("NumRows() = %d, Truncated = %v, want 4, true", raw.NumRows(), raw.Truncated)
	}
	if s, _ := raw.Rows[3][0].Text(); s != "3" {
		t.Errorf("last kept row id = %q, want 3", s)
	}
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"invalid utf-8", "a,b\n\xff,1\n", "invalid utf-8"},
		{"no header", "", "no header row"},
		{"no delimiter in strict mode", "a\n1\n", "could not determine delimiter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV([]byte(tt.content), DefaultConfig())
			if !IsParse(err) {
				t.Fatalf("error = %v, want *ParseError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParseJSON_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCols []string
		wantRows int
	}{
		{"array of objects", `[{"brand":"Kia","year":2019},{"brand":"BMW","price":9.5}]`, []string{"brand", "year", "price"}, 2},
		{"wrapped data array", `{"data":[{"a":1},{"a":2},{"a":null}],"meta":{"v":1}}`, []string{"a"}, 3},
		{"single object", `{"brand":"Kia","year":2019}`, []string{"brand", "year"}, 1},
		{"empty array", `[]`, []string{}, 0},
		{"escaped key", `[{"fuel\u005ftype":"petrol"}]`, []string{"fuel_type"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ParseJSON([]byte(tt.content), DefaultConfig())
			if err != nil {
				t.Fatalf("ParseJSON() error = %v", err)
			}
			if strings.Join(raw.Columns, "|") != strings.Join(tt.wantCols, "|") {
				t.Errorf("Columns = %q, want %q", raw.Columns, tt.wantCols)
			}
			if raw.NumRows() != tt.wantRows {
				t.Errorf("NumRows() = %d, want %d", raw.NumRows(), tt.wantRows)
			}
			for i, row := range raw.Rows {
				if len(row) != len(raw.Columns) {
					t.Errorf("row %d has %d cells, want %d", i, len(row), len(raw.Columns))
				}
			}
		})
	}
}

func TestParseJSON_CellTypes(t *testing.T) {
	raw, err := ParseJSON([]byte(`[{"n":1.5,"s":"x","b":true,"z":null,"o":{"k": [1, 2]}}, {"n":2}]`), DefaultConfig())
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	row := raw.Rows[0]
	if f, ok := row[0].Float(); !ok || f != 1.5 {
		t.Errorf("n = %v, want 1.5", row[0])
	}
	if s, ok := row[1].Text(); !ok || s != "x" {
		t.Errorf("s = %v, want x", row[1])
	}
	if b, ok := row[2].Bool(); !ok || !b {
		t.Errorf("b = %v, want true", row[2])
	}
	if !row[3].IsNull() || row[3].IsEmpty() {
		t.Errorf("z = %#v, want a recorded null", row[3])
	}
	if s, _ := row[4].Text(); s != `{"k":[1,2]}` {
		t.Errorf("o = %q, want compact JSON", s)
	}
	// Missing keys are absent, not recorded.
	if !raw.Rows[1][1].IsEmpty() {
		t.Errorf("missing key = %#v, want empty null", raw.Rows[1][1])
	}
}

func TestParseJSON_Unsupported(t *testing.T) {
	for _, content := range []string{`42`, `"text"`, `[1, 2, 3]`, `{"data": 5}`, `[{"a":1}, "b"]`} {
		_, err := ParseJSON([]byte(content), DefaultConfig())
		if err == nil || !strings.Contains(err.Error(), "unsupported JSON structure") {
			t.Errorf("ParseJSON(%s) error = %v, want unsupported JSON structure", content, err)
		}
	}
}

func TestParseJSON_Truncation(t *testing.T) {
	raw, err := ParseJSON([]byte(`[{"a":1},{"a":2},{"a":3,"late":true}]`), Config{MaxRecords: 2})
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	if raw.NumRows() != 2 || !raw.Truncated {
		t.Errorf("NumRows() = %d, Truncated = %v, want 2, true", raw.NumRows(), raw.Truncated)
	}
	if len(raw.Columns) != 1 {
		t.Errorf("Columns = %q, want only columns from kept rows", raw.Columns)
	}
}

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	content := buildWorkbook(t, [][]any{
		{"Brand", "Model", "Year", "Price"},
		{"Toyota", "Corolla", 2018, 5200000},
		{"Lexus", "RX 350"},
		{"Honda", "Civic", 2015, 3100000.5},
	})

	raw, err := ParseXLSX(content, DefaultConfig())
	if err != nil {
		t.Fatalf("ParseXLSX() error = %v", err)
	}
	if strings.Join(raw.Columns, ",") != "Brand,Model,Year,Price" {
		t.Errorf("Columns = %q", raw.Columns)
	}
	if raw.NumRows() != 3 {
		t.Fatalf("NumRows() = %d, want 3", raw.NumRows())
	}
	if s, _ := raw.Rows[0][2].Text(); s != "2018" {
		t.Errorf("Year = %q, want 2018", s)
	}
	if !raw.Rows[1][3].IsNull() {
		t.Errorf("short row not padded: %v", raw.Rows[1][3])
	}

	if v := ValidateFile(content, "cars.xlsx", DefaultConfig()); !v.Valid {
		t.Errorf("ValidateFile() errors = %v", v.Errors)
	}
	if v := ValidateFile(content, "cars.xls", DefaultConfig()); !v.Valid {
		t.Errorf("OOXML workbook named .xls rejected: %v", v.Errors)
	}
}

func TestParseXLSX_Truncation(t *testing.T) {
	rows := [][]any{{"id"}}
	for i := 0; i < 6; i++ {
		rows = append(rows, []any{i})
	}
	raw, err := ParseXLSX(buildWorkbook(t, rows), Config{MaxRecords: 5})
	if err != nil {
		t.Fatalf("ParseXLSX() error = %v", err)
	}
	if raw.NumRows() != 5 || !raw.Truncated {
		t.Errorf("NumRows() = %d, Truncated = %v, want 5, true", raw.NumRows(), raw.Truncated)
	}
}

func TestParse_UnknownFormat(t *testing.T) {
	if _, err := Parse([]byte("x"), Format("parquet"), DefaultConfig()); !IsParse(err) {
		t.Errorf("Parse() error = %v, want *ParseError", err)
	}
}
