package ingest

import (
	"reflect"
	"testing"
)

func TestValidateCarSchemaNames(t *testing.T) {
	tests := []struct {
		name         string
		columns      []string
		wantValid    bool
		wantMissing  []string
		wantOptional []string
		wantScore    float64
	}{
		{
			name:         "complete",
			columns:      []string{"brand", "model", "year", "price", "fuel_type", "mileage_km"},
			wantValid:    true,
			wantMissing:  []string{},
			wantOptional: []string{"mileage", "fuel_type"},
			wantScore:    100,
		},
		{
			name:         "substring match",
			columns:      []string{"car_brand", "model_name", "year_of_manufacture"},
			wantMissing:  []string{"price"},
			wantOptional: []string{},
			wantScore:    75,
		},
		{
			name:         "case insensitive",
			columns:      []string{"BRAND", "Price", "Transmission"},
			wantMissing:  []string{"model", "year"},
			wantOptional: []string{"transmission"},
			wantScore:    50,
		},
		{
			name:         "no columns",
			columns:      nil,
			wantMissing:  []string{"brand", "model", "year", "price"},
			wantOptional: []string{},
			wantScore:    0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateCarSchemaNames(tt.columns)
			if got.IsValidCarDataset != tt.wantValid {
				t.Errorf("IsValidCarDataset = %v, want %v", got.IsValidCarDataset, tt.wantValid)
			}
			if !reflect.DeepEqual(got.MissingRequiredFields, tt.wantMissing) {
				t.Errorf("MissingRequiredFields = %v, want %v", got.MissingRequiredFields, tt.wantMissing)
			}
			if !reflect.DeepEqual(got.PresentOptionalFields, tt.wantOptional) {
				t.Errorf("PresentOptionalFields = %v, want %v", got.PresentOptionalFields, tt.wantOptional)
			}
			if got.CompletenessScore != tt.wantScore {
				t.Errorf("CompletenessScore = %v, want %v", got.CompletenessScore, tt.wantScore)
			}
		})
	}
}
