package ingest

import "strings"

var (
	requiredCarFields = []string{"brand", "model", "year", "price"}
	optionalCarFields = []string{"mileage", "condition", "color", "location", "fuel_type", "transmission"}
)

// SchemaValidationResult reports how closely a table matches the expected
// car-sales layout. It is advisory and never blocks an upload.
type SchemaValidationResult struct {
	IsValidCarDataset     bool     `json:"is_valid_car_dataset" yaml:"is_valid_car_dataset"`
	MissingRequiredFields []string `json:"missing_required_fields" yaml:"missing_required_fields"`
	PresentOptionalFields []string `json:"present_optional_fields" yaml:"present_optional_fields"`
	CompletenessScore     float64  `json:"completeness_score" yaml:"completeness_score"`
}

// ValidateCarSchema checks t's column names against the car-sales fields.
func ValidateCarSchema(t *CleanTable) SchemaValidationResult {
	return ValidateCarSchemaNames(t.ColumnNames())
}

// ValidateCarSchemaNames applies the schema check to a list of column names.
// A field is present when some lowercased name contains it.
func ValidateCarSchemaNames(names []string) SchemaValidationResult {
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}

	res := SchemaValidationResult{
		MissingRequiredFields: []string{},
		PresentOptionalFields: []string{},
	}
	for _, f := range requiredCarFields {
		if !anyContains(lowered, f) {
			res.MissingRequiredFields = append(res.MissingRequiredFields, f)
		}
	}
	for _, f := range optionalCarFields {
		if anyContains(lowered, f) {
			res.PresentOptionalFields = append(res.PresentOptionalFields, f)
		}
	}
	required := float64(len(requiredCarFields))
	res.IsValidCarDataset = len(res.MissingRequiredFields) == 0
	res.CompletenessScore = (required - float64(len(res.MissingRequiredFields))) / required * 100
	return res
}
