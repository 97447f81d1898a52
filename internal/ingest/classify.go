package ingest

import "strings"

// carKeywords are the column-name fragments that mark a car-sales table.
var carKeywords = []string{"brand", "model", "year", "price", "mileage", "condition", "color"}

const carKeywordThreshold = 3

// Classification says whether a set of column names looks like car-sales
// data and which keywords were found.
type Classification struct {
	IsCarDataset bool     `json:"is_car_dataset" yaml:"is_car_dataset"`
	Matched      []string `json:"matched" yaml:"matched"`
}

// ClassifyColumns matches every keyword as a substring of the lowercased
// names. Three or more matches classify the table as car-sales data.
func ClassifyColumns(names []string) Classification {
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}
	matched := []string{}
	for _, kw := range carKeywords {
		if anyContains(lowered, kw) {
			matched = append(matched, kw)
		}
	}
	return Classification{
		IsCarDataset: len(matched) >= carKeywordThreshold,
		Matched:      matched,
	}
}

func anyContains(names []string, fragment string) bool {
	for _, n := range names {
		if strings.Contains(n, fragment) {
			return true
		}
	}
	return false
}
