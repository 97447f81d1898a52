// Package ingest turns an uploaded car-sales file into a cleaned table and
// the artifacts derived from it.
//
// The pipeline runs in a fixed order:
//
//	ValidateFile -> Parse (CSV, XLSX, JSON) -> Clean -> GenerateMetadata
//	                                                  -> GeneratePreview
//	                                                  -> QualityScore
//	                                                  -> ValidateCarSchema
//
// Validation and parse failures stop the run and come back as
// *ValidationError and *ParseError. The derived artifacts never fail: each
// is wrapped in an Outcome that is either Computed or Defaulted with a cause.
//
// Nothing here performs I/O or keeps state between calls, so a Processor can
// be shared by any number of goroutines.
package ingest
