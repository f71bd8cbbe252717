package domain

import "fmt"

// SchemaInferenceError means no data row was found within the scan bound.
// Supplying a start row override recovers.
type SchemaInferenceError struct {
	Source    SourceKind
	Name      string
	ScanDepth int
}

func (e *SchemaInferenceError) Error() string {
	return fmt.Sprintf("%s grid %q: no data row found within the first %d rows, supply a start row",
		e.Source, e.Name, e.ScanDepth)
}

// ColumnMappingError means a required role could not be resolved.
// Supplying a column mapping override recovers.
type ColumnMappingError struct {
	Source SourceKind
	Name   string
	Role   Role
}

func (e *ColumnMappingError) Error() string {
	return fmt.Sprintf("%s grid %q: could not find the %s column, supply a column mapping",
		e.Source, e.Name, e.Role)
}

// NoOverlapError means the stock and outflow sets share no product code.
type NoOverlapError struct {
	StockCount   int
	OutflowCount int
}

func (e *NoOverlapError) Error() string {
	return fmt.Sprintf("no product code in common between stock (%d records) and outflow (%d records), check your files",
		e.StockCount, e.OutflowCount)
}

// OptionsError reports an invalid override.
type OptionsError struct {
	Field  string
	Reason string
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
