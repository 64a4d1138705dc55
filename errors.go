package ddct

import (
	"errors"
	"fmt"
)

var (
	ErrNoGroupingVariables         = errors.New("no grouping variables are defined")
	ErrUnknownReferenceAxis        = errors.New("reference axis is not a defined grouping variable")
	ErrReferenceConditionNotInAxis = errors.New("reference condition is not a value of the reference axis")
)

// ConfigurationError means the ExperimentConfig itself cannot support an
// analysis. It is raised before any output is produced.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// MetadataConflictError is returned under RequireHomogeneous when the rows
// of one (sample, gene) disagree about a metadata column.
type MetadataConflictError struct {
	SampleID string
	Gene     string
	Column   string
	Values   []string
}

func (e *MetadataConflictError) Error() string {
	return fmt.Sprintf("sample %q gene %q has conflicting values for %q: %q", e.SampleID, e.Gene, e.Column, e.Values)
}
