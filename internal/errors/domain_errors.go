package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrNoValidData is returned when cleaning filters out every row. Callers
// report it as a user error, distinct from a failure to load the workbook.
var ErrNoValidData = stderrors.New("no valid rows remain after cleaning")

// NoValidDataError wraps ErrNoValidData with the per-step drop counts that
// emptied the table.
func NoValidDataError(dropped map[string]int) *AppError {
	err := NewAppError(ErrTypeNoValidData, "all rows were filtered out, check the deduction and sell price columns", ErrNoValidData)
	for step, n := range dropped {
		err.WithContext(step, n)
	}
	return err
}

// StructureError reports a column the table cannot do without.
type StructureError struct {
	Stage  string
	Column string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%s: required column %q not found", e.Stage, e.Column)
}

// NewStructureError wraps a StructureError in an AppError so it carries the
// STRUCTURE type through the operations layer.
func NewStructureError(stage, column string) *AppError {
	return NewAppError(ErrTypeStructure, "table structure is not usable", &StructureError{Stage: stage, Column: column}).
		WithContext("stage", stage).
		WithContext("column", column)
}

// AggregationError reports an aggregate that cannot be computed because a
// column it depends on was never resolved or there are no rows to group.
type AggregationError struct {
	Aggregate string
	Column    string
	Reason    string
}

func (e *AggregationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot compute %s: %s", e.Aggregate, e.Reason)
	}
	return fmt.Sprintf("cannot compute %s: column %q is absent", e.Aggregate, e.Column)
}

// NewAggregationError wraps an AggregationError in an AppError.
func NewAggregationError(aggregate, column string) *AppError {
	return NewAppError(ErrTypeAggregation, "aggregation precondition failed", &AggregationError{Aggregate: aggregate, Column: column}).
		WithContext("aggregate", aggregate).
		WithContext("column", column)
}

// NewEmptyAggregationError reports an aggregate asked to group nothing.
func NewEmptyAggregationError(aggregate, reason string) *AppError {
	return NewAppError(ErrTypeAggregation, "aggregation precondition failed", &AggregationError{Aggregate: aggregate, Reason: reason}).
		WithContext("aggregate", aggregate).
		WithContext("reason", reason)
}

// IsUserError reports whether err stems from the input workbook rather than
// from the program or its environment.
func IsUserError(err error) bool {
	if stderrors.Is(err, ErrNoValidData) {
		return true
	}
	var se *StructureError
	return stderrors.As(err, &se)
}
