// Package validation checks inputs before a run and grades the cleaned
// shipment table.
//
// FileValidator rejects unreadable or non-workbook inputs and unwritable
// output directories. Validator runs five independent quality checks
// (missing values, duplicates, IQR outliers, type consistency and logical
// errors) and turns the findings into a 0-100 score. Validation only
// reports: no check ever fails a run.
package validation
