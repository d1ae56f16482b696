// Package exporter writes analysis results as files other tools can open.
//
// Components:
//
// CSVWriter: core CSV writing with UTF-8 BOM for Excel compatibility, plus
// streaming and a sectioned summary export.
//
// WorkbookWriter: writes the cleaned shipment table and the summary tables
// into one .xlsx workbook, one sheet per table.
//
// Both writers share the tabular views built in tables.go, so a column
// added there shows up in every format.
//
// Example usage:
//
//	w := exporter.NewWorkbookWriter(paths, logger)
//	path, err := w.Write(analysis, "3月_清洗后数据_20240301_120000.xlsx")
package exporter
