// Package dataprocessing turns shipment workbooks into the cleaned table the
// analysis stages read. It covers loading, column resolution, row filtering,
// date normalization and per-row metric derivation.
//
// # Architecture
//
// The package is organized into four components:
//
// 1. Loader: reads the selected month sheets of a workbook into a RawTable
// 2. ResolveColumn: maps semantic roles onto hand-edited headers
// 3. Cleaner: filters rows, normalizes dates and sorts chronologically
// 4. deriveMetrics: fills per-ton ratios, margins and the freight anomaly flag
//
// # Usage
//
//	loader := dataprocessing.NewLoader(logger, cfg.Analysis)
//	raw, err := loader.LoadSheets(ctx, "运输明细.xlsx", []string{"1月", "2月"}, nil)
//	if err != nil {
//	    return err
//	}
//
//	cleaner := dataprocessing.NewCleaner(logger, cfg.Analysis)
//	table, stats, err := cleaner.Clean(ctx, raw)
//
// # Data Flow
//
//	Workbook → Loader → RawTable → Cleaner → Table (immutable)
//
// # Error Handling
//
// Row-level problems never fail a run: unparseable numbers become missing,
// unparseable dates are dropped and every drop is counted in FilterStats.
// Clean fails only when an identity column is absent (a STRUCTURE error)
// or when nothing survives filtering (errors.ErrNoValidData).
package dataprocessing
