// Package shared holds code used across packages without belonging to any
// of them.
//
// The testutil subpackage provides the slog capture handler used to assert
// on log output, shipment and table fixtures, and a helper that writes
// small multi-sheet workbooks with excelize for loader and pipeline tests.
package shared
