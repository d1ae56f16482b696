// Package cache keeps parsed workbook tables on disk so repeated analyses
// of an unchanged file skip the spreadsheet read.
//
// Entries are keyed by the workbook path, its modification time and the
// selected sheet names. A changed file therefore never hits an old entry,
// and entries older than the configured maximum age are pruned when the
// store is opened.
//
// Layout under the cache directory:
//
//	index.json        entry metadata
//	<key>.json        one serialized raw table per entry
package cache
