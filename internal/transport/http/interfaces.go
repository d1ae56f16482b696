package http

import (
	"freightcli/internal/files"
	"freightcli/internal/operations"
)

// AnalysisQueue is the part of the job queue the handlers use
type AnalysisQueue interface {
	Enqueue(job *operations.Job) error
	GetJob(id string) (*operations.Job, error)
	ListJobs(filter operations.JobFilter) ([]*operations.Job, error)
	CancelJob(id string) error
}

// SheetLister lists the sheets of a workbook on disk
type SheetLister interface {
	ListSheets(path string) ([]string, error)
}

// WorkbookLister is implemented by sheet listers that can also enumerate
// the input directory
type WorkbookLister interface {
	Workbooks() ([]files.FileInfo, error)
}

// ProgressSource returns the latest progress snapshot of a run
type ProgressSource interface {
	GetSnapshot(runID string) (*operations.RunSnapshot, bool)
}

// HubStats reports WebSocket hub counters
type HubStats interface {
	GetHubMetrics() map[string]interface{}
}

// CacheStats reports workbook cache counters
type CacheStats interface {
	GetStats() map[string]interface{}
}

// JobStats reports job counts by status
type JobStats interface {
	GetStats() map[string]int
}
