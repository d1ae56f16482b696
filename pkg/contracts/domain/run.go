package domain

import "time"

// RunStatus is the lifecycle state of an analysis run
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Artifacts lists the files written by a run
type Artifacts struct {
	Dashboard string `json:"dashboard,omitempty"`
	Report    string `json:"report,omitempty"`
	Workbook  string `json:"workbook,omitempty"`
	PDF       string `json:"pdf,omitempty"`
	CSV       string `json:"csv,omitempty"`
}

// Analysis is everything one run produced
type Analysis struct {
	RunID       string             `json:"run_id"`
	Source      string             `json:"source"`
	Sheets      []string           `json:"sheets"`
	TitlePrefix string             `json:"title_prefix"`
	CompareMode bool               `json:"compare_mode"`
	GeneratedAt time.Time          `json:"generated_at"`
	RawRows     int                `json:"raw_rows"`
	Dropped     map[string]int     `json:"dropped"`
	Table       *Table             `json:"-"`
	Quality     QualityReport      `json:"quality"`
	Summaries   Summaries          `json:"summaries"`
	Cost        CostAnalysis       `json:"cost"`
	Monthly     *MonthlyComparison `json:"monthly,omitempty"`
	KPIs        KPIs               `json:"kpis"`
	TopVehicles []VehicleRank      `json:"top_vehicles"`
	Insights    []Insight          `json:"insights"`
	Artifacts   Artifacts          `json:"artifacts"`
}

// ProgressEvent reports a pipeline step transition
type ProgressEvent struct {
	RunID   string    `json:"run_id"`
	Step    string    `json:"step"`
	Percent int       `json:"percent"`
	Message string    `json:"message"`
	Status  RunStatus `json:"status"`
	Error   string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}
