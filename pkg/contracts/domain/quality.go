package domain

// Severity of a data quality issue
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// IssueKind names the check that raised an issue
type IssueKind string

const (
	IssueMissing   IssueKind = "missing_values"
	IssueDuplicate IssueKind = "duplicates"
	IssueOutlier   IssueKind = "outliers"
	IssueType      IssueKind = "type_mismatch"
	IssueLogical   IssueKind = "logical_error"
)

// QualityIssue is one finding of the validator
type QualityIssue struct {
	Kind     IssueKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Column   string    `json:"column,omitempty"`
	Count    int       `json:"count"`
	Message  string    `json:"message"`
}

// MissingStat is the null count of one column
type MissingStat struct {
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// OutlierStat summarizes the IQR check of one column
type OutlierStat struct {
	Column     string  `json:"column"`
	Mild       int     `json:"mild"`
	Extreme    int     `json:"extreme"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// QualityStats holds the per-check statistics, including checks that
// raised no issue
type QualityStats struct {
	Rows           int            `json:"rows"`
	Missing        []MissingStat  `json:"missing"`
	FullDuplicates int            `json:"full_duplicates"`
	KeyDuplicates  int            `json:"key_duplicates"`
	Outliers       []OutlierStat  `json:"outliers"`
	NonNumeric     map[string]int `json:"non_numeric"`
	NegativeWeight int            `json:"negative_weight"`
	ZeroWeight     int            `json:"zero_weight"`
	FreightNoPrice int            `json:"freight_without_price"`
	SkippedChecks  []string       `json:"skipped_checks,omitempty"`
}

// QualityReport is the validator output
type QualityReport struct {
	Stats     QualityStats   `json:"stats"`
	Issues    []QualityIssue `json:"issues"`
	IsHealthy bool           `json:"is_healthy"`
	Score     int            `json:"score"`
}

// CountBySeverity returns the number of issues at each severity
func (r *QualityReport) CountBySeverity() (high, medium, low int) {
	for _, is := range r.Issues {
		switch is.Severity {
		case SeverityHigh:
			high++
		case SeverityMedium:
			medium++
		case SeverityLow:
			low++
		}
	}
	return high, medium, low
}
