package validation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"freightcli/pkg/contracts/domain"
)

const (
	// missingHighPct is the share of blank critical cells above which the
	// missing-value issue is high severity
	missingHighPct = 10.0

	// minOutlierSample is the smallest column the IQR check runs on
	minOutlierSample = 10

	mildIQR    = 1.5
	extremeIQR = 3.0

	// mildShare is the fraction of mild outliers that raises a medium issue
	mildShare = 0.05

	// ProfitPerTonColumn is the display name of the derived profit-per-ton
	// column
	ProfitPerTonColumn = "吨利润"
)

// Check names, as recorded in QualityStats.SkippedChecks
const (
	CheckMissing    = "missing_values"
	CheckDuplicates = "duplicates"
	CheckOutliers   = "outliers"
	CheckTypes      = "type_consistency"
	CheckLogical    = "logical"
)

// Validator inspects a cleaned table and reports data quality issues. It
// never fails a run: a check whose inputs are unavailable is skipped.
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a quality validator
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger.With(slog.String("component", "validator"))}
}

// Validate runs the five quality checks on t
func (v *Validator) Validate(ctx context.Context, t *domain.Table) domain.QualityReport {
	r := &run{
		table: t,
		stats: domain.QualityStats{Rows: t.Len(), NonNumeric: map[string]int{}},
	}

	r.checkMissing()
	r.checkDuplicates()
	r.checkOutliers()
	r.checkTypes()
	r.checkLogical()

	report := domain.QualityReport{Stats: r.stats, Issues: r.issues}
	if report.Issues == nil {
		report.Issues = []domain.QualityIssue{}
	}
	high, medium, low := report.CountBySeverity()
	report.IsHealthy = high == 0
	report.Score = Score(high, medium, low)

	level := slog.LevelInfo
	if high > 0 {
		level = slog.LevelWarn
	}
	v.logger.Log(ctx, level, "Data quality check complete",
		slog.Int("rows", t.Len()),
		slog.Int("issues", len(report.Issues)),
		slog.Int("high", high),
		slog.Int("medium", medium),
		slog.Int("low", low),
		slog.Int("score", report.Score),
		slog.Any("skipped", r.stats.SkippedChecks))
	return report
}

// Score is 100 minus 10 per high, 5 per medium and 2 per low issue,
// clamped to [0, 100]
func Score(high, medium, low int) int {
	s := 100 - 10*high - 5*medium - 2*low
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

type run struct {
	table  *domain.Table
	stats  domain.QualityStats
	issues []domain.QualityIssue
}

func (r *run) add(kind domain.IssueKind, sev domain.Severity, column string, count int, msg string) {
	r.issues = append(r.issues, domain.QualityIssue{
		Kind:     kind,
		Severity: sev,
		Column:   column,
		Count:    count,
		Message:  msg,
	})
}

func (r *run) skip(check string) {
	r.stats.SkippedChecks = append(r.stats.SkippedChecks, check)
}

func (r *run) priceColumn() (string, bool) {
	if p := r.table.Columns.Price; p != nil {
		return *p, true
	}
	return "", false
}

func (r *run) deductionColumn() (string, bool) {
	if d := r.table.Columns.Deduction; d != nil {
		return *d, true
	}
	return "", false
}

func (r *run) checkMissing() {
	t := r.table
	n := t.Len()
	if n == 0 {
		r.skip(CheckMissing)
		return
	}

	type column struct {
		name     string
		critical bool
		blank    func(s *domain.Shipment) bool
	}
	// weight is left out: cleaning drops every row without a positive weight
	columns := []column{
		{t.SourceNames.Category, true, func(s *domain.Shipment) bool { return s.Category == "" }},
		{t.SourceNames.Destination, true, func(s *domain.Shipment) bool { return s.Destination == "" }},
	}
	if name, ok := r.priceColumn(); ok {
		columns = append(columns, column{name, true, func(s *domain.Shipment) bool { return s.SellPrice == nil }})
	}
	if name, ok := r.deductionColumn(); ok {
		columns = append(columns, column{name, true, func(s *domain.Shipment) bool { return s.Deduction == nil }})
	}
	if t.Columns.HasFreight {
		columns = append(columns, column{t.SourceNames.Freight, false, func(s *domain.Shipment) bool { return domain.HasFlag(s.Missing, domain.FieldFreight) }})
	}
	if t.Columns.HasProfit {
		columns = append(columns, column{t.SourceNames.Profit, false, func(s *domain.Shipment) bool { return domain.HasFlag(s.Missing, domain.FieldProfit) }})
	}
	for _, h := range t.ExtraOrder {
		columns = append(columns, column{h, false, func(s *domain.Shipment) bool { return s.Extras[h] == "" }})
	}

	for _, c := range columns {
		count := 0
		for i := range t.Rows {
			if c.blank(&t.Rows[i]) {
				count++
			}
		}
		if count == 0 {
			continue
		}
		pct := percent(count, n)
		r.stats.Missing = append(r.stats.Missing, domain.MissingStat{Column: c.name, Count: count, Percent: pct})
		if !c.critical {
			continue
		}
		sev := domain.SeverityMedium
		if pct > missingHighPct {
			sev = domain.SeverityHigh
		}
		r.add(domain.IssueMissing, sev, c.name, count,
			fmt.Sprintf("关键列「%s」有 %d 条缺失 (%.1f%%)", c.name, count, pct))
	}
}

func (r *run) checkDuplicates() {
	t := r.table
	if t.Len() == 0 {
		r.skip(CheckDuplicates)
		return
	}

	seen := make(map[string]bool, t.Len())
	keyGroups := make(map[string]int, t.Len())
	for i := range t.Rows {
		s := &t.Rows[i]
		full := r.rowKey(s)
		if seen[full] {
			r.stats.FullDuplicates++
		}
		seen[full] = true
		keyGroups[joinKey(s.DateLabel, s.Vehicle, s.Destination, s.Category)]++
	}
	for _, n := range keyGroups {
		if n > 1 {
			r.stats.KeyDuplicates += n
		}
	}

	if r.stats.FullDuplicates > 0 {
		r.add(domain.IssueDuplicate, domain.SeverityMedium, "", r.stats.FullDuplicates,
			fmt.Sprintf("发现 %d 条完全重复记录", r.stats.FullDuplicates))
	}
	if r.stats.KeyDuplicates > 0 && r.stats.KeyDuplicates != r.stats.FullDuplicates {
		r.add(domain.IssueDuplicate, domain.SeverityLow, "", r.stats.KeyDuplicates,
			fmt.Sprintf("发现 %d 条疑似重复（同日期、车牌、目的地、品类）", r.stats.KeyDuplicates))
	}
}

// rowKey renders every source value of s so equal keys mean equal rows
func (r *run) rowKey(s *domain.Shipment) string {
	parts := []string{
		s.RawDate.String(),
		s.Vehicle,
		s.Category,
		s.Destination,
		formatFloat(s.Weight),
		formatOptional(s.SellPrice),
		formatOptional(s.Deduction),
		formatFloat(s.Freight),
		formatFloat(s.Profit),
		strings.Join(s.Missing, ","),
		s.MonthTag,
	}
	for _, h := range r.table.ExtraOrder {
		parts = append(parts, s.Extras[h])
	}
	return joinKey(parts...)
}

func (r *run) checkOutliers() {
	t := r.table
	type series struct {
		name  string
		value func(s *domain.Shipment) (float64, bool)
	}
	cols := []series{
		{t.Columns.Weight, func(s *domain.Shipment) (float64, bool) { return s.Weight, true }},
	}
	if name, ok := r.priceColumn(); ok {
		cols = append(cols, series{name, func(s *domain.Shipment) (float64, bool) {
			if s.SellPrice == nil {
				return 0, false
			}
			return *s.SellPrice, true
		}})
	}
	if t.Columns.HasFreight {
		cols = append(cols, series{t.SourceNames.Freight, func(s *domain.Shipment) (float64, bool) { return s.Freight, true }})
	}
	if t.Columns.HasProfit {
		cols = append(cols, series{t.SourceNames.Profit, func(s *domain.Shipment) (float64, bool) { return s.Profit, true }})
	}
	cols = append(cols, series{ProfitPerTonColumn, func(s *domain.Shipment) (float64, bool) { return s.ProfitPerTon, true }})

	ran := false
	for _, c := range cols {
		values := make([]float64, 0, t.Len())
		for i := range t.Rows {
			if v, ok := c.value(&t.Rows[i]); ok {
				values = append(values, v)
			}
		}
		if len(values) < minOutlierSample {
			continue
		}
		ran = true
		stat, ok := outliers(c.name, values)
		if !ok {
			continue
		}
		r.stats.Outliers = append(r.stats.Outliers, stat)

		switch {
		case stat.Extreme > 0:
			r.add(domain.IssueOutlier, domain.SeverityHigh, c.name, stat.Extreme,
				fmt.Sprintf("「%s」有 %d 个极端异常值", c.name, stat.Extreme))
		case float64(stat.Mild) > float64(len(values))*mildShare:
			r.add(domain.IssueOutlier, domain.SeverityMedium, c.name, stat.Mild,
				fmt.Sprintf("「%s」有 %d 个异常值 (%.1f%%)", c.name, stat.Mild, float64(stat.Mild)/float64(len(values))*100))
		}
	}
	if !ran {
		r.skip(CheckOutliers)
	}
}

// outliers applies the 1.5·IQR and 3·IQR fences to values. ok is false
// when nothing falls outside the mild fence.
func outliers(column string, values []float64) (domain.OutlierStat, bool) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1
	lower, upper := q1-mildIQR*iqr, q3+mildIQR*iqr
	extremeLower, extremeUpper := q1-extremeIQR*iqr, q3+extremeIQR*iqr

	stat := domain.OutlierStat{Column: column, LowerBound: lower, UpperBound: upper}
	first := true
	for _, v := range sorted {
		if v >= lower && v <= upper {
			continue
		}
		stat.Mild++
		if first {
			stat.Min = v
			first = false
		}
		stat.Max = v
		if v < extremeLower || v > extremeUpper {
			stat.Extreme++
		}
	}
	return stat, stat.Mild > 0
}

// Quantile returns the p-quantile of sorted by linear interpolation
// between closest ranks, the rule used by spreadsheet PERCENTILE and by
// pandas. sorted must be ascending and non-empty.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := float64(len(sorted)-1) * p
	lo := int(h)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func (r *run) checkTypes() {
	t := r.table
	type column struct {
		name  string
		field string
	}
	cols := []column{{t.Columns.Weight, domain.FieldWeight}}
	if name, ok := r.priceColumn(); ok {
		cols = append(cols, column{name, domain.FieldPrice})
	}
	if t.Columns.HasFreight {
		cols = append(cols, column{t.SourceNames.Freight, domain.FieldFreight})
	}
	if name, ok := r.deductionColumn(); ok {
		cols = append(cols, column{name, domain.FieldDeduction})
	}

	for _, c := range cols {
		count := 0
		for i := range t.Rows {
			if domain.HasFlag(t.Rows[i].NonNumeric, c.field) {
				count++
			}
		}
		if count == 0 {
			continue
		}
		r.stats.NonNumeric[c.name] = count
		r.add(domain.IssueType, domain.SeverityMedium, c.name, count,
			fmt.Sprintf("「%s」有 %d 个非数值数据", c.name, count))
	}
}

func (r *run) checkLogical() {
	t := r.table
	weightCol := t.Columns.Weight
	for i := range t.Rows {
		switch w := t.Rows[i].Weight; {
		case w < 0:
			r.stats.NegativeWeight++
		case w == 0:
			r.stats.ZeroWeight++
		}
	}
	if r.stats.NegativeWeight > 0 {
		r.add(domain.IssueLogical, domain.SeverityHigh, weightCol, r.stats.NegativeWeight,
			fmt.Sprintf("发现 %d 条负重量记录", r.stats.NegativeWeight))
	}
	if r.stats.ZeroWeight > 0 {
		r.add(domain.IssueLogical, domain.SeverityLow, weightCol, r.stats.ZeroWeight,
			fmt.Sprintf("发现 %d 条零重量记录", r.stats.ZeroWeight))
	}

	if _, ok := r.priceColumn(); !ok || !t.Columns.HasFreight {
		r.skip(CheckLogical + ":price_vs_freight")
		return
	}
	for i := range t.Rows {
		s := &t.Rows[i]
		if (s.SellPrice == nil || *s.SellPrice == 0) && s.Freight > 0 {
			r.stats.FreightNoPrice++
		}
	}
	if r.stats.FreightNoPrice > 0 {
		r.add(domain.IssueLogical, domain.SeverityMedium, "", r.stats.FreightNoPrice,
			fmt.Sprintf("发现 %d 条可能漏填卖出价（有运费但无卖出价）", r.stats.FreightNoPrice))
	}
}

func percent(count, total int) float64 {
	return decimal.NewFromInt(int64(count)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2).
		InexactFloat64()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "<nil>"
	}
	return formatFloat(*v)
}

func joinKey(parts ...string) string {
	return strings.Join(parts, "\x1f")
}
