package exporter

import (
	"freightcli/pkg/contracts/domain"
)

// Sheet names used in the exported workbook
const (
	SheetDetail       = "清洗后明细"
	SheetCategories   = "品类汇总"
	SheetDestinations = "目的地汇总"
	SheetCost         = "成本分析"
	SheetMonthly      = "月度对比"
)

// Derived column headers appended to the detail sheet
const (
	colDateLabel     = "中文日期"
	colWeekday       = "星期"
	colWeekLabel     = "周标签"
	colProfitPerTon  = "吨利润"
	colFreightPerTon = "运费单价"
	colMarginPct     = "利润率"
	colAnomaly       = "运费异常"
)

// Table is a named grid of values. Values are string, float64, int or
// bool; nil renders as an empty cell.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]interface{}
}

// Tables returns every table of an analysis in export order. The monthly
// table is present only for multi-month runs.
func Tables(a *domain.Analysis) []Table {
	tables := make([]Table, 0, 5)
	if a.Table != nil {
		tables = append(tables, DetailTable(a.Table))
	}
	tables = append(tables,
		CategoryTable(a.Summaries.Categories),
		DestinationTable(a.Summaries.Destinations),
		CostTable(a.Cost.Destinations),
	)
	if a.Monthly != nil {
		tables = append(tables, MonthlyTable(a.Monthly.Months))
	}
	return tables
}

// SummaryTables returns the tables without the detail rows
func SummaryTables(a *domain.Analysis) []Table {
	tables := Tables(a)
	if len(tables) > 0 && tables[0].Name == SheetDetail {
		return tables[1:]
	}
	return tables
}

// DetailTable lays the cleaned rows out in source column order followed
// by the derived columns
func DetailTable(t *domain.Table) Table {
	n := t.SourceNames
	cols := t.Columns

	headers := []string{n.Date, n.Vehicle, n.Category, n.Destination, cols.Weight}
	if cols.Price != nil {
		headers = append(headers, *cols.Price)
	}
	if cols.Deduction != nil {
		headers = append(headers, *cols.Deduction)
	}
	if cols.HasFreight {
		headers = append(headers, n.Freight)
	}
	if cols.HasProfit {
		headers = append(headers, n.Profit)
	}
	if cols.HasMonthTags {
		headers = append(headers, n.MonthTag)
	}
	headers = append(headers, t.ExtraOrder...)
	headers = append(headers, colDateLabel, colWeekday, colWeekLabel,
		colProfitPerTon, colFreightPerTon, colMarginPct, colAnomaly)

	rows := make([][]interface{}, 0, len(t.Rows))
	for _, s := range t.Rows {
		row := []interface{}{s.Date.Format("2006-01-02"), s.Vehicle, s.Category, s.Destination, s.Weight}
		if cols.Price != nil {
			row = append(row, optional(s.SellPrice))
		}
		if cols.Deduction != nil {
			row = append(row, optional(s.Deduction))
		}
		if cols.HasFreight {
			row = append(row, s.Freight)
		}
		if cols.HasProfit {
			row = append(row, s.Profit)
		}
		if cols.HasMonthTags {
			row = append(row, s.MonthTag)
		}
		for _, h := range t.ExtraOrder {
			row = append(row, s.Extras[h])
		}
		row = append(row, s.DateLabel, s.WeekdayLabel, s.WeekLabel,
			s.ProfitPerTon, s.FreightPerTon, s.MarginPct, s.FreightAnomaly)
		rows = append(rows, row)
	}

	return Table{Name: SheetDetail, Headers: headers, Rows: rows}
}

// CategoryTable renders the category summary
func CategoryTable(cats []domain.CategorySummary) Table {
	t := Table{
		Name:    SheetCategories,
		Headers: []string{"类别", "总重量", "平均重量", "重量标准差", "总利润", "平均利润", "吨利润", "运费单价", "利润率"},
	}
	for _, c := range cats {
		t.Rows = append(t.Rows, []interface{}{
			c.Category, c.TotalWeight, c.MeanWeight, c.StdWeight,
			c.TotalProfit, c.MeanProfit, c.ProfitPerTon, c.FreightPerTon, c.MarginPct,
		})
	}
	return t
}

// DestinationTable renders the destination summary
func DestinationTable(dests []domain.DestinationSummary) Table {
	t := Table{
		Name:    SheetDestinations,
		Headers: []string{"发往地", "总重量", "总利润", "平均利润", "平均吨利润", "平均运费单价", "车次", "吨均运费"},
	}
	for _, d := range dests {
		t.Rows = append(t.Rows, []interface{}{
			d.Destination, d.TotalWeight, d.TotalProfit, d.MeanProfit,
			d.MeanProfitPerTon, d.MeanFreightPerTon, d.Trips, d.WeightedFreightPerTon,
		})
	}
	return t
}

// CostTable renders the per-destination cost table
func CostTable(costs []domain.DestinationCost) Table {
	t := Table{
		Name:    SheetCost,
		Headers: []string{"发往地", "运费", "预估利润", "重量", "运费占比", "利润率"},
	}
	for _, c := range costs {
		t.Rows = append(t.Rows, []interface{}{
			c.Destination, c.Freight, c.Profit, c.Weight, c.FreightRatio, c.ProfitRate,
		})
	}
	return t
}

// MonthlyTable renders the per-month comparison
func MonthlyTable(months []domain.MonthSummary) Table {
	t := Table{
		Name: SheetMonthly,
		Headers: []string{"月份", "总重量", "总利润", "总运费", "平均吨利润", "车次",
			"重量环比%", "利润环比%", "车次环比%"},
	}
	for _, m := range months {
		t.Rows = append(t.Rows, []interface{}{
			m.Month, m.TotalWeight, m.TotalProfit, m.TotalFreight, m.MeanProfitPerTon, m.Trips,
			m.WeightChangePct, m.ProfitChangePct, m.TripsChangePct,
		})
	}
	return t
}

func optional(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
