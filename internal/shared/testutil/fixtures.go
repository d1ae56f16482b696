package testutil

import (
	"fmt"
	"testing"
	"time"

	"freightcli/pkg/contracts/domain"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// ShipmentHeaders is the column layout of the fixture workbooks
var ShipmentHeaders = []string{"发货日期", "车牌号", "类别", "发往地", "重量（吨）", "卖出价", "扣点", "运费", "预估利润", "备注"}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T { return &v }

// Shipment builds a cleaned shipment with derived metrics filled in
func Shipment(date time.Time, vehicle, category, dest string, weight, freight, profit float64) domain.Shipment {
	s := domain.Shipment{
		Vehicle:      vehicle,
		Category:     category,
		Destination:  dest,
		RawDate:      domain.TimeCell(date),
		Date:         date,
		DateLabel:    date.Format("1月2日"),
		Weekday:      (int(date.Weekday()) + 6) % 7,
		Weight:       weight,
		SellPrice:    Ptr(500.0),
		Deduction:    Ptr(0.0),
		Freight:      freight,
		Profit:       profit,
		WeekdayLabel: []string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}[(int(date.Weekday())+6)%7],
	}
	_, s.ISOWeek = date.ISOWeek()
	s.WeekLabel = fmt.Sprintf("第%d周", s.ISOWeek)
	if weight > 0 {
		s.ProfitPerTon = profit / weight
		s.FreightPerTon = freight / weight
	}
	if freight+profit != 0 {
		s.MarginPct = profit / (freight + profit) * 100
	}
	return s
}

// SampleTable returns a small cleaned table covering two categories, two
// destinations, three vehicles and two month tags
func SampleTable() *domain.Table {
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }

	rows := []domain.Shipment{
		Shipment(day(3, 1), "鲁A1", "煤炭", "天津", 30, 1200, 600),
		Shipment(day(3, 1), "鲁A2", "矿石", "青岛", 20, 900, 300),
		Shipment(day(3, 2), "鲁A1", "煤炭", "青岛", 32, 1300, 640),
		Shipment(day(4, 3), "鲁A3", "矿石", "天津", 25, 1000, -50),
		Shipment(day(4, 4), "鲁A1", "煤炭", "天津", 28, 1100, 560),
	}
	for i := range rows {
		rows[i].MonthTag = "3月"
		if rows[i].Date.Month() == time.April {
			rows[i].MonthTag = "4月"
		}
		rows[i].Extras = map[string]string{"备注": ""}
	}

	return &domain.Table{
		Rows: rows,
		Columns: domain.ColumnInfo{
			Price:        Ptr("卖出价"),
			Deduction:    Ptr("扣点"),
			Weight:       "重量（吨）",
			HasFreight:   true,
			HasProfit:    true,
			HasMonthTags: true,
		},
		ExtraOrder: []string{"备注"},
		SourceNames: domain.SourceColumnNames{
			Date:        "发货日期",
			Vehicle:     "车牌号",
			Category:    "类别",
			Destination: "发往地",
			Freight:     "运费",
			Profit:      "预估利润",
			MonthTag:    "月份标签",
		},
	}
}

// SampleAnalysis returns an analysis with hand-filled summaries over
// SampleTable, suitable for rendering and export tests
func SampleAnalysis() *domain.Analysis {
	return &domain.Analysis{
		RunID:       "run-test",
		Source:      "运费.xlsx",
		Sheets:      []string{"3月", "4月"},
		TitlePrefix: "多月对比",
		CompareMode: true,
		GeneratedAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		RawRows:     6,
		Dropped:     map[string]int{"price_is_one": 1},
		Table:       SampleTable(),
		Quality: domain.QualityReport{
			Score:     95,
			IsHealthy: true,
			Stats:     domain.QualityStats{Rows: 5},
		},
		Summaries: domain.Summaries{
			Categories: []domain.CategorySummary{
				{Category: "煤炭", TotalWeight: 90, MeanWeight: 30, StdWeight: 2, TotalProfit: 1800, MeanProfit: 600, ProfitPerTon: 20, FreightPerTon: 40, MarginPct: 33.33},
				{Category: "矿石", TotalWeight: 45, MeanWeight: 22.5, StdWeight: 3.54, TotalProfit: 250, MeanProfit: 125, ProfitPerTon: 6.5, FreightPerTon: 42.5, MarginPct: 10},
			},
			Destinations: []domain.DestinationSummary{
				{Destination: "天津", TotalWeight: 83, TotalProfit: 1110, MeanProfit: 370, MeanProfitPerTon: 12.67, MeanFreightPerTon: 39.9, Trips: 3, WeightedFreightPerTon: 39.76},
				{Destination: "青岛", TotalWeight: 52, TotalProfit: 940, MeanProfit: 470, MeanProfitPerTon: 17.5, MeanFreightPerTon: 42.8, Trips: 2, WeightedFreightPerTon: 42.31},
			},
			Weeks: []domain.WeekSummary{
				{WeekLabel: "第9周", ISOWeek: 9, TotalWeight: 82, MeanWeight: 27.33, TotalProfit: 1540, MeanProfit: 513.33, Trips: 3},
				{WeekLabel: "第14周", ISOWeek: 14, TotalWeight: 53, MeanWeight: 26.5, TotalProfit: 510, MeanProfit: 255, Trips: 2},
			},
			Days: []domain.DaySummary{
				{DateLabel: "3月1日", TotalWeight: 50, TotalProfit: 900, Trips: 2},
				{DateLabel: "3月2日", TotalWeight: 32, TotalProfit: 640, Trips: 1},
				{DateLabel: "4月3日", TotalWeight: 25, TotalProfit: -50, Trips: 1},
				{DateLabel: "4月4日", TotalWeight: 28, TotalProfit: 560, Trips: 1},
			},
		},
		Cost: domain.CostAnalysis{
			TotalFreightRatio: 70.3,
			Destinations: []domain.DestinationCost{
				{Destination: "青岛", Freight: 2200, Profit: 940, Weight: 52, FreightRatio: 70.1, ProfitRate: 42.7},
				{Destination: "天津", Freight: 3300, Profit: 1110, Weight: 83, FreightRatio: 74.8, ProfitRate: 33.6},
			},
			LossRoutes: []domain.RouteProfit{
				{Category: "矿石", Destination: "天津", MeanProfitPerTon: -2, TotalProfit: -50, TotalWeight: 25, Trips: 1},
			},
			MeanProfitPerTon:   15.47,
			LowProfitThreshold: 7.74,
		},
		Monthly: &domain.MonthlyComparison{
			Months: []domain.MonthSummary{
				{Month: "3月", TotalWeight: 82, TotalProfit: 1540, TotalFreight: 3400, MeanProfitPerTon: 18.67, Trips: 3},
				{Month: "4月", TotalWeight: 53, TotalProfit: 510, TotalFreight: 2100, MeanProfitPerTon: 8.0, Trips: 2,
					WeightChangePct: -35.4, ProfitChangePct: -66.9, TripsChangePct: -33.3},
			},
		},
		KPIs: domain.KPIs{
			TotalWeight:     135,
			TotalProfit:     2050,
			TotalProfitWan:  0.21,
			AvgProfitPerTon: 15.19,
			Shipments:       5,
			AvgDailyWeight:  33.75,
			Days:            4,
			PeakDay:         "3月1日",
			PeakDayWeight:   50,
			TroughDay:       "4月3日",
			TroughDayWeight: 25,
			FirstDate:       "2024-03-01",
			LastDate:        "2024-04-04",
		},
		TopVehicles: []domain.VehicleRank{
			{Vehicle: "鲁A1", TotalWeight: 90, Trips: 3, Score: 100},
		},
		Insights: []domain.Insight{
			{Kind: "loss_routes", Level: domain.InsightWarning, Title: "亏损线路", Message: "矿石→天津 吨利润为负"},
		},
	}
}

// WriteWorkbook saves a workbook with one sheet per name in order. Rows
// are written verbatim from A1, so callers include any title and header
// rows themselves.
func WriteWorkbook(t *testing.T, path string, order []string, sheets map[string][][]interface{}) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			rowCopy := row
			require.NoError(t, f.SetSheetRow(name, cell, &rowCopy))
		}
	}

	require.NoError(t, f.SaveAs(path))
}
