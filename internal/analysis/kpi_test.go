package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightcli/pkg/contracts/domain"
)

func TestComputeKPIs(t *testing.T) {
	table := buildTable(
		row{day: 0, vehicle: "鲁A1", category: "钢材", destination: "济南", weight: 10, freight: 100, profit: 20000},
		row{day: 0, vehicle: "鲁A2", category: "钢材", destination: "济南", weight: 30, freight: 100, profit: 10000},
		row{day: 2, vehicle: "鲁A1", category: "钢材", destination: "济南", weight: 20, freight: 100, profit: 0},
	)
	table.Rows[2].FreightAnomaly = true

	k := ComputeKPIs(table, SummarizeDays(table.Rows))

	assert.Equal(t, 60.0, k.TotalWeight)
	assert.Equal(t, 30000.0, k.TotalProfit)
	assert.Equal(t, 3.0, k.TotalProfitWan)
	assert.Equal(t, 500.0, k.AvgProfitPerTon)
	assert.Equal(t, 3, k.Shipments)
	assert.Equal(t, 2, k.Days)
	assert.Equal(t, 30.0, k.AvgDailyWeight)
	assert.Equal(t, "3月1日", k.PeakDay)
	assert.Equal(t, 40.0, k.PeakDayWeight)
	assert.Equal(t, "3月3日", k.TroughDay)
	assert.Equal(t, 1, k.AnomalyCount)
	assert.Equal(t, "2024-03-01", k.FirstDate)
	assert.Equal(t, "2024-03-03", k.LastDate)
}

func TestComputeKPIs_Empty(t *testing.T) {
	k := ComputeKPIs(&domain.Table{}, nil)
	assert.Equal(t, 0.0, k.AvgProfitPerTon)
	assert.Equal(t, 0.0, k.AvgDailyWeight)
	assert.Empty(t, k.PeakDay)
}

func TestTopVehicles(t *testing.T) {
	var rows []row
	add := func(vehicle string, trips int, weight float64) {
		for i := 0; i < trips; i++ {
			rows = append(rows, row{day: i, vehicle: vehicle, category: "钢材", destination: "济南", weight: weight})
		}
	}
	add("鲁A1", 4, 25) // 100t, 4 trips
	add("鲁A2", 2, 25) // 50t, 2 trips
	add("鲁A3", 1, 80) // 80t, 1 trip
	for i := 0; i < 8; i++ {
		add("鲁B"+string(rune('0'+i)), 1, 1)
	}

	ranks := TopVehicles(buildTable(rows...), 8)

	require.Len(t, ranks, 8)
	assert.Equal(t, "鲁A1", ranks[0].Vehicle)
	assert.Equal(t, 100.0, ranks[0].Score)
	assert.Equal(t, "鲁A3", ranks[1].Vehicle)
	assert.Equal(t, 63.5, ranks[1].Score, "80/100*0.7 + 1/4*0.3")
	assert.Equal(t, "鲁A2", ranks[2].Vehicle)
	assert.Equal(t, 50.0, ranks[2].Score)
	assert.Equal(t, "鲁B0", ranks[3].Vehicle, "ties keep vehicle order")
}

func TestInsights(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		got := Insights(domain.Summaries{}, domain.CostAnalysis{}, nil)
		require.Len(t, got, 1)
		assert.Equal(t, "healthy", got[0].Kind)
	})

	t.Run("warnings", func(t *testing.T) {
		s := domain.Summaries{
			Destinations: []domain.DestinationSummary{
				{Destination: "济南", TotalWeight: 90},
				{Destination: "青岛", TotalWeight: 10},
			},
		}
		c := domain.CostAnalysis{
			TotalFreightRatio: 65,
			LossRoutes:        []domain.RouteProfit{{Category: "煤炭", Destination: "青岛"}},
		}
		top := []domain.VehicleRank{{Vehicle: "鲁A1", Score: 95}}

		got := Insights(s, c, top)

		kinds := make([]string, 0, len(got))
		for _, in := range got {
			kinds = append(kinds, in.Kind)
		}
		assert.Equal(t, []string{"loss_routes", "freight_ratio", "destination_concentration", "star_vehicle"}, kinds)
		assert.Equal(t, domain.InsightWarning, got[1].Level)
		assert.Contains(t, got[2].Message, "济南")
		assert.Contains(t, got[2].Message, "90.0%")
	})
}
