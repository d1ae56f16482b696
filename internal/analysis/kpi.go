package analysis

import (
	"sort"

	"freightcli/pkg/contracts/domain"
)

const (
	vehicleWeightShare = 0.7
	vehicleTripShare   = 0.3
)

// ComputeKPIs derives the headline figures. days is the daily summary of
// the same table; peak and trough are its heaviest and lightest days,
// first occurrence winning ties.
func ComputeKPIs(t *domain.Table, days []domain.DaySummary) domain.KPIs {
	totalWeight := sum(valuesOf(t.Rows, weightOf))
	totalProfit := sum(valuesOf(t.Rows, profitOf))

	k := domain.KPIs{
		TotalWeight:     round2(totalWeight),
		TotalProfit:     round2(totalProfit),
		TotalProfitWan:  round2(totalProfit / 10000),
		AvgProfitPerTon: round2(safeRatio(totalProfit, totalWeight)),
		Shipments:       t.Len(),
		Days:            len(days),
	}
	for i := range t.Rows {
		if t.Rows[i].FreightAnomaly {
			k.AnomalyCount++
		}
	}
	if t.Len() > 0 {
		k.FirstDate = t.Rows[0].Date.Format("2006-01-02")
		k.LastDate = t.Rows[t.Len()-1].Date.Format("2006-01-02")
	}

	if len(days) > 0 {
		dayTotals := make([]float64, len(days))
		peak, trough := 0, 0
		for i, d := range days {
			dayTotals[i] = d.TotalWeight
			if d.TotalWeight > days[peak].TotalWeight {
				peak = i
			}
			if d.TotalWeight < days[trough].TotalWeight {
				trough = i
			}
		}
		k.AvgDailyWeight = round2(mean(dayTotals))
		k.PeakDay, k.PeakDayWeight = days[peak].DateLabel, days[peak].TotalWeight
		k.TroughDay, k.TroughDayWeight = days[trough].DateLabel, days[trough].TotalWeight
	}
	return k
}

// TopVehicles ranks vehicles by a blend of total weight (70%) and trip
// count (30%), each relative to the best vehicle, scaled to 100. At most
// n vehicles are returned; ties keep vehicle order.
func TopVehicles(t *domain.Table, n int) []domain.VehicleRank {
	groups := sortedGroupBy(t.Rows, vehicleKey)
	ranks := make([]domain.VehicleRank, 0, len(groups))
	maxWeight, maxTrips := 0.0, 0
	for _, g := range groups {
		r := domain.VehicleRank{
			Vehicle:     g.key,
			TotalWeight: g.sumOf(weightOf),
			Trips:       len(g.rows),
		}
		if r.TotalWeight > maxWeight {
			maxWeight = r.TotalWeight
		}
		if r.Trips > maxTrips {
			maxTrips = r.Trips
		}
		ranks = append(ranks, r)
	}
	if maxWeight == 0 {
		maxWeight = 1
	}
	if maxTrips == 0 {
		maxTrips = 1
	}

	for i := range ranks {
		r := &ranks[i]
		r.Score = round2((r.TotalWeight/maxWeight*vehicleWeightShare +
			float64(r.Trips)/float64(maxTrips)*vehicleTripShare) * 100)
		r.TotalWeight = round2(r.TotalWeight)
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].Score > ranks[j].Score })

	if n > 0 && len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks
}

func safeRatio(num, den float64) float64 {
	if den > 0 {
		return num / den
	}
	return 0
}
