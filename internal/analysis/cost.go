package analysis

import (
	"sort"
	"strings"

	"freightcli/pkg/contracts/domain"
)

const (
	// lowProfitFactor places the low-profit threshold at half the mean
	// profit per ton
	lowProfitFactor = 0.5

	// minRouteWeight is the tonnage a route must exceed to be flagged
	minRouteWeight = 1.0
)

// AnalyzeCost computes the freight share of revenue, per-destination
// cost ratios and the loss and low-profit warnings. Revenue is
// approximated as freight + profit.
func AnalyzeCost(t *domain.Table) (domain.CostAnalysis, error) {
	if err := checkAggregatable(AggregateCost, t); err != nil {
		return domain.CostAnalysis{}, err
	}

	totalFreight := sum(valuesOf(t.Rows, freightOf))
	totalProfit := sum(valuesOf(t.Rows, profitOf))

	avg := mean(valuesOf(t.Rows, profitPerTonOf))
	threshold := avg * lowProfitFactor

	routes := routeProfits(t.Rows)
	var loss, low []domain.RouteProfit
	for _, r := range routes {
		switch {
		case r.MeanProfitPerTon < 0 && r.TotalWeight > minRouteWeight:
			loss = append(loss, r)
		case r.MeanProfitPerTon > 0 && r.MeanProfitPerTon < threshold && r.TotalWeight > minRouteWeight:
			low = append(low, r)
		}
	}
	byMean := func(list []domain.RouteProfit) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].MeanProfitPerTon < list[j].MeanProfitPerTon })
	}
	byMean(loss)
	byMean(low)

	return domain.CostAnalysis{
		TotalFreightRatio:  round2(ratioPct(totalFreight, totalFreight+totalProfit)),
		Destinations:       destinationCosts(t.Rows),
		LossCategories:     lossCategories(t.Rows),
		LossRoutes:         nonNil(loss),
		LowProfitRoutes:    nonNil(low),
		MeanProfitPerTon:   round2(avg),
		LowProfitThreshold: round2(threshold),
	}, nil
}

// destinationCosts is sorted by profit rate, highest first
func destinationCosts(rows []domain.Shipment) []domain.DestinationCost {
	groups := sortedGroupBy(rows, destinationKey)
	out := make([]domain.DestinationCost, 0, len(groups))
	for _, g := range groups {
		freight := round2(g.sumOf(freightOf))
		profit := round2(g.sumOf(profitOf))
		out = append(out, domain.DestinationCost{
			Destination:  g.key,
			Freight:      freight,
			Profit:       profit,
			Weight:       round2(g.sumOf(weightOf)),
			FreightRatio: round1(ratioPct(freight, freight+profit)),
			ProfitRate:   round1(ratioPct(profit, freight)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProfitRate > out[j].ProfitRate })
	return out
}

// lossCategories lists categories whose mean profit per ton is negative,
// most negative first
func lossCategories(rows []domain.Shipment) []domain.CategoryProfit {
	out := []domain.CategoryProfit{}
	for _, g := range sortedGroupBy(rows, categoryKey) {
		ppt := round2(g.meanOf(profitPerTonOf))
		if ppt >= 0 {
			continue
		}
		out = append(out, domain.CategoryProfit{
			Category:     g.key,
			ProfitPerTon: ppt,
			TotalProfit:  round2(g.sumOf(profitOf)),
			TotalWeight:  round2(g.sumOf(weightOf)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProfitPerTon < out[j].ProfitPerTon })
	return out
}

// routeProfits aggregates every category×destination pair in
// lexicographic order
func routeProfits(rows []domain.Shipment) []domain.RouteProfit {
	groups := sortedGroupBy(rows, routeKey)
	out := make([]domain.RouteProfit, 0, len(groups))
	for _, g := range groups {
		category, destination, _ := strings.Cut(g.key, routeSep)
		out = append(out, domain.RouteProfit{
			Category:         category,
			Destination:      destination,
			MeanProfitPerTon: round2(g.meanOf(profitPerTonOf)),
			TotalProfit:      round2(g.sumOf(profitOf)),
			TotalWeight:      round2(g.sumOf(weightOf)),
			Trips:            len(g.rows),
		})
	}
	return out
}

func valuesOf(rows []domain.Shipment, f func(*domain.Shipment) float64) []float64 {
	out := make([]float64, len(rows))
	for i := range rows {
		out[i] = f(&rows[i])
	}
	return out
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
