package analysis

import (
	"freightcli/pkg/contracts/domain"
)

// Summarize builds the category, destination, week and day tables.
// Categories and destinations are in lexicographic order, weeks and days
// in chronological order. All values are rounded to 2 decimals.
func Summarize(t *domain.Table) (domain.Summaries, error) {
	if err := checkAggregatable(AggregateSummary, t); err != nil {
		return domain.Summaries{}, err
	}

	return domain.Summaries{
		Categories:   summarizeCategories(t.Rows),
		Destinations: summarizeDestinations(t.Rows),
		Weeks:        summarizeWeeks(t.Rows),
		Days:         SummarizeDays(t.Rows),
	}, nil
}

func summarizeCategories(rows []domain.Shipment) []domain.CategorySummary {
	groups := sortedGroupBy(rows, categoryKey)
	out := make([]domain.CategorySummary, 0, len(groups))
	for _, g := range groups {
		weights := g.values(weightOf)
		out = append(out, domain.CategorySummary{
			Category:      g.key,
			TotalWeight:   round2(sum(weights)),
			MeanWeight:    round2(mean(weights)),
			StdWeight:     round2(sampleStd(weights)),
			TotalProfit:   round2(g.sumOf(profitOf)),
			MeanProfit:    round2(g.meanOf(profitOf)),
			ProfitPerTon:  round2(g.meanOf(profitPerTonOf)),
			FreightPerTon: round2(g.meanOf(freightPerTonOf)),
			MarginPct:     round2(g.meanOf(marginOf)),
		})
	}
	return out
}

func summarizeDestinations(rows []domain.Shipment) []domain.DestinationSummary {
	groups := sortedGroupBy(rows, destinationKey)
	out := make([]domain.DestinationSummary, 0, len(groups))
	for _, g := range groups {
		weight := g.sumOf(weightOf)
		freight := g.sumOf(freightOf)
		weighted := 0.0
		if weight > 0 {
			weighted = freight / weight
		}
		out = append(out, domain.DestinationSummary{
			Destination:           g.key,
			TotalWeight:           round2(weight),
			TotalProfit:           round2(g.sumOf(profitOf)),
			MeanProfit:            round2(g.meanOf(profitOf)),
			MeanProfitPerTon:      round2(g.meanOf(profitPerTonOf)),
			MeanFreightPerTon:     round2(g.meanOf(freightPerTonOf)),
			Trips:                 len(g.rows),
			WeightedFreightPerTon: round2(weighted),
		})
	}
	return out
}

func summarizeWeeks(rows []domain.Shipment) []domain.WeekSummary {
	groups := groupBy(rows, weekKey)
	out := make([]domain.WeekSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, domain.WeekSummary{
			WeekLabel:   g.key,
			ISOWeek:     g.rows[0].ISOWeek,
			TotalWeight: round2(g.sumOf(weightOf)),
			MeanWeight:  round2(g.meanOf(weightOf)),
			TotalProfit: round2(g.sumOf(profitOf)),
			MeanProfit:  round2(g.meanOf(profitOf)),
			Trips:       len(g.rows),
		})
	}
	return out
}

// SummarizeDays totals weight, profit and trips per calendar day in date
// order. rows must be date-sorted.
func SummarizeDays(rows []domain.Shipment) []domain.DaySummary {
	groups := groupBy(rows, dayKey)
	out := make([]domain.DaySummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, domain.DaySummary{
			DateLabel:   g.key,
			TotalWeight: round2(g.sumOf(weightOf)),
			TotalProfit: round2(g.sumOf(profitOf)),
			Trips:       len(g.rows),
		})
	}
	return out
}
