package analysis

import (
	"sort"
	"strings"

	"freightcli/internal/errors"
	"freightcli/pkg/contracts/domain"
)

// CompareMonths builds the month-over-month tables. It returns nil when
// compareMode is off or the table has no month tag column, and an
// AggregationError when the table is empty or no row is tagged. Months
// are ordered by tag with embedded numbers compared by value.
func CompareMonths(t *domain.Table, compareMode bool) (*domain.MonthlyComparison, error) {
	if !compareMode || !t.Columns.HasMonthTags {
		return nil, nil
	}
	if err := checkAggregatable(AggregateMonthly, t); err != nil {
		return nil, err
	}

	groups := groupBy(t.Rows, monthKey)
	if len(groups) == 0 {
		return nil, errors.NewEmptyAggregationError(AggregateMonthly, "no row carries a month tag")
	}
	sort.SliceStable(groups, func(i, j int) bool { return naturalLess(groups[i].key, groups[j].key) })

	months := make([]domain.MonthSummary, 0, len(groups))
	for i, g := range groups {
		m := domain.MonthSummary{
			Month:            g.key,
			TotalWeight:      round2(g.sumOf(weightOf)),
			TotalProfit:      round2(g.sumOf(profitOf)),
			TotalFreight:     round2(g.sumOf(freightOf)),
			MeanProfitPerTon: round2(g.meanOf(profitPerTonOf)),
			Trips:            len(g.rows),
		}
		if i > 0 {
			prev := months[i-1]
			m.WeightChangePct = round2(changePct(prev.TotalWeight, m.TotalWeight))
			m.ProfitChangePct = round2(changePct(prev.TotalProfit, m.TotalProfit))
			m.TripsChangePct = round2(changePct(float64(prev.Trips), float64(m.Trips)))
		}
		months = append(months, m)
	}

	monthRank := make(map[string]int, len(groups))
	for i, g := range groups {
		monthRank[g.key] = i
	}
	pairLess := func(a, b string) bool {
		ma, ka, _ := strings.Cut(a, routeSep)
		mb, kb, _ := strings.Cut(b, routeSep)
		if ma != mb {
			return monthRank[ma] < monthRank[mb]
		}
		return ka < kb
	}

	catGroups := groupBy(t.Rows, func(s *domain.Shipment) string {
		if s.MonthTag == "" {
			return ""
		}
		return s.MonthTag + routeSep + s.Category
	})
	sort.Slice(catGroups, func(i, j int) bool { return pairLess(catGroups[i].key, catGroups[j].key) })
	categories := make([]domain.MonthCategory, 0, len(catGroups))
	for _, g := range catGroups {
		month, category, _ := strings.Cut(g.key, routeSep)
		categories = append(categories, domain.MonthCategory{
			Month:    month,
			Category: category,
			Weight:   round2(g.sumOf(weightOf)),
			Profit:   round2(g.sumOf(profitOf)),
		})
	}

	destGroups := groupBy(t.Rows, func(s *domain.Shipment) string {
		if s.MonthTag == "" {
			return ""
		}
		return s.MonthTag + routeSep + s.Destination
	})
	sort.Slice(destGroups, func(i, j int) bool { return pairLess(destGroups[i].key, destGroups[j].key) })
	destinations := make([]domain.MonthDestination, 0, len(destGroups))
	for _, g := range destGroups {
		month, destination, _ := strings.Cut(g.key, routeSep)
		destinations = append(destinations, domain.MonthDestination{
			Month:       month,
			Destination: destination,
			Weight:      round2(g.sumOf(weightOf)),
			Profit:      round2(g.sumOf(profitOf)),
			Freight:     round2(g.sumOf(freightOf)),
		})
	}

	return &domain.MonthlyComparison{
		Months:       months,
		Categories:   categories,
		Destinations: destinations,
	}, nil
}
