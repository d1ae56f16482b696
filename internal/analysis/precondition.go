package analysis

import (
	"freightcli/internal/errors"
	"freightcli/pkg/contracts/domain"
)

// Aggregate names used in AggregationError
const (
	AggregateSummary = "summary"
	AggregateCost    = "cost_analysis"
	AggregateMonthly = "monthly_comparison"
)

// checkAggregatable fails on an empty table and when the freight or profit
// column was never resolved; zero-filled values would otherwise pass as
// real figures
func checkAggregatable(aggregate string, t *domain.Table) error {
	if t.Len() == 0 {
		return errors.NewEmptyAggregationError(aggregate, "table has no rows")
	}
	if !t.Columns.HasFreight {
		return errors.NewAggregationError(aggregate, t.SourceNames.Freight)
	}
	if !t.Columns.HasProfit {
		return errors.NewAggregationError(aggregate, t.SourceNames.Profit)
	}
	return nil
}
