// Package analysis aggregates a cleaned shipment table into the tables the
// dashboard and report are built from: per-dimension summaries, the cost
// and loss bundle, the month-over-month comparison, headline KPIs, the
// vehicle ranking and operating suggestions.
//
// Every function takes the table explicitly and returns new values; none
// of them log or keep state. Aggregates that depend on the freight or
// profit column return an AggregationError when that column was never
// resolved, rather than a table of zeros.
package analysis
