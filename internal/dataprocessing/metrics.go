package dataprocessing

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"freightcli/pkg/contracts/domain"
)

// anomalySigmas is how many standard deviations above the mean
// freight-per-ton must be to count as anomalous.
const anomalySigmas = 2.0

// deriveMetrics fills the per-row ratios and the freight anomaly flag.
// Freight and profit are already zero-filled.
func deriveMetrics(rows []domain.Shipment) {
	fpt := make([]float64, len(rows))
	for i := range rows {
		r := &rows[i]
		r.ProfitPerTon = ProfitPerTon(r.Profit, r.Weight)
		r.FreightPerTon = safeDiv(r.Freight, r.Weight)
		r.MarginPct = MarginPct(r.Profit, r.Freight)
		fpt[i] = r.FreightPerTon
	}

	threshold, ok := AnomalyThreshold(fpt)
	for i := range rows {
		rows[i].FreightAnomaly = ok && rows[i].FreightPerTon > threshold
	}
}

// ProfitPerTon is profit/weight, or 0 when weight is not positive.
func ProfitPerTon(profit, weight float64) float64 {
	return safeDiv(profit, weight)
}

// MarginPct is profit/freight×100, or 0 when freight is not positive.
func MarginPct(profit, freight float64) float64 {
	if freight > 0 {
		return profit / freight * 100
	}
	return 0
}

// AnomalyThreshold returns mean + 2·stddev of values using the sample
// standard deviation. A zero deviation is replaced by 1 so identical
// values are never flagged. ok is false with fewer than two values.
func AnomalyThreshold(values []float64) (threshold float64, ok bool) {
	if len(values) < 2 {
		return 0, false
	}
	mean, std := stat.MeanStdDev(values, nil)
	if math.IsNaN(std) {
		return 0, false
	}
	if std == 0 {
		std = 1
	}
	return mean + anomalySigmas*std, true
}

func safeDiv(num, den float64) float64 {
	if den > 0 {
		return num / den
	}
	return 0
}
