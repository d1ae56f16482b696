package domain

// CategorySummary aggregates shipments of one category
type CategorySummary struct {
	Category      string  `json:"category"`
	TotalWeight   float64 `json:"total_weight"`
	MeanWeight    float64 `json:"mean_weight"`
	StdWeight     float64 `json:"std_weight"`
	TotalProfit   float64 `json:"total_profit"`
	MeanProfit    float64 `json:"mean_profit"`
	ProfitPerTon  float64 `json:"profit_per_ton"`
	FreightPerTon float64 `json:"freight_per_ton"`
	MarginPct     float64 `json:"margin_pct"`
}

// DestinationSummary aggregates shipments to one destination.
// WeightedFreightPerTon is Σfreight/Σweight, distinct from the mean of
// per-row ratios in MeanFreightPerTon.
type DestinationSummary struct {
	Destination           string  `json:"destination"`
	TotalWeight           float64 `json:"total_weight"`
	TotalProfit           float64 `json:"total_profit"`
	MeanProfit            float64 `json:"mean_profit"`
	MeanProfitPerTon      float64 `json:"mean_profit_per_ton"`
	MeanFreightPerTon     float64 `json:"mean_freight_per_ton"`
	Trips                 int     `json:"trips"`
	WeightedFreightPerTon float64 `json:"weighted_freight_per_ton"`
}

// WeekSummary aggregates shipments of one ISO week
type WeekSummary struct {
	WeekLabel   string  `json:"week_label"`
	ISOWeek     int     `json:"iso_week"`
	TotalWeight float64 `json:"total_weight"`
	MeanWeight  float64 `json:"mean_weight"`
	TotalProfit float64 `json:"total_profit"`
	MeanProfit  float64 `json:"mean_profit"`
	Trips       int     `json:"trips"`
}

// DaySummary aggregates shipments of one calendar day
type DaySummary struct {
	DateLabel   string  `json:"date_label"`
	TotalWeight float64 `json:"total_weight"`
	TotalProfit float64 `json:"total_profit"`
	Trips       int     `json:"trips"`
}

// Summaries bundles the four per-dimension tables
type Summaries struct {
	Categories   []CategorySummary    `json:"categories"`
	Destinations []DestinationSummary `json:"destinations"`
	Weeks        []WeekSummary        `json:"weeks"`
	Days         []DaySummary         `json:"days"`
}

// DestinationCost is one row of the per-destination cost table
type DestinationCost struct {
	Destination  string  `json:"destination"`
	Freight      float64 `json:"freight"`
	Profit       float64 `json:"profit"`
	Weight       float64 `json:"weight"`
	FreightRatio float64 `json:"freight_ratio"`
	ProfitRate   float64 `json:"profit_rate"`
}

// CategoryProfit is a category flagged by loss detection
type CategoryProfit struct {
	Category     string  `json:"category"`
	ProfitPerTon float64 `json:"profit_per_ton"`
	TotalProfit  float64 `json:"total_profit"`
	TotalWeight  float64 `json:"total_weight"`
}

// RouteProfit is one category×destination pair
type RouteProfit struct {
	Category         string  `json:"category"`
	Destination      string  `json:"destination"`
	MeanProfitPerTon float64 `json:"mean_profit_per_ton"`
	TotalProfit      float64 `json:"total_profit"`
	TotalWeight      float64 `json:"total_weight"`
	Trips            int     `json:"trips"`
}

// CostAnalysis is the cost and loss detection bundle
type CostAnalysis struct {
	TotalFreightRatio  float64           `json:"total_freight_ratio"`
	Destinations       []DestinationCost `json:"destinations"`
	LossCategories     []CategoryProfit  `json:"loss_categories"`
	LossRoutes         []RouteProfit     `json:"loss_routes"`
	LowProfitRoutes    []RouteProfit     `json:"low_profit_routes"`
	MeanProfitPerTon   float64           `json:"mean_profit_per_ton"`
	LowProfitThreshold float64           `json:"low_profit_threshold"`
}

// MonthSummary aggregates one month tag. Change fields are percent change
// against the previous month; the first month is 0.
type MonthSummary struct {
	Month            string  `json:"month"`
	TotalWeight      float64 `json:"total_weight"`
	TotalProfit      float64 `json:"total_profit"`
	TotalFreight     float64 `json:"total_freight"`
	MeanProfitPerTon float64 `json:"mean_profit_per_ton"`
	Trips            int     `json:"trips"`
	WeightChangePct  float64 `json:"weight_change_pct"`
	ProfitChangePct  float64 `json:"profit_change_pct"`
	TripsChangePct   float64 `json:"trips_change_pct"`
}

// MonthCategory is one month×category cell
type MonthCategory struct {
	Month    string  `json:"month"`
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
	Profit   float64 `json:"profit"`
}

// MonthDestination is one month×destination cell
type MonthDestination struct {
	Month       string  `json:"month"`
	Destination string  `json:"destination"`
	Weight      float64 `json:"weight"`
	Profit      float64 `json:"profit"`
	Freight     float64 `json:"freight"`
}

// MonthlyComparison exists only for multi-month runs
type MonthlyComparison struct {
	Months       []MonthSummary     `json:"months"`
	Categories   []MonthCategory    `json:"categories"`
	Destinations []MonthDestination `json:"destinations"`
}

// KPIs are the headline figures of a run
type KPIs struct {
	TotalWeight     float64 `json:"total_weight"`
	TotalProfit     float64 `json:"total_profit"`
	TotalProfitWan  float64 `json:"total_profit_wan"`
	AvgProfitPerTon float64 `json:"avg_profit_per_ton"`
	Shipments       int     `json:"shipments"`
	AvgDailyWeight  float64 `json:"avg_daily_weight"`
	Days            int     `json:"days"`
	AnomalyCount    int     `json:"anomaly_count"`
	PeakDay         string  `json:"peak_day"`
	PeakDayWeight   float64 `json:"peak_day_weight"`
	TroughDay       string  `json:"trough_day"`
	TroughDayWeight float64 `json:"trough_day_weight"`
	FirstDate       string  `json:"first_date"`
	LastDate        string  `json:"last_date"`
}

// VehicleRank scores a vehicle by volume and trip count
type VehicleRank struct {
	Vehicle     string  `json:"vehicle"`
	TotalWeight float64 `json:"total_weight"`
	Trips       int     `json:"trips"`
	Score       float64 `json:"score"`
}

// InsightLevel grades an operating suggestion
type InsightLevel string

const (
	InsightWarning  InsightLevel = "warning"
	InsightNotice   InsightLevel = "notice"
	InsightPositive InsightLevel = "positive"
)

// Insight is one operating suggestion derived from the aggregates
type Insight struct {
	Kind    string       `json:"kind"`
	Level   InsightLevel `json:"level"`
	Title   string       `json:"title"`
	Message string       `json:"message"`
}
