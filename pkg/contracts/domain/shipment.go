package domain

import "time"

// Numeric fields tracked in Shipment.NonNumeric and Shipment.Missing
const (
	FieldWeight    = "weight"
	FieldPrice     = "price"
	FieldDeduction = "deduction"
	FieldFreight   = "freight"
	FieldProfit    = "profit"
)

// Shipment is one cleaned and enriched row of the working table
type Shipment struct {
	Vehicle     string `json:"vehicle"`
	Category    string `json:"category"`
	Destination string `json:"destination"`

	RawDate      Cell      `json:"raw_date"`
	Date         time.Time `json:"date"`
	DateLabel    string    `json:"date_label"`
	Weekday      int       `json:"weekday"` // 0 = Monday
	WeekdayLabel string    `json:"weekday_label"`
	ISOWeek      int       `json:"iso_week"`
	WeekLabel    string    `json:"week_label"`
	MonthTag     string    `json:"month_tag,omitempty"`

	Weight    float64  `json:"weight"`
	SellPrice *float64 `json:"sell_price,omitempty"`
	Deduction *float64 `json:"deduction,omitempty"`
	Freight   float64  `json:"freight"`
	Profit    float64  `json:"profit"`

	ProfitPerTon   float64 `json:"profit_per_ton"`
	FreightPerTon  float64 `json:"freight_per_ton"`
	MarginPct      float64 `json:"margin_pct"`
	FreightAnomaly bool    `json:"freight_anomaly"`

	// NonNumeric names numeric fields whose source cell held unparseable
	// text. Missing names numeric fields that were blank or unparseable
	// before zero-filling.
	NonNumeric []string `json:"non_numeric,omitempty"`
	Missing    []string `json:"missing,omitempty"`

	// Extras keeps unmapped source columns by header for export and
	// duplicate detection.
	Extras map[string]string `json:"extras,omitempty"`
}

// HasFlag reports whether field appears in list
func HasFlag(list []string, field string) bool {
	for _, f := range list {
		if f == field {
			return true
		}
	}
	return false
}

// ColumnInfo records which source headers were resolved for optional roles.
// A nil pointer means the role was not found and dependent steps were skipped.
type ColumnInfo struct {
	Deduction    *string `json:"deduction"`
	Price        *string `json:"price"`
	Weight       string  `json:"weight"`
	HasFreight   bool    `json:"has_freight"`
	HasProfit    bool    `json:"has_profit"`
	HasMonthTags bool    `json:"has_month_tags"`
}

// Table is the cleaned, date-sorted shipment table. It is not modified
// after cleaning returns.
type Table struct {
	Rows        []Shipment        `json:"rows"`
	Columns     ColumnInfo        `json:"columns"`
	ExtraOrder  []string          `json:"extra_order,omitempty"`
	SourceNames SourceColumnNames `json:"source_names"`
}

// SourceColumnNames remembers the headers the table was built from so it
// can be written back out in the source layout.
type SourceColumnNames struct {
	Date        string `json:"date"`
	Vehicle     string `json:"vehicle"`
	Category    string `json:"category"`
	Destination string `json:"destination"`
	Freight     string `json:"freight"`
	Profit      string `json:"profit"`
	MonthTag    string `json:"month_tag"`
}

// Len returns the number of shipments
func (t *Table) Len() int { return len(t.Rows) }

// MonthTags returns the distinct month tags in first-seen order
func (t *Table) MonthTags() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Rows {
		if r.MonthTag == "" || seen[r.MonthTag] {
			continue
		}
		seen[r.MonthTag] = true
		out = append(out, r.MonthTag)
	}
	return out
}
