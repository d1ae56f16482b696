package dataprocessing

import (
	"context"
	"log/slog"
	"sort"

	"freightcli/internal/config"
	"freightcli/internal/errors"
	"freightcli/pkg/contracts/domain"
)

// Filter steps, in the order they are applied
const (
	StepMissingDate       = "missing_date"
	StepMissingDeduction  = "missing_deduction"
	StepInvalidPrice      = "invalid_price"
	StepMissingBaseFields = "missing_base_fields"
	StepNonPositiveWeight = "non_positive_weight"
	StepUnparseableDate   = "unparseable_date"
)

// minSellPrice filters placeholder prices of 0 or 1; kept prices are
// strictly greater.
const minSellPrice = 1.0

// DropCount is the number of rows one filter step removed
type DropCount struct {
	Step string `json:"step"`
	Rows int    `json:"rows"`
}

// FilterStats describes what Clean removed
type FilterStats struct {
	Input  int         `json:"input"`
	Output int         `json:"output"`
	Drops  []DropCount `json:"drops"`
}

// Total returns the number of dropped rows across all steps
func (s FilterStats) Total() int {
	n := 0
	for _, d := range s.Drops {
		n += d.Rows
	}
	return n
}

// AsMap returns drops keyed by step
func (s FilterStats) AsMap() map[string]int {
	m := make(map[string]int, len(s.Drops))
	for _, d := range s.Drops {
		m[d.Step] = d.Rows
	}
	return m
}

// Cleaner filters and enriches raw shipment tables. It holds no state
// between calls and is safe for concurrent use.
type Cleaner struct {
	logger *slog.Logger
	cfg    config.AnalysisConfig
}

// NewCleaner creates a Cleaner for the given column configuration
func NewCleaner(logger *slog.Logger, cfg config.AnalysisConfig) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		logger: logger.With(slog.String("component", "cleaner")),
		cfg:    cfg,
	}
}

// layout holds resolved column positions; -1 means absent
type layout struct {
	date, vehicle, category, destination int
	weight, price, deduction             int
	freight, profit, monthTag            int
	extras                               []int
	info                                 domain.ColumnInfo
	names                                domain.SourceColumnNames
}

// working is a row between coercion and enrichment
type working struct {
	src        []domain.Cell
	weight     float64
	hasWeight  bool
	price      float64
	hasPrice   bool
	deduction  float64
	hasDeduct  bool
	freight    float64
	hasFreight bool
	profit     float64
	hasProfit  bool
	nonNumeric []string
}

// Clean applies the fixed filter sequence to raw, normalizes dates, sorts
// by date and derives per-row metrics. raw is not modified.
func (c *Cleaner) Clean(ctx context.Context, raw *domain.RawTable) (*domain.Table, FilterStats, error) {
	stats := FilterStats{Input: raw.Len()}

	headers := NormalizeHeaders(raw.Headers)
	lay, err := c.resolveLayout(ctx, headers)
	if err != nil {
		return nil, stats, err
	}

	rows := make([]working, 0, raw.Len())
	for _, src := range raw.Rows {
		rows = append(rows, coerceRow(src, lay))
	}

	// 2. shipment date present
	rows = c.filter(ctx, &stats, StepMissingDate, rows, func(w *working) bool {
		return !w.src[lay.date].IsEmpty()
	})

	// 3. deduction present
	if lay.deduction >= 0 {
		rows = c.filter(ctx, &stats, StepMissingDeduction, rows, func(w *working) bool {
			return w.hasDeduct
		})
	}

	// 4. sell price present and above the placeholder threshold
	if lay.price >= 0 {
		rows = c.filter(ctx, &stats, StepInvalidPrice, rows, func(w *working) bool {
			return w.hasPrice && w.price > minSellPrice
		})
	}

	// 5. identity fields and weight present, then weight positive
	rows = c.filter(ctx, &stats, StepMissingBaseFields, rows, func(w *working) bool {
		return w.hasWeight &&
			textValue(w.src[lay.vehicle]) != "" &&
			textValue(w.src[lay.category]) != "" &&
			textValue(w.src[lay.destination]) != ""
	})
	rows = c.filter(ctx, &stats, StepNonPositiveWeight, rows, func(w *working) bool {
		return w.weight > 0
	})

	shipments := make([]domain.Shipment, 0, len(rows))
	unparseable := 0
	for i := range rows {
		s, ok := c.buildShipment(&rows[i], lay, headers)
		if !ok {
			unparseable++
			continue
		}
		shipments = append(shipments, s)
	}
	stats.Drops = append(stats.Drops, DropCount{Step: StepUnparseableDate, Rows: unparseable})
	if unparseable > 0 {
		c.logger.InfoContext(ctx, "Dropped rows",
			slog.String("step", StepUnparseableDate),
			slog.Int("rows", unparseable))
	}

	stats.Output = len(shipments)
	c.logger.InfoContext(ctx, "Cleaning complete",
		slog.Int("input_rows", stats.Input),
		slog.Int("dropped_rows", stats.Total()),
		slog.Int("valid_rows", stats.Output))

	if len(shipments) == 0 {
		c.logger.WarnContext(ctx, "No rows survived cleaning", slog.Any("drops", stats.AsMap()))
		return nil, stats, errors.NoValidDataError(stats.AsMap())
	}

	sort.SliceStable(shipments, func(i, j int) bool {
		return shipments[i].Date.Before(shipments[j].Date)
	})

	deriveMetrics(shipments)

	extraOrder := make([]string, 0, len(lay.extras))
	for _, idx := range lay.extras {
		extraOrder = append(extraOrder, headers[idx])
	}

	return &domain.Table{
		Rows:        shipments,
		Columns:     lay.info,
		ExtraOrder:  extraOrder,
		SourceNames: lay.names,
	}, stats, nil
}

func (c *Cleaner) resolveLayout(ctx context.Context, headers []string) (layout, error) {
	index := func(name string) int {
		for i, h := range headers {
			if h == name {
				return i
			}
		}
		return -1
	}

	lay := layout{
		date:        index(c.cfg.DateColumn),
		vehicle:     index(c.cfg.VehicleColumn),
		category:    index(c.cfg.CategoryColumn),
		destination: index(c.cfg.DestinationColumn),
		freight:     index(c.cfg.FreightColumn),
		profit:      index(c.cfg.ProfitColumn),
		monthTag:    index(c.cfg.MonthTagColumn),
		price:       -1,
		deduction:   -1,
	}

	required := []struct {
		pos  int
		name string
	}{
		{lay.date, c.cfg.DateColumn},
		{lay.vehicle, c.cfg.VehicleColumn},
		{lay.category, c.cfg.CategoryColumn},
		{lay.destination, c.cfg.DestinationColumn},
	}
	for _, r := range required {
		if r.pos < 0 {
			c.logger.ErrorContext(ctx, "Required column missing", slog.String("column", r.name))
			return lay, errors.NewStructureError("clean", r.name)
		}
	}

	weightName, ok := ResolveColumn(headers, c.cfg.WeightCandidates)
	if !ok {
		weightName = c.cfg.DefaultWeightColumn
	}
	lay.weight = index(weightName)
	if lay.weight < 0 {
		c.logger.ErrorContext(ctx, "Weight column missing", slog.String("column", weightName))
		return lay, errors.NewStructureError("clean", weightName)
	}
	lay.info.Weight = weightName

	if name, ok := ResolveColumn(headers, c.cfg.DeductionCandidates); ok {
		lay.deduction = index(name)
		lay.info.Deduction = &name
	}
	if name, ok := ResolveColumn(headers, c.cfg.PriceCandidates); ok {
		lay.price = index(name)
		lay.info.Price = &name
	}
	lay.info.HasFreight = lay.freight >= 0
	lay.info.HasProfit = lay.profit >= 0
	lay.info.HasMonthTags = lay.monthTag >= 0

	lay.names = domain.SourceColumnNames{
		Date:        c.cfg.DateColumn,
		Vehicle:     c.cfg.VehicleColumn,
		Category:    c.cfg.CategoryColumn,
		Destination: c.cfg.DestinationColumn,
		Freight:     c.cfg.FreightColumn,
		Profit:      c.cfg.ProfitColumn,
		MonthTag:    c.cfg.MonthTagColumn,
	}

	mapped := map[int]bool{}
	for _, p := range []int{lay.date, lay.vehicle, lay.category, lay.destination,
		lay.weight, lay.price, lay.deduction, lay.freight, lay.profit, lay.monthTag} {
		if p >= 0 {
			mapped[p] = true
		}
	}
	for i := range headers {
		if !mapped[i] {
			lay.extras = append(lay.extras, i)
		}
	}

	c.logger.InfoContext(ctx, "Resolved columns",
		slog.String("weight", weightName),
		slog.Any("price", lay.info.Price),
		slog.Any("deduction", lay.info.Deduction),
		slog.Bool("freight", lay.info.HasFreight),
		slog.Bool("profit", lay.info.HasProfit))

	return lay, nil
}

// coerceRow reads the numeric columns of src; the row is padded when
// shorter than the header.
func coerceRow(src []domain.Cell, lay layout) working {
	w := working{src: src}
	cell := func(pos int) domain.Cell {
		if pos < 0 || pos >= len(src) {
			return domain.EmptyCell()
		}
		return src[pos]
	}
	read := func(pos int, field string, dst *float64, present *bool) {
		if pos < 0 {
			return
		}
		v, ok, bad := coerceNumber(cell(pos))
		*dst, *present = v, ok
		if bad {
			w.nonNumeric = append(w.nonNumeric, field)
		}
	}

	read(lay.weight, domain.FieldWeight, &w.weight, &w.hasWeight)
	read(lay.price, domain.FieldPrice, &w.price, &w.hasPrice)
	read(lay.deduction, domain.FieldDeduction, &w.deduction, &w.hasDeduct)
	read(lay.freight, domain.FieldFreight, &w.freight, &w.hasFreight)
	read(lay.profit, domain.FieldProfit, &w.profit, &w.hasProfit)

	if len(src) < maxIndex(lay)+1 {
		padded := make([]domain.Cell, maxIndex(lay)+1)
		copy(padded, src)
		w.src = padded
	}
	return w
}

func maxIndex(lay layout) int {
	m := 0
	for _, p := range []int{lay.date, lay.vehicle, lay.category, lay.destination,
		lay.weight, lay.price, lay.deduction, lay.freight, lay.profit, lay.monthTag} {
		if p > m {
			m = p
		}
	}
	for _, p := range lay.extras {
		if p > m {
			m = p
		}
	}
	return m
}

func (c *Cleaner) filter(ctx context.Context, stats *FilterStats, step string, rows []working, keep func(*working) bool) []working {
	kept := rows[:0]
	for i := range rows {
		if keep(&rows[i]) {
			kept = append(kept, rows[i])
		}
	}
	dropped := len(rows) - len(kept)
	stats.Drops = append(stats.Drops, DropCount{Step: step, Rows: dropped})
	if dropped > 0 {
		c.logger.InfoContext(ctx, "Dropped rows", slog.String("step", step), slog.Int("rows", dropped))
	}
	return kept
}

// buildShipment normalizes the date and copies fields; ok is false when
// the date does not parse.
func (c *Cleaner) buildShipment(w *working, lay layout, headers []string) (domain.Shipment, bool) {
	rawDate := w.src[lay.date]
	date, label, ok := NormalizeDate(rawDate)
	if !ok {
		return domain.Shipment{}, false
	}

	_, isoWeek := date.ISOWeek()
	weekday := MondayIndex(date.Weekday())

	s := domain.Shipment{
		Vehicle:      textValue(w.src[lay.vehicle]),
		Category:     textValue(w.src[lay.category]),
		Destination:  textValue(w.src[lay.destination]),
		RawDate:      rawDate,
		Date:         date,
		DateLabel:    label,
		Weekday:      weekday,
		WeekdayLabel: c.weekdayLabel(weekday),
		ISOWeek:      isoWeek,
		WeekLabel:    WeekLabel(isoWeek),
		Weight:       w.weight,
		Freight:      w.freight,
		Profit:       w.profit,
		NonNumeric:   w.nonNumeric,
	}
	if lay.monthTag >= 0 {
		s.MonthTag = textValue(w.src[lay.monthTag])
	}
	if lay.price >= 0 {
		p := w.price
		s.SellPrice = &p
	}
	if lay.deduction >= 0 {
		d := w.deduction
		s.Deduction = &d
	}
	if lay.freight >= 0 && !w.hasFreight {
		s.Missing = append(s.Missing, domain.FieldFreight)
	}
	if lay.profit >= 0 && !w.hasProfit {
		s.Missing = append(s.Missing, domain.FieldProfit)
	}
	if len(lay.extras) > 0 {
		s.Extras = make(map[string]string, len(lay.extras))
		for _, idx := range lay.extras {
			if idx < len(w.src) {
				if v := w.src[idx].String(); v != "" {
					s.Extras[headers[idx]] = v
				}
			}
		}
	}
	return s, true
}

func (c *Cleaner) weekdayLabel(i int) string {
	if i >= 0 && i < len(c.cfg.WeekdayLabels) {
		return c.cfg.WeekdayLabels[i]
	}
	return ""
}
