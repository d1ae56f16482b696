package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image/color"
	"math"
	"os"
	"sort"

	"freightcli/pkg/contracts/domain"

	"golang.org/x/image/font/opentype"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	chartWidth  = 16 * vg.Centimeter
	chartHeight = 9 * vg.Centimeter
	maxBars     = 8
)

var (
	barColor    = color.RGBA{R: 31, G: 78, B: 120, A: 255}
	lossColor   = color.RGBA{R: 192, G: 57, B: 43, A: 255}
	lineColor   = color.RGBA{R: 0, G: 153, B: 204, A: 255}
	chartsTitle = map[string]string{
		"daily":        "每日发货量趋势（吨）",
		"categories":   "品类总利润",
		"destinations": "目的地发货量 Top 8（吨）",
		"weeks":        "周度发货量（吨）",
		"vehicles":     "车辆综合评分 Top 8",
		"months":       "月度发货量对比（吨）",
	}
)

// Chart is one rendered PNG, embedded as a data URI
type Chart struct {
	Key   string
	Title string
	Src   template.URL
}

// LoadChartFont makes the TrueType font at path the default chart font.
// The bundled font has no CJK glyphs, so Chinese labels need one.
func LoadChartFont(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read chart font: %w", err)
	}
	face, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse chart font: %w", err)
	}

	fnt := font.Font{Typeface: "ChartFont"}
	font.DefaultCache.Add(font.Collection{{Font: fnt, Face: face}})
	plot.DefaultFont = fnt
	return nil
}

// RenderCharts draws every chart the analysis has data for
func RenderCharts(a *domain.Analysis) ([]Chart, error) {
	var charts []Chart

	add := func(key string, p *plot.Plot, err error) error {
		if err != nil {
			return fmt.Errorf("chart %s: %w", key, err)
		}
		if p == nil {
			return nil
		}
		src, err := encodePNG(p)
		if err != nil {
			return fmt.Errorf("chart %s: %w", key, err)
		}
		charts = append(charts, Chart{Key: key, Title: chartsTitle[key], Src: src})
		return nil
	}

	s := a.Summaries
	steps := []struct {
		key  string
		draw func() (*plot.Plot, error)
	}{
		{"daily", func() (*plot.Plot, error) { return dailyChart(s.Days) }},
		{"categories", func() (*plot.Plot, error) { return categoryChart(s.Categories) }},
		{"destinations", func() (*plot.Plot, error) { return destinationChart(s.Destinations) }},
		{"weeks", func() (*plot.Plot, error) { return weekChart(s.Weeks) }},
		{"vehicles", func() (*plot.Plot, error) { return vehicleChart(a.TopVehicles) }},
		{"months", func() (*plot.Plot, error) { return monthChart(a.Monthly) }},
	}
	for _, st := range steps {
		p, err := st.draw()
		if err := add(st.key, p, err); err != nil {
			return nil, err
		}
	}
	return charts, nil
}

func dailyChart(days []domain.DaySummary) (*plot.Plot, error) {
	if len(days) == 0 {
		return nil, nil
	}
	pts := make(plotter.XYs, len(days))
	labels := make([]string, len(days))
	for i, d := range days {
		pts[i].X = float64(i)
		pts[i].Y = d.TotalWeight
		labels[i] = d.DateLabel
	}

	p := newPlot(chartsTitle["daily"])
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	line.Color = lineColor
	line.Width = vg.Points(2)
	points.GlyphStyle.Color = lineColor
	points.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(plotter.NewGrid(), line, points)
	p.NominalX(thin(labels, 12)...)
	rotateX(p)
	return p, nil
}

func categoryChart(cats []domain.CategorySummary) (*plot.Plot, error) {
	if len(cats) == 0 {
		return nil, nil
	}
	labels := make([]string, len(cats))
	values := make(plotter.Values, len(cats))
	for i, c := range cats {
		labels[i] = c.Category
		values[i] = c.TotalProfit
	}
	return barPlot(chartsTitle["categories"], labels, values)
}

func destinationChart(dests []domain.DestinationSummary) (*plot.Plot, error) {
	if len(dests) == 0 {
		return nil, nil
	}
	sorted := append([]domain.DestinationSummary(nil), dests...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TotalWeight > sorted[j].TotalWeight })
	if len(sorted) > maxBars {
		sorted = sorted[:maxBars]
	}
	labels := make([]string, len(sorted))
	values := make(plotter.Values, len(sorted))
	for i, d := range sorted {
		labels[i] = d.Destination
		values[i] = d.TotalWeight
	}
	return barPlot(chartsTitle["destinations"], labels, values)
}

func weekChart(weeks []domain.WeekSummary) (*plot.Plot, error) {
	if len(weeks) == 0 {
		return nil, nil
	}
	labels := make([]string, len(weeks))
	values := make(plotter.Values, len(weeks))
	for i, w := range weeks {
		labels[i] = w.WeekLabel
		values[i] = w.TotalWeight
	}
	return barPlot(chartsTitle["weeks"], labels, values)
}

func vehicleChart(top []domain.VehicleRank) (*plot.Plot, error) {
	if len(top) == 0 {
		return nil, nil
	}
	labels := make([]string, len(top))
	values := make(plotter.Values, len(top))
	for i, v := range top {
		labels[i] = v.Vehicle
		values[i] = v.Score
	}
	return barPlot(chartsTitle["vehicles"], labels, values)
}

func monthChart(m *domain.MonthlyComparison) (*plot.Plot, error) {
	if m == nil || len(m.Months) == 0 {
		return nil, nil
	}
	labels := make([]string, len(m.Months))
	values := make(plotter.Values, len(m.Months))
	for i, ms := range m.Months {
		labels[i] = ms.Month
		values[i] = ms.TotalWeight
	}
	return barPlot(chartsTitle["months"], labels, values)
}

// barPlot draws one bar per label; negative bars are drawn in the loss
// colour as a separate series
func barPlot(title string, labels []string, values plotter.Values) (*plot.Plot, error) {
	p := newPlot(title)

	pos := make(plotter.Values, len(values))
	neg := make(plotter.Values, len(values))
	hasNeg := false
	for i, v := range values {
		if v < 0 {
			neg[i] = v
			hasNeg = true
		} else {
			pos[i] = v
		}
	}

	width := vg.Points(math.Max(8, math.Min(36, 360/float64(len(values)))))
	bars, err := plotter.NewBarChart(pos, width)
	if err != nil {
		return nil, err
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(plotter.NewGrid(), bars)

	if hasNeg {
		negBars, err := plotter.NewBarChart(neg, width)
		if err != nil {
			return nil, err
		}
		negBars.Color = lossColor
		negBars.LineStyle.Width = vg.Length(0)
		p.Add(negBars)
	}

	p.NominalX(labels...)
	if len(labels) > 6 {
		rotateX(p)
	}
	return p, nil
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(13)
	return p
}

func rotateX(p *plot.Plot) {
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
}

// thin blanks labels so at most n are shown
func thin(labels []string, n int) []string {
	if len(labels) <= n {
		return labels
	}
	step := int(math.Ceil(float64(len(labels)) / float64(n)))
	out := make([]string, len(labels))
	for i := range labels {
		if i%step == 0 {
			out[i] = labels[i]
		}
	}
	return out
}

func encodePNG(p *plot.Plot) (template.URL, error) {
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return "", err
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}
