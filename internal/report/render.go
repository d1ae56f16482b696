package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"freightcli/internal/errors"
	"freightcli/pkg/contracts/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const topDestinations = 8

// Renderer turns an analysis into HTML pages
type Renderer struct {
	tmpl   *template.Template
	charts bool
	logger *slog.Logger
}

// NewRenderer parses the embedded templates. With charts disabled the
// printable report is rendered without PNG charts.
func NewRenderer(charts bool, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.New("report").Funcs(funcMap()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse report templates: %w", err)
	}
	return &Renderer{
		tmpl:   tmpl,
		charts: charts,
		logger: logger.With(slog.String("component", "report")),
	}, nil
}

// pageData is the view model shared by both pages
type pageData struct {
	A               *domain.Analysis
	Title           string
	GeneratedAt     string
	TopDestinations []domain.DestinationSummary
	ProfitRanking   []domain.DestinationCost
	PeakDays        []domain.DaySummary
	Spark           template.HTML
	Charts          []Chart
	High            int
	Medium          int
	Low             int
}

func (r *Renderer) data(a *domain.Analysis) pageData {
	d := pageData{
		A:           a,
		Title:       a.TitlePrefix,
		GeneratedAt: a.GeneratedAt.Format("2006-01-02 15:04"),
		Spark:       sparkline(a.Summaries.Days),
	}

	d.TopDestinations = append([]domain.DestinationSummary(nil), a.Summaries.Destinations...)
	sort.SliceStable(d.TopDestinations, func(i, j int) bool {
		return d.TopDestinations[i].TotalWeight > d.TopDestinations[j].TotalWeight
	})
	if len(d.TopDestinations) > topDestinations {
		d.TopDestinations = d.TopDestinations[:topDestinations]
	}

	d.ProfitRanking = a.Cost.Destinations
	if len(d.ProfitRanking) > topDestinations {
		d.ProfitRanking = d.ProfitRanking[:topDestinations]
	}

	d.PeakDays = append([]domain.DaySummary(nil), a.Summaries.Days...)
	sort.SliceStable(d.PeakDays, func(i, j int) bool {
		return d.PeakDays[i].TotalWeight > d.PeakDays[j].TotalWeight
	})
	if len(d.PeakDays) > 5 {
		d.PeakDays = d.PeakDays[:5]
	}

	d.High, d.Medium, d.Low = a.Quality.CountBySeverity()
	return d
}

// Dashboard renders the dashboard page
func (r *Renderer) Dashboard(w io.Writer, a *domain.Analysis) error {
	return r.tmpl.ExecuteTemplate(w, "dashboard.html", r.data(a))
}

// Report renders the printable report page
func (r *Renderer) Report(w io.Writer, a *domain.Analysis) error {
	d := r.data(a)
	if r.charts {
		charts, err := RenderCharts(a)
		if err != nil {
			// charts are decoration; the tables still carry the numbers
			r.logger.Warn("chart rendering failed", slog.String("error", err.Error()))
		}
		d.Charts = charts
	}
	return r.tmpl.ExecuteTemplate(w, "report.html", d)
}

// WriteDashboard renders the dashboard into path
func (r *Renderer) WriteDashboard(a *domain.Analysis, path string) error {
	return r.writeFile(path, func(w io.Writer) error { return r.Dashboard(w, a) })
}

// WriteReport renders the printable report into path
func (r *Renderer) WriteReport(a *domain.Analysis, path string) error {
	return r.writeFile(path, func(w io.Writer) error { return r.Report(w, a) })
}

func (r *Renderer) writeFile(path string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return errors.NewAppError(errors.ErrTypeStorage, "failed to render page", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create output directory", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.NewStorageError("failed to write "+filepath.Base(path), err)
	}
	r.logger.Info("page written", slog.String("path", path), slog.Int("bytes", buf.Len()))
	return nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"f0":  func(v float64) string { return thousands(v, 0) },
		"f1":  func(v float64) string { return thousands(v, 1) },
		"f2":  func(v float64) string { return thousands(v, 2) },
		"pct": func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "%" },
		"signed": func(v float64) string {
			s := strconv.FormatFloat(v, 'f', 1, 64) + "%"
			if v > 0 {
				return "+" + s
			}
			return s
		},
		"tone": func(v float64) string {
			switch {
			case v < 0:
				return "neg"
			case v > 0:
				return "pos"
			}
			return ""
		},
		"level": func(l domain.InsightLevel) string { return string(l) },
		"sev":   func(s domain.Severity) string { return string(s) },
		"inc":   func(i int) int { return i + 1 },
	}
}

// thousands formats v with the given decimals and comma grouping
func thousands(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteString(frac)
	return b.String()
}

// sparkline draws the daily weight series as an inline SVG path
func sparkline(days []domain.DaySummary) template.HTML {
	if len(days) == 0 {
		return template.HTML(`<p class="muted">暂无数据</p>`)
	}
	minV, maxV := days[0].TotalWeight, days[0].TotalWeight
	for _, d := range days {
		minV = min(minV, d.TotalWeight)
		maxV = max(maxV, d.TotalWeight)
	}

	const w, h = 600.0, 120.0
	pts := make([]string, len(days))
	for i, d := range days {
		x := 0.0
		if len(days) > 1 {
			x = float64(i) * w / float64(len(days)-1)
		}
		y := h - scale(d.TotalWeight, minV, maxV, 8, h-8)
		pts[i] = fmt.Sprintf("%.1f,%.1f", x, y)
	}
	return template.HTML(fmt.Sprintf(
		`<svg viewBox="0 0 %.0f %.0f" preserveAspectRatio="none"><path d="M %s" fill="none" stroke="#00d2ff" stroke-width="2"/></svg>`,
		w, h, strings.Join(pts, " L ")))
}

func scale(v, lo, hi, a, b float64) float64 {
	if hi == lo {
		return (a + b) / 2
	}
	return a + (v-lo)*(b-a)/(hi-lo)
}
