package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"freightcli/internal/shared/testutil"
	"freightcli/pkg/contracts/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThousands(t *testing.T) {
	tests := []struct {
		v        float64
		decimals int
		want     string
	}{
		{0, 2, "0.00"},
		{999, 0, "999"},
		{1000, 0, "1,000"},
		{1234567.891, 2, "1,234,567.89"},
		{-98765.4, 1, "-98,765.4"},
		{100000, 1, "100,000.0"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, thousands(tt.v, tt.decimals))
		})
	}
}

func TestSparkline(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Contains(t, string(sparkline(nil)), "暂无数据")
	})

	t.Run("flat series stays in the middle", func(t *testing.T) {
		svg := string(sparkline([]domain.DaySummary{{TotalWeight: 5}, {TotalWeight: 5}}))
		assert.Contains(t, svg, "M 0.0,60.0 L 600.0,60.0")
	})

	t.Run("single day", func(t *testing.T) {
		svg := string(sparkline([]domain.DaySummary{{TotalWeight: 5}}))
		assert.Contains(t, svg, "<svg")
		assert.Contains(t, svg, "M 0.0,60.0")
	})
}

func TestDashboard(t *testing.T) {
	r, err := NewRenderer(false, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Dashboard(&buf, testutil.SampleAnalysis()))
	html := buf.String()

	for _, want := range []string{
		"多月对比运输数据仪表板",
		"运费.xlsx",
		"135.0",
		"煤炭",
		"青岛",
		"第14周",
		"3月1日",
		"亏损线路",
		"矿石 → 天津",
		"月度对比",
		"-35.4%",
		"鲁A1",
		"<svg",
		"insight warning",
	} {
		assert.Contains(t, html, want)
	}
	assert.NotContains(t, html, "<img")
}

func TestDashboardSingleMonth(t *testing.T) {
	r, err := NewRenderer(false, nil)
	require.NoError(t, err)

	a := testutil.SampleAnalysis()
	a.Monthly = nil
	a.Insights = nil

	var buf bytes.Buffer
	require.NoError(t, r.Dashboard(&buf, a))
	assert.NotContains(t, buf.String(), "月度对比")
	assert.Contains(t, buf.String(), "暂无经营建议")
}

func TestTopDestinationsAreCapped(t *testing.T) {
	a := testutil.SampleAnalysis()
	a.Summaries.Destinations = nil
	for i := 0; i < 12; i++ {
		a.Summaries.Destinations = append(a.Summaries.Destinations, domain.DestinationSummary{
			Destination: string(rune('A' + i)),
			TotalWeight: float64(i),
		})
	}

	r, err := NewRenderer(false, nil)
	require.NoError(t, err)
	d := r.data(a)

	require.Len(t, d.TopDestinations, topDestinations)
	assert.Equal(t, "L", d.TopDestinations[0].Destination)
	assert.Len(t, a.Summaries.Destinations, 12, "source slice must not be reordered")
	assert.Equal(t, "A", a.Summaries.Destinations[0].Destination)
}

func TestRenderCharts(t *testing.T) {
	charts, err := RenderCharts(testutil.SampleAnalysis())
	require.NoError(t, err)

	keys := make([]string, 0, len(charts))
	for _, c := range charts {
		keys = append(keys, c.Key)
		assert.True(t, strings.HasPrefix(string(c.Src), "data:image/png;base64,"), c.Key)
		assert.NotEmpty(t, c.Title)
	}
	assert.Equal(t, []string{"daily", "categories", "destinations", "weeks", "vehicles", "months"}, keys)
}

func TestRenderChartsSkipsEmptySeries(t *testing.T) {
	charts, err := RenderCharts(&domain.Analysis{})
	require.NoError(t, err)
	assert.Empty(t, charts)
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.html")

	r, err := NewRenderer(true, nil)
	require.NoError(t, err)
	require.NoError(t, r.WriteReport(testutil.SampleAnalysis(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "多月对比运输数据深度分析报告")
	assert.Contains(t, html, "3月、4月")
	assert.Contains(t, html, `src="data:image/png;base64,`)
	assert.Contains(t, html, "@page")
}

func TestWriteDashboard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dash.html")

	r, err := NewRenderer(false, nil)
	require.NoError(t, err)
	require.NoError(t, r.WriteDashboard(testutil.SampleAnalysis(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(1000))
}

func TestFileURL(t *testing.T) {
	url := FileURL(filepath.Join(t.TempDir(), "a.html"))
	assert.True(t, strings.HasPrefix(url, "file:///"), url)
	assert.True(t, strings.HasSuffix(url, "/a.html"), url)
}

func TestNewPDFPrinterDefaults(t *testing.T) {
	p := NewPDFPrinter("", 0, nil)
	assert.Equal(t, defaultPDFTimeout, p.timeout)
	assert.Empty(t, p.chromePath)
}

func TestPDFPrinterMissingReport(t *testing.T) {
	p := NewPDFPrinter("", 0, nil)
	err := p.Print(context.Background(), filepath.Join(t.TempDir(), "missing.html"), "out.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report not found")
}
