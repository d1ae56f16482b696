package infrastructure

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeOTel_NoExporters(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.MetricExporter = "none"

	p, err := InitializeOTel(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, p.PrometheusHTTP)
	assert.NotNil(t, p.Meter)
	assert.NotNil(t, p.Tracer)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInitializeOTel_StdoutTracing(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "stdout"
	cfg.MetricExporter = "none"
	cfg.TraceOutput = io.Discard

	p, err := InitializeOTel(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, p.TracerProvider)

	ctx, span := p.Tracer.Start(context.Background(), "clean")
	RecordError(ctx, errors.New("boom"))
	AddSpanEvent(ctx, "rows_dropped", map[string]int{"missing_date": 2})
	span.End()

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "jaeger"

	_, err := InitializeOTel(cfg, nil)
	assert.Error(t, err)
}

func TestPipelineMetrics_NoopSafe(t *testing.T) {
	m, err := CreatePipelineMetrics(nil)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordStep(ctx, "clean", time.Millisecond, nil)
	m.RecordStep(ctx, "clean", time.Millisecond, errors.New("x"))
	m.RecordRun(ctx, time.Second, "success")
	m.RecordDrops(ctx, 10, map[string]int{"missing_price": 1})
	m.RecordCacheLookup(ctx, true)

	var nilMetrics *PipelineMetrics
	assert.NotPanics(t, func() { nilMetrics.RecordStep(ctx, "x", 0, nil) })
}

func TestDefaultOTelConfig_MetricsOverride(t *testing.T) {
	t.Setenv("FREIGHT_METRICS_EXPORTER", "none")
	assert.Equal(t, "none", DefaultOTelConfig().MetricExporter)

	t.Setenv("FREIGHT_METRICS_EXPORTER", "")
	assert.Equal(t, "prometheus", DefaultOTelConfig().MetricExporter)
}
