package operations

import (
	"context"
	"time"

	"freightcli/internal/infrastructure"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "freightcli.operations"
)

// StepTracer provides spans and metrics for runs and steps
type StepTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewStepTracer creates a tracer recording into metrics; a nil metrics
// value records spans only
func NewStepTracer(metrics *infrastructure.PipelineMetrics) *StepTracer {
	return &StepTracer{
		tracer:  otel.Tracer(TracerName),
		metrics: metrics,
	}
}

// TraceRun creates a span for a whole run
func (st *StepTracer) TraceRun(ctx context.Context, runID string, steps int) (context.Context, trace.Span) {
	return st.tracer.Start(ctx, "analysis.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.steps", steps),
		),
	)
}

// TraceStep creates a span for one step
func (st *StepTracer) TraceStep(ctx context.Context, runID, stepID string) (context.Context, trace.Span) {
	return st.tracer.Start(ctx, "analysis.step."+stepID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("step.id", stepID),
		),
	)
}

// EndStep closes a step span and records its duration
func (st *StepTracer) EndStep(ctx context.Context, span trace.Span, stepID string, d time.Duration, err error) {
	span.SetAttributes(attribute.Float64("step.duration_seconds", d.Seconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	st.metrics.RecordStep(ctx, stepID, d, err)
	span.End()
}

// EndRun closes a run span and records the run outcome
func (st *StepTracer) EndRun(ctx context.Context, span trace.Span, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(GetErrorType(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(
		attribute.String("run.outcome", outcome),
		attribute.Float64("run.duration_seconds", d.Seconds()),
	)
	st.metrics.RecordRun(ctx, d, outcome)
	span.End()
}
