package operations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"freightcli/internal/shared/testutil"
	"freightcli/pkg/contracts/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (r *recorder) OnProgress(e domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) percents() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.events))
	for i, e := range r.events {
		out[i] = e.Percent
	}
	return out
}

func (r *recorder) last() domain.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func noop(ctx context.Context, report ProgressFunc) error { return nil }

func TestRunner_ExecuteInOrder(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	rec := &recorder{}
	runner := NewRunner(logger, nil, rec)

	var order []string
	step := func(id string) StepFunc {
		return func(ctx context.Context, report ProgressFunc) error {
			order = append(order, id)
			report(0.5, "")
			return nil
		}
	}

	state, err := runner.Execute(context.Background(), "run-1", []Step{
		NewStep("load", "读取", 10, 30, step("load")),
		NewStep("clean", "清洗", 30, 50, step("clean")),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"load", "clean"}, order)
	assert.Equal(t, domain.RunCompleted, state.GetStatus())
	assert.Equal(t, StepStatusCompleted, state.Step("load").Status)
	assert.Equal(t, StepStatusCompleted, state.Step("clean").Status)
	assert.Equal(t, []int{10, 20, 30, 30, 40, 50, 100}, rec.percents())
	assert.Equal(t, domain.RunCompleted, rec.last().Status)
	assert.Len(t, state.StepDurations(), 2)

	got, err := runner.GetRun("run-1")
	require.NoError(t, err)
	assert.Same(t, state, got)
}

func TestRunner_StopsAtFailingStep(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	rec := &recorder{}
	runner := NewRunner(logger, nil, rec)

	cause := errors.New("price column missing")
	ran := false
	state, err := runner.Execute(context.Background(), "run-2", []Step{
		NewStep("load", "读取", 10, 30, noop),
		NewStep("clean", "清洗", 30, 45, func(ctx context.Context, report ProgressFunc) error {
			return cause
		}),
		NewStep("validate", "质量", 45, 55, func(ctx context.Context, report ProgressFunc) error {
			ran = true
			return nil
		}),
	})

	require.Error(t, err)
	assert.False(t, ran)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "clean", FailedStep(err))
	assert.Equal(t, domain.RunFailed, state.GetStatus())
	assert.Equal(t, StepStatusFailed, state.Step("clean").Status)
	assert.Equal(t, StepStatusSkipped, state.Step("validate").Status)

	last := rec.last()
	assert.Equal(t, domain.RunFailed, last.Status)
	assert.Equal(t, "clean", last.Step)
	assert.Equal(t, 30, last.Percent)
	assert.True(t, handler.ContainsMessage("step_failed"))
}

func TestRunner_CancelledContext(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	runner := NewRunner(logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := runner.Execute(ctx, "run-3", []Step{
		NewStep("load", "读取", 0, 50, func(ctx context.Context, report ProgressFunc) error {
			cancel()
			return nil
		}),
		NewStep("clean", "清洗", 50, 100, noop),
	})

	require.Error(t, err)
	assert.Equal(t, ErrorTypeCancellation, GetErrorType(err))
	assert.Equal(t, "clean", FailedStep(err))
}

func TestRunner_StepTimeout(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	runner := NewRunner(logger, nil)
	runner.SetStepTimeout(10 * time.Millisecond)

	_, err := runner.Execute(context.Background(), "run-4", []Step{
		NewStep("render", "图表", 80, 96, func(ctx context.Context, report ProgressFunc) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeTimeout, GetErrorType(err))
}

func TestRunner_AddListener(t *testing.T) {
	runner := NewRunner(nil, nil)
	rec := &recorder{}
	runner.AddListener(rec)
	runner.AddListener(nil)

	_, err := runner.Execute(context.Background(), "run-2", []Step{
		NewStep("load", "读取", 0, 50, noop),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 50, 100}, rec.percents())
}

func TestRunner_GetRunUnknown(t *testing.T) {
	runner := NewRunner(nil, nil)
	_, err := runner.GetRun("missing")
	assert.Equal(t, ErrorTypeNotFound, GetErrorType(err))
}

func TestScalePercent(t *testing.T) {
	tests := []struct {
		start, end int
		fraction   float64
		want       int
	}{
		{10, 30, 0, 10},
		{10, 30, 0.5, 20},
		{10, 30, 1, 30},
		{10, 30, 2, 30},
		{10, 30, -1, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scalePercent(tt.start, tt.end, tt.fraction))
	}
}

func TestNewStep_ClampsRange(t *testing.T) {
	s := NewStep("x", "x", -5, 120, nil)
	start, end := s.Span()
	assert.Equal(t, 0, start)
	assert.Equal(t, 100, end)
	assert.NoError(t, s.Execute(context.Background(), nil))
}
