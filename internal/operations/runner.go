package operations

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"freightcli/pkg/contracts/domain"
)

// Runner executes the steps of an analysis run in order
type Runner struct {
	logger      *slog.Logger
	tracer      *StepTracer
	stepTimeout time.Duration

	lmu       sync.RWMutex
	listeners []ProgressListener

	mu   sync.RWMutex
	runs map[string]*RunState
}

// NewRunner creates a runner that reports progress to listeners. A nil
// tracer records nothing.
func NewRunner(logger *slog.Logger, tracer *StepTracer, listeners ...ProgressListener) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = NewStepTracer(nil)
	}
	return &Runner{
		logger:    logger.With(slog.String("component", "runner")),
		tracer:    tracer,
		listeners: listeners,
		runs:      make(map[string]*RunState),
	}
}

// AddListener registers another progress listener. Listeners added while a
// run is in flight see only the events emitted after the call.
func (r *Runner) AddListener(l ProgressListener) {
	if l == nil {
		return
	}
	r.lmu.Lock()
	defer r.lmu.Unlock()
	r.listeners = append(r.listeners, l)
}

// SetStepTimeout bounds every step's execution; zero disables the bound
func (r *Runner) SetStepTimeout(d time.Duration) {
	r.stepTimeout = d
}

// Execute runs steps sequentially. The first failing step stops the run;
// the returned error is an OperationError naming it.
func (r *Runner) Execute(ctx context.Context, runID string, steps []Step) (*RunState, error) {
	state := NewRunState(runID, steps)
	r.store(state)

	ctx, span := r.tracer.TraceRun(ctx, runID, len(steps))
	state.Start()

	r.logger.InfoContext(ctx, "run_start",
		slog.String("run_id", runID),
		slog.Int("step_count", len(steps)))

	var runErr error
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			runErr = WrapError(err, step.ID())
			r.logger.WarnContext(ctx, "run_cancelled",
				slog.String("run_id", runID),
				slog.String("step", step.ID()))
			break
		}
		if err := r.executeStep(ctx, state, step); err != nil {
			runErr = err
			break
		}
	}

	duration := state.Duration()
	if runErr != nil {
		state.Fail(runErr)
		r.emit(domain.ProgressEvent{
			RunID:   runID,
			Step:    FailedStep(runErr),
			Percent: r.lastPercent(state, steps),
			Message: "分析失败",
			Status:  domain.RunFailed,
			Error:   runErr.Error(),
		})
		r.logger.ErrorContext(ctx, "run_failed",
			slog.String("run_id", runID),
			slog.String("step", FailedStep(runErr)),
			slog.Duration("duration", duration),
			slog.String("error", runErr.Error()))
	} else {
		state.Complete()
		r.emit(domain.ProgressEvent{
			RunID:   runID,
			Step:    "done",
			Percent: 100,
			Message: "分析完成",
			Status:  domain.RunCompleted,
		})
		r.logger.InfoContext(ctx, "run_complete",
			slog.String("run_id", runID),
			slog.Duration("duration", state.Duration()))
	}
	r.tracer.EndRun(ctx, span, state.Duration(), runErr)

	return state, runErr
}

func (r *Runner) executeStep(ctx context.Context, state *RunState, step Step) error {
	stepState := state.Step(step.ID())
	start, end := step.Span()

	stepCtx, span := r.tracer.TraceStep(ctx, state.ID, step.ID())
	if r.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(stepCtx, r.stepTimeout)
		defer cancel()
	}

	stepState.Start()
	r.emit(domain.ProgressEvent{
		RunID:   state.ID,
		Step:    step.ID(),
		Percent: start,
		Message: step.Name(),
		Status:  domain.RunRunning,
	})
	r.logger.InfoContext(stepCtx, "step_start",
		slog.String("run_id", state.ID),
		slog.String("step", step.ID()))

	report := func(fraction float64, message string) {
		if message == "" {
			message = step.Name()
		}
		r.emit(domain.ProgressEvent{
			RunID:   state.ID,
			Step:    step.ID(),
			Percent: scalePercent(start, end, fraction),
			Message: message,
			Status:  domain.RunRunning,
		})
	}

	began := time.Now()
	err := step.Execute(stepCtx, report)
	duration := time.Since(began)

	if err != nil {
		opErr := WrapError(err, step.ID())
		stepState.Fail(opErr)
		r.tracer.EndStep(stepCtx, span, step.ID(), duration, opErr)
		r.logger.ErrorContext(stepCtx, "step_failed",
			slog.String("run_id", state.ID),
			slog.String("step", step.ID()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return opErr
	}

	stepState.Complete()
	r.tracer.EndStep(stepCtx, span, step.ID(), duration, nil)
	r.emit(domain.ProgressEvent{
		RunID:   state.ID,
		Step:    step.ID(),
		Percent: end,
		Message: step.Name(),
		Status:  domain.RunRunning,
	})
	r.logger.InfoContext(stepCtx, "step_complete",
		slog.String("run_id", state.ID),
		slog.String("step", step.ID()),
		slog.Duration("duration", duration))
	return nil
}

// lastPercent is the start of the failed step, or 0
func (r *Runner) lastPercent(state *RunState, steps []Step) int {
	failed := state.FailedStep()
	if failed == nil {
		return 0
	}
	for _, s := range steps {
		if s.ID() == failed.ID {
			start, _ := s.Span()
			return start
		}
	}
	return 0
}

func (r *Runner) emit(event domain.ProgressEvent) {
	event.Time = time.Now()
	r.lmu.RLock()
	listeners := r.listeners
	r.lmu.RUnlock()
	for _, l := range listeners {
		l.OnProgress(event)
	}
}

func (r *Runner) store(state *RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[state.ID] = state
}

// GetRun returns the state of a run
func (r *Runner) GetRun(id string) (*RunState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.runs[id]
	if !ok {
		return nil, NewNotFoundError(id)
	}
	return state, nil
}

// ForgetRun drops a finished run's state
func (r *Runner) ForgetRun(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, id)
}
