package operations

import (
	"context"
	"fmt"
)

// Step is one unit of an analysis run
type Step interface {
	// ID returns the unique identifier for this step
	ID() string

	// Name returns the human-readable name of this step
	Name() string

	// Span returns the slice of overall progress this step owns
	Span() (start, end int)

	// Execute runs the step, reporting progress through report
	Execute(ctx context.Context, report ProgressFunc) error
}

// StepFunc is the body of a step built with NewStep
type StepFunc func(ctx context.Context, report ProgressFunc) error

type funcStep struct {
	id    string
	name  string
	start int
	end   int
	fn    StepFunc
}

// NewStep creates a step owning the progress range [start, end]
func NewStep(id, name string, start, end int, fn StepFunc) Step {
	if start < 0 {
		start = 0
	}
	if end > 100 {
		end = 100
	}
	if end < start {
		end = start
	}
	return &funcStep{id: id, name: name, start: start, end: end, fn: fn}
}

func (s *funcStep) ID() string       { return s.id }
func (s *funcStep) Name() string     { return s.name }
func (s *funcStep) Span() (int, int) { return s.start, s.end }
func (s *funcStep) String() string   { return fmt.Sprintf("%s[%d-%d]", s.id, s.start, s.end) }

func (s *funcStep) Execute(ctx context.Context, report ProgressFunc) error {
	if s.fn == nil {
		return nil
	}
	return s.fn(ctx, report)
}

// scalePercent maps a step-local fraction into the step's progress range
func scalePercent(start, end int, fraction float64) int {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return start + int(float64(end-start)*fraction)
}
