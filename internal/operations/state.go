package operations

import (
	"sync"
	"time"

	"freightcli/pkg/contracts/domain"
)

// StepStatus represents the status of a single step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState is the execution record of one step
type StepState struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// NewStepState creates a pending step record
func NewStepState(id, name string) *StepState {
	return &StepState{ID: id, Name: name, Status: StepStatusPending}
}

// Start marks the step as active
func (s *StepState) Start() {
	now := time.Now()
	s.StartTime = &now
	s.Status = StepStatusActive
}

// Complete marks the step as completed
func (s *StepState) Complete() {
	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusCompleted
}

// Fail marks the step as failed
func (s *StepState) Fail(err error) {
	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusFailed
	if err != nil {
		s.Error = err.Error()
	}
}

// Skip marks a step that never ran because an earlier one failed
func (s *StepState) Skip() {
	s.Status = StepStatusSkipped
}

// Duration returns how long the step ran
func (s *StepState) Duration() time.Duration {
	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// RunState is the execution record of one analysis run
type RunState struct {
	mu sync.RWMutex

	ID        string           `json:"id"`
	Status    domain.RunStatus `json:"status"`
	StartTime time.Time        `json:"start_time"`
	EndTime   *time.Time       `json:"end_time,omitempty"`
	Steps     []*StepState     `json:"steps"`
	Error     string           `json:"error,omitempty"`
}

// NewRunState creates a pending run record with one pending entry per step
func NewRunState(id string, steps []Step) *RunState {
	rs := &RunState{
		ID:        id,
		Status:    domain.RunPending,
		StartTime: time.Now(),
		Steps:     make([]*StepState, 0, len(steps)),
	}
	for _, s := range steps {
		rs.Steps = append(rs.Steps, NewStepState(s.ID(), s.Name()))
	}
	return rs
}

// Start marks the run as running
func (r *RunState) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = domain.RunRunning
	r.StartTime = time.Now()
}

// Complete marks the run as completed
func (r *RunState) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = domain.RunCompleted
}

// Fail marks the run as failed and every step that never started as skipped
func (r *RunState) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = domain.RunFailed
	if err != nil {
		r.Error = err.Error()
	}
	for _, s := range r.Steps {
		if s.Status == StepStatusPending {
			s.Skip()
		}
	}
}

// Step returns the record of the step with the given id
func (r *RunState) Step(id string) *StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// GetStatus returns the run status
func (r *RunState) GetStatus() domain.RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// Duration returns the duration of the run
func (r *RunState) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}

// StepDurations returns per-step wall time keyed by step id
func (r *RunState) StepDurations() map[string]time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]time.Duration, len(r.Steps))
	for _, s := range r.Steps {
		if s.StartTime != nil {
			out[s.ID] = s.Duration()
		}
	}
	return out
}

// FailedStep returns the first failed step, or nil
func (r *RunState) FailedStep() *StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.Steps {
		if s.Status == StepStatusFailed {
			return s
		}
	}
	return nil
}
