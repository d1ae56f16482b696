package operations

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"freightcli/pkg/contracts/domain"
)

// EventProgress is the WebSocket event type carrying run snapshots
const EventProgress = "analysis:progress"

// StatusBroadcaster keeps the latest snapshot of every run and pushes
// each change to the hub. Updates are applied one at a time.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	runs    map[string]*RunSnapshot
	hub     WebSocketHub
	logger  *slog.Logger
	updates chan updateRequest
	stop    chan struct{}
	once    sync.Once
}

// RunSnapshot is the complete state of a run as shown to clients
type RunSnapshot struct {
	RunID       string           `json:"run_id"`
	Status      domain.RunStatus `json:"status"`
	Progress    int              `json:"progress"`
	CurrentStep string           `json:"current_step"`
	Steps       []StepSnapshot   `json:"steps"`
	StartedAt   time.Time        `json:"started_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Error       string           `json:"error,omitempty"`
	Message     string           `json:"message,omitempty"`
}

// StepSnapshot is the last reported state of one step
type StepSnapshot struct {
	ID      string     `json:"id"`
	Status  StepStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

type updateRequest struct {
	runID      string
	updateFunc func(*RunSnapshot)
	done       chan struct{}
}

// NewStatusBroadcaster creates a broadcaster; hub may be nil in CLI mode
func NewStatusBroadcaster(hub WebSocketHub, logger *slog.Logger) *StatusBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}

	sb := &StatusBroadcaster{
		runs:    make(map[string]*RunSnapshot),
		hub:     hub,
		logger:  logger.With(slog.String("component", "status_broadcaster")),
		updates: make(chan updateRequest, 100),
		stop:    make(chan struct{}),
	}

	go sb.processUpdates()

	return sb
}

func (sb *StatusBroadcaster) processUpdates() {
	for {
		select {
		case <-sb.stop:
			return
		case req := <-sb.updates:
			sb.handleUpdate(req)
		}
	}
}

func (sb *StatusBroadcaster) handleUpdate(req updateRequest) {
	defer close(req.done)

	sb.mu.Lock()
	snapshot, exists := sb.runs[req.runID]
	if !exists {
		now := time.Now()
		snapshot = &RunSnapshot{
			RunID:     req.runID,
			Status:    domain.RunPending,
			StartedAt: now,
			UpdatedAt: now,
			Steps:     []StepSnapshot{},
		}
		sb.runs[req.runID] = snapshot
	}

	req.updateFunc(snapshot)
	snapshot.UpdatedAt = time.Now()

	if isTerminal(snapshot.Status) && snapshot.CompletedAt == nil {
		now := time.Now()
		snapshot.CompletedAt = &now
	}

	out := snapshot.clone()
	sb.mu.Unlock()

	sb.broadcast(out)
}

func (sb *StatusBroadcaster) broadcast(snapshot *RunSnapshot) {
	if sb.hub == nil {
		return
	}

	sb.logger.Debug("broadcasting run snapshot",
		slog.String("run_id", snapshot.RunID),
		slog.String("status", string(snapshot.Status)),
		slog.Int("progress", snapshot.Progress),
		slog.String("current_step", snapshot.CurrentStep),
	)

	sb.hub.BroadcastUpdate(EventProgress, snapshot.CurrentStep, string(snapshot.Status), snapshot)
}

// UpdateStatus applies updateFunc to a run's snapshot and broadcasts it
func (sb *StatusBroadcaster) UpdateStatus(runID string, updateFunc func(*RunSnapshot)) {
	req := updateRequest{
		runID:      runID,
		updateFunc: updateFunc,
		done:       make(chan struct{}),
	}

	select {
	case sb.updates <- req:
	case <-sb.stop:
		return
	}
	select {
	case <-req.done:
	case <-sb.stop:
	}
}

// OnProgress folds a runner event into the run's snapshot. Progress never
// moves backwards while the run is active.
func (sb *StatusBroadcaster) OnProgress(event domain.ProgressEvent) {
	sb.UpdateStatus(event.RunID, func(s *RunSnapshot) {
		if isTerminal(s.Status) {
			return
		}
		s.Status = event.Status
		if event.Percent > s.Progress || event.Status == domain.RunCompleted {
			s.Progress = min(event.Percent, 100)
		}
		s.Message = event.Message
		s.Error = event.Error

		switch event.Status {
		case domain.RunCompleted:
			s.CurrentStep = ""
			s.Progress = 100
			for i := range s.Steps {
				if s.Steps[i].Status == StepStatusActive {
					s.Steps[i].Status = StepStatusCompleted
				}
			}
		case domain.RunFailed:
			s.CurrentStep = ""
			s.setStep(event.Step, StepStatusFailed, event.Error)
		default:
			if event.Step != s.CurrentStep && s.CurrentStep != "" {
				s.setStep(s.CurrentStep, StepStatusCompleted, "")
			}
			s.CurrentStep = event.Step
			s.setStep(event.Step, StepStatusActive, event.Message)
		}
	})
}

func (s *RunSnapshot) setStep(id string, status StepStatus, message string) {
	if id == "" {
		return
	}
	for i := range s.Steps {
		if s.Steps[i].ID == id {
			s.Steps[i].Status = status
			if message != "" {
				s.Steps[i].Message = message
			}
			return
		}
	}
	s.Steps = append(s.Steps, StepSnapshot{ID: id, Status: status, Message: message})
}

func (s *RunSnapshot) clone() *RunSnapshot {
	c := *s
	c.Steps = append([]StepSnapshot(nil), s.Steps...)
	return &c
}

func isTerminal(status domain.RunStatus) bool {
	return status == domain.RunCompleted || status == domain.RunFailed
}

// GetSnapshot returns a copy of the current snapshot for a run
func (sb *StatusBroadcaster) GetSnapshot(runID string) (*RunSnapshot, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshot, exists := sb.runs[runID]
	if !exists {
		return nil, false
	}
	return snapshot.clone(), true
}

// GetAllSnapshots returns copies of all known run snapshots
func (sb *StatusBroadcaster) GetAllSnapshots() []*RunSnapshot {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshots := make([]*RunSnapshot, 0, len(sb.runs))
	for _, snapshot := range sb.runs {
		snapshots = append(snapshots, snapshot.clone())
	}
	return snapshots
}

// CleanupOldOperations removes finished runs older than maxAge
func (sb *StatusBroadcaster) CleanupOldOperations(ctx context.Context, maxAge time.Duration) int {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, snapshot := range sb.runs {
		if !isTerminal(snapshot.Status) || snapshot.CompletedAt == nil {
			continue
		}
		if age := now.Sub(*snapshot.CompletedAt); age > maxAge {
			delete(sb.runs, id)
			removed++
			sb.logger.InfoContext(ctx, "cleaned up old run",
				slog.String("run_id", id),
				slog.String("status", string(snapshot.Status)),
				slog.Duration("age", age),
			)
		}
	}
	return removed
}

// Stop shuts down the update loop
func (sb *StatusBroadcaster) Stop() {
	sb.once.Do(func() { close(sb.stop) })
}
