package operations

import (
	"context"
	"sync"
	"testing"
	"time"

	"freightcli/pkg/contracts/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockHub struct {
	mu      sync.Mutex
	updates []hubUpdate
}

type hubUpdate struct {
	eventType, step, status string
	metadata                interface{}
}

func (h *mockHub) BroadcastUpdate(eventType, step, status string, metadata interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, hubUpdate{eventType, step, status, metadata})
}

func (h *mockHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.updates)
}

func event(step string, pct int, status domain.RunStatus) domain.ProgressEvent {
	return domain.ProgressEvent{RunID: "r1", Step: step, Percent: pct, Status: status, Message: step}
}

func TestStatusBroadcaster_TracksSteps(t *testing.T) {
	hub := &mockHub{}
	sb := NewStatusBroadcaster(hub, nil)
	defer sb.Stop()

	sb.OnProgress(event("load", 10, domain.RunRunning))
	sb.OnProgress(event("load", 30, domain.RunRunning))
	sb.OnProgress(event("clean", 30, domain.RunRunning))

	snap, ok := sb.GetSnapshot("r1")
	require.True(t, ok)
	assert.Equal(t, domain.RunRunning, snap.Status)
	assert.Equal(t, 30, snap.Progress)
	assert.Equal(t, "clean", snap.CurrentStep)
	require.Len(t, snap.Steps, 2)
	assert.Equal(t, StepStatusCompleted, snap.Steps[0].Status)
	assert.Equal(t, StepStatusActive, snap.Steps[1].Status)

	assert.Equal(t, 3, hub.count())
	assert.Equal(t, EventProgress, hub.updates[0].eventType)
}

func TestStatusBroadcaster_ProgressIsMonotonic(t *testing.T) {
	sb := NewStatusBroadcaster(nil, nil)
	defer sb.Stop()

	sb.OnProgress(event("render", 90, domain.RunRunning))
	sb.OnProgress(event("render", 85, domain.RunRunning))

	snap, _ := sb.GetSnapshot("r1")
	assert.Equal(t, 90, snap.Progress)
}

func TestStatusBroadcaster_TerminalStates(t *testing.T) {
	sb := NewStatusBroadcaster(nil, nil)
	defer sb.Stop()

	sb.OnProgress(event("load", 10, domain.RunRunning))
	failed := event("load", 10, domain.RunFailed)
	failed.Error = "sheet not found"
	sb.OnProgress(failed)
	// late events after a terminal state are ignored
	sb.OnProgress(event("clean", 40, domain.RunRunning))

	snap, _ := sb.GetSnapshot("r1")
	assert.Equal(t, domain.RunFailed, snap.Status)
	assert.Equal(t, "sheet not found", snap.Error)
	assert.Equal(t, 10, snap.Progress)
	assert.NotNil(t, snap.CompletedAt)
	require.Len(t, snap.Steps, 1)
	assert.Equal(t, StepStatusFailed, snap.Steps[0].Status)
}

func TestStatusBroadcaster_Completed(t *testing.T) {
	sb := NewStatusBroadcaster(nil, nil)
	defer sb.Stop()

	sb.OnProgress(event("save", 96, domain.RunRunning))
	sb.OnProgress(event("done", 100, domain.RunCompleted))

	snap, _ := sb.GetSnapshot("r1")
	assert.Equal(t, 100, snap.Progress)
	assert.Empty(t, snap.CurrentStep)
	assert.Equal(t, StepStatusCompleted, snap.Steps[0].Status)
}

func TestStatusBroadcaster_SnapshotIsCopy(t *testing.T) {
	sb := NewStatusBroadcaster(nil, nil)
	defer sb.Stop()

	sb.OnProgress(event("load", 10, domain.RunRunning))
	snap, _ := sb.GetSnapshot("r1")
	snap.Steps[0].Status = StepStatusFailed

	again, _ := sb.GetSnapshot("r1")
	assert.Equal(t, StepStatusActive, again.Steps[0].Status)
}

func TestStatusBroadcaster_CleanupOldOperations(t *testing.T) {
	sb := NewStatusBroadcaster(nil, nil)
	defer sb.Stop()

	sb.OnProgress(event("done", 100, domain.RunCompleted))
	sb.OnProgress(domain.ProgressEvent{RunID: "r2", Step: "load", Percent: 10, Status: domain.RunRunning})

	time.Sleep(5 * time.Millisecond)
	removed := sb.CleanupOldOperations(context.Background(), time.Millisecond)

	assert.Equal(t, 1, removed)
	_, ok := sb.GetSnapshot("r1")
	assert.False(t, ok)
	_, ok = sb.GetSnapshot("r2")
	assert.True(t, ok)
	assert.Len(t, sb.GetAllSnapshots(), 1)
}

func TestStatusBroadcaster_StopIsIdempotent(t *testing.T) {
	sb := NewStatusBroadcaster(nil, nil)
	sb.Stop()
	sb.Stop()
	sb.OnProgress(event("load", 10, domain.RunRunning))
}
