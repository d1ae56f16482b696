package operations

import "freightcli/pkg/contracts/domain"

// WebSocketHub interface for sending WebSocket messages
type WebSocketHub interface {
	BroadcastUpdate(eventType, step, status string, metadata interface{})
}

// ProgressListener receives every progress event of a run
type ProgressListener interface {
	OnProgress(event domain.ProgressEvent)
}

// ProgressListenerFunc adapts a function to ProgressListener
type ProgressListenerFunc func(event domain.ProgressEvent)

// OnProgress calls f
func (f ProgressListenerFunc) OnProgress(event domain.ProgressEvent) { f(event) }

// ProgressFunc lets a step report how far along it is, as a fraction in
// [0, 1] of its own work
type ProgressFunc func(fraction float64, message string)
