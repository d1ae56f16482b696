package websocket

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "freightcli.websocket"

// Metrics are the OpenTelemetry instruments of the hub. The zero value
// and a nil pointer record nothing.
type Metrics struct {
	connections metric.Int64Counter
	active      metric.Int64UpDownCounter
	messages    metric.Int64Counter
	bytes       metric.Int64Counter
	dropped     metric.Int64Counter
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the process-wide instruments, created on first use
// against the global meter provider
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		m, err := NewMetrics(otel.Meter(meterName))
		if err == nil {
			globalMetrics = m
		}
	})
	return globalMetrics
}

// NewMetrics creates the hub instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.connections, err = meter.Int64Counter("websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections")); err != nil {
		return nil, err
	}
	if m.active, err = meter.Int64UpDownCounter("websocket_connections_active",
		metric.WithDescription("Number of open WebSocket connections")); err != nil {
		return nil, err
	}
	if m.messages, err = meter.Int64Counter("websocket_messages_sent_total",
		metric.WithDescription("Messages queued to clients")); err != nil {
		return nil, err
	}
	if m.bytes, err = meter.Int64Counter("websocket_message_bytes_total",
		metric.WithDescription("Bytes queued to clients"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.dropped, err = meter.Int64Counter("websocket_messages_dropped_total",
		metric.WithDescription("Messages dropped because a queue was full")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) connected(ctx context.Context) {
	if m == nil || m.connections == nil {
		return
	}
	m.connections.Add(ctx, 1)
	m.active.Add(ctx, 1)
}

func (m *Metrics) disconnected(ctx context.Context) {
	if m == nil || m.active == nil {
		return
	}
	m.active.Add(ctx, -1)
}

func (m *Metrics) sent(ctx context.Context, msgType string, size int) {
	if m == nil || m.messages == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("type", msgType))
	m.messages.Add(ctx, 1, attrs)
	m.bytes.Add(ctx, int64(size), attrs)
}

func (m *Metrics) drop(ctx context.Context, reason string) {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
