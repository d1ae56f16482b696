package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"freightcli/internal/infrastructure"
)

// Message types sent to clients
const (
	TypeConnection = "connection"
	TypeError      = "error"
)

const broadcastQueueSize = 256

// Message is the JSON frame written to clients
type Message struct {
	Type      string      `json:"type"`
	RunID     string      `json:"run_id,omitempty"`
	Step      string      `json:"step,omitempty"`
	Status    string      `json:"status,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

type envelope struct {
	runID   string
	msgType string
	payload []byte
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	pingPeriod time.Duration
	pongWait   time.Duration

	logger  *slog.Logger
	metrics *Metrics

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64
}

// NewHub creates a hub. Call Start before registering clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		pingPeriod: defaultPingPeriod,
		pongWait:   defaultPongWait,
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    GetMetrics(),
	}
}

// SetKeepalive overrides the ping period and pong wait of new clients.
// Zero values keep the defaults; the ping period is kept below pongWait.
func (h *Hub) SetKeepalive(pingPeriod, pongWait time.Duration) {
	if pongWait > 0 {
		h.pongWait = pongWait
	}
	if pingPeriod > 0 {
		h.pingPeriod = pingPeriod
	}
	if h.pingPeriod >= h.pongWait {
		h.pingPeriod = h.pongWait * 9 / 10
	}
}

// Start runs the hub loop in its own goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop closes every client and ends the hub loop
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.totalConnections.Add(1)

			ctx := c.context()
			h.metrics.connected(ctx)
			h.logger.InfoContext(ctx, "client registered",
				slog.String("client_id", c.id),
				slog.String("run_id", c.runID),
				slog.String("remote_addr", c.remoteAddr),
				slog.Int("total_clients", count))

			if data, err := h.encode(Message{
				Type:    TypeConnection,
				RunID:   c.runID,
				Status:  "connected",
				Data:    map[string]string{"client_id": c.id},
				TraceID: c.traceID,
			}); err == nil {
				select {
				case c.send <- data:
				default:
				}
			}

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; !ok {
				h.mu.Unlock()
				continue
			}
			delete(h.clients, c)
			close(c.send)
			count := len(h.clients)
			h.mu.Unlock()

			ctx := c.context()
			h.metrics.disconnected(ctx)
			h.logger.InfoContext(ctx, "client unregistered",
				slog.String("client_id", c.id),
				slog.Int("total_clients", count),
				slog.Duration("connection_duration", time.Since(c.connectedAt)))

		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

func (h *Hub) deliver(env envelope) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.runID == "" || env.runID == "" || c.runID == env.runID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	ctx := context.Background()
	for _, c := range targets {
		select {
		case c.send <- env.payload:
			h.messagesSent.Add(1)
			h.metrics.sent(ctx, env.msgType, len(env.payload))
		default:
			// a client that cannot keep up is disconnected
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.metrics.disconnected(ctx)
			h.metrics.drop(ctx, "client_buffer_full")
			h.logger.WarnContext(c.context(), "client send buffer full, disconnecting",
				slog.String("client_id", c.id))
		}
	}
}

// BroadcastUpdate publishes an event. When data carries a run_id field the
// message is only delivered to clients watching that run or all runs.
func (h *Hub) BroadcastUpdate(eventType, step, status string, data interface{}) {
	h.Publish(Message{
		Type:   eventType,
		RunID:  runIDOf(data),
		Step:   step,
		Status: status,
		Data:   data,
	})
}

// Publish queues msg for delivery. Messages are dropped when the queue is
// full or the hub is stopped.
func (h *Hub) Publish(msg Message) {
	payload, err := h.encode(msg)
	if err != nil {
		h.logger.Error("failed to marshal message",
			slog.String("type", msg.Type),
			slog.String("error", err.Error()))
		return
	}

	select {
	case <-h.quit:
		return
	default:
	}

	select {
	case h.broadcast <- envelope{runID: msg.RunID, msgType: msg.Type, payload: payload}:
	default:
		h.messagesDropped.Add(1)
		h.metrics.drop(context.Background(), "queue_full")
		h.logger.Warn("broadcast queue full, dropping message", slog.String("type", msg.Type))
	}
}

func (h *Hub) encode(msg Message) ([]byte, error) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().Format(time.RFC3339)
	}
	return json.Marshal(msg)
}

// runIDOf reads the run_id field of data's JSON form
func runIDOf(data interface{}) string {
	switch v := data.(type) {
	case nil:
		return ""
	case map[string]interface{}:
		id, _ := v["run_id"].(string)
		return id
	case map[string]string:
		return v["run_id"]
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	var probe struct {
		RunID string `json:"run_id"`
	}
	if json.Unmarshal(raw, &probe) != nil {
		return ""
	}
	return probe.RunID
}

// Register adds a client to the hub
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.quit:
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetHubMetrics returns the hub counters for health reporting
func (h *Hub) GetHubMetrics() map[string]interface{} {
	return map[string]interface{}{
		"active_clients":    h.ClientCount(),
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
		"messages_dropped":  h.messagesDropped.Load(),
		"queue_depth":       len(h.broadcast),
	}
}
