package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"freightcli/pkg/contracts"
)

// HealthHandler reports liveness and component counters
type HealthHandler struct {
	hub     HubStats
	cache   CacheStats
	jobs    JobStats
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a health handler. Any of the stats sources may
// be nil.
func NewHealthHandler(hub HubStats, cache CacheStats, jobs JobStats, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		hub:     hub,
		cache:   cache,
		jobs:    jobs,
		started: time.Now(),
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   contracts.VersionInfo  `json:"version"`
	Uptime    string                 `json:"uptime"`
	Timestamp time.Time              `json:"timestamp"`
	WebSocket map[string]interface{} `json:"websocket,omitempty"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
	Jobs      map[string]int         `json:"jobs,omitempty"`
}

// Health handles GET /healthz
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Version:   contracts.GetVersionInfo(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}
	if h.hub != nil {
		resp.WebSocket = h.hub.GetHubMetrics()
	}
	if h.cache != nil {
		resp.Cache = h.cache.GetStats()
	}
	if h.jobs != nil {
		resp.Jobs = h.jobs.GetStats()
	}
	render.JSON(w, r, resp)
}
