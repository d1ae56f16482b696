package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightcli/internal/config"
	"freightcli/internal/operations"
	handlers "freightcli/internal/transport/http"
	ws "freightcli/internal/websocket"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *Application {
	t.Helper()
	t.Setenv("FREIGHT_METRICS_EXPORTER", "none")

	cfg := testConfig(t)
	cfg.Report.OpenBrowser = false
	cfg.Server.ShutdownTimeout = 5 * time.Second
	if mutate != nil {
		mutate(cfg)
	}

	a, err := NewApplication(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, a.Stop(context.Background()))
	})
	return a
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestApplication_Health(t *testing.T) {
	a := newTestApp(t, nil)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body handlers.HealthResponse
	decodeJSON(t, resp, &body)
	assert.Equal(t, "ok", body.Status)
	assert.NotNil(t, body.Cache)
	assert.NotNil(t, body.WebSocket)
}

func TestApplication_UnknownRouteIsProblem(t *testing.T) {
	a := newTestApp(t, nil)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "json")
}

func TestApplication_MetricsDisabled(t *testing.T) {
	a := newTestApp(t, nil)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApplication_CacheDisabledOmitsStats(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Cache.Enabled = false })
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)

	var body handlers.HealthResponse
	decodeJSON(t, resp, &body)
	assert.Nil(t, body.Cache)
}

func TestApplication_AnalysisLifecycle(t *testing.T) {
	a := newTestApp(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.JobQueue.Start(ctx)

	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	file := writeShipments(t, 320)
	body := `{"file":` + jsonString(file) + `,"sheets":["3月","4月"]}`
	resp, err := http.Post(srv.URL+"/api/v1/analyses", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted handlers.AnalysisAccepted
	decodeJSON(t, resp, &accepted)
	require.NotEmpty(t, accepted.ID)

	var status handlers.AnalysisStatus
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + accepted.Location)
		if err != nil {
			return false
		}
		status = handlers.AnalysisStatus{}
		decodeJSON(t, resp, &status)
		return status.Job != nil && status.Job.Status == operations.JobStatusCompleted
	}, 20*time.Second, 50*time.Millisecond)

	assert.Equal(t, 100, status.Job.Progress)
	require.Contains(t, status.Artifacts, handlers.ArtifactDashboard)
	require.Contains(t, status.Artifacts, handlers.ArtifactWorkbook)

	resp, err = http.Get(srv.URL + status.Artifacts[handlers.ArtifactDashboard])
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp, err = http.Get(srv.URL + status.Artifacts[handlers.ArtifactWorkbook])
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	stats := a.JobStore.GetStats()
	assert.Equal(t, 1, stats[string(operations.JobStatusCompleted)])
}

func TestApplication_WebSocketConnects(t *testing.T) {
	a := newTestApp(t, nil)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/progress?run_id=run-1"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeConnection, msg.Type)
	assert.Equal(t, "run-1", msg.RunID)
	assert.NotEmpty(t, msg.TraceID)

	a.WebSocketHub.BroadcastUpdate(operations.EventProgress, "load", "running",
		map[string]interface{}{"run_id": "run-2"})
	a.WebSocketHub.BroadcastUpdate(operations.EventProgress, "load", "running",
		map[string]interface{}{"run_id": "run-1"})

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, operations.EventProgress, msg.Type)
	assert.Equal(t, "run-1", msg.RunID)
}

func TestApplication_WebSocketRejectsForeignOrigin(t *testing.T) {
	a := newTestApp(t, nil)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/progress"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestApplication_RateLimit(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.Security.RateLimit.Enabled = true
		c.Security.RateLimit.RPS = 0.001
		c.Security.RateLimit.Burst = 1
	})
	require.NotNil(t, a.RateLimiter)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestApplication_StartServes(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Server.Port = 0 })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, a.Start(ctx, cancel))
	assert.NoError(t, ctx.Err())
}

func TestSameOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin", "", true},
		{"same host", "http://localhost:8080", true},
		{"other host", "http://evil.example", false},
		{"other port", "http://localhost:9090", false},
		{"malformed", "://", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://localhost:8080/ws/progress", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, sameOrigin(r))
		})
	}
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
