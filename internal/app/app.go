package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freightcli/internal/config"
	apierrors "freightcli/internal/errors"
	"freightcli/internal/infrastructure"
	customMiddleware "freightcli/internal/middleware"
	"freightcli/internal/operations"
	"freightcli/internal/report"
	handlers "freightcli/internal/transport/http"
	ws "freightcli/internal/websocket"
	"freightcli/pkg/contracts"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

const (
	defaultWorkers   = 2
	janitorInterval  = 10 * time.Minute
	snapshotMaxAge   = time.Hour
	finishedJobAge   = 24 * time.Hour
	limiterIdleAfter = 10 * time.Minute
)

// Application is the web mode container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	ErrorHandler  *apierrors.ErrorHandler
	Service       *Service
	WebSocketHub  *ws.Hub
	Broadcaster   *operations.StatusBroadcaster
	JobStore      *operations.MemoryJobStore
	JobQueue      *operations.JobQueue
	RateLimiter   *customMiddleware.RateLimiter

	upgrader websocket.Upgrader
}

// NewApplication wires every web mode component from cfg. A nil cfg is
// loaded from the environment.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		var err error
		if cfg, err = config.Load(); err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths := config.PathsFor(cfg)
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution()

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the pipeline service and the progress fan-out:
// runner events reach the job records and, through the broadcaster, the
// WebSocket hub.
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreatePipelineMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	service, err := NewService(a.Config, a.Logger, Options{Metrics: metrics})
	if err != nil {
		return err
	}
	a.Service = service

	hub := ws.NewHub(a.Logger)
	hub.SetKeepalive(a.Config.WebSocket.PingPeriod, a.Config.WebSocket.PongWait)
	hub.Start()
	a.WebSocketHub = hub

	a.Broadcaster = operations.NewStatusBroadcaster(hub, a.Logger)
	a.JobStore = operations.NewMemoryJobStore()
	a.JobQueue = operations.NewJobQueue(defaultWorkers, a.JobStore, service.Handler(), a.Logger)

	service.AddListener(a.JobQueue)
	service.AddListener(a.Broadcaster)

	if a.Config.Security.RateLimit.Enabled {
		a.RateLimiter = customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.ErrorHandler,
			a.Logger,
		)
	}

	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin:     sameOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.ErrorHandler.HandleError(w, r, apierrors.ErrWebSocketUpgrade.WithStatus(status, reason.Error()))
		},
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// the WebSocket route must not sit behind middleware that wraps the
	// ResponseWriter
	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Get("/ws/progress", a.handleWebSocket)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)
		if a.RateLimiter != nil {
			r.Use(a.RateLimiter.Handler)
		}

		var cacheStats handlers.CacheStats
		if c := a.Service.Cache(); c != nil {
			cacheStats = c
		}
		health := handlers.NewHealthHandler(a.WebSocketHub, cacheStats, a.JobStore, a.Logger)
		analyses := handlers.NewAnalysisHandler(a.JobQueue, a.Service, a.Broadcaster, a.ErrorHandler, a.Logger)
		reports := handlers.NewReportHandler(a.JobQueue, a.ErrorHandler, a.Logger)

		r.Get("/healthz", health.Health)
		r.Mount("/api/v1", analyses.Routes())
		r.Mount("/reports", reports.Routes())
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start launches the workers, the janitor and the HTTP server. A listen
// failure cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.JobQueue.Start(ctx)
	go a.janitor(ctx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	address := fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)
	a.Logger.InfoContext(ctx, "Application started", slog.String("address", address))

	if a.Config.Report.OpenBrowser {
		go a.openWhenReady(ctx, address)
	}
	return nil
}

// janitor prunes finished snapshots, old jobs and idle rate limiters
func (a *Application) janitor(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshots := a.Broadcaster.CleanupOldOperations(ctx, snapshotMaxAge)
			jobs, _ := a.JobStore.CleanupOldJobs(finishedJobAge)
			limiters := 0
			if a.RateLimiter != nil {
				limiters = a.RateLimiter.Cleanup(limiterIdleAfter)
			}
			if snapshots+jobs+limiters > 0 {
				a.Logger.DebugContext(ctx, "janitor pass",
					slog.Int("snapshots", snapshots),
					slog.Int("jobs", jobs),
					slog.Int("limiters", limiters))
			}
		}
	}
}

// openWhenReady polls /healthz and opens the browser once it answers
func (a *Application) openWhenReady(ctx context.Context, address string) {
	client := &http.Client{Timeout: time.Second}
	for i := 0; i < 10; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}

		resp, err := client.Get(address + "/healthz")
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			if err := report.OpenBrowser(address, a.Logger); err != nil {
				a.Logger.WarnContext(ctx, "Failed to open browser",
					slog.String("url", address),
					slog.String("error", err.Error()))
			}
			return
		}
	}
	a.Logger.WarnContext(ctx, "Server did not become ready for browser opening", slog.String("url", address))
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if err := a.JobQueue.Stop(a.Config.Server.ShutdownTimeout); err != nil {
		a.Logger.ErrorContext(ctx, "Failed to stop job queue gracefully", slog.String("error", err.Error()))
	}
	a.Broadcaster.Stop()
	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}

// handleWebSocket upgrades GET /ws/progress. An optional run_id query
// parameter restricts the stream to one run.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	runID := r.URL.Query().Get("run_id")

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.WarnContext(ctx, "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("origin", r.Header.Get("Origin")))
		return
	}

	client := a.WebSocketHub.Serve(ws.Wrap(conn), runID, reqID)
	a.Logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("run_id", runID),
		slog.String("remote_addr", r.RemoteAddr))

	if runID != "" {
		if snap, ok := a.Broadcaster.GetSnapshot(runID); ok {
			a.WebSocketHub.BroadcastUpdate(operations.EventProgress, snap.CurrentStep, string(snap.Status), snap)
		}
	}
}

// sameOrigin accepts requests without an Origin header and those whose
// origin host matches the request host
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
