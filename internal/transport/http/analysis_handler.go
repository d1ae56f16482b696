package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "freightcli/internal/errors"
	"freightcli/internal/middleware"
	"freightcli/internal/operations"
)

const defaultListLimit = 20

// AnalysisRequest is the body of POST /api/v1/analyses
type AnalysisRequest struct {
	File      string   `json:"file" validate:"required,workbook"`
	Sheets    []string `json:"sheets" validate:"required,min=1,dive,sheetname"`
	NoCache   bool     `json:"no_cache,omitempty"`
	ExportPDF bool     `json:"export_pdf,omitempty"`
}

// AnalysisAccepted acknowledges a queued run
type AnalysisAccepted struct {
	ID       string               `json:"id"`
	Status   operations.JobStatus `json:"status"`
	Location string               `json:"location"`
	Progress string               `json:"progress"`
}

// AnalysisStatus is the body of GET /api/v1/analyses/{id}
type AnalysisStatus struct {
	Job       *operations.Job         `json:"job"`
	Progress  *operations.RunSnapshot `json:"progress,omitempty"`
	Artifacts map[string]string       `json:"artifacts,omitempty"`
}

// AnalysisSummary is one entry of GET /api/v1/analyses
type AnalysisSummary struct {
	ID          string               `json:"id"`
	File        string               `json:"file"`
	Sheets      []string             `json:"sheets"`
	Status      operations.JobStatus `json:"status"`
	Progress    int                  `json:"progress"`
	Message     string               `json:"message,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

// AnalysisHandler serves the analysis and sheet listing endpoints
type AnalysisHandler struct {
	queue     AnalysisQueue
	sheets    SheetLister
	progress  ProgressSource
	validator *middleware.Validator
	errors    *apierrors.ErrorHandler
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewAnalysisHandler creates the handler. progress may be nil.
func NewAnalysisHandler(queue AnalysisQueue, sheets SheetLister, progress ProgressSource, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *AnalysisHandler {
	if queue == nil {
		panic("queue cannot be nil")
	}
	if sheets == nil {
		panic("sheet lister cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &AnalysisHandler{
		queue:     queue,
		sheets:    sheets,
		progress:  progress,
		validator: middleware.NewValidator(logger),
		errors:    errorHandler,
		logger:    logger.With(slog.String("handler", "analyses")),
		tracer:    otel.Tracer("freightcli.http.analyses"),
	}
}

// Routes returns the routes mounted under /api/v1
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/workbooks", h.ListWorkbooks)
	r.Get("/sheets", h.ListSheets)
	r.Route("/analyses", func(r chi.Router) {
		r.With(middleware.ContentType(h.errors, "application/json")).Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Cancel)
	})
	return r
}

// ListWorkbooks handles GET /api/v1/workbooks
func (h *AnalysisHandler) ListWorkbooks(w http.ResponseWriter, r *http.Request) {
	lister, ok := h.sheets.(WorkbookLister)
	if !ok {
		h.errors.NotFound(w, r)
		return
	}

	workbooks, err := lister.Workbooks()
	if err != nil {
		h.errors.HandleError(w, r, apierrors.NewStorageError("failed to list workbooks", err))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"workbooks": workbooks,
		"count":     len(workbooks),
	})
}

// ListSheets handles GET /api/v1/sheets?file=
func (h *AnalysisHandler) ListSheets(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	if file == "" {
		h.errors.HandleError(w, r, apierrors.ErrValidation("file", "file is required"))
		return
	}

	sheets, err := h.sheets.ListSheets(file)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"file":   file,
		"sheets": sheets,
	})
}

// Create handles POST /api/v1/analyses
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	reqID := chimw.GetReqID(r.Context())
	ctx, span := h.tracer.Start(r.Context(), "analyses.create",
		trace.WithAttributes(attribute.String("request_id", reqID)))
	defer span.End()

	var req AnalysisRequest
	if err := h.validator.Decode(r, &req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		h.errors.HandleError(w, r, err)
		return
	}

	job := &operations.Job{
		RequestID: reqID,
		Input: operations.JobInput{
			File:      req.File,
			Sheets:    req.Sheets,
			NoCache:   req.NoCache,
			ExportPDF: req.ExportPDF,
		},
	}
	if err := h.queue.Enqueue(job); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.jobError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("job.id", job.ID),
		attribute.Int("job.sheets", len(req.Sheets)))
	h.logger.InfoContext(ctx, "analysis queued",
		slog.String("job_id", job.ID),
		slog.String("request_id", reqID),
		slog.String("file", req.File),
		slog.Any("sheets", req.Sheets))

	location := "/api/v1/analyses/" + job.ID
	w.Header().Set("Location", location)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, AnalysisAccepted{
		ID:       job.ID,
		Status:   job.Status,
		Location: location,
		Progress: "/ws/progress?run_id=" + job.ID,
	})
}

// List handles GET /api/v1/analyses?status=&file=&limit=
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := operations.JobFilter{
		Status: operations.JobStatus(r.URL.Query().Get("status")),
		File:   r.URL.Query().Get("file"),
		Limit:  defaultListLimit,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.errors.HandleError(w, r, apierrors.ErrValidation("limit", "limit must be a positive integer"))
			return
		}
		filter.Limit = n
	}

	jobs, err := h.queue.ListJobs(filter)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	out := make([]AnalysisSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, AnalysisSummary{
			ID:          j.ID,
			File:        j.Input.File,
			Sheets:      j.Input.Sheets,
			Status:      j.Status,
			Progress:    j.Progress,
			Message:     j.Message,
			CreatedAt:   j.CreatedAt,
			CompletedAt: j.CompletedAt,
		})
	}
	render.JSON(w, r, map[string]interface{}{
		"analyses": out,
		"count":    len(out),
	})
}

// Get handles GET /api/v1/analyses/{id}
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := h.queue.GetJob(id)
	if err != nil {
		h.jobError(w, r, err)
		return
	}

	resp := AnalysisStatus{Job: job}
	if h.progress != nil {
		if snap, ok := h.progress.GetSnapshot(id); ok {
			resp.Progress = snap
		}
	}
	if job.Result != nil {
		resp.Artifacts = artifactLinks(job.ID, job.Result.Artifacts)
	}
	render.JSON(w, r, resp)
}

// Cancel handles DELETE /api/v1/analyses/{id}
func (h *AnalysisHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.queue.CancelJob(id); err != nil {
		h.jobError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "analysis cancelled",
		slog.String("job_id", id),
		slog.String("request_id", chimw.GetReqID(r.Context())))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"id":     id,
		"status": operations.JobStatusCancelled,
	})
}

// jobError maps queue errors onto API errors before rendering
func (h *AnalysisHandler) jobError(w http.ResponseWriter, r *http.Request, err error) {
	h.errors.HandleError(w, r, mapJobError(err))
}

func mapJobError(err error) error {
	switch operations.GetErrorType(err) {
	case operations.ErrorTypeNotFound:
		return apierrors.ErrAnalysisNotFound
	case operations.ErrorTypeQueueFull:
		return apierrors.ErrQueueFull
	case operations.ErrorTypeInvalidState:
		return apierrors.ErrAnalysisFinished
	}
	return err
}
