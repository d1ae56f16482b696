package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	apierrors "freightcli/internal/errors"
	"freightcli/internal/operations"
	"freightcli/pkg/contracts/domain"
)

// Artifact names accepted by GET /reports/{id}/{artifact}
const (
	ArtifactDashboard = "dashboard"
	ArtifactReport    = "report"
	ArtifactWorkbook  = "workbook"
	ArtifactPDF       = "pdf"
	ArtifactCSV       = "csv"
)

var artifactTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".pdf":  "application/pdf",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv; charset=utf-8",
}

// artifactPath returns the file written for name, or "" when the run did
// not produce it
func artifactPath(a domain.Artifacts, name string) (string, bool) {
	switch name {
	case ArtifactDashboard:
		return a.Dashboard, true
	case ArtifactReport:
		return a.Report, true
	case ArtifactWorkbook:
		return a.Workbook, true
	case ArtifactPDF:
		return a.PDF, true
	case ArtifactCSV:
		return a.CSV, true
	}
	return "", false
}

// artifactLinks lists download URLs for the artifacts a run produced
func artifactLinks(id string, a domain.Artifacts) map[string]string {
	links := make(map[string]string)
	for _, name := range []string{ArtifactDashboard, ArtifactReport, ArtifactWorkbook, ArtifactPDF, ArtifactCSV} {
		if p, _ := artifactPath(a, name); p != "" {
			links[name] = "/reports/" + id + "/" + name
		}
	}
	return links
}

// ReportHandler serves the files written by completed runs
type ReportHandler struct {
	queue  AnalysisQueue
	errors *apierrors.ErrorHandler
	logger *slog.Logger
}

// NewReportHandler creates a report handler
func NewReportHandler(queue AnalysisQueue, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &ReportHandler{
		queue:  queue,
		errors: errorHandler,
		logger: logger.With(slog.String("handler", "reports")),
	}
}

// Routes returns the routes mounted under /reports
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}/{artifact}", h.Serve)
	return r
}

// Serve handles GET /reports/{id}/{artifact}. HTML pages are shown inline,
// everything else is sent as an attachment.
func (h *ReportHandler) Serve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "artifact")

	job, err := h.queue.GetJob(id)
	if err != nil {
		h.errors.HandleError(w, r, mapJobError(err))
		return
	}
	if job.Status != operations.JobStatusCompleted || job.Result == nil {
		h.errors.HandleError(w, r, apierrors.ErrAnalysisNotReady)
		return
	}

	path, known := artifactPath(job.Result.Artifacts, name)
	if !known {
		h.errors.HandleError(w, r, apierrors.NotFoundError("artifact "+name))
		return
	}
	if path == "" {
		h.errors.HandleError(w, r, apierrors.NotFoundError(name+" for analysis "+id))
		return
	}
	if _, err := os.Stat(path); err != nil {
		h.logger.WarnContext(r.Context(), "artifact missing on disk",
			slog.String("job_id", id),
			slog.String("artifact", name),
			slog.String("path", path))
		h.errors.HandleError(w, r, apierrors.NotFoundError(name+" for analysis "+id))
		return
	}

	ext := filepath.Ext(path)
	if ct, ok := artifactTypes[ext]; ok {
		w.Header().Set("Content-Type", ct)
	}
	if ext != ".html" {
		w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filepath.Base(path)))
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, path)
}
