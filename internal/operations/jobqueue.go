package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"freightcli/internal/infrastructure"
	"freightcli/pkg/contracts/domain"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobInput is what a client asked to analyse
type JobInput struct {
	File      string   `json:"file"`
	Sheets    []string `json:"sheets,omitempty"`
	NoCache   bool     `json:"no_cache,omitempty"`
	ExportPDF bool     `json:"export_pdf,omitempty"`
}

// Job is one asynchronous analysis request. Its ID doubles as the run ID.
type Job struct {
	ID          string           `json:"id"`
	RequestID   string           `json:"request_id,omitempty"`
	Input       JobInput         `json:"input"`
	Status      JobStatus        `json:"status"`
	Progress    int              `json:"progress"`
	Message     string           `json:"message,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Result      *domain.Analysis `json:"result,omitempty"`
}

// IsFinished reports whether the job reached a terminal status
func (j *Job) IsFinished() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// JobHandler runs the analysis for a job
type JobHandler func(ctx context.Context, job *Job) (*domain.Analysis, error)

// JobStore interface for job persistence
type JobStore interface {
	CreateJob(job *Job) error
	GetJob(id string) (*Job, error)
	UpdateJob(job *Job) error
	ListJobs(filter JobFilter) ([]*Job, error)
	DeleteJob(id string) error
}

// JobFilter for querying jobs
type JobFilter struct {
	Status JobStatus
	Since  time.Time
	// File matches the workbook path or its base name
	File  string
	Limit int
}

// JobQueue manages async job execution
type JobQueue struct {
	mu       sync.Mutex
	jobs     chan *Job
	workers  int
	wg       sync.WaitGroup
	store    JobStore
	handler  JobHandler
	logger   *slog.Logger
	shutdown chan struct{}
	cancels  map[string]context.CancelFunc
}

// NewJobQueue creates a new job queue
func NewJobQueue(workers int, store JobStore, handler JobHandler, logger *slog.Logger) *JobQueue {
	if workers <= 0 {
		workers = 2
	}
	if store == nil {
		store = NewMemoryJobStore()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &JobQueue{
		jobs:     make(chan *Job, workers*4),
		workers:  workers,
		store:    store,
		handler:  handler,
		logger:   logger.With(slog.String("component", "jobqueue")),
		shutdown: make(chan struct{}),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Start begins processing jobs
func (q *JobQueue) Start(ctx context.Context) {
	q.logger.Info("starting job queue", slog.Int("workers", q.workers))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Stop signals the workers and waits for running jobs up to timeout
func (q *JobQueue) Stop(timeout time.Duration) error {
	q.logger.Info("stopping job queue")

	close(q.shutdown)

	q.mu.Lock()
	for _, cancel := range q.cancels {
		cancel()
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("job queue stopped gracefully")
		return nil
	case <-time.After(timeout):
		q.logger.Warn("job queue stop timeout exceeded")
		return fmt.Errorf("timeout waiting for workers to finish")
	}
}

// Enqueue stores a pending job and hands it to the workers
func (q *JobQueue) Enqueue(job *Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = JobStatusPending
	job.CreatedAt = time.Now()
	job.Message = "等待处理"

	if err := q.store.CreateJob(job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	select {
	case q.jobs <- job:
		q.logger.Info("job enqueued",
			slog.String("job_id", job.ID),
			slog.String("file", job.Input.File))
		return nil
	default:
		job.Status = JobStatusFailed
		job.Error = "job queue is full"
		now := time.Now()
		job.CompletedAt = &now
		_ = q.store.UpdateJob(job)
		return &OperationError{Type: ErrorTypeQueueFull, Message: "job queue is full"}
	}
}

// GetJob retrieves a job by ID
func (q *JobQueue) GetJob(id string) (*Job, error) {
	return q.store.GetJob(id)
}

// ListJobs returns jobs matching the filter
func (q *JobQueue) ListJobs(filter JobFilter) ([]*Job, error) {
	return q.store.ListJobs(filter)
}

// CancelJob cancels a pending or running job
func (q *JobQueue) CancelJob(id string) error {
	job, err := q.store.GetJob(id)
	if err != nil {
		return err
	}
	if job.IsFinished() {
		return NewInvalidStateError(id, job.Status)
	}

	q.mu.Lock()
	cancel, running := q.cancels[id]
	q.mu.Unlock()
	if running {
		// the worker records the cancelled status once the handler returns
		cancel()
		return nil
	}

	job.Status = JobStatusCancelled
	job.Message = "已取消"
	now := time.Now()
	job.CompletedAt = &now
	return q.store.UpdateJob(job)
}

// OnProgress mirrors runner progress into the job record
func (q *JobQueue) OnProgress(event domain.ProgressEvent) {
	job, err := q.store.GetJob(event.RunID)
	if err != nil || job.Status != JobStatusRunning {
		return
	}
	if event.Percent > job.Progress {
		job.Progress = event.Percent
	}
	job.Message = event.Message
	_ = q.store.UpdateJob(job)
}

func (q *JobQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	logger := q.logger.With(slog.Int("worker_id", workerID))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped by context")
			return
		case <-q.shutdown:
			logger.Debug("worker stopped by shutdown")
			return
		case job := <-q.jobs:
			q.processJob(ctx, job.ID, logger)
		}
	}
}

func (q *JobQueue) processJob(ctx context.Context, id string, logger *slog.Logger) {
	job, err := q.store.GetJob(id)
	if err != nil {
		logger.Error("queued job vanished", slog.String("job_id", id))
		return
	}
	if job.Status != JobStatusPending {
		logger.Info("skipping job", slog.String("job_id", id), slog.String("status", string(job.Status)))
		return
	}

	if job.RequestID != "" {
		ctx = context.WithValue(ctx, middleware.RequestIDKey, job.RequestID)
		ctx = infrastructure.WithTraceID(ctx, job.RequestID)
	}
	ctx = infrastructure.WithRunID(ctx, job.ID)
	ctx, cancel := context.WithCancel(ctx)

	q.mu.Lock()
	q.cancels[job.ID] = cancel
	q.mu.Unlock()

	logger = logger.With(slog.String("job_id", job.ID))
	logger.InfoContext(ctx, "processing job started")

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job processing panicked", slog.Any("panic", r))
			q.finish(job, nil, fmt.Errorf("job processing panicked: %v", r), logger)
		}
		cancel()
		q.mu.Lock()
		delete(q.cancels, job.ID)
		q.mu.Unlock()
	}()

	job.Status = JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	job.Message = "分析中"
	if err := q.store.UpdateJob(job); err != nil {
		logger.Error("failed to update job status", slog.String("error", err.Error()))
	}

	result, err := q.handler(ctx, job)
	// progress events may have updated the stored record
	if latest, getErr := q.store.GetJob(job.ID); getErr == nil {
		job = latest
	}
	q.finish(job, result, err, logger)
}

func (q *JobQueue) finish(job *Job, result *domain.Analysis, err error, logger *slog.Logger) {
	now := time.Now()
	job.CompletedAt = &now

	switch {
	case err == nil:
		job.Status = JobStatusCompleted
		job.Progress = 100
		job.Message = "分析完成"
		job.Result = result
		logger.Info("processing job completed")
	case errors.Is(err, context.Canceled):
		job.Status = JobStatusCancelled
		job.Message = "已取消"
		logger.Info("job cancelled")
	default:
		job.Status = JobStatusFailed
		job.Error = err.Error()
		job.Message = "分析失败"
		logger.Error("job failed", slog.String("error", err.Error()))
	}

	if err := q.store.UpdateJob(job); err != nil {
		logger.Error("failed to update job", slog.String("error", err.Error()))
	}
}
