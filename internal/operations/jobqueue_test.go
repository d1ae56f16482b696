package operations

import (
	"context"
	"errors"
	"testing"
	"time"

	"freightcli/internal/shared/testutil"
	"freightcli/pkg/contracts/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, q *JobQueue, id string, want JobStatus) *Job {
	t.Helper()
	var job *Job
	require.Eventually(t, func() bool {
		var err error
		job, err = q.GetJob(id)
		return err == nil && job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestJobQueue_CompletesJob(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	q := NewJobQueue(1, nil, func(ctx context.Context, job *Job) (*domain.Analysis, error) {
		return &domain.Analysis{RunID: job.ID, Source: job.Input.File}, nil
	}, logger)
	q.Start(context.Background())
	defer q.Stop(time.Second)

	job := &Job{Input: JobInput{File: "三月.xlsx"}}
	require.NoError(t, q.Enqueue(job))
	require.NotEmpty(t, job.ID)

	done := waitForStatus(t, q, job.ID, JobStatusCompleted)
	assert.Equal(t, 100, done.Progress)
	require.NotNil(t, done.Result)
	assert.Equal(t, "三月.xlsx", done.Result.Source)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
}

func TestJobQueue_FailedJob(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	q := NewJobQueue(1, nil, func(ctx context.Context, job *Job) (*domain.Analysis, error) {
		return nil, errors.New("no valid data")
	}, logger)
	q.Start(context.Background())
	defer q.Stop(time.Second)

	job := &Job{ID: "j-fail"}
	require.NoError(t, q.Enqueue(job))

	failed := waitForStatus(t, q, "j-fail", JobStatusFailed)
	assert.Equal(t, "no valid data", failed.Error)
	assert.Nil(t, failed.Result)
}

func TestJobQueue_PanicRecovered(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	q := NewJobQueue(1, nil, func(ctx context.Context, job *Job) (*domain.Analysis, error) {
		panic("nil table")
	}, logger)
	q.Start(context.Background())
	defer q.Stop(time.Second)

	require.NoError(t, q.Enqueue(&Job{ID: "j-panic"}))
	failed := waitForStatus(t, q, "j-panic", JobStatusFailed)
	assert.Contains(t, failed.Error, "nil table")
}

func TestJobQueue_CancelRunning(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	started := make(chan struct{})
	q := NewJobQueue(1, nil, func(ctx context.Context, job *Job) (*domain.Analysis, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}, logger)
	q.Start(context.Background())
	defer q.Stop(time.Second)

	require.NoError(t, q.Enqueue(&Job{ID: "j-cancel"}))
	<-started
	require.NoError(t, q.CancelJob("j-cancel"))

	waitForStatus(t, q, "j-cancel", JobStatusCancelled)

	err := q.CancelJob("j-cancel")
	assert.Equal(t, ErrorTypeInvalidState, GetErrorType(err))
}

func TestJobQueue_CancelPending(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	called := false
	q := NewJobQueue(1, nil, func(ctx context.Context, job *Job) (*domain.Analysis, error) {
		called = true
		return nil, nil
	}, logger)

	require.NoError(t, q.Enqueue(&Job{ID: "j-pending"}))
	require.NoError(t, q.CancelJob("j-pending"))

	q.Start(context.Background())
	defer q.Stop(time.Second)

	job := waitForStatus(t, q, "j-pending", JobStatusCancelled)
	assert.Equal(t, JobStatusCancelled, job.Status)
	// give the worker a chance to pick the job up and skip it
	time.Sleep(20 * time.Millisecond)
	assert.False(t, called)
}

func TestJobQueue_OnProgress(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	release := make(chan struct{})
	var q *JobQueue
	q = NewJobQueue(1, nil, func(ctx context.Context, job *Job) (*domain.Analysis, error) {
		q.OnProgress(domain.ProgressEvent{RunID: job.ID, Percent: 45, Message: "质量检查"})
		<-release
		return &domain.Analysis{}, nil
	}, logger)
	q.Start(context.Background())
	defer q.Stop(time.Second)

	require.NoError(t, q.Enqueue(&Job{ID: "j-progress"}))
	require.Eventually(t, func() bool {
		job, err := q.GetJob("j-progress")
		return err == nil && job.Progress == 45
	}, 2*time.Second, 5*time.Millisecond)

	job, _ := q.GetJob("j-progress")
	assert.Equal(t, "质量检查", job.Message)
	close(release)
	waitForStatus(t, q, "j-progress", JobStatusCompleted)
}

func TestJobQueue_UnknownJob(t *testing.T) {
	q := NewJobQueue(1, nil, nil, nil)
	_, err := q.GetJob("nope")
	assert.Equal(t, ErrorTypeNotFound, GetErrorType(err))
	assert.Equal(t, ErrorTypeNotFound, GetErrorType(q.CancelJob("nope")))
}

func TestMemoryJobStore_ListAndCleanup(t *testing.T) {
	store := NewMemoryJobStore()
	old := time.Now().Add(-2 * time.Hour)
	now := time.Now()

	require.NoError(t, store.CreateJob(&Job{ID: "a", Status: JobStatusCompleted, CreatedAt: old, CompletedAt: &old}))
	require.NoError(t, store.CreateJob(&Job{ID: "b", Status: JobStatusRunning, CreatedAt: now}))
	require.Error(t, store.CreateJob(&Job{ID: "a"}))

	all, err := store.ListJobs(JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)

	running, _ := store.ListJobs(JobFilter{Status: JobStatusRunning})
	assert.Len(t, running, 1)

	limited, _ := store.ListJobs(JobFilter{Limit: 1})
	assert.Len(t, limited, 1)

	removed, err := store.CleanupOldJobs(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, map[string]int{"total": 1, "running": 1}, store.GetStats())

	require.NoError(t, store.DeleteJob("b"))
	assert.Error(t, store.DeleteJob("b"))
}

func TestMemoryJobStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryJobStore()
	job := &Job{ID: "x", Status: JobStatusPending}
	require.NoError(t, store.CreateJob(job))

	job.Status = JobStatusRunning
	got, _ := store.GetJob("x")
	assert.Equal(t, JobStatusPending, got.Status)
}

func TestMemoryJobStore_FileFilterAndTies(t *testing.T) {
	store := NewMemoryJobStore()
	at := time.Now()
	require.NoError(t, store.CreateJob(&Job{ID: "b", CreatedAt: at, Input: JobInput{File: "/data/input/五月.xlsx"}}))
	require.NoError(t, store.CreateJob(&Job{ID: "a", CreatedAt: at, Input: JobInput{File: "/data/input/五月.xlsx"}}))
	require.NoError(t, store.CreateJob(&Job{ID: "c", CreatedAt: at, Input: JobInput{File: "/data/input/六月.xlsx"}}))

	byBase, err := store.ListJobs(JobFilter{File: "五月.xlsx"})
	require.NoError(t, err)
	require.Len(t, byBase, 2)
	assert.Equal(t, "a", byBase[0].ID)
	assert.Equal(t, "b", byBase[1].ID)

	byPath, _ := store.ListJobs(JobFilter{File: "/data/input/六月.xlsx"})
	require.Len(t, byPath, 1)
	assert.Equal(t, "c", byPath[0].ID)
}

func TestMemoryJobStore_CopiesSheets(t *testing.T) {
	store := NewMemoryJobStore()
	sheets := []string{"3月", "4月"}
	require.NoError(t, store.CreateJob(&Job{ID: "s", Input: JobInput{Sheets: sheets}}))

	sheets[0] = "changed"
	got, err := store.GetJob("s")
	require.NoError(t, err)
	assert.Equal(t, "3月", got.Input.Sheets[0])
}
