package app

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"freightcli/internal/config"
	"freightcli/internal/errors"
	"freightcli/internal/operations"
	"freightcli/internal/shared/testutil"
	"freightcli/pkg/contracts/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sheetHeader = []interface{}{"发货日期", "车牌号", "类别", "发往地", "重量（吨）", "卖出价", "扣点", "运费", "预估利润"}

type progressLog struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (p *progressLog) OnProgress(e domain.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *progressLog) snapshot() []domain.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ProgressEvent(nil), p.events...)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ExecutableDir = dir
	cfg.Paths.OutputDir = filepath.Join(dir, "output")
	cfg.Paths.LogsDir = filepath.Join(dir, "logs")
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	cfg.Report.Charts = false
	return cfg
}

// writeShipments saves a two-month workbook; sell prices can be
// overridden to make every row invalid.
func writeShipments(t *testing.T, price float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "运输明细.xlsx")
	testutil.WriteWorkbook(t, path, []string{"3月", "4月"}, map[string][][]interface{}{
		"3月": {
			{"三月发货明细"},
			sheetHeader,
			{45352, "鲁A1", "钢材", "济南", 30, price, 0.5, 3000, 1200},
			{45353, "鲁A2", "钢材", "青岛", 28, price, 0.5, 3100, 900},
			{45354, "鲁A1", "煤炭", "济南", 35, price, 0.4, 2800, -200},
		},
		"4月": {
			{"四月发货明细"},
			sheetHeader,
			{45383, "鲁A3", "煤炭", "济南", 32, price, 0.4, 2900, 400},
			{45384, "鲁A2", "钢材", "青岛", 31, price, 0.5, 3050, 1100},
		},
	})
	return path
}

func newTestService(t *testing.T, cfg *config.Config, listeners ...operations.ProgressListener) *Service {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	clock := func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local) }
	svc, err := NewService(cfg, logger, Options{Listeners: listeners, Clock: clock})
	require.NoError(t, err)
	return svc
}

func TestService_RunWritesArtifacts(t *testing.T) {
	cfg := testConfig(t)
	progress := &progressLog{}
	svc := newTestService(t, cfg, progress)
	file := writeShipments(t, 320)

	a, err := svc.Run(context.Background(), Request{File: file, Sheets: []string{"3月", "4月"}})
	require.NoError(t, err)

	assert.NotEmpty(t, a.RunID)
	assert.True(t, a.CompareMode)
	assert.Equal(t, config.MultiMonthPrefix, a.TitlePrefix)
	assert.Equal(t, 5, a.RawRows)
	assert.Len(t, a.Table.Rows, 5)
	require.NotNil(t, a.Monthly)
	assert.Len(t, a.Monthly.Months, 2)
	assert.Equal(t, 5, a.KPIs.Shipments)
	assert.NotEmpty(t, a.TopVehicles)

	for _, p := range []string{a.Artifacts.Dashboard, a.Artifacts.Report, a.Artifacts.Workbook, a.Artifacts.CSV} {
		require.NotEmpty(t, p)
		assert.FileExists(t, p)
		assert.Equal(t, cfg.Paths.OutputDir, filepath.Dir(p))
	}
	assert.Equal(t, "多月对比_仪表板_20240501_093000.html", filepath.Base(a.Artifacts.Dashboard))
	assert.Empty(t, a.Artifacts.PDF)

	events := progress.snapshot()
	require.NotEmpty(t, events)
	last := 0
	for _, e := range events {
		assert.Equal(t, a.RunID, e.RunID)
		assert.GreaterOrEqual(t, e.Percent, last, "progress must not go backwards at step %s", e.Step)
		last = e.Percent
	}
	assert.Equal(t, 100, last)
	assert.Equal(t, domain.RunCompleted, events[len(events)-1].Status)
}

func TestService_SingleSheetUsesSheetPrefix(t *testing.T) {
	cfg := testConfig(t)
	svc := newTestService(t, cfg)
	out := filepath.Join(t.TempDir(), "elsewhere")

	a, err := svc.Run(context.Background(), Request{
		RunID:     "run-single",
		File:      writeShipments(t, 320),
		Sheets:    []string{"4月"},
		OutputDir: out,
	})
	require.NoError(t, err)

	assert.Equal(t, "run-single", a.RunID)
	assert.False(t, a.CompareMode)
	assert.Equal(t, "4月", a.TitlePrefix)
	assert.Nil(t, a.Monthly)
	assert.Equal(t, out, filepath.Dir(a.Artifacts.Workbook))
}

func TestService_SecondRunHitsCache(t *testing.T) {
	cfg := testConfig(t)
	svc := newTestService(t, cfg)
	file := writeShipments(t, 320)
	req := Request{File: file, Sheets: []string{"3月"}}

	_, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), req)
	require.NoError(t, err)

	stats := svc.Cache().GetStats()
	assert.Equal(t, int64(1), stats["hit_count"])
	assert.Equal(t, 1, stats["entries"])

	req.NoCache = true
	_, err = svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), svc.Cache().GetStats()["hit_count"])
}

func TestService_CacheDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = false
	svc := newTestService(t, cfg)
	assert.Nil(t, svc.Cache())

	_, err := svc.Run(context.Background(), Request{File: writeShipments(t, 320), Sheets: []string{"3月"}})
	require.NoError(t, err)
	_, statErr := os.Stat(cfg.Cache.Dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestService_NoValidData(t *testing.T) {
	cfg := testConfig(t)
	progress := &progressLog{}
	svc := newTestService(t, cfg, progress)

	_, err := svc.Run(context.Background(), Request{File: writeShipments(t, 1), Sheets: []string{"3月", "4月"}})
	require.Error(t, err)

	assert.True(t, stderrors.Is(err, errors.ErrNoValidData))
	assert.Equal(t, StepClean, operations.FailedStep(err))

	events := progress.snapshot()
	require.NotEmpty(t, events)
	final := events[len(events)-1]
	assert.Equal(t, domain.RunFailed, final.Status)
	assert.Equal(t, StepClean, final.Step)
}

func TestService_RejectsBadRequests(t *testing.T) {
	svc := newTestService(t, testConfig(t))
	notWorkbook := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(notWorkbook, []byte("x"), 0644))

	tests := []struct {
		name    string
		req     Request
		errType errors.ErrorType
	}{
		{"no file", Request{Sheets: []string{"3月"}}, errors.ErrTypeValidation},
		{"no sheets", Request{File: writeShipments(t, 320)}, errors.ErrTypeValidation},
		{"missing file", Request{File: "/nonexistent/x.xlsx", Sheets: []string{"3月"}}, errors.ErrTypeNotFound},
		{"not a workbook", Request{File: notWorkbook, Sheets: []string{"3月"}}, errors.ErrTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Run(context.Background(), tt.req)
			require.Error(t, err)
			var appErr *errors.AppError
			require.True(t, stderrors.As(err, &appErr))
			assert.Equal(t, tt.errType, appErr.Type)
		})
	}
}

func TestService_UnknownSheetFailsLoad(t *testing.T) {
	svc := newTestService(t, testConfig(t))
	_, err := svc.Run(context.Background(), Request{File: writeShipments(t, 320), Sheets: []string{"9月"}})
	require.Error(t, err)
	assert.Equal(t, StepLoad, operations.FailedStep(err))
}

func TestService_ListSheets(t *testing.T) {
	svc := newTestService(t, testConfig(t))
	sheets, err := svc.ListSheets(writeShipments(t, 320))
	require.NoError(t, err)
	assert.Equal(t, []string{"3月", "4月"}, sheets)

	_, err = svc.ListSheets("/nonexistent/x.xlsx")
	assert.Error(t, err)
}

func TestService_HandlerUsesJobID(t *testing.T) {
	svc := newTestService(t, testConfig(t))
	progress := &progressLog{}
	svc.AddListener(progress)

	job := &operations.Job{
		ID:    "job-42",
		Input: operations.JobInput{File: writeShipments(t, 320), Sheets: []string{"3月"}},
	}
	a, err := svc.Handler()(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "job-42", a.RunID)

	for _, e := range progress.snapshot() {
		assert.Equal(t, "job-42", e.RunID)
	}
}

func TestService_CancelledRun(t *testing.T) {
	svc := newTestService(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, Request{File: writeShipments(t, 320), Sheets: []string{"3月"}})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
	assert.Equal(t, operations.ErrorTypeCancellation, operations.GetErrorType(err))
}

func TestService_ResolvesInputDirectory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.InputDir = filepath.Join(cfg.Paths.ExecutableDir, "inbox")
	require.NoError(t, os.MkdirAll(cfg.Paths.InputDir, 0o755))

	src := writeShipments(t, 320)
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.InputDir, "五月.xlsx"), data, 0o644))

	svc := newTestService(t, cfg)

	books, err := svc.Workbooks()
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "五月.xlsx", books[0].Name)

	sheets, err := svc.ListSheets("五月.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"3月", "4月"}, sheets)

	a, err := svc.Run(context.Background(), Request{File: "五月.xlsx", Sheets: []string{"4月"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Paths.InputDir, "五月.xlsx"), a.Source)

	_, err = svc.ListSheets("../outside.xlsx")
	assert.Equal(t, errors.ErrTypeValidation, appErrorType(t, err))
}

func appErrorType(t *testing.T, err error) errors.ErrorType {
	t.Helper()
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr), "not an AppError: %v", err)
	return appErr.Type
}
