package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"freightcli/internal/analysis"
	"freightcli/internal/cache"
	"freightcli/internal/config"
	"freightcli/internal/dataprocessing"
	"freightcli/internal/errors"
	"freightcli/internal/exporter"
	"freightcli/internal/files"
	"freightcli/internal/infrastructure"
	"freightcli/internal/operations"
	"freightcli/internal/report"
	"freightcli/internal/validation"
	"freightcli/pkg/contracts/domain"

	"github.com/google/uuid"
)

// Step identifiers, in execution order
const (
	StepLoad      = "load"
	StepClean     = "clean"
	StepValidate  = "validate"
	StepSummarize = "summarize"
	StepMonthly   = "monthly"
	StepCost      = "cost"
	StepRender    = "render"
	StepSave      = "save"
)

// Request describes one analysis run
type Request struct {
	RunID     string
	File      string
	Sheets    []string
	OutputDir string
	NoCache   bool
	ExportPDF bool
}

// Options carries the optional collaborators of a Service
type Options struct {
	Metrics   *infrastructure.PipelineMetrics
	Listeners []operations.ProgressListener
	Clock     func() time.Time
}

// Service runs the analysis pipeline and writes its artifacts
type Service struct {
	cfg    *config.Config
	paths  *config.Paths
	logger *slog.Logger

	loader    *dataprocessing.Loader
	cleaner   *dataprocessing.Cleaner
	quality   *validation.Validator
	checks    *validation.FileValidator
	inputs    *files.Discovery
	cache     *cache.Store
	renderer  *report.Renderer
	printer   *report.PDFPrinter
	workbooks *exporter.WorkbookWriter
	csv       *exporter.CSVWriter
	runner    *operations.Runner
	metrics   *infrastructure.PipelineMetrics
	now       func() time.Time
}

// NewService wires the pipeline components from cfg. An unusable cache or
// chart font is logged and skipped.
func NewService(cfg *config.Config, logger *slog.Logger, opts Options) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	paths := config.PathsFor(cfg)

	renderer, err := report.NewRenderer(cfg.Report.Charts, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize renderer: %w", err)
	}
	if cfg.Report.Charts && cfg.Report.ChartFont != "" {
		if err := report.LoadChartFont(cfg.Report.ChartFont); err != nil {
			logger.Warn("chart font not loaded, labels may not render",
				slog.String("path", cfg.Report.ChartFont),
				slog.String("error", err.Error()))
		}
	}

	s := &Service{
		cfg:       cfg,
		paths:     paths,
		logger:    logger.With(slog.String("component", "analysis_service")),
		loader:    dataprocessing.NewLoader(logger, cfg.Analysis),
		cleaner:   dataprocessing.NewCleaner(logger, cfg.Analysis),
		quality:   validation.NewValidator(logger),
		checks:    validation.NewFileValidator(logger),
		inputs:    files.NewDiscovery(paths.InputDir),
		renderer:  renderer,
		printer:   report.NewPDFPrinter(cfg.Report.ChromePath, cfg.Report.PDFTimeout, logger),
		workbooks: exporter.NewWorkbookWriter(paths, logger),
		csv:       exporter.NewCSVWriter(paths, logger),
		runner:    operations.NewRunner(logger, operations.NewStepTracer(opts.Metrics), opts.Listeners...),
		metrics:   opts.Metrics,
		now:       opts.Clock,
	}

	if cfg.Cache.Enabled {
		maxAge := time.Duration(cfg.Cache.MaxAgeDays) * 24 * time.Hour
		store, err := cache.Open(cfg.Cache.Dir, maxAge, logger)
		if err != nil {
			s.logger.Warn("workbook cache disabled", slog.String("error", err.Error()))
		} else {
			s.cache = store
		}
	}

	return s, nil
}

// AddListener registers a progress listener for subsequent runs
func (s *Service) AddListener(l operations.ProgressListener) {
	s.runner.AddListener(l)
}

// Cache returns the workbook cache, or nil when caching is off
func (s *Service) Cache() *cache.Store {
	return s.cache
}

// Workbooks lists the workbooks in the input directory, newest first
func (s *Service) Workbooks() ([]files.FileInfo, error) {
	return s.inputs.FindWorkbooks()
}

// resolveWorkbook anchors relative names at the input directory and checks
// the result is a readable workbook
func (s *Service) resolveWorkbook(name string) (string, error) {
	path, err := s.inputs.Resolve(name)
	if err != nil {
		return "", errors.NewAppValidationError(err.Error())
	}
	if err := s.checks.ValidateWorkbook(path); err != nil {
		return "", err
	}
	return path, nil
}

// ListSheets returns the sheet names of a workbook
func (s *Service) ListSheets(name string) ([]string, error) {
	path, err := s.resolveWorkbook(name)
	if err != nil {
		return nil, err
	}
	return s.loader.ListSheets(path)
}

// Handler adapts the service to the job queue. The job ID is the run ID.
func (s *Service) Handler() operations.JobHandler {
	return func(ctx context.Context, job *operations.Job) (*domain.Analysis, error) {
		return s.Run(ctx, Request{
			RunID:     job.ID,
			File:      job.Input.File,
			Sheets:    job.Input.Sheets,
			NoCache:   job.Input.NoCache,
			ExportPDF: job.Input.ExportPDF,
		})
	}
}

// run carries the intermediate values shared by the steps of one run
type run struct {
	req    Request
	outDir string
	raw    *domain.RawTable
	a      *domain.Analysis
}

// Run executes the pipeline for req. Failures are OperationErrors naming
// the step; errors.Is(err, errors.ErrNoValidData) holds when cleaning
// dropped every row.
func (s *Service) Run(ctx context.Context, req Request) (*domain.Analysis, error) {
	if req.File == "" {
		return nil, errors.NewAppValidationError("no workbook given")
	}
	if len(req.Sheets) == 0 {
		return nil, errors.NewAppValidationError("no sheets selected")
	}
	path, err := s.resolveWorkbook(req.File)
	if err != nil {
		return nil, err
	}
	req.File = path

	outDir := req.OutputDir
	if outDir == "" {
		outDir = s.paths.OutputDir
	}
	if abs, err := filepath.Abs(outDir); err == nil {
		outDir = abs
	}
	if err := s.checks.ValidateOutputDirectory(outDir); err != nil {
		return nil, err
	}

	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	ctx = infrastructure.WithRunID(ctx, req.RunID)
	if s.cfg.Server.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Server.RunTimeout)
		defer cancel()
	}

	compare := len(req.Sheets) > 1
	prefix := req.Sheets[0]
	if compare {
		prefix = config.MultiMonthPrefix
	}

	r := &run{
		req:    req,
		outDir: outDir,
		a: &domain.Analysis{
			RunID:       req.RunID,
			Source:      req.File,
			Sheets:      append([]string(nil), req.Sheets...),
			TitlePrefix: prefix,
			CompareMode: compare,
			GeneratedAt: s.now(),
		},
	}

	s.logger.InfoContext(ctx, "analysis started",
		slog.String("run_id", req.RunID),
		slog.String("file", req.File),
		slog.Any("sheets", req.Sheets),
		slog.Bool("compare_mode", compare))

	steps := []operations.Step{
		operations.NewStep(StepLoad, "读取工作簿", 10, 30, s.load(r)),
		operations.NewStep(StepClean, "数据清洗", 30, 45, s.clean(r)),
		operations.NewStep(StepValidate, "数据质量检查", 45, 55, s.validate(r)),
		operations.NewStep(StepSummarize, "汇总统计", 55, 62, s.summarize(r)),
		operations.NewStep(StepMonthly, "月度对比", 62, 70, s.monthly(r)),
		operations.NewStep(StepCost, "成本分析", 70, 80, s.cost(r)),
		operations.NewStep(StepRender, "生成报告", 80, 96, s.render(r)),
		operations.NewStep(StepSave, "导出数据", 96, 100, s.save(r)),
	}

	state, err := s.runner.Execute(ctx, req.RunID, steps)
	s.runner.ForgetRun(req.RunID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "analysis complete",
		slog.String("run_id", req.RunID),
		slog.Duration("duration", state.Duration()),
		slog.Int("rows", len(r.a.Table.Rows)),
		slog.Int("quality_score", r.a.Quality.Score),
		slog.String("dashboard", r.a.Artifacts.Dashboard))
	return r.a, nil
}

func (s *Service) load(r *run) operations.StepFunc {
	return func(ctx context.Context, report operations.ProgressFunc) error {
		useCache := s.cache != nil && !r.req.NoCache
		if useCache {
			raw, ok := s.cache.Get(r.req.File, r.req.Sheets)
			s.metrics.RecordCacheLookup(ctx, ok)
			if ok {
				s.logger.InfoContext(ctx, "workbook served from cache",
					slog.String("file", r.req.File),
					slog.Int("rows", raw.Len()))
				r.raw = raw
				r.a.RawRows = raw.Len()
				report(1, "已从缓存读取")
				return nil
			}
		}

		raw, err := s.loader.LoadSheets(ctx, r.req.File, r.req.Sheets, func(done, total int, sheet string) {
			report(float64(done)/float64(total), fmt.Sprintf("已读取 %s (%d/%d)", sheet, done, total))
		})
		if err != nil {
			return err
		}
		r.raw = raw
		r.a.RawRows = raw.Len()

		if useCache {
			if err := s.cache.Put(r.req.File, r.req.Sheets, raw); err != nil {
				s.logger.WarnContext(ctx, "failed to cache workbook", slog.String("error", err.Error()))
			}
		}
		return nil
	}
}

func (s *Service) clean(r *run) operations.StepFunc {
	return func(ctx context.Context, report operations.ProgressFunc) error {
		table, stats, err := s.cleaner.Clean(ctx, r.raw)
		s.metrics.RecordDrops(ctx, stats.Input, stats.AsMap())
		infrastructure.AddSpanEvent(ctx, "rows_dropped", stats.AsMap())
		r.a.Dropped = stats.AsMap()
		if err != nil {
			return err
		}
		r.a.Table = table
		r.raw = nil
		report(1, fmt.Sprintf("保留 %d 行，剔除 %d 行", stats.Output, stats.Total()))
		return nil
	}
}

func (s *Service) validate(r *run) operations.StepFunc {
	return func(ctx context.Context, report operations.ProgressFunc) error {
		r.a.Quality = s.quality.Validate(ctx, r.a.Table)
		report(1, fmt.Sprintf("质量评分 %d", r.a.Quality.Score))
		return nil
	}
}

func (s *Service) summarize(r *run) operations.StepFunc {
	return func(ctx context.Context, report operations.ProgressFunc) error {
		sums, err := analysis.Summarize(r.a.Table)
		if err != nil {
			return err
		}
		r.a.Summaries = sums
		return nil
	}
}

func (s *Service) monthly(r *run) operations.StepFunc {
	return func(ctx context.Context, report operations.ProgressFunc) error {
		m, err := analysis.CompareMonths(r.a.Table, r.a.CompareMode)
		if err != nil {
			return err
		}
		r.a.Monthly = m
		return nil
	}
}

func (s *Service) cost(r *run) operations.StepFunc {
	return func(ctx context.Context, report operations.ProgressFunc) error {
		c, err := analysis.AnalyzeCost(r.a.Table)
		if err != nil {
			return err
		}
		r.a.Cost = c
		return nil
	}
}

func (s *Service) render(r *run) operations.StepFunc {
	return func(ctx context.Context, report operations.ProgressFunc) error {
		a := r.a
		a.KPIs = analysis.ComputeKPIs(a.Table, a.Summaries.Days)
		a.TopVehicles = analysis.TopVehicles(a.Table, s.cfg.Analysis.TopVehicles)
		a.Insights = analysis.Insights(a.Summaries, a.Cost, a.TopVehicles)

		dashboard := filepath.Join(r.outDir, config.ArtifactName(a.TitlePrefix, config.ArtifactDashboard, "html", a.GeneratedAt))
		if err := s.renderer.WriteDashboard(a, dashboard); err != nil {
			return err
		}
		a.Artifacts.Dashboard = dashboard
		report(0.4, "仪表板已生成")

		reportPath := filepath.Join(r.outDir, config.ArtifactName(a.TitlePrefix, config.ArtifactReport, "html", a.GeneratedAt))
		if err := s.renderer.WriteReport(a, reportPath); err != nil {
			return err
		}
		a.Artifacts.Report = reportPath
		report(0.7, "深度报告已生成")

		if r.req.ExportPDF || s.cfg.Report.ExportPDF {
			pdf := strings.TrimSuffix(reportPath, filepath.Ext(reportPath)) + ".pdf"
			if err := s.printer.Print(ctx, reportPath, pdf); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.WarnContext(ctx, "pdf export skipped", slog.String("error", err.Error()))
			} else {
				a.Artifacts.PDF = pdf
			}
		}
		return nil
	}
}

func (s *Service) save(r *run) operations.StepFunc {
	return func(ctx context.Context, report operations.ProgressFunc) error {
		a := r.a
		workbook, err := s.workbooks.Write(a, filepath.Join(r.outDir, config.ArtifactName(a.TitlePrefix, config.ArtifactWorkbook, "xlsx", a.GeneratedAt)))
		if err != nil {
			return err
		}
		a.Artifacts.Workbook = workbook
		report(0.5, "明细工作簿已导出")

		csvPath, err := s.csv.WriteSummaries(a, filepath.Join(r.outDir, config.ArtifactName(a.TitlePrefix, config.ArtifactSummary, "csv", a.GeneratedAt)))
		if err != nil {
			return errors.NewStorageError("failed to write summary csv", err)
		}
		a.Artifacts.CSV = csvPath
		return nil
	}
}
