package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"freightcli/internal/app"
	"freightcli/internal/config"
	"freightcli/internal/errors"
	"freightcli/internal/infrastructure"
	"freightcli/internal/operations"
	"freightcli/internal/report"
	"freightcli/pkg/contracts"
	"freightcli/pkg/contracts/domain"
)

// Exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitNoValidData = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	file    string
	sheets  string
	out     string
	config  string
	noCache bool
	pdf     bool
	open    bool
	trace   bool
	version bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("analyzer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.file, "file", "", "shipment workbook (.xlsx); defaults to the newest workbook in the input dir")
	fs.StringVar(&opts.sheets, "sheets", "", "comma separated sheet names; empty lists the sheets and exits")
	fs.StringVar(&opts.out, "out", "", "output directory (defaults to the configured output dir)")
	fs.StringVar(&opts.config, "config", "", "config file (defaults to FREIGHT_CONFIG or config.yaml)")
	fs.BoolVar(&opts.noCache, "no-cache", false, "bypass the workbook cache")
	fs.BoolVar(&opts.pdf, "pdf", false, "also print the report to PDF")
	fs.BoolVar(&opts.open, "open", false, "open the dashboard in a browser when done")
	fs.BoolVar(&opts.trace, "trace", false, "write OpenTelemetry spans to stderr")
	fs.BoolVar(&opts.version, "version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// splitSheets trims each name and drops empties
func splitSheets(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	}

	cfg, err := loadConfig(opts.config)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return exitFailure
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.MetricExporter = "none"
	if opts.trace {
		otelCfg.TraceExporter = "stdout"
		otelCfg.TraceOutput = stderr
	}
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize OpenTelemetry: %v\n", err)
		return exitFailure
	}
	defer providers.Shutdown(context.Background())

	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		fmt.Fprintf(stderr, "failed to create metrics: %v\n", err)
		return exitFailure
	}

	svc, err := app.NewService(cfg, logger, app.Options{
		Metrics:   metrics,
		Listeners: []operations.ProgressListener{&progressPrinter{w: stdout}},
	})
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize analyzer: %v\n", err)
		return exitFailure
	}

	file, err := pickWorkbook(svc, opts.file)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	opts.file = file

	sheets := splitSheets(opts.sheets)
	if len(sheets) == 0 {
		names, err := svc.ListSheets(opts.file)
		if err != nil {
			fmt.Fprintf(stderr, "failed to list sheets: %v\n", err)
			return exitFailure
		}
		fmt.Fprintf(stdout, "Sheets in %s:\n", opts.file)
		for i, name := range names {
			fmt.Fprintf(stdout, "  %d. %s\n", i+1, name)
		}
		return exitOK
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	a, err := svc.Run(ctx, app.Request{
		File:      opts.file,
		Sheets:    sheets,
		OutputDir: opts.out,
		NoCache:   opts.noCache,
		ExportPDF: opts.pdf,
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrNoValidData) {
			fmt.Fprintf(stderr, "no valid rows left after cleaning: %v\n", err)
			return exitNoValidData
		}
		fmt.Fprintf(stderr, "analysis failed: %v\n", err)
		return exitFailure
	}

	printSummary(stdout, a)

	if opts.open || cfg.Report.OpenBrowser {
		if err := report.OpenBrowser(report.FileURL(a.Artifacts.Dashboard), logger); err != nil {
			logger.Warn("Failed to open browser", slog.String("error", err.Error()))
		}
	}
	return exitOK
}

// pickWorkbook makes an explicit path absolute so it is read relative to
// the working directory, or falls back to the newest input workbook
func pickWorkbook(svc *app.Service, file string) (string, error) {
	if file != "" {
		return filepath.Abs(file)
	}
	books, err := svc.Workbooks()
	if err != nil {
		return "", fmt.Errorf("failed to list input workbooks: %w", err)
	}
	if len(books) == 0 {
		return "", fmt.Errorf("no -file given and no workbook found in the input directory")
	}
	return books[0].Path, nil
}

// progressPrinter writes one line per progress event
type progressPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *progressPrinter) OnProgress(e domain.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	line := fmt.Sprintf("[%3d%%] %-9s %s", e.Percent, e.Step, e.Message)
	if e.Error != "" {
		line += " (" + e.Error + ")"
	}
	fmt.Fprintln(p.w, line)
}

func printSummary(w io.Writer, a *domain.Analysis) {
	k := a.KPIs
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %d rows kept of %d\n", a.TitlePrefix, k.Shipments, a.RawRows)
	fmt.Fprintf(w, "  total weight     %.2f t\n", k.TotalWeight)
	fmt.Fprintf(w, "  total profit     %.2f (%.2f 万)\n", k.TotalProfit, k.TotalProfitWan)
	fmt.Fprintf(w, "  profit per ton   %.2f\n", k.AvgProfitPerTon)
	fmt.Fprintf(w, "  quality score    %d\n", a.Quality.Score)
	fmt.Fprintln(w)

	for _, f := range []struct{ label, path string }{
		{"dashboard", a.Artifacts.Dashboard},
		{"report", a.Artifacts.Report},
		{"workbook", a.Artifacts.Workbook},
		{"csv", a.Artifacts.CSV},
		{"pdf", a.Artifacts.PDF},
	} {
		if f.path != "" {
			fmt.Fprintf(w, "  %-9s %s\n", f.label, f.path)
		}
	}
}
