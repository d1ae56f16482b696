package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const defaultPDFTimeout = 60 * time.Second

// PDFPrinter prints a rendered HTML report through headless Chrome
type PDFPrinter struct {
	chromePath string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewPDFPrinter creates a printer. An empty chromePath lets chromedp
// look for a browser on the PATH.
func NewPDFPrinter(chromePath string, timeout time.Duration, logger *slog.Logger) *PDFPrinter {
	if timeout <= 0 {
		timeout = defaultPDFTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFPrinter{
		chromePath: chromePath,
		timeout:    timeout,
		logger:     logger.With(slog.String("component", "pdf")),
	}
}

// Print loads htmlPath and writes it as an A4 PDF to pdfPath
func (p *PDFPrinter) Print(ctx context.Context, htmlPath, pdfPath string) error {
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return fmt.Errorf("failed to resolve report path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("report not found: %w", err)
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts, chromedp.Flag("headless", true))
	if p.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(p.chromePath))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	start := time.Now()
	var buf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+filepath.ToSlash(abs)),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to print pdf: %w", err)
	}

	if err := os.WriteFile(pdfPath, buf, 0644); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	p.logger.Info("pdf written",
		slog.String("path", pdfPath),
		slog.Int("bytes", len(buf)),
		slog.Duration("duration", time.Since(start)))
	return nil
}
