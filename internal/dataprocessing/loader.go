package dataprocessing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"freightcli/internal/config"
	"freightcli/internal/errors"
	"freightcli/pkg/contracts/domain"
)

// SheetProgress is called after each sheet finishes loading
type SheetProgress func(done, total int, sheet string)

// Loader reads month sheets from shipment workbooks
type Loader struct {
	logger    *slog.Logger
	headerRow int
	monthTag  string
	workers   int
}

// NewLoader creates a Loader using the header row and month tag column
// from cfg
func NewLoader(logger *slog.Logger, cfg config.AnalysisConfig) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	headerRow := cfg.HeaderRow
	if headerRow < 1 {
		headerRow = config.DefaultHeaderRow
	}
	return &Loader{
		logger:    logger.With(slog.String("component", "loader")),
		headerRow: headerRow,
		monthTag:  cfg.MonthTagColumn,
		workers:   4,
	}
}

// ListSheets returns the sheet names of the workbook in tab order
func (l *Loader) ListSheets(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.NewParsingError("failed to open workbook", err).WithContext("file", path)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// LoadSheets reads the selected sheets concurrently and concatenates them
// in selection order. Each row gets the sheet name in the month tag column.
// Any sheet failure aborts the whole load.
func (l *Loader) LoadSheets(ctx context.Context, path string, sheets []string, progress SheetProgress) (*domain.RawTable, error) {
	if len(sheets) == 0 {
		return nil, errors.NewAppValidationError("no sheets selected")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewParsingError("failed to read workbook", err).WithContext("file", path)
	}

	l.logger.InfoContext(ctx, "Loading workbook",
		slog.String("file", path),
		slog.Any("sheets", sheets),
		slog.Int("bytes", len(data)))

	tables := make([]*domain.RawTable, len(sheets))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, sheet := range sheets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := l.readSheet(data, sheet)
			if err != nil {
				return errors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err).
					WithContext("sheet", sheet)
			}
			tables[i] = t
			n := int(done.Add(1))
			l.logger.DebugContext(gctx, "Sheet loaded",
				slog.String("sheet", sheet),
				slog.Int("rows", t.Len()))
			if progress != nil {
				progress(n, len(sheets), sheet)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.logger.ErrorContext(ctx, "Workbook load failed", slog.String("error", err.Error()))
		return nil, err
	}

	out := &domain.RawTable{}
	for _, t := range tables {
		out.Append(t)
	}

	l.logger.InfoContext(ctx, "Workbook loaded",
		slog.Int("sheets", len(sheets)),
		slog.Int("rows", out.Len()),
		slog.Int("columns", len(out.Headers)))
	return out, nil
}

// readSheet parses one sheet from its own copy of the archive so sheets can
// be read in parallel without sharing excelize state.
func (l *Loader) readSheet(data []byte, sheet string) (*domain.RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet not found")
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	return BuildRawTable(rows, l.headerRow, sheet, l.monthTag)
}

// BuildRawTable converts sheet rows into a RawTable. headerRow is 1-based;
// rows above it are ignored. Fully blank rows are skipped. When monthTag
// is non-empty a column of that name is appended holding sheetName.
func BuildRawTable(rows [][]string, headerRow int, sheetName, monthTag string) (*domain.RawTable, error) {
	if len(rows) < headerRow {
		return nil, fmt.Errorf("sheet has %d rows, header expected on row %d", len(rows), headerRow)
	}

	headers := NormalizeHeaders(rows[headerRow-1])
	width := len(headers)
	for _, r := range rows[headerRow:] {
		if len(r) > width {
			width = len(r)
		}
	}
	for len(headers) < width {
		headers = append(headers, "Unnamed: "+strconv.Itoa(len(headers)))
	}

	tagged := monthTag != "" && !containsString(headers, monthTag)
	if tagged {
		headers = append(headers, monthTag)
	}

	t := &domain.RawTable{Headers: headers}
	for _, r := range rows[headerRow:] {
		if isBlankRow(r) {
			continue
		}
		cells := make([]domain.Cell, len(headers))
		for i := 0; i < width && i < len(r); i++ {
			cells[i] = ParseCell(r[i])
		}
		if tagged {
			cells[len(cells)-1] = domain.TextCell(sheetName)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

// ParseCell types a raw cell string: numbers become number cells, blank
// strings become empty cells and everything else stays text.
func ParseCell(s string) domain.Cell {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return domain.EmptyCell()
	}
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil && !isSpecialFloat(trimmed) {
		return domain.NumberCell(v)
	}
	return domain.TextCell(s)
}

// isSpecialFloat rejects the words strconv accepts as floats.
func isSpecialFloat(s string) bool {
	l := strings.ToLower(strings.TrimLeft(s, "+-"))
	return strings.HasPrefix(l, "inf") || l == "nan"
}

func isBlankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
