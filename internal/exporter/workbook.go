package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"freightcli/internal/config"
	"freightcli/internal/errors"
	"freightcli/pkg/contracts/domain"

	"github.com/xuri/excelize/v2"
)

const defaultColWidth = 14

// WorkbookWriter exports an analysis as an .xlsx workbook
type WorkbookWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer. Relative file names are
// placed in the output directory of paths.
func NewWorkbookWriter(paths *config.Paths, logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{paths: paths, logger: logger.With(slog.String("component", "workbook_writer"))}
}

// Write saves the cleaned rows and summary tables of a into fileName and
// returns the full path
func (w *WorkbookWriter) Write(a *domain.Analysis, fileName string) (string, error) {
	fullPath := fileName
	if !filepath.IsAbs(fullPath) && w.paths != nil {
		fullPath = w.paths.GetOutputPath(fileName)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", errors.NewStorageError("failed to create output directory", err)
	}

	tables := Tables(a)
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F4E78"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return "", errors.NewStorageError("failed to create header style", err)
	}

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), t.Name); err != nil {
				return "", errors.NewStorageError("failed to name sheet", err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return "", errors.NewStorageError("failed to add sheet "+t.Name, err)
		}
		if err := writeSheet(f, t, headerStyle); err != nil {
			return "", errors.NewStorageError("failed to write sheet "+t.Name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(fullPath); err != nil {
		return "", errors.NewStorageError("failed to save workbook", err)
	}

	w.logger.Info("workbook written",
		slog.String("path", fullPath),
		slog.Int("sheets", len(tables)))
	return fullPath, nil
}

// writeSheet streams one table into its sheet with a frozen header row
func writeSheet(f *excelize.File, t Table, headerStyle int) error {
	sw, err := f.NewStreamWriter(t.Name)
	if err != nil {
		return err
	}

	if len(t.Headers) > 0 {
		if err := sw.SetColWidth(1, len(t.Headers), defaultColWidth); err != nil {
			return err
		}
	}
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return err
	}

	for r, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for i, v := range row {
			if b, ok := v.(bool); ok {
				values[i] = formatBool(b)
				continue
			}
			values[i] = v
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("row %d: %w", r+2, err)
		}
	}

	return sw.Flush()
}
