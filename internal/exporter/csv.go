package exporter

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"

	"freightcli/internal/config"
	"freightcli/internal/errors"
	"freightcli/pkg/contracts/domain"
)

// Excel only detects UTF-8 in a CSV when the file starts with a BOM.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter saves tables as BOM-prefixed CSV files. Files are written to a
// temporary name in the target directory and renamed into place, so a
// browser or spreadsheet never sees a half-written summary.
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteTable writes t with its header row.
func (w *CSVWriter) WriteTable(filePath string, t Table) (string, error) {
	return w.write(filePath, func(cw *csv.Writer) error {
		return writeTable(cw, t)
	})
}

// WriteSummaries writes the summary tables of a into one file. Each table
// is introduced by a row holding its name; tables are separated by an empty
// row.
func (w *CSVWriter) WriteSummaries(a *domain.Analysis, filePath string) (string, error) {
	return w.write(filePath, func(cw *csv.Writer) error {
		for i, t := range SummaryTables(a) {
			if i > 0 {
				if err := cw.Write([]string{}); err != nil {
					return err
				}
			}
			if err := cw.Write([]string{t.Name}); err != nil {
				return err
			}
			if err := writeTable(cw, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeTable(cw *csv.Writer, t Table) error {
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	rec := make([]string, 0, len(t.Headers))
	for _, row := range t.Rows {
		rec = rec[:0]
		for _, v := range row {
			rec = append(rec, formatCell(v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func (w *CSVWriter) write(filePath string, body func(*csv.Writer) error) (string, error) {
	path := w.resolvePath(filePath)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.NewStorageError("failed to create output directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return "", errors.NewStorageError("failed to create "+filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	_, err = tmp.Write(utf8BOM)
	if err == nil {
		err = body(cw)
	}
	if err == nil {
		cw.Flush()
		err = cw.Error()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		return "", errors.NewStorageError("failed to write "+filepath.Base(path), err).WithContext("path", path)
	}

	w.logger.Debug("CSV written", slog.String("path", path))
	return path, nil
}

// resolvePath anchors relative paths in the output directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetOutputPath(filePath)
}
