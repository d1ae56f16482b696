package validation

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"freightcli/internal/errors"
)

// Office Open XML workbooks are zip archives.
var zipMagic = []byte("PK\x03\x04")

var workbookExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
}

// FileValidator runs the pre-flight checks of an analysis: the workbook must
// be an openable OOXML file and the output directory must take writes.
type FileValidator struct {
	logger *slog.Logger
}

func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger.With(slog.String("component", "file_validator"))}
}

// ValidateWorkbook rejects, in order: names that are not workbooks (legacy
// .xls included), Office lock files, missing paths, directories, empty files
// and files that do not start with a zip header.
func (v *FileValidator) ValidateWorkbook(path string) error {
	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case !workbookExtensions[ext]:
		return v.reject(path, fmt.Sprintf("file %s is not an Excel workbook (extension: %s)", path, ext))
	case strings.HasPrefix(name, "~$"):
		return v.reject(path, fmt.Sprintf("file %s is a temporary Excel file", path))
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		v.logger.Warn("Workbook does not exist", slog.String("file", path))
		return errors.NewNotFoundError("file " + path)
	case err != nil:
		return errors.NewStorageError("failed to stat file "+path, err)
	case info.IsDir():
		return v.reject(path, path+" is a directory, not a file")
	case info.Size() == 0:
		return v.reject(path, fmt.Sprintf("file %s is empty", path))
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.NewStorageError("file "+path+" is not readable", err)
	}
	defer f.Close()

	head := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, zipMagic) {
		return v.reject(path, fmt.Sprintf("file %s is not a valid xlsx archive", path))
	}

	v.logger.Debug("Workbook validated", slog.String("file", path), slog.Int64("size", info.Size()))
	return nil
}

func (v *FileValidator) reject(path, msg string) error {
	v.logger.Warn("Workbook rejected", slog.String("file", path), slog.String("reason", msg))
	return errors.NewAppValidationError(msg).WithContext("file", path)
}

// ValidateOutputDirectory creates dir if needed and proves it is writable
// with a probe file that is removed again.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory", slog.String("directory", dir), slog.String("error", err.Error()))
		return errors.NewStorageError("failed to create output directory "+dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable", slog.String("directory", dir), slog.String("error", err.Error()))
		return errors.NewStorageError("output directory "+dir+" is not writable", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}
