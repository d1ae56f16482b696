package validation

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightcli/internal/errors"
)

var zipHeader = []byte("PK\x03\x04rest-of-archive")

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(nil)

	dir := filepath.Join(t.TempDir(), "nested", "out")
	require.NoError(t, v.ValidateOutputDirectory(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "write probe must be removed")

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	assert.Error(t, v.ValidateOutputDirectory(file))
}

func TestFileValidator_ValidateWorkbook(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T) string
		wantType errors.ErrorType
	}{
		{
			name: "valid xlsx",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "发货明细.xlsx")
				require.NoError(t, os.WriteFile(path, zipHeader, 0644))
				return path
			},
		},
		{
			name: "uppercase extension",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "DATA.XLSM")
				require.NoError(t, os.WriteFile(path, zipHeader, 0644))
				return path
			},
		},
		{
			name: "missing file",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.xlsx")
			},
			wantType: errors.ErrTypeNotFound,
		},
		{
			name: "directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			wantType: errors.ErrTypeValidation,
		},
		{
			name: "empty file",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "空.xlsx")
				require.NoError(t, os.WriteFile(path, nil, 0644))
				return path
			},
			wantType: errors.ErrTypeValidation,
		},
		{
			name: "renamed csv",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "export.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("date,plate\n"), 0644))
				return path
			},
			wantType: errors.ErrTypeValidation,
		},
		{
			name: "directory named like a workbook",
			setup: func(t *testing.T) string {
				dir := filepath.Join(t.TempDir(), "dir.xlsx")
				require.NoError(t, os.Mkdir(dir, 0755))
				return dir
			},
			wantType: errors.ErrTypeValidation,
		},
		{
			name: "legacy xls",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "old.xls")
				require.NoError(t, os.WriteFile(path, []byte("test"), 0644))
				return path
			},
			wantType: errors.ErrTypeValidation,
		},
		{
			name: "office lock file",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "~$发货明细.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("test"), 0644))
				return path
			},
			wantType: errors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewFileValidator(nil).ValidateWorkbook(tt.setup(t))
			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			var appErr *errors.AppError
			require.True(t, stderrors.As(err, &appErr))
			assert.Equal(t, tt.wantType, appErr.Type)
		})
	}
}
