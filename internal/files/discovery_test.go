package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestIsWorkbook(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"运输明细.xlsx", true},
		{"macro.XLSM", true},
		{"legacy.xls", false},
		{"~$运输明细.xlsx", false},
		{".hidden.xlsx", false},
		{"summary.csv", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWorkbook(tt.name))
		})
	}
}

func TestFindWorkbooks(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	touch(t, filepath.Join(dir, "三月.xlsx"), base)
	touch(t, filepath.Join(dir, "四月.xlsx"), base.Add(time.Hour))
	touch(t, filepath.Join(dir, "~$四月.xlsx"), base.Add(2*time.Hour))
	touch(t, filepath.Join(dir, "notes.txt"), base.Add(3*time.Hour))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old.xlsx"), 0o755))

	files, err := NewDiscovery(dir).FindWorkbooks()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "四月.xlsx", files[0].Name)
	assert.Equal(t, "三月.xlsx", files[1].Name)
	assert.Equal(t, filepath.Join(dir, "三月.xlsx"), files[1].Path)
	assert.Equal(t, int64(1), files[0].Size)
}

func TestFindWorkbooks_MissingRoot(t *testing.T) {
	files, err := NewDiscovery(filepath.Join(t.TempDir(), "absent")).FindWorkbooks()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	d := NewDiscovery(dir)

	_, ok, err := d.Latest()
	require.NoError(t, err)
	assert.False(t, ok)

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	touch(t, filepath.Join(dir, "a.xlsx"), base.Add(time.Hour))
	touch(t, filepath.Join(dir, "b.xlsx"), base)

	f, ok, err := d.Latest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a.xlsx", f.Name)
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere.xlsx")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"relative name", "运输明细.xlsx", filepath.Join(root, "运输明细.xlsx"), false},
		{"nested", "2024/五月.xlsx", filepath.Join(root, "2024", "五月.xlsx"), false},
		{"absolute", abs, abs, false},
		{"parent escape", "../secret.xlsx", "", true},
		{"hidden escape", "a/../../secret.xlsx", "", true},
	}

	d := NewDiscovery(root)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Resolve(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
