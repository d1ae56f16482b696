package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	cfg.Paths.ExecutableDir = t.TempDir()
	require.NoError(t, cfg.resolvePaths())
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "发货日期", cfg.Analysis.DateColumn)
	assert.Equal(t, []string{"车牌号", "类别", "发往地"}, cfg.Analysis.RequiredBaseColumns())
	assert.Len(t, cfg.Analysis.WeekdayLabels, 7)
	assert.Equal(t, 2, cfg.Analysis.HeaderRow)
	assert.Equal(t, filepath.Join(cfg.Paths.ExecutableDir, DefaultCacheDir), cfg.Cache.Dir)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "Port"},
		{"weekday labels short", func(c *Config) { c.Analysis.WeekdayLabels = []string{"一"} }, "WeekdayLabels"},
		{"no price candidates", func(c *Config) { c.Analysis.PriceCandidates = nil }, "PriceCandidates"},
		{"header row zero", func(c *Config) { c.Analysis.HeaderRow = 0 }, "HeaderRow"},
		{"bad log output", func(c *Config) { c.Logging.Output = "syslog" }, "Output"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "Format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var fe FieldErrors
			require.ErrorAs(t, err, &fe)
			assert.Contains(t, fe.Error(), tt.field)
		})
	}
}

func TestLoadFile_Layering(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	yamlData := `
server:
  port: 9090
analysis:
  date_column: 日期
  price_candidates: [单价]
cache:
  max_age_days: 3
`
	require.NoError(t, os.WriteFile(file, []byte(yamlData), 0644))

	t.Setenv("FREIGHT_PATHS_EXECUTABLE_DIR", dir)
	t.Setenv("FREIGHT_SERVER_PORT", "7070")
	t.Setenv("FREIGHT_ANALYSIS_DEDUCTION_CANDIDATES", "扣点,扣率")

	cfg, err := LoadFile(file)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "env wins over file")
	assert.Equal(t, "日期", cfg.Analysis.DateColumn, "file wins over default")
	assert.Equal(t, []string{"单价"}, cfg.Analysis.PriceCandidates)
	assert.Equal(t, []string{"扣点", "扣率"}, cfg.Analysis.DeductionCandidates)
	assert.Equal(t, 3, cfg.Cache.MaxAgeDays)
	assert.Equal(t, "运费", cfg.Analysis.FreightColumn, "untouched default survives")
	assert.Equal(t, filepath.Join(dir, DefaultOutputDir), cfg.Paths.OutputDir)
	assert.Equal(t, filepath.Join(dir, "data", "input"), cfg.Paths.InputDir)
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server: [unterminated"), 0644))

	_, err := LoadFile(file)
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	root := t.TempDir()
	p := PathsFrom(root)

	require.NoError(t, p.EnsureDirectories())
	assert.DirExists(t, p.OutputDir)
	assert.DirExists(t, p.CacheDir)
	assert.DirExists(t, p.InputDir)
	assert.Equal(t, filepath.Join(root, "output", "a.html"), p.GetOutputPath("a.html"))
	assert.True(t, FileExists(p.LogsDir))
	assert.False(t, FileExists(filepath.Join(root, "missing")))
}

func TestArtifactName(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	tests := []struct {
		prefix, kind, ext, want string
	}{
		{"1月", ArtifactDashboard, "html", "1月_仪表板_20240305_140709.html"},
		{MultiMonthPrefix, ArtifactWorkbook, "xlsx", "多月对比_清洗后数据_20240305_140709.xlsx"},
		{"a/b", ArtifactReport, "html", "a_b_深度报告_20240305_140709.html"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ArtifactName(tt.prefix, tt.kind, tt.ext, at))
		})
	}
}

func TestPathsFor_AnchorsRelativeOverrides(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Paths.ExecutableDir = root
	cfg.Paths.InputDir = "inbox"
	cfg.Cache.Dir = filepath.Join(root, "elsewhere")

	p := PathsFor(cfg)
	assert.Equal(t, filepath.Join(root, "inbox"), p.InputDir)
	assert.Equal(t, filepath.Join(root, DefaultOutputDir), p.OutputDir)
	assert.Equal(t, filepath.Join(root, "elsewhere"), p.CacheDir)
}
