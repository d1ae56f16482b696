package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Paths contains the directories the application writes to, all anchored
// at the executable location.
type Paths struct {
	ExecutableDir string
	DataDir       string
	InputDir      string
	OutputDir     string
	CacheDir      string
	LogsDir       string
}

// GetPaths returns the application paths relative to the executable location
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return PathsFrom(filepath.Dir(exe)), nil
}

// PathsFrom lays out the standard directory tree under root:
//
//	root/
//	  ├── data/input/   (workbooks offered by the web picker)
//	  ├── data/cache/   (parsed workbook cache)
//	  ├── output/       (dashboards, reports, workbooks)
//	  └── logs/
func PathsFrom(root string) *Paths {
	dataDir := filepath.Join(root, "data")
	return &Paths{
		ExecutableDir: root,
		DataDir:       dataDir,
		InputDir:      filepath.Join(dataDir, "input"),
		OutputDir:     filepath.Join(root, DefaultOutputDir),
		CacheDir:      filepath.Join(dataDir, "cache"),
		LogsDir:       filepath.Join(root, DefaultLogsDir),
	}
}

// PathsFor derives Paths from a loaded configuration, honoring overrides.
// Relative overrides are anchored at the executable directory.
func PathsFor(cfg *Config) *Paths {
	p := PathsFrom(cfg.Paths.ExecutableDir)
	if cfg.Paths.InputDir != "" {
		p.InputDir = cfg.resolve(cfg.Paths.InputDir)
	}
	if cfg.Paths.OutputDir != "" {
		p.OutputDir = cfg.resolve(cfg.Paths.OutputDir)
	}
	if cfg.Paths.LogsDir != "" {
		p.LogsDir = cfg.resolve(cfg.Paths.LogsDir)
	}
	if cfg.Cache.Dir != "" {
		p.CacheDir = cfg.resolve(cfg.Cache.Dir)
	}
	return p
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.InputDir,
		p.OutputDir,
		p.CacheDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetOutputPath returns the path for a generated artifact
func (p *Paths) GetOutputPath(filename string) string {
	return filepath.Join(p.OutputDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetCachePath returns the path for a cache file
func (p *Paths) GetCachePath(filename string) string {
	return filepath.Join(p.CacheDir, filename)
}

// Artifact kinds produced by a run
const (
	ArtifactDashboard = "仪表板"
	ArtifactReport    = "深度报告"
	ArtifactWorkbook  = "清洗后数据"
	ArtifactSummary   = "汇总表"
)

// ArtifactName builds "<prefix>_<kind>_<timestamp>.<ext>". Path separators
// in the prefix are replaced so sheet names cannot escape the output dir.
func ArtifactName(prefix, kind, ext string, at time.Time) string {
	clean := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(prefix)
	return fmt.Sprintf("%s_%s_%s.%s", clean, kind, at.Format("20060102_150405"), ext)
}

// LogPathResolution logs path resolution information for debugging
func (p *Paths) LogPathResolution() {
	slog.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("input", p.InputDir),
			slog.String("output", p.OutputDir),
			slog.String("cache", p.CacheDir),
			slog.String("logs", p.LogsDir),
		))
}
