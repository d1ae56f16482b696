package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "FREIGHT"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RunTimeout      time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	InputDir      string `yaml:"input_dir" envconfig:"INPUT_DIR"`
	OutputDir     string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// AnalysisConfig names the workbook columns the pipeline depends on.
// Candidate lists are matched as substrings against trimmed headers.
type AnalysisConfig struct {
	DateColumn          string   `yaml:"date_column" envconfig:"DATE_COLUMN" validate:"required"`
	VehicleColumn       string   `yaml:"vehicle_column" envconfig:"VEHICLE_COLUMN" validate:"required"`
	CategoryColumn      string   `yaml:"category_column" envconfig:"CATEGORY_COLUMN" validate:"required"`
	DestinationColumn   string   `yaml:"destination_column" envconfig:"DESTINATION_COLUMN" validate:"required"`
	FreightColumn       string   `yaml:"freight_column" envconfig:"FREIGHT_COLUMN" validate:"required"`
	ProfitColumn        string   `yaml:"profit_column" envconfig:"PROFIT_COLUMN" validate:"required"`
	DefaultWeightColumn string   `yaml:"default_weight_column" envconfig:"DEFAULT_WEIGHT_COLUMN" validate:"required"`
	WeightCandidates    []string `yaml:"weight_candidates" envconfig:"WEIGHT_CANDIDATES" validate:"required,min=1,dive,required"`
	PriceCandidates     []string `yaml:"price_candidates" envconfig:"PRICE_CANDIDATES" validate:"required,min=1,dive,required"`
	DeductionCandidates []string `yaml:"deduction_candidates" envconfig:"DEDUCTION_CANDIDATES" validate:"required,min=1,dive,required"`
	WeekdayLabels       []string `yaml:"weekday_labels" envconfig:"WEEKDAY_LABELS" validate:"len=7,dive,required"`
	MonthTagColumn      string   `yaml:"month_tag_column" envconfig:"MONTH_TAG_COLUMN" validate:"required"`
	HeaderRow           int      `yaml:"header_row" envconfig:"HEADER_ROW" validate:"min=1"`
	TopVehicles         int      `yaml:"top_vehicles" envconfig:"TOP_VEHICLES" validate:"min=1"`
}

// RequiredBaseColumns lists the identity columns every kept row must fill.
func (a AnalysisConfig) RequiredBaseColumns() []string {
	return []string{a.VehicleColumn, a.CategoryColumn, a.DestinationColumn}
}

// CacheConfig controls the on-disk cache of parsed workbooks
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled" envconfig:"ENABLED"`
	Dir        string `yaml:"dir" envconfig:"DIR"`
	MaxAgeDays int    `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS" validate:"gte=0"`
}

// ReportConfig controls generated artifacts
type ReportConfig struct {
	OpenBrowser bool          `yaml:"open_browser" envconfig:"OPEN_BROWSER"`
	ExportPDF   bool          `yaml:"export_pdf" envconfig:"EXPORT_PDF"`
	ChromePath  string        `yaml:"chrome_path" envconfig:"CHROME_PATH"`
	PDFTimeout  time.Duration `yaml:"pdf_timeout" envconfig:"PDF_TIMEOUT" validate:"gt=0"`
	Charts      bool          `yaml:"charts" envconfig:"CHARTS"`
	ChartFont   string        `yaml:"chart_font" envconfig:"CHART_FONT"`
}

// Load builds the configuration from defaults, an optional YAML file and
// FREIGHT_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file. An empty path skips the
// file layer.
func LoadFile(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// resolvePaths anchors relative directories at the executable directory
func (c *Config) resolvePaths() error {
	if c.Paths.ExecutableDir == "" {
		paths, err := GetPaths()
		if err != nil {
			return fmt.Errorf("failed to get paths: %w", err)
		}
		c.Paths.ExecutableDir = paths.ExecutableDir
	}

	if c.Cache.Dir == "" {
		c.Cache.Dir = filepath.Join(c.Paths.ExecutableDir, DefaultCacheDir)
	}
	c.Paths.InputDir = c.resolve(c.Paths.InputDir)
	c.Paths.OutputDir = c.resolve(c.Paths.OutputDir)
	c.Paths.LogsDir = c.resolve(c.Paths.LogsDir)
	c.Cache.Dir = c.resolve(c.Cache.Dir)
	return nil
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.ExecutableDir, p)
}

// Validate checks struct-tag constraints and fills logging defaults.
func (c *Config) Validate() error {
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(DefaultLogsDir, "app.log")
	}

	if err := validator.New().Struct(c); err != nil {
		return NewFieldErrors(err)
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      DefaultRunTimeout,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   "json",
			Output:   "console",
			FilePath: filepath.Join(DefaultLogsDir, "app.log"),
		},
		Paths: PathsConfig{
			InputDir:  DefaultInputDir,
			OutputDir: DefaultOutputDir,
			LogsDir:   DefaultLogsDir,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Analysis: AnalysisConfig{
			DateColumn:          ColShipDate,
			VehicleColumn:       ColVehicle,
			CategoryColumn:      ColCategory,
			DestinationColumn:   ColDestination,
			FreightColumn:       ColFreight,
			ProfitColumn:        ColProfit,
			DefaultWeightColumn: ColWeightTons,
			WeightCandidates:    []string{"重量"},
			PriceCandidates:     []string{"卖出价", "单价"},
			DeductionCandidates: []string{"扣点"},
			WeekdayLabels:       []string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"},
			MonthTagColumn:      ColMonthTag,
			HeaderRow:           DefaultHeaderRow,
			TopVehicles:         DefaultTopVehicles,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxAgeDays: DefaultCacheMaxAgeDays,
		},
		Report: ReportConfig{
			PDFTimeout: 60 * time.Second,
			Charts:     true,
		},
	}
}
