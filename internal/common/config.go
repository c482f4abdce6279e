package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	Data        DataConfig      `toml:"data"`
	Output      OutputConfig    `toml:"output"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Ingest      IngestConfig    `toml:"ingest"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Report      ReportConfig    `toml:"report"`
}

type LoggingConfig struct {
	Level    string   `toml:"level"`     // "debug", "info", "warn", "error"
	Output   []string `toml:"output"`    // "stdout", "file"
	FilePath string   `toml:"file_path"` // Log file path when "file" output is enabled
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// DataConfig locates the local market series store
type DataConfig struct {
	SeriesDir     string `toml:"series_dir"`     // Root of <series_dir>/<MARKET>/<SYMBOL>.csv
	DefaultMarket string `toml:"default_market"` // Market used when a profile does not name one
}

// OutputConfig locates artifact, ledger and impact output
type OutputConfig struct {
	Root string `toml:"root"` // Root docs directory (evolution/, epistemic/, impact/)
}

// PipelineConfig controls window execution
type PipelineConfig struct {
	MaxParallelWindows int `toml:"max_parallel_windows"` // Upper bound when a profile allows parallel windows
	MinObservations    int `toml:"min_observations"`     // Benchmark observations required for detection and factors
	AlignmentDays      int `toml:"alignment_days"`       // Max calendar-day lag between a symbol and the benchmark
}

// IngestConfig configures the upstream EOD downloader
type IngestConfig struct {
	APIKey       string   `toml:"api_key"`
	BaseURL      string   `toml:"base_url"`
	RateLimit    int      `toml:"rate_limit"`    // Requests per second
	LookbackDays int      `toml:"lookback_days"` // History requested per symbol
	Symbols      []string `toml:"symbols"`       // Empty = symbols of the default market
}

// SchedulerConfig lists cron-driven tasks
type SchedulerConfig struct {
	Enabled bool                  `toml:"enabled"`
	Tasks   []ScheduledTaskConfig `toml:"tasks"`
}

// ScheduledTaskConfig binds a registered task type to a cron schedule
type ScheduledTaskConfig struct {
	Name     string            `toml:"name"`
	Type     string            `toml:"type"`     // Registered task type, e.g. "run_profile"
	Schedule string            `toml:"schedule"` // Standard 5-field cron expression
	Params   map[string]string `toml:"params"`
}

// ReportConfig toggles rendered bundle formats
type ReportConfig struct {
	HTML bool `toml:"html"`
	PDF  bool `toml:"pdf"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:    "info",
			Output:   []string{"stdout"},
			FilePath: "./logs/evharness.log",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/evharness",
			},
		},
		Data: DataConfig{
			SeriesDir:     "./data/series",
			DefaultMarket: "US",
		},
		Output: OutputConfig{
			Root: "./docs",
		},
		Pipeline: PipelineConfig{
			MaxParallelWindows: 4,
			MinObservations:    50,
			AlignmentDays:      5,
		},
		Ingest: IngestConfig{
			BaseURL:      "https://eodhd.com/api",
			RateLimit:    10,
			LookbackDays: 730,
		},
		Report: ReportConfig{
			HTML: true,
			PDF:  false,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal merges into existing values
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	for _, task := range config.Scheduler.Tasks {
		if err := ValidateSchedule(task.Schedule); err != nil {
			return nil, fmt.Errorf("scheduler task %s: %w", task.Name, err)
		}
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("EVHARNESS_ENV"); env != "" {
		config.Environment = env
	}

	// Logging configuration
	if level := os.Getenv("EVHARNESS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("EVHARNESS_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Storage configuration
	if badgerPath := os.Getenv("EVHARNESS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Data and output locations
	if seriesDir := os.Getenv("EVHARNESS_SERIES_DIR"); seriesDir != "" {
		config.Data.SeriesDir = seriesDir
	}
	if market := os.Getenv("EVHARNESS_MARKET"); market != "" {
		config.Data.DefaultMarket = market
	}
	if root := os.Getenv("EVHARNESS_OUTPUT_ROOT"); root != "" {
		config.Output.Root = root
	}

	// Pipeline configuration
	if parallel := os.Getenv("EVHARNESS_MAX_PARALLEL_WINDOWS"); parallel != "" {
		if p, err := strconv.Atoi(parallel); err == nil && p > 0 {
			config.Pipeline.MaxParallelWindows = p
		}
	}

	// Ingest configuration
	if apiKey := os.Getenv("EVHARNESS_EODHD_API_KEY"); apiKey != "" {
		config.Ingest.APIKey = apiKey
	}
	if rl := os.Getenv("EVHARNESS_INGEST_RATE_LIMIT"); rl != "" {
		if r, err := strconv.Atoi(rl); err == nil && r > 0 {
			config.Ingest.RateLimit = r
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, logLevel, outputRoot string) {
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	if outputRoot != "" {
		config.Output.Root = outputRoot
	}
}

// ValidateSchedule validates a standard 5-field cron expression
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
