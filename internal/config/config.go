package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"epicli/internal/dataset"
)

// ConfigFileName is the optional YAML configuration file looked up in the
// base directory.
const ConfigFileName = "config.yaml"

// Config represents the complete application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	Feeds      FeedsConfig      `yaml:"feeds" envconfig:"FEEDS"`
	Views      ViewsConfig      `yaml:"views" envconfig:"VIEWS"`
	Projection ProjectionConfig `yaml:"projection" envconfig:"PROJECTION"`
	Snapshots  SnapshotsConfig  `yaml:"snapshots" envconfig:"SNAPSHOTS"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"25"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/epipulse.log"`
}

// PathsConfig contains the directory layout, all relative to BaseDir
// unless absolute.
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR" default:"."`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"data/reports"`
	FiguresDir string `yaml:"figures_dir" envconfig:"FIGURES_DIR" default:"figs"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// FeedsConfig points at the upstream CSV feeds and bounds how they are
// fetched.
type FeedsConfig struct {
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://onemocneni-aktualne.mzcr.cz/api/v2/covid-19/nakazeni-vyleceni-umrti-testy.csv"`
	HospitalURL       string        `yaml:"hospital_url" envconfig:"HOSPITAL_URL" default:"https://onemocneni-aktualne.mzcr.cz/api/v2/covid-19/hospitalizace.csv"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"60s"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" default:"2"`
}

// ViewsConfig holds the date thresholds the chart views select on.
type ViewsConfig struct {
	// AnalysisStart is the exclusive lower bound of the dates shown in
	// every view (the pandemic's "new age" cutoff).
	AnalysisStart string `yaml:"analysis_start" envconfig:"ANALYSIS_START" default:"2020-09-01"`
	// FitStart is the first date of the exponential fit window used for
	// the trend overlays (the start of the current wave).
	FitStart string `yaml:"fit_start" envconfig:"FIT_START" default:"2021-08-30"`
}

// ProjectionConfig holds the projection defaults exposed to CLI flags and
// API requests.
type ProjectionConfig struct {
	WindowDays int `yaml:"window_days" envconfig:"WINDOW_DAYS" default:"28"`
	Horizon    int `yaml:"horizon" envconfig:"HORIZON" default:"14"`
}

// SnapshotsConfig bounds the on-disk snapshot store.
type SnapshotsConfig struct {
	Retention int `yaml:"retention" envconfig:"RETENTION" default:"14"`
}

// WebSocketConfig contains WebSocket hub configuration.
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load builds the configuration from the YAML file (if present) and the
// environment, validates it, and resolves the path layout.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("EPI", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	configFile := filepath.Join(cfg.Paths.BaseDir, ConfigFileName)
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", configFile, err)
		}
		// re-apply the environment on top of the file values
		cfg = *fileCfg
		if err := envconfig.Process("EPI", &cfg); err != nil {
			return nil, fmt.Errorf("overlay env config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the application cannot run
// with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Feeds.BaseURL == "" || c.Feeds.HospitalURL == "" {
		return fmt.Errorf("feed URLs must not be empty")
	}
	if c.Feeds.RequestsPerSecond <= 0 {
		return fmt.Errorf("feeds requests_per_second must be positive, got %g", c.Feeds.RequestsPerSecond)
	}
	if c.Projection.WindowDays < 2 {
		return fmt.Errorf("projection window_days %d too small, need at least 2", c.Projection.WindowDays)
	}
	if c.Projection.Horizon < 0 {
		return fmt.Errorf("projection horizon %d must be non-negative", c.Projection.Horizon)
	}
	if c.Snapshots.Retention < 1 {
		return fmt.Errorf("snapshot retention %d must be at least 1", c.Snapshots.Retention)
	}
	for _, d := range []struct{ name, value string }{
		{"views analysis_start", c.Views.AnalysisStart},
		{"views fit_start", c.Views.FitStart},
	} {
		if _, err := time.Parse(dataset.DateLayout, d.value); err != nil {
			return fmt.Errorf("%s %q is not a valid ISO date", d.name, d.value)
		}
	}
	return nil
}
