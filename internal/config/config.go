package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures everything the control panel needs to reach its backends.
type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Capture    CaptureConfig    `yaml:"capture"`
	Mitigation MitigationConfig `yaml:"mitigation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Report     ReportConfig     `yaml:"report"`
}

// BackendConfig locates the capture/classification and mitigation services.
type BackendConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	CapturePath string        `yaml:"capturePath"`
	DropPath    string        `yaml:"dropPath"`
	Timeout     time.Duration `yaml:"timeout"`
}

// CaptureConfig controls a capture cycle.
type CaptureConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	Operator string        `yaml:"operator"`
}

// MitigationConfig controls drop-packets requests.
type MitigationConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file"`
}

// MetricsConfig enables the Prometheus endpoint when Address is set.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// ReportConfig controls where HTML session reports are written.
type ReportConfig struct {
	Dir string `yaml:"dir"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FWPANEL_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:     "http://127.0.0.1:8000",
			CapturePath: "/start-capture-and-predict/",
			DropPath:    "/drop-packets/",
			Timeout:     2 * time.Minute,
		},
		Capture:    CaptureConfig{Timeout: 60 * time.Second},
		Mitigation: MitigationConfig{Timeout: 10 * time.Second},
		Logging:    LoggingConfig{Level: "info", File: "fwpanel.log"},
		Report:     ReportConfig{Dir: "."},
	}
}

// Validate rejects settings the controller cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend.baseURL must be set")
	}
	if c.Capture.Timeout <= 0 {
		return fmt.Errorf("capture.timeout must be positive, got %s", c.Capture.Timeout)
	}
	if c.Mitigation.Timeout <= 0 {
		return fmt.Errorf("mitigation.timeout must be positive, got %s", c.Mitigation.Timeout)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FWPANEL_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("FWPANEL_OPERATOR"); v != "" {
		cfg.Capture.Operator = v
	}
	if v := os.Getenv("FWPANEL_CAPTURE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Capture.Timeout = d
		}
	}
	if v := os.Getenv("FWPANEL_MITIGATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Mitigation.Timeout = d
		}
	}
	if v := os.Getenv("FWPANEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FWPANEL_LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}
	if v := os.Getenv("FWPANEL_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("FWPANEL_METRICS_ADDRESS"); v != "" {
		cfg.Metrics.Address = v
	}
	if v := os.Getenv("FWPANEL_REPORT_DIR"); v != "" {
		cfg.Report.Dir = v
	}
}
