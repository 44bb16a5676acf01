package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL    = "http://127.0.0.1:8000"
	DefaultOutputDir  = "."
	DefaultLogLevel   = "info"
	defaultConfigPath = "riskctl.yaml"
)

// DefaultPredictEndpoints is the fallback order for /predict: loopback,
// the localhost alias, then a path relative to BaseURL.
var DefaultPredictEndpoints = []string{
	"http://127.0.0.1:8000/predict",
	"http://localhost:8000/predict",
	"/predict",
}

type Config struct {
	BaseURL          string   `yaml:"base_url"`
	PredictEndpoints []string `yaml:"predict_endpoints"`
	// Zero means requests are never cut short by the client.
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	OutputDir      string `yaml:"output_dir"`
	LogLevel       string `yaml:"log_level"`
	Timezone       string `yaml:"display_timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone
}

// Load reads riskctl.yaml (or $RISKCTL_CONFIG), applies RISKCTL_* env
// overrides and fills defaults. A missing file is not an error.
func Load() (Config, error) {
	var cfg Config

	configPath := defaultConfigPath
	if envPath := os.Getenv("RISKCTL_CONFIG"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", configPath, err)
		}
		log.WithField("path", configPath).Debug("loaded config file")
	}

	envOverride(&cfg.BaseURL, "RISKCTL_BASE_URL")
	envOverride(&cfg.OutputDir, "RISKCTL_OUTPUT_DIR")
	envOverride(&cfg.LogLevel, "RISKCTL_LOG_LEVEL")
	envOverride(&cfg.Timezone, "RISKCTL_TIMEZONE")
	if err := envOverrideInt(&cfg.TimeoutSeconds, "RISKCTL_TIMEOUT_SECONDS"); err != nil {
		return cfg, err
	}
	if list := os.Getenv("RISKCTL_PREDICT_ENDPOINTS"); list != "" {
		cfg.PredictEndpoints = splitList(list)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.PredictEndpoints) == 0 {
		cfg.PredictEndpoints = append([]string(nil), DefaultPredictEndpoints...)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the settings and resolves Location.
func (c *Config) Validate() error {
	if len(c.PredictEndpoints) == 0 {
		return fmt.Errorf("predict_endpoints must list at least one endpoint")
	}
	for _, e := range c.PredictEndpoints {
		if strings.TrimSpace(e) == "" {
			return fmt.Errorf("predict_endpoints contains an empty entry")
		}
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("invalid timeout_seconds '%d': must be >= 0", c.TimeoutSeconds)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level '%s': %w", c.LogLevel, err)
	}

	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		c.Location = time.Local
	} else {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid display_timezone '%s': %w", c.Timezone, err)
		}
		c.Location = loc
	}
	return nil
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
