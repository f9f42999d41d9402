package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"suffixrank/internal/support"
)

type Config struct {
	Abuse    AbuseSettings    `json:"abuse" yaml:"abuse"`
	Suffix   SuffixSettings   `json:"suffix" yaml:"suffix"`
	Fetch    FetchSettings    `json:"fetch" yaml:"fetch"`
	Database DatabaseSettings `json:"database" yaml:"database"`
	Redis    RedisSettings    `json:"redis" yaml:"redis"`
}

// AbuseSettings configures the SURBL abuse ranking pipeline.
type AbuseSettings struct {
	SourceURL  string `json:"source_url" yaml:"source_url"`
	OutputPath string `json:"output_path" yaml:"output_path"`
}

// SuffixSettings configures the public suffix list pipeline.
type SuffixSettings struct {
	SourceURL string `json:"source_url" yaml:"source_url"`
}

type FetchSettings struct {
	Timeout   Timer  `json:"timeout" yaml:"timeout"`
	MaxBytes  int64  `json:"max_bytes" yaml:"max_bytes"`
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

type DatabaseSettings struct {
	Driver    string `json:"driver" yaml:"driver"` // sqlite or postgres
	Path      string `json:"path" yaml:"path"`     // sqlite file
	BatchSize int    `json:"batch_size" yaml:"batch_size"`
}

type RedisSettings struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	URL     string `json:"url" yaml:"url"`
	Key     string `json:"key" yaml:"key"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

//go:embed default_settings.json
var defaultConfig []byte

// Default returns the embedded default configuration.
func Default() (Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfig, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode defaults: %w", err)
	}
	return cfg, nil
}

// Load builds the configuration from the embedded defaults, an optional
// settings file (JSON or YAML, chosen by extension) and environment overrides.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}

	if path == "" {
		path = support.GetEnv("SUFFIXRANK_CONFIG", "")
	}

	if path != "" {
		if err := readSettingsFile(path, &cfg); err != nil {
			return Config{}, err
		}
		log.Debug("Settings file loaded successfully", "path", path)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func readSettingsFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read settings file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("config: decode yaml %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("config: decode json %s: %w", path, err)
		}
	}

	return nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Abuse.SourceURL = support.GetEnv("ABUSE_SOURCE_URL", cfg.Abuse.SourceURL)
	cfg.Abuse.OutputPath = support.GetEnv("ABUSE_OUTPUT_PATH", cfg.Abuse.OutputPath)
	cfg.Suffix.SourceURL = support.GetEnv("PSL_SOURCE_URL", cfg.Suffix.SourceURL)

	timeout := support.GetEnvDuration("FETCH_TIMEOUT", CalculateTimeout(cfg.Fetch.Timeout))
	cfg.Fetch.Timeout = TimerFromDuration(timeout)
	cfg.Fetch.MaxBytes = int64(support.GetEnvInt("FETCH_MAX_BYTES", int(cfg.Fetch.MaxBytes)))

	cfg.Database.Driver = strings.ToLower(support.GetEnv("DB_DRIVER", cfg.Database.Driver))
	cfg.Database.Path = support.GetEnv("DB_PATH", cfg.Database.Path)
	cfg.Database.BatchSize = support.GetEnvInt("DB_BATCH_SIZE", cfg.Database.BatchSize)

	cfg.Redis.Enabled = support.GetEnvBool("REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.URL = support.GetEnv("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Key = support.GetEnv("REDIS_KEY", cfg.Redis.Key)
}

func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Abuse.SourceURL) == "" {
		errs = append(errs, errors.New("abuse.source_url must not be empty"))
	}
	if strings.TrimSpace(c.Abuse.OutputPath) == "" {
		errs = append(errs, errors.New("abuse.output_path must not be empty"))
	}
	if strings.TrimSpace(c.Suffix.SourceURL) == "" {
		errs = append(errs, errors.New("suffix.source_url must not be empty"))
	}
	if c.Fetch.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("fetch.max_bytes must be positive, got %d", c.Fetch.MaxBytes))
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			errs = append(errs, errors.New("database.path must not be empty for sqlite"))
		}
	case DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unsupported database.driver %q", c.Database.Driver))
	}
	if c.Database.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("database.batch_size must be positive, got %d", c.Database.BatchSize))
	}

	if c.Redis.Enabled {
		if strings.TrimSpace(c.Redis.URL) == "" {
			errs = append(errs, errors.New("redis.url must not be empty when redis is enabled"))
		}
		if strings.TrimSpace(c.Redis.Key) == "" {
			errs = append(errs, errors.New("redis.key must not be empty when redis is enabled"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// FetchTimeout is the per-request timeout for source downloads.
func (c Config) FetchTimeout() time.Duration {
	return CalculateTimeout(c.Fetch.Timeout)
}
