package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/emiliopalmerini/socialab/internal/util"
)

// EnvPrefix is prepended to every environment variable, e.g. SOCIALAB_DATABASE_URL.
const EnvPrefix = "SOCIALAB"

// ConfigFileEnv names the optional YAML config file.
const ConfigFileEnv = "SOCIALAB_CONFIG"

// Database holds libsql connection configuration. URL selects a remote
// Turso database; otherwise Path is opened as a local file.
type Database struct {
	URL       string `envconfig:"DATABASE_URL" yaml:"url"`
	AuthToken string `envconfig:"AUTH_TOKEN" yaml:"auth_token"`
	Path      string `envconfig:"DATABASE_PATH" yaml:"path"`
}

// IsRemote reports whether the database is a remote libsql server.
func (d Database) IsRemote() bool {
	return d.URL != ""
}

type Log struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Format string `envconfig:"LOG_FORMAT" default:"console" yaml:"format"`
}

type OTel struct {
	Enabled  bool   `envconfig:"OTEL_ENABLED" yaml:"enabled"`
	Endpoint string `envconfig:"OTEL_ENDPOINT" yaml:"endpoint"`
	Insecure bool   `envconfig:"OTEL_INSECURE" yaml:"insecure"`
	// Exporter is "otlp" or "stdout".
	Exporter string `envconfig:"OTEL_EXPORTER" default:"otlp" yaml:"exporter"`
}

type Stats struct {
	// ConfidenceMode is "table" (default) or "exact".
	ConfidenceMode string `envconfig:"CONFIDENCE_MODE" default:"table" yaml:"confidence_mode"`
}

// Config is the full application configuration.
type Config struct {
	Database Database `yaml:"database"`
	Log      Log      `yaml:"log"`
	OTel     OTel     `yaml:"otel"`
	Stats    Stats    `yaml:"stats"`
}

// Load reads the optional YAML file named by SOCIALAB_CONFIG, then applies
// environment variables on top of it.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := processEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// processEnv overlays environment values. Defaults only fill fields that
// are still empty so values from the file survive.
func processEnv(cfg *Config) error {
	fromFile := *cfg

	if err := envconfig.Process(EnvPrefix, &cfg.Database); err != nil {
		return err
	}
	if err := envconfig.Process(EnvPrefix, &cfg.Log); err != nil {
		return err
	}
	if err := envconfig.Process(EnvPrefix, &cfg.OTel); err != nil {
		return err
	}
	if err := envconfig.Process(EnvPrefix, &cfg.Stats); err != nil {
		return err
	}

	keepFileValue(&cfg.Database.URL, fromFile.Database.URL, "DATABASE_URL")
	keepFileValue(&cfg.Database.AuthToken, fromFile.Database.AuthToken, "AUTH_TOKEN")
	keepFileValue(&cfg.Database.Path, fromFile.Database.Path, "DATABASE_PATH")
	keepFileValue(&cfg.Log.Level, fromFile.Log.Level, "LOG_LEVEL")
	keepFileValue(&cfg.Log.Format, fromFile.Log.Format, "LOG_FORMAT")
	keepFileValue(&cfg.OTel.Endpoint, fromFile.OTel.Endpoint, "OTEL_ENDPOINT")
	keepFileValue(&cfg.OTel.Exporter, fromFile.OTel.Exporter, "OTEL_EXPORTER")
	keepFileValue(&cfg.Stats.ConfidenceMode, fromFile.Stats.ConfidenceMode, "CONFIDENCE_MODE")
	if _, set := os.LookupEnv(EnvPrefix + "_OTEL_ENABLED"); !set {
		cfg.OTel.Enabled = fromFile.OTel.Enabled
	}
	if _, set := os.LookupEnv(EnvPrefix + "_OTEL_INSECURE"); !set {
		cfg.OTel.Insecure = fromFile.OTel.Insecure
	}

	return nil
}

// keepFileValue restores a file value that envconfig replaced with a
// default because the variable was not set.
func keepFileValue(dst *string, fileValue, key string) {
	if fileValue == "" {
		return
	}
	if _, set := os.LookupEnv(EnvPrefix + "_" + key); !set {
		*dst = fileValue
	}
}

func (c *Config) applyDefaults() error {
	if c.Database.IsRemote() {
		if c.Database.AuthToken == "" {
			return errors.New(EnvPrefix + "_AUTH_TOKEN is required with " + EnvPrefix + "_DATABASE_URL")
		}
		return nil
	}

	if c.Database.Path == "" {
		dataDir, err := util.GetXDGDataDir()
		if err != nil {
			return err
		}
		c.Database.Path = filepath.Join(dataDir, "socialab.db")
	}
	return nil
}
