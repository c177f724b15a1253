// Package config loads definecore settings from definecore.yaml and
// DEFINECORE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. DEFINECORE_STORAGE_DRIVER.
const EnvPrefix = "DEFINECORE"

// Config represents the definecore configuration.
type Config struct {
	Model       string      `mapstructure:"model"`
	Storage     Storage     `mapstructure:"storage"`
	Blob        Blob        `mapstructure:"blob"`
	Terminology Terminology `mapstructure:"terminology"`
	Naming      string      `mapstructure:"naming"`
	Log         Log         `mapstructure:"log"`
}

// Storage selects the persistent store backing the metadata graph.
type Storage struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	BadgerPath  string `mapstructure:"badger_path"`
}

// Blob selects the blob store holding terminology packages.
type Blob struct {
	Driver string `mapstructure:"driver"`
	Root   string `mapstructure:"root"`
	S3     S3     `mapstructure:"s3"`
}

// S3 holds bucket settings used when the blob driver is s3.
type S3 struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// Terminology locates standard packages inside the blob store.
type Terminology struct {
	Prefix string `mapstructure:"prefix"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

var defaults = map[string]any{
	"model":                "SDTM",
	"storage.driver":       "sqlite",
	"storage.sqlite_path":  "definecore.db",
	"storage.postgres_dsn": "",
	"storage.badger_path":  "definecore.badger",
	"blob.driver":          "fs",
	"blob.root":            "blobdata",
	"blob.s3.bucket":       "",
	"blob.s3.region":       "us-east-1",
	"blob.s3.endpoint":     "",
	"blob.s3.path_style":   false,
	"terminology.prefix":   "terminology/",
	"naming":               "warn",
	"log.level":            "info",
	"log.development":      false,
}

// Load reads the configuration. An empty path searches the working directory
// for definecore.yaml; a missing file falls back to defaults. Environment
// variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("definecore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if !oneOf(c.Model, "SDTM", "SEND", "ADaM") {
		return fmt.Errorf("model must be one of SDTM, SEND, ADaM, got %q", c.Model)
	}
	if !oneOf(c.Storage.Driver, "memory", "sqlite", "postgres", "badger") {
		return fmt.Errorf("storage.driver must be one of memory, sqlite, postgres, badger, got %q", c.Storage.Driver)
	}
	if !oneOf(c.Blob.Driver, "fs", "memory", "s3") {
		return fmt.Errorf("blob.driver must be one of fs, memory, s3, got %q", c.Blob.Driver)
	}
	if c.Blob.Driver == "s3" && c.Blob.S3.Bucket == "" {
		return errors.New("blob.s3.bucket is required when blob.driver is s3")
	}
	if !oneOf(c.Naming, "off", "warn", "block") {
		return fmt.Errorf("naming must be one of off, warn, block, got %q", c.Naming)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// NewLogger builds the zap logger described by l.
func (l Log) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
