// Package config loads vpcr settings from an optional YAML file and VPCR_*
// environment variables, then checks them against an embedded CUE schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"
)

//go:embed schema.cue
var schemaCUE string

// ErrInvalid is returned when the decoded configuration violates the schema.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix is prepended to every environment override, e.g.
// VPCR_DATABASE_PATH.
const EnvPrefix = "VPCR"

// Config is the full vpcr configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" json:"database" yaml:"database"`
	Retry    RetryConfig    `mapstructure:"retry" json:"retry" yaml:"retry"`
	Import   ImportConfig   `mapstructure:"import" json:"import" yaml:"import"`
	Log      LogConfig      `mapstructure:"log" json:"log" yaml:"log"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path" json:"path" yaml:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout" json:"busy_timeout" yaml:"busy_timeout"`
}

type RetryConfig struct {
	Attempts int           `mapstructure:"attempts" json:"attempts" yaml:"attempts"`
	Backoff  time.Duration `mapstructure:"backoff" json:"backoff" yaml:"backoff"`
}

type ImportConfig struct {
	BatchSize  int           `mapstructure:"batch_size" json:"batch_size" yaml:"batch_size"`
	BatchPause time.Duration `mapstructure:"batch_pause" json:"batch_pause" yaml:"batch_pause"`
	Sheet      string        `mapstructure:"sheet" json:"sheet" yaml:"sheet"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

var defaults = map[string]any{
	"database.path":         "vpcr.db",
	"database.busy_timeout": "30s",
	"retry.attempts":        3,
	"retry.backoff":         "100ms",
	"import.batch_size":     10,
	"import.batch_pause":    "50ms",
	"import.sheet":          "",
	"log.level":             "info",
	"log.format":            "text",
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "vpcr.db", BusyTimeout: 30 * time.Second},
		Retry:    RetryConfig{Attempts: 3, Backoff: 100 * time.Millisecond},
		Import:   ImportConfig{BatchSize: 10, BatchPause: 50 * time.Millisecond},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (YAML) over the defaults, applies VPCR_* environment
// variables, and validates the result. An empty path looks for vpcr.yaml
// in the working directory. A missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vpcr")
		v.AddConfigPath(".")
	}
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the embedded CUE schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	val := ctx.Encode(c)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
