// Package config loads datalab CLI configuration.
//
// Values are layered, later sources overriding earlier ones: built-in
// defaults, a datalab.yaml file, DATALAB_* environment variables and finally
// command-line flags that were set explicitly.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/nao1215/datalab"
	"github.com/nao1215/datalab/engine"
)

// EnvPrefix prefixes every environment variable read as configuration.
const EnvPrefix = "DATALAB_"

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "datalab.yaml"

// Output formats for query results.
const (
	OutputTable = "table"
	OutputCSV   = "csv"
	OutputJSON  = "json"
)

// Config holds all CLI configuration options.
type Config struct {
	Engine            string `koanf:"engine"`
	Database          string `koanf:"database"`
	Encoding          string `koanf:"encoding"`
	Samples           bool   `koanf:"samples"`
	LogLevel          string `koanf:"log_level"`
	Output            string `koanf:"output"`
	Addr              string `koanf:"addr"`
	AssistCommand     string `koanf:"assist_command"`
	ExportFormat      string `koanf:"export_format"`
	ExportCompression string `koanf:"export_compression"`

	// File is the configuration file that was read, if any.
	File string `koanf:"-"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"engine":             "sqlite",
		"database":           "",
		"encoding":           string(datalab.EncodingUTF8),
		"samples":            false,
		"log_level":          "warn",
		"output":             "",
		"addr":               "127.0.0.1:8080",
		"assist_command":     "",
		"export_format":      "csv",
		"export_compression": "none",
	}
}

// Load reads configuration from defaults, cfgFile (or DefaultFile when it
// exists and cfgFile is empty), the environment and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := findConfigFile(cfgFile)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// DATALAB_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// findConfigFile returns explicit, or DefaultFile when it exists.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	return ""
}

// Validate checks that every value names something datalab supports.
func (c *Config) Validate() error {
	if c.Engine != "" && !slices.Contains(engine.Names(), strings.ToLower(c.Engine)) {
		return fmt.Errorf("invalid engine %q: must be one of %s", c.Engine, strings.Join(engine.Names(), ", "))
	}
	if _, err := datalab.ParseEncoding(c.Encoding); err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Output {
	case "", OutputTable, OutputCSV, OutputJSON:
	default:
		return fmt.Errorf("invalid output %q: must be one of table, csv, json", c.Output)
	}
	if _, err := c.DumpOptions(); err != nil {
		return err
	}
	return nil
}

// DumpOptions returns the export settings as datalab.DumpOptions.
func (c *Config) DumpOptions() (datalab.DumpOptions, error) {
	format, err := datalab.ParseOutputFormat(c.ExportFormat)
	if err != nil {
		return datalab.DumpOptions{}, fmt.Errorf("invalid export format: %w", err)
	}
	compression, err := datalab.ParseCompressionType(c.ExportCompression)
	if err != nil {
		return datalab.DumpOptions{}, fmt.Errorf("invalid export compression: %w", err)
	}
	return datalab.NewDumpOptions().WithFormat(format).WithCompression(compression), nil
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
}

// NewLogger returns a text logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

type configKey struct{}

type loggerKey struct{}

// WithConfig returns a context carrying cfg.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the configuration stored by WithConfig, or the
// defaults when there is none.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey{}).(*Config); ok {
		return cfg
	}
	return Default()
}

// Default returns the configuration built from Defaults alone.
func Default() *Config {
	k := koanf.New(".")
	var cfg Config
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err == nil {
		_ = k.Unmarshal("", &cfg)
	}
	return &cfg
}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
