// Package config provides configuration loading and validation for proscan.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/proscan/pkg/grading"
	"github.com/Sumatoshi-tech/proscan/pkg/quality"
)

// Sentinel validation errors.
var (
	ErrInvalidWindow    = errors.New("dedup window must not be negative")
	ErrInvalidFPS       = errors.New("pipeline fps out of range")
	ErrInvalidWorkers   = errors.New("pipeline workers must not be negative")
	ErrInvalidBuffer    = errors.New("pipeline buffer must not be negative")
	ErrInvalidPassGrade = errors.New("invalid pass grade")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidSampling  = errors.New("trace sample ratio must be within [0, 1]")
)

// Default configuration values.
const (
	DefaultWindow    = 3 * time.Second
	DefaultFPS       = 15
	MinFPS           = 5
	MaxFPS           = 60
	DefaultPassGrade = "C"
	DefaultLogLevel  = "info"

	configName = ".proscan"
	envPrefix  = "PROSCAN"
)

// Config holds all configuration for proscan.
type Config struct {
	Dedup         DedupConfig         `mapstructure:"dedup"`
	Grading       GradingConfig       `mapstructure:"grading"`
	Quality       quality.Thresholds  `mapstructure:"quality"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// DedupConfig holds duplicate suppression settings.
type DedupConfig struct {
	// Window is how long a scan identity stays suppressed. Zero disables suppression.
	Window time.Duration `mapstructure:"window"`
}

// GradingConfig holds grade band and pass threshold settings.
type GradingConfig struct {
	Bands     grading.Bands `mapstructure:"bands"`
	PassGrade string        `mapstructure:"pass_grade"`
}

// PipelineConfig holds frame processing settings.
type PipelineConfig struct {
	// FPS paces frame sources that have no capture clock.
	FPS int `mapstructure:"fps"`
	// Workers is the number of analysis goroutines. Zero means GOMAXPROCS.
	Workers int `mapstructure:"workers"`
	// Buffer is the channel capacity between stages. Zero means twice the workers.
	Buffer int `mapstructure:"buffer"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ObservabilityConfig holds telemetry export settings.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	TraceVerbose bool    `mapstructure:"trace_verbose"`
}

// PassGrade returns the parsed pass threshold.
func (c *Config) PassGrade() grading.Grade {
	g, err := grading.ParseGrade(c.Grading.PassGrade)
	if err != nil {
		return grading.C
	}

	return g
}

// LogLevel returns the parsed slog level.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.Logging.Level))
	if err != nil {
		return slog.LevelInfo
	}

	return level
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches for .proscan.yaml in the working and home directories.
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWith(viper.New(), configPath)
}

// LoadConfigWith is LoadConfig on a caller-owned viper instance, so that
// command-line flags bound to it take precedence over file and environment.
func LoadConfigWith(viperCfg *viper.Viper, configPath string) (*Config, error) {
	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key is registered so
// that AutomaticEnv can override it.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("dedup.window", DefaultWindow)

	bands := grading.DefaultBands()
	viperCfg.SetDefault("grading.bands.a", bands.A)
	viperCfg.SetDefault("grading.bands.b", bands.B)
	viperCfg.SetDefault("grading.bands.c", bands.C)
	viperCfg.SetDefault("grading.bands.d", bands.D)
	viperCfg.SetDefault("grading.pass_grade", DefaultPassGrade)

	thresholds := quality.DefaultThresholds()
	viperCfg.SetDefault("quality.blur_threshold", thresholds.Blur)
	viperCfg.SetDefault("quality.contrast_threshold", thresholds.Contrast)
	viperCfg.SetDefault("quality.edge_threshold", thresholds.EdgeIntegrity)

	viperCfg.SetDefault("pipeline.fps", DefaultFPS)
	viperCfg.SetDefault("pipeline.workers", 0)
	viperCfg.SetDefault("pipeline.buffer", 0)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", false)

	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_headers", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.metrics_addr", "")
	viperCfg.SetDefault("observability.environment", "")
	viperCfg.SetDefault("observability.sample_ratio", 0.0)
	viperCfg.SetDefault("observability.trace_verbose", false)
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if c.Dedup.Window < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, c.Dedup.Window)
	}

	err := c.Grading.Bands.Validate()
	if err != nil {
		return fmt.Errorf("grading: %w", err)
	}

	_, err = grading.ParseGrade(c.Grading.PassGrade)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPassGrade, err)
	}

	err = c.Quality.Validate()
	if err != nil {
		return fmt.Errorf("quality: %w", err)
	}

	if c.Pipeline.FPS < MinFPS || c.Pipeline.FPS > MaxFPS {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidFPS, c.Pipeline.FPS, MinFPS, MaxFPS)
	}

	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Pipeline.Workers)
	}

	if c.Pipeline.Buffer < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBuffer, c.Pipeline.Buffer)
	}

	var level slog.Level

	err = level.UnmarshalText([]byte(c.Logging.Level))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampling, c.Observability.SampleRatio)
	}

	return nil
}
