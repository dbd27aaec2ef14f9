// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"

	"github.com/maauso/audiosplit-api/internal/audio"
)

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int    `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`
	MaxUploadMB    int64  `env:"MAX_UPLOAD_MB, default=500" json:"max_upload_mb" validate:"min=1"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Storage settings
	InputDir    string `env:"INPUT_DIR, default=/tmp/audiosplit/input" json:"input_dir" validate:"required"`
	OutputDir   string `env:"OUTPUT_DIR, default=/tmp/audiosplit/output" json:"output_dir" validate:"required"`
	JobStoreDir string `env:"JOB_STORE_DIR" json:"job_store_dir,omitempty"` // Empty keeps jobs in memory

	// Processing settings
	MaxConcurrentJobs      int     `env:"MAX_CONCURRENT_JOBS, default=2" json:"max_concurrent_jobs" validate:"min=1,max=64"`
	DefaultMaxDurationSec  float64 `env:"DEFAULT_MAX_DURATION_SEC, default=60" json:"default_max_duration_sec" validate:"min=1,max=3600"`
	DefaultMinSilenceMs    int     `env:"DEFAULT_MIN_SILENCE_MS, default=1000" json:"default_min_silence_ms" validate:"min=100,max=5000"`
	DefaultSilenceThreshDB float64 `env:"DEFAULT_SILENCE_THRESH_DB, default=-40" json:"default_silence_thresh_db" validate:"min=-80,max=0"`
	SplitMode              string  `env:"SPLIT_MODE, default=silence" json:"split_mode" validate:"oneof=silence packed"`
	FFmpegPath             string  `env:"FFMPEG_PATH" json:"ffmpeg_path,omitempty"` // Empty looks ffmpeg up in PATH

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=text json TEXT JSON"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`                                        // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// DefaultSplitConfig returns the split parameters used when a request omits them.
func (c *Config) DefaultSplitConfig() audio.SplitConfig {
	return audio.SplitConfig{
		MaxDurationMs:   int(c.DefaultMaxDurationSec * 1000),
		MinSilenceLenMs: c.DefaultMinSilenceMs,
		SilenceThreshDB: c.DefaultSilenceThreshDB,
		Mode:            audio.Mode(c.SplitMode),
	}
}

// Load reads configuration from environment variables using go-envconfig
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(context.Background(), envconfig.OsLookuper())
}

// LoadFrom is Load with an explicit lookuper, so tests can avoid the process environment.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every setting against its allowed range.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s fails %q (got %v)", ErrInvalidConfig, fe.Field(), fe.ActualTag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if (c.S3Bucket == "") != (c.S3Region == "") {
		return fmt.Errorf("%w: S3_BUCKET and S3_REGION must be set together", ErrInvalidConfig)
	}
	return nil
}

// NewLogger creates a structured logger writing to stdout.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, InputDir: %s, OutputDir: %s, JobStoreDir: %s, MaxUploadMB: %d, MaxConcurrentJobs: %d, DefaultMaxDurationSec: %g, DefaultMinSilenceMs: %d, DefaultSilenceThreshDB: %g, SplitMode: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.InputDir,
		c.OutputDir,
		c.JobStoreDir,
		c.MaxUploadMB,
		c.MaxConcurrentJobs,
		c.DefaultMaxDurationSec,
		c.DefaultMinSilenceMs,
		c.DefaultSilenceThreshDB,
		c.SplitMode,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// ParseLogLevel converts a string log level to slog.Level.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
