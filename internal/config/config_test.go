package config

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/audiosplit-api/internal/audio"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return LoadFrom(context.Background(), envconfig.MapLookuper(env))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/tmp/audiosplit/input", cfg.InputDir)
	assert.Equal(t, "/tmp/audiosplit/output", cfg.OutputDir)
	assert.Empty(t, cfg.JobStoreDir)
	assert.Equal(t, int64(500), cfg.MaxUploadMB)
	assert.Equal(t, int64(500<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 2, cfg.MaxConcurrentJobs)
	assert.Equal(t, "*", cfg.AllowedOrigins)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.S3Enabled())
	assert.Equal(t, audio.DefaultSplitConfig(), cfg.DefaultSplitConfig())
}

func TestLoad_FromProcessEnv(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoad_CustomValues(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"PORT":                      "3000",
		"INPUT_DIR":                 "/data/in",
		"OUTPUT_DIR":                "/data/out",
		"JOB_STORE_DIR":             "/data/jobs",
		"MAX_UPLOAD_MB":             "50",
		"MAX_CONCURRENT_JOBS":       "4",
		"DEFAULT_MAX_DURATION_SEC":  "30.5",
		"DEFAULT_MIN_SILENCE_MS":    "400",
		"DEFAULT_SILENCE_THRESH_DB": "-50",
		"SPLIT_MODE":                "packed",
		"FFMPEG_PATH":               "/usr/bin/ffmpeg",
		"S3_BUCKET":                 "my-bucket",
		"S3_REGION":                 "us-east-1",
		"S3_ENDPOINT":               "http://localhost:4566",
		"AWS_ACCESS_KEY_ID":         "access-key",
		"AWS_SECRET_ACCESS_KEY":     "secret-key",
		"LOG_FORMAT":                "json",
		"LOG_LEVEL":                 "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "/data/in", cfg.InputDir)
	assert.Equal(t, "/data/out", cfg.OutputDir)
	assert.Equal(t, "/data/jobs", cfg.JobStoreDir)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.Equal(t, "/usr/bin/ffmpeg", cfg.FFmpegPath)
	assert.True(t, cfg.S3Enabled())
	assert.Equal(t, "http://localhost:4566", cfg.S3Endpoint)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)

	assert.Equal(t, audio.SplitConfig{
		MaxDurationMs:   30500,
		MinSilenceLenMs: 400,
		SilenceThreshDB: -50,
		Mode:            audio.ModePacked,
	}, cfg.DefaultSplitConfig())
}

func TestLoad_ParseError(t *testing.T) {
	// go-envconfig returns an error when parsing fails
	_, err := load(t, map[string]string{"PORT": "not-a-number"})
	require.Error(t, err)
}

func TestLoad_OutOfRange(t *testing.T) {
	tests := map[string]map[string]string{
		"port":         {"PORT": "70000"},
		"concurrency":  {"MAX_CONCURRENT_JOBS": "0"},
		"max duration": {"DEFAULT_MAX_DURATION_SEC": "0.5"},
		"min silence":  {"DEFAULT_MIN_SILENCE_MS": "50"},
		"threshold":    {"DEFAULT_SILENCE_THRESH_DB": "3"},
		"mode":         {"SPLIT_MODE": "fastest"},
		"log format":   {"LOG_FORMAT": "xml"},
		"upload limit": {"MAX_UPLOAD_MB": "0"},
		"bucket alone": {"S3_BUCKET": "b"},
		"region alone": {"S3_REGION": "r"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, env)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Port:               8080,
		InputDir:           "/tmp/in",
		OutputDir:          "/tmp/out",
		S3Bucket:           "bucket",
		S3Region:           "region",
		AWSAccessKeyID:     "access-key-id",
		AWSSecretAccessKey: "secret-key",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "/tmp/in")
	assert.Contains(t, str, "bucket")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "secret-key")
	assert.NotContains(t, str, "access-key-id")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{LogFormat: "json", LogLevel: "info"}

	var buf bytes.Buffer
	logger := cfg.NewLoggerTo(&buf)
	logger.Debug("hidden")
	logger.Info("test message", slog.String("job_id", "j1"))

	assert.Contains(t, buf.String(), `"msg":"test message"`)
	assert.Contains(t, buf.String(), `"job_id":"j1"`)
	assert.NotContains(t, buf.String(), "hidden")
	assert.NotNil(t, cfg.NewLogger())
}

func TestConfig_NewLogger_Text(t *testing.T) {
	cfg := &Config{LogFormat: "text", LogLevel: "debug"}

	var buf bytes.Buffer
	cfg.NewLoggerTo(&buf).Debug("visible")

	assert.Contains(t, buf.String(), "msg=visible")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogLevel(tt.input))
		})
	}
}
