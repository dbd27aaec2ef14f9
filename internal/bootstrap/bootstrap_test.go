package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/audiosplit-api/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		Port:                   8080,
		MaxUploadMB:            10,
		AllowedOrigins:         "*",
		InputDir:               filepath.Join(root, "input"),
		OutputDir:              filepath.Join(root, "output"),
		MaxConcurrentJobs:      3,
		DefaultMaxDurationSec:  60,
		DefaultMinSilenceMs:    1000,
		DefaultSilenceThreshDB: -40,
		SplitMode:              "silence",
		FFmpegPath:             filepath.Join(root, "no-ffmpeg"),
		LogFormat:              "text",
		LogLevel:               "error",
	}
}

func TestNewDependencies_Memory(t *testing.T) {
	cfg := testConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, err := NewDependencies(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer deps.Close()

	assert.Equal(t, 3, deps.SplitService.MaxConcurrentJobs())
	assert.False(t, deps.SplitService.Codecs().Supports("talk.flac"))
	assert.True(t, deps.SplitService.Codecs().Supports("talk.mp3"))

	rec := httptest.NewRecorder()
	deps.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewDependencies_Badger(t *testing.T) {
	cfg := testConfig(t)
	cfg.JobStoreDir = filepath.Join(t.TempDir(), "jobs")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, err := NewDependencies(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.Len(t, deps.closers, 1)

	require.NoError(t, deps.Close())
	assert.Empty(t, deps.closers)
}

func TestNewDependencies_S3(t *testing.T) {
	cfg := testConfig(t)
	cfg.S3Bucket = "bucket"
	cfg.S3Region = "eu-west-1"
	cfg.AWSAccessKeyID = "key"
	cfg.AWSSecretAccessKey = "secret"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, err := NewDependencies(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer deps.Close()
	assert.NotNil(t, deps.SplitService)
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, splitOrigins(""))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, splitOrigins(" https://a.example, https://b.example ,"))
}
