// Package bootstrap provides dependency initialization for the audio split API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/maauso/audiosplit-api/internal/codec"
	"github.com/maauso/audiosplit-api/internal/config"
	"github.com/maauso/audiosplit-api/internal/job"
	"github.com/maauso/audiosplit-api/internal/server"
	"github.com/maauso/audiosplit-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	SplitService *job.SplitService
	Router       http.Handler

	closers []func() error
}

// Close releases resources held by the dependencies, such as the job store.
func (d *Dependencies) Close() error {
	var firstErr error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.closers = nil
	return firstErr
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	repo, err := initRepository(cfg, logger)
	if err != nil {
		return nil, err
	}
	if closer, ok := repo.(interface{ Close() error }); ok {
		deps.closers = append(deps.closers, closer.Close)
	}

	codecs := initCodecs(cfg, logger)

	deps.SplitService = job.NewSplitService(
		repo,
		store,
		job.WithLogger(logger),
		job.WithCodecs(codecs),
		job.WithMaxConcurrentJobs(cfg.MaxConcurrentJobs),
	)

	handlers := server.NewHandlers(deps.SplitService, logger,
		server.WithDefaults(cfg.DefaultSplitConfig()),
		server.WithMaxUploadBytes(cfg.MaxUploadBytes()),
	)
	deps.Router = server.NewRouter(handlers, logger, server.Config{
		AllowedOrigins: splitOrigins(cfg.AllowedOrigins),
	})

	return deps, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	local, err := storage.NewLocalStorage(cfg.InputDir, cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Prefix:          cfg.S3Prefix,
		}
		s3Store, err := storage.NewS3Storage(ctx, local, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 publishing configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	logger.Info("local storage configured",
		slog.String("input_dir", local.InputDir()),
		slog.String("output_dir", local.OutputDir()),
	)
	return local, nil
}

// initRepository keeps jobs in Badger when a store directory is configured, in memory otherwise.
func initRepository(cfg *config.Config, logger *slog.Logger) (job.Repository, error) {
	if cfg.JobStoreDir == "" {
		return job.NewMemoryRepository(), nil
	}
	repo, err := job.NewBadgerRepository(job.BadgerOptions{Dir: cfg.JobStoreDir, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	logger.Info("job store opened", slog.String("dir", cfg.JobStoreDir))
	return repo, nil
}

// initCodecs returns the built-in decoders, plus ffmpeg-backed ones when the binary is found.
func initCodecs(cfg *config.Config, logger *slog.Logger) *codec.Registry {
	codecs := codec.DefaultRegistry()
	if codecs.RegisterFFmpeg(codec.NewFFmpegDecoder(cfg.FFmpegPath)) {
		logger.Info("ffmpeg decoding enabled", slog.Any("extensions", codec.FFmpegExtensions))
	} else {
		logger.Debug("ffmpeg not found, extra formats disabled")
	}
	return codecs
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return server.DefaultConfig().AllowedOrigins
	}
	return origins
}
