// Package storage provides upload, output and archive storage for split jobs.
// It defines the Storage interface (port) for hexagonal architecture and
// implementations for local disk and S3 storage.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrStorageUnavailable is returned when the backing disk cannot be written.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrPublishNotConfigured is returned when archives are published
	// without an S3 bucket configured.
	ErrPublishNotConfigured = errors.New("publishing is not configured")

	// ErrInvalidKey is returned for job IDs or keys that would escape their directory.
	ErrInvalidKey = errors.New("invalid storage key")
)

// Storage defines where uploads and rendered segments live.
// Implementations keep uploads and outputs on local disk and
// optionally publish archives to a remote bucket.
type Storage interface {
	// SaveUpload stores an uploaded file in the input directory and returns its path.
	// The extension of name is preserved so decoders can be selected from the path.
	SaveUpload(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Open returns a reader over a stored file.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// JobOutputDir returns, creating it if needed, the directory a job renders into.
	JobOutputDir(jobID string) (string, error)

	// Cleanup removes the specified files or directories.
	// It continues cleanup even if some paths fail to delete.
	Cleanup(ctx context.Context, paths []string) error

	// Publish uploads data under key and returns its public URL.
	// Returns ErrPublishNotConfigured if no bucket is configured.
	Publish(ctx context.Context, key string, data io.Reader) (url string, err error)
}
