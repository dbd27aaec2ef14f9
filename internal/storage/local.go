package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements the Storage interface using local disk.
// Uploads go to an input directory and each job renders into its own
// subdirectory of the output directory. Publishing needs S3Storage.
type LocalStorage struct {
	inputDir  string
	outputDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// Empty directories default to audiosplit/input and audiosplit/output under os.TempDir().
// Both directories are created if they don't exist.
func NewLocalStorage(inputDir, outputDir string) (*LocalStorage, error) {
	if inputDir == "" {
		inputDir = filepath.Join(os.TempDir(), "audiosplit", "input")
	}
	if outputDir == "" {
		outputDir = filepath.Join(os.TempDir(), "audiosplit", "output")
	}

	for _, dir := range []string{inputDir, outputDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("%w: create directory %s: %v", ErrStorageUnavailable, dir, err)
		}
	}

	return &LocalStorage{inputDir: inputDir, outputDir: outputDir}, nil
}

// InputDir returns the upload directory path.
func (s *LocalStorage) InputDir() string {
	return s.inputDir
}

// OutputDir returns the root of the per-job output directories.
func (s *LocalStorage) OutputDir() string {
	return s.outputDir
}

// SaveUpload writes data to a uniquely named file in the input directory.
func (s *LocalStorage) SaveUpload(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" || stem == "." || strings.ContainsAny(stem, `/\`) {
		stem = "upload"
	}

	f, err := os.CreateTemp(s.inputDir, stem+"_*"+ext)
	if err != nil {
		return "", fmt.Errorf("%w: create upload file: %v", ErrStorageUnavailable, err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write upload file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("%w: close upload file: %v", ErrStorageUnavailable, err)
	}

	return fileName, nil
}

// Open opens a stored file for reading.
func (s *LocalStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}

	return f, nil
}

// JobOutputDir creates and returns <outputDir>/<jobID>.
func (s *LocalStorage) JobOutputDir(jobID string) (string, error) {
	if !validKey(jobID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, jobID)
	}
	dir := filepath.Join(s.outputDir, jobID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("%w: create job directory: %v", ErrStorageUnavailable, err)
	}
	return dir, nil
}

// Cleanup removes the specified files and directories.
// It continues cleanup even if some paths fail to delete,
// returning the first error encountered.
func (s *LocalStorage) Cleanup(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if p == "" {
			continue
		}
		if err := os.RemoveAll(p); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return firstErr
}

// Publish is not supported by LocalStorage and returns ErrPublishNotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrPublishNotConfigured
}

func validKey(key string) bool {
	return key != "" && key != "." && key != ".." && !strings.ContainsAny(key, `/\`)
}

var _ Storage = (*LocalStorage)(nil)
