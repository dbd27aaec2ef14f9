package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/maauso/audiosplit-api/internal/audio"
	"github.com/maauso/audiosplit-api/internal/codec"
	"github.com/maauso/audiosplit-api/internal/job/id"
	"github.com/maauso/audiosplit-api/internal/render"
	"github.com/maauso/audiosplit-api/internal/storage"
)

var (
	// ErrJobNotReady is returned when processing a job that is not UPLOADED.
	ErrJobNotReady = errors.New("job already processed or in progress")
	// ErrJobNotCompleted is returned when downloading from a job that has not completed.
	ErrJobNotCompleted = errors.New("job not completed")
	// ErrFileNotFound is returned when a download names a file the job did not produce.
	ErrFileNotFound = errors.New("file not found")
)

// UploadInput contains the uploaded file and the split parameters chosen for it.
type UploadInput struct {
	// Filename is the client-side file name; its extension selects the decoder.
	Filename string
	// Data is the file content.
	Data io.Reader
	// Params are validated before the file is stored.
	Params audio.SplitConfig
}

// SplitService orchestrates the split workflow: store and inspect an upload,
// detect silences and plan segments, render them to WAV and deliver the results.
//
// Dependencies:
//   - codec.Registry: decoding by file extension
//   - storage.Storage: uploads, per-job output directories and publishing
//   - Repository: Job persistence
type SplitService struct {
	repo    Repository
	storage storage.Storage
	codecs  *codec.Registry
	logger  *slog.Logger

	// sem bounds the number of jobs decoding and rendering at once.
	sem chan struct{}
	// claimMu serialises the UPLOADED -> PROCESSING check-and-set.
	claimMu sync.Mutex
}

// Option configures a SplitService.
type Option func(*SplitService)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SplitService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCodecs replaces the default decoder registry.
func WithCodecs(r *codec.Registry) Option {
	return func(s *SplitService) {
		if r != nil {
			s.codecs = r
		}
	}
}

// WithMaxConcurrentJobs limits how many jobs may process in parallel.
// Values below one are ignored.
func WithMaxConcurrentJobs(n int) Option {
	return func(s *SplitService) {
		if n > 0 {
			s.sem = make(chan struct{}, n)
		}
	}
}

// NewSplitService creates a new SplitService.
func NewSplitService(repo Repository, store storage.Storage, opts ...Option) *SplitService {
	s := &SplitService{
		repo:    repo,
		storage: store,
		codecs:  codec.DefaultRegistry(),
		logger:  slog.Default(),
		sem:     make(chan struct{}, 2),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxConcurrentJobs returns the processing concurrency limit.
func (s *SplitService) MaxConcurrentJobs() int {
	return cap(s.sem)
}

// Codecs returns the decoder registry in use.
func (s *SplitService) Codecs() *codec.Registry {
	return s.codecs
}

// Upload validates the parameters, stores the file, decodes it once to report
// its properties and creates a job in UPLOADED status.
// A file that cannot be decoded is removed again.
func (s *SplitService) Upload(ctx context.Context, in UploadInput) (*Job, error) {
	if err := in.Params.Validate(); err != nil {
		return nil, err
	}
	if !s.codecs.Supports(in.Filename) {
		return nil, fmt.Errorf("%w: %q", codec.ErrUnsupportedFormat, filepath.Ext(in.Filename))
	}

	job := New(in.Filename)
	job.Params = in.Params

	path, err := s.storage.SaveUpload(ctx, in.Filename, in.Data)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	job.InputPath = path

	decoded, err := s.decode(ctx, path, in.Filename)
	if err != nil {
		s.cleanup(path)
		return nil, err
	}
	job.Info = decoded.Info()

	s.logger.Info("creating new job",
		slog.String("job_id", job.ID),
		slog.String("filename", in.Filename),
		slog.Float64("duration_seconds", job.Info.DurationSeconds),
		slog.Int("max_duration_ms", in.Params.MaxDurationMs),
		slog.String("mode", string(in.Params.Mode)),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		s.cleanup(path)
		return nil, err
	}

	return job, nil
}

// GetJob retrieves a job by ID.
func (s *SplitService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// Process splits an UPLOADED job: decode, detect silences, plan and render every
// segment into the job's own output directory. It blocks until a processing slot
// is free. The returned job reflects the final state even when an error is returned.
func (s *SplitService) Process(ctx context.Context, id string) (*Job, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()

	job, err := s.claim(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("processing job",
		slog.String("job_id", job.ID),
		slog.Int("max_duration_ms", job.Params.MaxDurationMs),
		slog.Int("min_silence_len_ms", job.Params.MinSilenceLenMs),
		slog.Float64("silence_thresh_db", job.Params.SilenceThreshDB),
	)

	analysis, outputs, err := s.split(ctx, job)
	if err != nil {
		s.logger.Error("job failed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		if failErr := job.Fail(err.Error()); failErr != nil {
			return nil, failErr
		}
		// Persist the failure even if the request context is gone.
		if saveErr := s.repo.Save(context.WithoutCancel(ctx), job); saveErr != nil {
			return nil, errors.Join(err, saveErr)
		}
		return job.Clone(), err
	}

	if err := job.Complete(len(analysis.Silences), outputs); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("job completed",
		slog.String("job_id", job.ID),
		slog.Int("silences", len(analysis.Silences)),
		slog.Int("segments", len(outputs)),
	)
	return job.Clone(), nil
}

// claim moves the job from UPLOADED to PROCESSING, failing if another caller got there first.
func (s *SplitService) claim(ctx context.Context, id string) (*Job, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := job.Start(); err != nil {
		return nil, fmt.Errorf("%w: status %s", ErrJobNotReady, job.GetStatus())
	}
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SplitService) split(ctx context.Context, job *Job) (*audio.Analysis, []render.Output, error) {
	decoded, err := s.decode(ctx, job.InputPath, job.Filename)
	if err != nil {
		return nil, nil, err
	}
	track := decoded.Track

	analysis, err := audio.Analyze(track, job.Params)
	if err != nil {
		return nil, nil, err
	}
	if err := analysis.Plan.Verify(analysis.DurationMs, job.Params.MaxDurationMs); err != nil {
		return nil, nil, err
	}

	if len(analysis.Plan) == 0 {
		s.logger.Info("track is empty, nothing to split", slog.String("job_id", job.ID))
		return analysis, []render.Output{}, nil
	}

	dir, err := s.storage.JobOutputDir(job.ID)
	if err != nil {
		return nil, nil, err
	}
	job.OutputDir = dir

	base := baseName(job.Filename)
	outputs, err := render.NewRenderer(dir, s.logger).Render(ctx, track, analysis.Plan, base)
	if err != nil {
		return nil, nil, err
	}
	return analysis, outputs, nil
}

// OpenOutput opens one rendered file of a completed job.
func (s *SplitService) OpenOutput(ctx context.Context, id, filename string) (io.ReadCloser, error) {
	job, err := s.completedJob(ctx, id)
	if err != nil {
		return nil, err
	}
	out, ok := job.Output(filename)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filename)
	}
	rc, err := s.storage.Open(ctx, out.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filename)
		}
		return nil, err
	}
	return rc, nil
}

// WriteArchive writes a zip of every rendered file of a completed job to w.
func (s *SplitService) WriteArchive(ctx context.Context, id string, w io.Writer) error {
	job, err := s.completedJob(ctx, id)
	if err != nil {
		return err
	}
	return render.WriteArchive(w, job.Segments)
}

// PublishArchive builds the job's zip archive, uploads it and records the URL.
// Returns storage.ErrPublishNotConfigured when no bucket is configured.
func (s *SplitService) PublishArchive(ctx context.Context, id string) (string, error) {
	job, err := s.completedJob(ctx, id)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "audiosplit-archive-*.zip")
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if err := render.WriteArchive(tmp, job.Segments); err != nil {
		return "", err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind archive: %w", err)
	}

	url, err := s.storage.Publish(ctx, render.ArchiveName(job.ID), tmp)
	if err != nil {
		return "", err
	}

	job.SetArchiveURL(url)
	if err := s.repo.Save(ctx, job); err != nil {
		return "", err
	}

	s.logger.Info("archive published",
		slog.String("job_id", job.ID),
		slog.String("url", url),
	)
	return url, nil
}

// Clear deletes every job that is not processing, with its upload and outputs.
// It returns the number of jobs removed. It holds claimMu so no job can be
// claimed between the status check and the delete.
func (s *SplitService) Clear(ctx context.Context) (int, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	jobs, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	var (
		cleared  int
		firstErr error
	)
	for _, job := range jobs {
		if job.GetStatus() == StatusProcessing {
			continue
		}
		paths := []string{job.InputPath, job.OutputDir}
		if err := s.storage.Cleanup(ctx, paths); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := s.repo.Delete(ctx, job.ID); err != nil && !errors.Is(err, ErrJobNotFound) {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		cleared++
	}

	s.logger.Info("jobs cleared", slog.Int("count", cleared))
	return cleared, firstErr
}

func (s *SplitService) completedJob(ctx context.Context, id string) (*Job, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.GetStatus() != StatusCompleted {
		return nil, ErrJobNotCompleted
	}
	return job, nil
}

func (s *SplitService) decode(ctx context.Context, path, filename string) (*codec.Audio, error) {
	rc, err := s.storage.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return s.codecs.Decode(ctx, filename, rc)
}

func (s *SplitService) cleanup(paths ...string) {
	if err := s.storage.Cleanup(context.Background(), paths); err != nil {
		s.logger.Warn("cleanup failed", slog.String("error", err.Error()))
	}
}

// baseName is the output file prefix: the sanitised upload name without extension.
func baseName(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if safe := id.SafeName(stem); safe != "" {
		return safe
	}
	return "audio"
}
