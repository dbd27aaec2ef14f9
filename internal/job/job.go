// Package job provides the Job aggregate for audio split jobs, the repositories that
// persist it and the SplitService use case that drives upload, splitting and delivery.
package job

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/audiosplit-api/internal/audio"
	"github.com/maauso/audiosplit-api/internal/codec"
	"github.com/maauso/audiosplit-api/internal/job/id"
	"github.com/maauso/audiosplit-api/internal/render"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusUploaded indicates the file is stored and waiting to be split.
	StatusUploaded Status = "UPLOADED"
	// StatusProcessing indicates the file is being analysed and rendered.
	StatusProcessing Status = "PROCESSING"
	// StatusCompleted indicates every segment was rendered.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates splitting stopped with an error.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusUploaded:   {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Job represents one uploaded file and the segments split from it.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string `msgpack:"id"`
	// Filename is the name the file was uploaded with.
	Filename string `msgpack:"filename"`
	// InputPath is where the upload is stored.
	InputPath string `msgpack:"input_path"`
	// OutputDir is where segments are rendered.
	OutputDir string `msgpack:"output_dir"`
	// Info describes the decoded upload.
	Info codec.Info `msgpack:"info"`
	// Params are the split parameters chosen at upload.
	Params audio.SplitConfig `msgpack:"params"`
	// Status is the current job state.
	Status Status `msgpack:"status"`
	// Silences is the number of silence intervals detected.
	Silences int `msgpack:"silences"`
	// Segments lists the rendered files in order.
	Segments []render.Output `msgpack:"segments"`
	// ArchiveURL is set once the zip archive has been published.
	ArchiveURL string `msgpack:"archive_url"`
	// Error contains any error message if the job failed.
	Error string `msgpack:"error"`
	// CreatedAt is when the job was created.
	CreatedAt time.Time `msgpack:"created_at"`
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time `msgpack:"updated_at"`
	// StartedAt is when processing started.
	StartedAt time.Time `msgpack:"started_at"`
	// CompletedAt is when processing finished.
	CompletedAt time.Time `msgpack:"completed_at"`
}

// New creates a new Job for filename in UPLOADED status.
func New(filename string) *Job {
	return NewWithID(id.Generate(filename), filename)
}

// NewWithID creates a new Job with the specified ID in UPLOADED status.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID, filename string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Filename:  filename,
		Status:    StatusUploaded,
		Params:    audio.DefaultSplitConfig(),
		Segments:  make([]render.Output, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusProcessing:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from UPLOADED to PROCESSING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusProcessing)
}

// Complete records the rendered segments and transitions the job to COMPLETED.
func (j *Job) Complete(silences int, segments []render.Output) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusCompleted); err != nil {
		return err
	}
	j.Silences = silences
	j.Segments = slices.Clone(segments)
	return nil
}

// Fail transitions the job to FAILED state with an error message.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusFailed); err != nil {
		return err
	}
	j.Error = errMsg
	return nil
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetArchiveURL records where the zip archive was published.
func (j *Job) SetArchiveURL(url string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ArchiveURL = url
	j.UpdatedAt = time.Now()
}

// Output returns the rendered segment with the given file name.
func (j *Job) Output(filename string) (render.Output, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	for _, o := range j.Segments {
		if o.Filename == filename {
			return o, true
		}
	}
	return render.Output{}, false
}

// OutputFiles returns the rendered file names in order.
func (j *Job) OutputFiles() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	names := make([]string, len(j.Segments))
	for i, o := range j.Segments {
		names[i] = o.Filename
	}
	return names
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:          j.ID,
		Filename:    j.Filename,
		InputPath:   j.InputPath,
		OutputDir:   j.OutputDir,
		Info:        j.Info,
		Params:      j.Params,
		Status:      j.Status,
		Silences:    j.Silences,
		Segments:    slices.Clone(j.Segments),
		ArchiveURL:  j.ArchiveURL,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
