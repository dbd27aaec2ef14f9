package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/audiosplit-api/internal/audio"
	"github.com/maauso/audiosplit-api/internal/codec"
	"github.com/maauso/audiosplit-api/internal/job"
	"github.com/maauso/audiosplit-api/internal/render"
	"github.com/maauso/audiosplit-api/internal/storage"
)

// multipartMemory is how much of a multipart upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// Service is the use case surface the handlers drive.
type Service interface {
	Upload(ctx context.Context, in job.UploadInput) (*job.Job, error)
	Process(ctx context.Context, id string) (*job.Job, error)
	GetJob(ctx context.Context, id string) (*job.Job, error)
	OpenOutput(ctx context.Context, id, filename string) (io.ReadCloser, error)
	WriteArchive(ctx context.Context, id string, w io.Writer) error
	PublishArchive(ctx context.Context, id string) (string, error)
	Clear(ctx context.Context) (int, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        Service
	validator      *validator.Validate
	logger         *slog.Logger
	defaults       audio.SplitConfig
	maxUploadBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithDefaults sets the split parameters used for fields the upload form omits.
func WithDefaults(cfg audio.SplitConfig) HandlerOption {
	return func(h *Handlers) {
		h.defaults = cfg
	}
}

// WithMaxUploadBytes limits the size of an upload request body.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:        service,
		validator:      validator.New(),
		logger:         logger,
		defaults:       audio.DefaultSplitConfig(),
		maxUploadBytes: 500 << 20,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Upload handles POST /upload requests.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the %d MB upload limit", h.maxUploadBytes>>20), "FILE_TOO_LARGE")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form", "INVALID_FORM")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		writeError(w, http.StatusBadRequest, "no file selected", "NO_FILE")
		return
	}
	defer file.Close()

	req, err := h.parseUploadRequest(r)
	if err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	created, err := h.service.Upload(r.Context(), job.UploadInput{
		Filename: header.Filename,
		Data:     file,
		Params:   req.splitConfig(),
	})
	if errors.Is(err, codec.ErrDecode) {
		writeError(w, http.StatusBadRequest, "invalid audio file: "+err.Error(), "DECODE_ERROR")
		return
	}
	if err != nil {
		h.writeServiceError(w, err, "upload failed", "UPLOAD_FAILED")
		return
	}

	h.logger.Info("file uploaded",
		slog.String("job_id", created.ID),
		slog.String("filename", header.Filename),
		slog.Int64("bytes", header.Size),
	)

	writeJSON(w, http.StatusOK, UploadResponse{
		JobID:     created.ID,
		AudioInfo: created.Info,
		Message:   "File uploaded successfully",
	})
}

// parseUploadRequest fills an UploadRequest from the form, starting from the defaults.
func (h *Handlers) parseUploadRequest(r *http.Request) (UploadRequest, error) {
	req := UploadRequest{
		MaxDuration:   float64(h.defaults.MaxDurationMs) / 1000,
		MinSilenceLen: h.defaults.MinSilenceLenMs,
		SilenceThresh: h.defaults.SilenceThreshDB,
		Mode:          string(h.defaults.Mode),
	}

	if v := strings.TrimSpace(r.FormValue("max_duration")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, errors.New("max_duration must be a number of seconds")
		}
		req.MaxDuration = f
	}
	if v := strings.TrimSpace(r.FormValue("min_silence_len")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, errors.New("min_silence_len must be an integer number of milliseconds")
		}
		req.MinSilenceLen = n
	}
	if v := strings.TrimSpace(r.FormValue("silence_thresh")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, errors.New("silence_thresh must be a number of dB")
		}
		req.SilenceThresh = f
	}
	if v := strings.TrimSpace(r.FormValue("mode")); v != "" {
		req.Mode = strings.ToLower(v)
	}

	if err := h.validator.Struct(req); err != nil {
		return req, describeValidation(err)
	}
	return req, nil
}

func (req UploadRequest) splitConfig() audio.SplitConfig {
	return audio.SplitConfig{
		MaxDurationMs:   int(req.MaxDuration * 1000),
		MinSilenceLenMs: req.MinSilenceLen,
		SilenceThreshDB: req.SilenceThresh,
		Mode:            audio.Mode(req.Mode),
	}
}

// describeValidation turns the first field error into the form's wording.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].Field() {
	case "MaxDuration":
		return errors.New("duration must be between 1 and 3600 seconds")
	case "MinSilenceLen":
		return errors.New("minimum silence length must be between 100 and 5000 ms")
	case "SilenceThresh":
		return errors.New("silence threshold must be between -80 and 0 dB")
	case "Mode":
		return errors.New("mode must be silence or packed")
	}
	return err
}

// Process handles POST /process/{id} requests.
// With ?async=true the job is split in the background and 202 is returned.
func (h *Handlers) Process(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireID(w, r)
	if !ok {
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		found, err := h.service.GetJob(r.Context(), jobID)
		if err != nil {
			h.writeServiceError(w, err, "processing failed", "PROCESSING_FAILED")
			return
		}
		if found.Status != job.StatusUploaded {
			writeError(w, http.StatusConflict, job.ErrJobNotReady.Error(), "JOB_NOT_READY")
			return
		}

		// Detach from the request so processing outlives it.
		go func(ctx context.Context, id string) {
			if _, err := h.service.Process(ctx, id); err != nil {
				h.logger.Error("background processing failed",
					slog.String("job_id", id),
					slog.String("error", err.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), jobID)

		writeJSON(w, http.StatusAccepted, AcceptedResponse{JobID: jobID, Status: string(job.StatusProcessing)})
		return
	}

	done, err := h.service.Process(r.Context(), jobID)
	if err != nil {
		h.writeServiceError(w, err, "processing failed", "PROCESSING_FAILED")
		return
	}

	files := done.OutputFiles()
	writeJSON(w, http.StatusOK, ProcessResponse{
		Status:        strings.ToLower(string(done.Status)),
		OutputFiles:   files,
		TotalSegments: len(files),
		Segments:      done.Segments,
	})
}

// Status handles GET /status/{id} requests.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireID(w, r)
	if !ok {
		return
	}

	found, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		h.writeServiceError(w, err, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	resp := StatusResponse{
		Status:      strings.ToLower(string(found.Status)),
		OutputFiles: found.OutputFiles(),
		Segments:    found.Segments,
		AudioInfo:   found.Info,
		ArchiveURL:  found.ArchiveURL,
	}
	if found.Error != "" {
		resp.Error = &found.Error
	}
	writeJSON(w, http.StatusOK, resp)
}

// Download handles GET /download/{id}/{filename} requests.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireID(w, r)
	if !ok {
		return
	}
	filename := r.PathValue("filename")

	rc, err := h.service.OpenOutput(r.Context(), jobID, filename)
	if err != nil {
		h.writeServiceError(w, err, "download failed", "DOWNLOAD_FAILED")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("download interrupted",
			slog.String("job_id", jobID),
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
	}
}

// DownloadAll handles GET /download_all/{id} requests by streaming a zip of every output.
func (h *Handlers) DownloadAll(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireID(w, r)
	if !ok {
		return
	}

	found, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		h.writeServiceError(w, err, "download failed", "ARCHIVE_FAILED")
		return
	}
	if found.Status != job.StatusCompleted {
		writeError(w, http.StatusBadRequest, job.ErrJobNotCompleted.Error(), "JOB_NOT_COMPLETED")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": render.ArchiveName(jobID)}))
	if err := h.service.WriteArchive(r.Context(), jobID, w); err != nil {
		// Headers are already sent; all that is left is to log.
		h.logger.Error("archive streaming failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// Publish handles POST /publish/{id} requests.
func (h *Handlers) Publish(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireID(w, r)
	if !ok {
		return
	}

	url, err := h.service.PublishArchive(r.Context(), jobID)
	if err != nil {
		h.writeServiceError(w, err, "publish failed", "ARCHIVE_FAILED")
		return
	}
	writeJSON(w, http.StatusOK, PublishResponse{URL: url})
}

// Clear handles POST /clear requests.
func (h *Handlers) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Clear(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "clear failed", "CLEAR_FAILED")
		return
	}
	writeJSON(w, http.StatusOK, ClearResponse{Message: "Files cleared successfully", Cleared: n})
}

// writeServiceError maps domain errors to status codes; anything unrecognised is
// logged and reported as fallbackCode.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error, fallbackMsg, fallbackCode string) {
	switch {
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
	case errors.Is(err, job.ErrFileNotFound):
		writeError(w, http.StatusNotFound, "file not found", "FILE_NOT_FOUND")
	case errors.Is(err, job.ErrJobNotReady):
		writeError(w, http.StatusConflict, err.Error(), "JOB_NOT_READY")
	case errors.Is(err, job.ErrJobNotCompleted):
		writeError(w, http.StatusBadRequest, err.Error(), "JOB_NOT_COMPLETED")
	case errors.Is(err, audio.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, codec.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType,
			"unsupported format; supported extensions: wav, aiff, mp3, ogg and more when ffmpeg is installed", "UNSUPPORTED_FORMAT")
	case errors.Is(err, storage.ErrPublishNotConfigured):
		writeError(w, http.StatusNotImplemented, err.Error(), "PUBLISH_NOT_CONFIGURED")
	case errors.Is(err, storage.ErrStorageUnavailable):
		h.logger.Error("storage unavailable", slog.String("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, "storage unavailable", "STORAGE_UNAVAILABLE")
	default:
		h.logger.Error(fallbackMsg, slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, fallbackMsg+": "+err.Error(), fallbackCode)
	}
}

// requireID reads the {id} path value, answering 400 when it is empty.
func requireID(w http.ResponseWriter, r *http.Request) (string, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return "", false
	}
	return jobID, true
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
