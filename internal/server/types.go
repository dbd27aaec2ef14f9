// Package server provides the HTTP server for the audio split API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"github.com/maauso/audiosplit-api/internal/codec"
	"github.com/maauso/audiosplit-api/internal/render"
)

// UploadRequest holds the multipart form fields of POST /upload.
// Missing fields take the server defaults before validation.
type UploadRequest struct {
	// MaxDuration is the longest allowed segment, in seconds.
	MaxDuration float64 `form:"max_duration" validate:"gte=1,lte=3600"`
	// MinSilenceLen is the shortest silence that may become a cut, in milliseconds.
	MinSilenceLen int `form:"min_silence_len" validate:"gte=100,lte=5000"`
	// SilenceThresh is the loudness in dBFS at or below which audio is silent.
	SilenceThresh float64 `form:"silence_thresh" validate:"gte=-80,lte=0"`
	// Mode is "silence" or "packed".
	Mode string `form:"mode" validate:"omitempty,oneof=silence packed"`
}

// UploadResponse is the HTTP response after a file is uploaded.
type UploadResponse struct {
	// JobID identifies the job in later requests.
	JobID string `json:"job_id"`
	// AudioInfo describes the decoded file.
	AudioInfo codec.Info `json:"audio_info"`
	// Message is a human-readable confirmation.
	Message string `json:"message"`
}

// ProcessResponse is the HTTP response after a job has been split.
type ProcessResponse struct {
	Status        string          `json:"status"`
	OutputFiles   []string        `json:"output_files"`
	TotalSegments int             `json:"total_segments"`
	Segments      []render.Output `json:"segments"`
}

// AcceptedResponse is returned when processing continues in the background.
type AcceptedResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// StatusResponse is the HTTP response for GET /status/{id}.
type StatusResponse struct {
	// Status is the current job status.
	Status string `json:"status"`
	// OutputFiles lists the rendered files in order.
	OutputFiles []string `json:"output_files"`
	// Segments carries the time range of each rendered file.
	Segments []render.Output `json:"segments"`
	// Error contains the failure message of a FAILED job.
	Error *string `json:"error"`
	// AudioInfo describes the uploaded file.
	AudioInfo codec.Info `json:"audio_info"`
	// ArchiveURL is set once the archive has been published.
	ArchiveURL string `json:"archive_url,omitempty"`
}

// PublishResponse is the HTTP response for POST /publish/{id}.
type PublishResponse struct {
	URL string `json:"url"`
}

// ClearResponse is the HTTP response for POST /clear.
type ClearResponse struct {
	Message string `json:"message"`
	Cleared int    `json:"cleared"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
