// Package render writes a segment plan to disk as WAV files and bundles them into zip archives.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/maauso/audiosplit-api/internal/audio"
	"github.com/maauso/audiosplit-api/internal/codec"
)

// ErrNothingRendered is returned when every segment of a plan rounds to zero frames.
var ErrNothingRendered = errors.New("no segments rendered")

// Output is one rendered segment file.
type Output struct {
	Index    int     `json:"index" msgpack:"index"`
	Filename string  `json:"filename" msgpack:"filename"`
	Path     string  `json:"-" msgpack:"path"`
	StartMs  float64 `json:"start_ms" msgpack:"start_ms"`
	EndMs    float64 `json:"end_ms" msgpack:"end_ms"`
	Bytes    int64   `json:"bytes" msgpack:"bytes"`
}

// Renderer writes segments into a single output directory.
type Renderer struct {
	outputDir string
	logger    *slog.Logger
}

// NewRenderer creates a Renderer writing into outputDir.
func NewRenderer(outputDir string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{outputDir: outputDir, logger: logger}
}

// OutputDir returns the directory files are written to.
func (r *Renderer) OutputDir() string {
	return r.outputDir
}

// SegmentName returns the file name of the n-th written segment (1-based).
func SegmentName(baseName string, n int) string {
	return fmt.Sprintf("%s_part_%03d.wav", baseName, n)
}

// Render writes one WAV per segment of plan, named <baseName>_part_NNN.wav.
// Segments that map to zero frames are skipped. On any error the files already
// written by this call are removed.
func (r *Renderer) Render(ctx context.Context, track *audio.Track, plan audio.Plan, baseName string) (outputs []Output, err error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	defer func() {
		if err != nil {
			for _, o := range outputs {
				_ = os.Remove(o.Path)
			}
			outputs = nil
		}
	}()

	for _, seg := range plan {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}

		samples := track.Slice(seg.StartMs, seg.EndMs)
		if len(samples) < track.Channels {
			r.logger.Debug("skipping empty segment",
				slog.Int("index", seg.Index),
				slog.Float64("start_ms", seg.StartMs),
				slog.Float64("end_ms", seg.EndMs),
			)
			continue
		}

		name := SegmentName(baseName, len(outputs)+1)
		path := filepath.Join(r.outputDir, name)
		size, err := writeSegment(path, samples, track.SampleRate, track.Channels)
		if err != nil {
			return outputs, fmt.Errorf("render segment %d: %w", seg.Index, err)
		}

		outputs = append(outputs, Output{
			Index:    seg.Index,
			Filename: name,
			Path:     path,
			StartMs:  seg.StartMs,
			EndMs:    seg.EndMs,
			Bytes:    size,
		})
	}

	if len(outputs) == 0 {
		return nil, ErrNothingRendered
	}

	r.logger.Info("segments rendered",
		slog.String("base", baseName),
		slog.Int("files", len(outputs)),
		slog.String("dir", r.outputDir),
	)
	return outputs, nil
}

func writeSegment(path string, samples []float32, sampleRate, channels int) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	size, err := encodeSegment(f, samples, sampleRate, channels)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close %s: %w", filepath.Base(path), closeErr)
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return size, nil
}

func encodeSegment(f *os.File, samples []float32, sampleRate, channels int) (int64, error) {
	if err := codec.WriteWAV(f, samples, sampleRate, channels); err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", filepath.Base(f.Name()), err)
	}
	return info.Size(), nil
}
