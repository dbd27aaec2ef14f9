// Package codec turns uploaded audio files into audio.Track values and renders
// PCM back to WAV.
//
// Decoders are registered by file extension. WAV, AIFF, MP3 and Ogg Vorbis are decoded
// natively; any other container can be handled through ffmpeg when it is installed.
package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/maauso/audiosplit-api/internal/audio"
)

var (
	// ErrUnsupportedFormat is returned when no decoder is registered for a file.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrDecode is returned when a file has a known extension but cannot be read.
	ErrDecode = errors.New("decode error")
)

// Audio is a decoded file: the PCM track plus the bit depth it was stored at.
type Audio struct {
	Track    *audio.Track
	BitDepth int
}

// Info summarises a decoded file for API responses.
type Info struct {
	DurationSeconds float64 `json:"duration_seconds" msgpack:"duration_seconds"`
	Channels        int     `json:"channels" msgpack:"channels"`
	SampleRate      int     `json:"frame_rate" msgpack:"frame_rate"`
	SampleWidth     int     `json:"sample_width" msgpack:"sample_width"`
}

// Info reports duration, channel layout, rate and sample width in bytes.
func (a *Audio) Info() Info {
	return Info{
		DurationSeconds: a.Track.DurationMs() / 1000,
		Channels:        a.Track.Channels,
		SampleRate:      a.Track.SampleRate,
		SampleWidth:     (a.BitDepth + 7) / 8,
	}
}

// Decoder decodes a complete file into memory.
type Decoder interface {
	Decode(ctx context.Context, r io.Reader) (*Audio, error)
}

// Registry maps lower-case file extensions (without the dot) to decoders.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// DefaultRegistry returns a registry with every native decoder registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(WAVDecoder{}, "wav", "wave")
	r.Register(AIFFDecoder{}, "aif", "aiff")
	r.Register(MP3Decoder{}, "mp3")
	r.Register(VorbisDecoder{}, "ogg", "oga")
	return r
}

// Register binds d to each extension, replacing any previous binding.
func (r *Registry) Register(d Decoder, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range exts {
		r.codecs[normalizeExt(ext)] = d
	}
}

// Lookup returns the decoder for a file name or extension.
func (r *Registry) Lookup(name string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.codecs[extOf(name)]
	return d, ok
}

// Supports reports whether a decoder is registered for name.
func (r *Registry) Supports(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.codecs))
	for ext := range r.codecs {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Decode picks a decoder by the extension of name and decodes r.
// Failures are wrapped in ErrUnsupportedFormat or ErrDecode; context errors pass through.
func (r *Registry) Decode(ctx context.Context, name string, data io.Reader) (*Audio, error) {
	d, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a, err := d.Decode(ctx, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, ErrDecode) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if a.Track.SampleRate <= 0 || a.Track.Channels <= 0 {
		return nil, fmt.Errorf("%w: invalid stream layout (%d Hz, %d channels)",
			ErrDecode, a.Track.SampleRate, a.Track.Channels)
	}
	return a, nil
}

func extOf(name string) string {
	if ext := filepath.Ext(name); ext != "" {
		return normalizeExt(ext)
	}
	return normalizeExt(name)
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// readSeeker returns r itself when it can seek, otherwise buffers it in memory.
func readSeeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return bytes.NewReader(data), nil
}

// normalizeInts scales integer PCM at bitDepth into [-1, 1].
// Unsigned 8-bit data (WAV) is centred first.
func normalizeInts(data []int, bitDepth int, unsigned8 bool) []float32 {
	out := make([]float32, len(data))
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))
	for i, v := range data {
		if unsigned8 && bitDepth == 8 {
			v -= 128
		}
		out[i] = float32(v) / scale
	}
	return out
}
