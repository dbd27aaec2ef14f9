// Package audio provides silence detection and segment planning over decoded PCM audio.
//
// The package is pure: it performs no I/O and keeps no shared state, so a Track may be
// analysed concurrently with any other Track. Decoding and rendering live in the codec
// and render packages.
package audio

import "math"

// Track is an immutable view over decoded, interleaved PCM samples normalised to [-1, 1].
type Track struct {
	// SampleRate is the number of frames per second.
	SampleRate int
	// Channels is the number of interleaved channels per frame.
	Channels int
	// Samples holds Frames()*Channels values, frame-major.
	Samples []float32
}

// NewTrack wraps samples without copying them.
func NewTrack(sampleRate, channels int, samples []float32) *Track {
	return &Track{SampleRate: sampleRate, Channels: channels, Samples: samples}
}

// Frames returns the number of complete frames in the track.
func (t *Track) Frames() int {
	if t == nil || t.Channels <= 0 {
		return 0
	}
	return len(t.Samples) / t.Channels
}

// DurationMs returns the track length in milliseconds, derived from the frame count.
func (t *Track) DurationMs() float64 {
	if t == nil || t.SampleRate <= 0 {
		return 0
	}
	return FramesToMs(t.Frames(), t.SampleRate)
}

// Window returns the samples of frames [start, end) as a sub-slice of the track buffer.
// Bounds are clamped to the track.
func (t *Track) Window(start, end int) []float32 {
	frames := t.Frames()
	start = max(0, min(start, frames))
	end = max(start, min(end, frames))
	return t.Samples[start*t.Channels : end*t.Channels]
}

// Slice returns the samples between two millisecond offsets as a sub-slice view.
// An end equal to DurationMs always reaches the last frame.
func (t *Track) Slice(startMs, endMs float64) []float32 {
	return t.Window(t.FrameAt(startMs), t.FrameAt(endMs))
}

// FrameAt converts a millisecond offset to the nearest frame index, clamped to the track.
// Every caller converts boundaries through this method, so a boundary shared by two
// segments maps to the same frame for both.
func (t *Track) FrameAt(ms float64) int {
	frames := t.Frames()
	if ms >= t.DurationMs() {
		return frames
	}
	f := int(math.Round(ms * float64(t.SampleRate) / 1000))
	return max(0, min(f, frames))
}

// FramesToMs converts a frame count at sampleRate to milliseconds.
func FramesToMs(frames, sampleRate int) float64 {
	return float64(frames) * 1000 / float64(sampleRate)
}
