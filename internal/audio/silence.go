package audio

import "math"

// SilenceInterval is a quiet run of the track, in milliseconds.
type SilenceInterval struct {
	StartMs float64 `json:"start_ms" msgpack:"start_ms"`
	EndMs   float64 `json:"end_ms" msgpack:"end_ms"`
}

// Midpoint is where a cut inside this silence lands.
func (s SilenceInterval) Midpoint() float64 {
	return (s.StartMs + s.EndMs) / 2
}

// Duration returns the length of the silence in milliseconds.
func (s SilenceInterval) Duration() float64 {
	return s.EndMs - s.StartMs
}

// LoudnessDB converts an RMS amplitude relative to full scale into dBFS.
// Zero amplitude maps to -Inf, which is quiet under any threshold.
func LoudnessDB(rms float64) float64 {
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

// RMS returns the root mean square of samples, or 0 for an empty slice.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// windowFrames is the analysis window size: one millisecond, at least one frame.
func windowFrames(sampleRate int) int {
	return max(1, sampleRate/1000)
}

// DetectSilence scans track in 1 ms windows and returns every quiet run lasting at least
// minSilenceLenMs. A window is quiet when its RMS loudness is at or below threshDB.
//
// Intervals are ordered by start and never overlap. Runs touching either end of the
// track are reported like any other. An empty track yields no intervals.
func DetectSilence(track *Track, minSilenceLenMs int, threshDB float64) []SilenceInterval {
	frames := track.Frames()
	if frames == 0 || track.SampleRate <= 0 {
		return nil
	}

	step := windowFrames(track.SampleRate)
	minLen := float64(minSilenceLenMs)

	var (
		intervals []SilenceInterval
		runStart  = -1
	)
	closeRun := func(end int) {
		startMs := FramesToMs(runStart, track.SampleRate)
		endMs := FramesToMs(end, track.SampleRate)
		if endMs-startMs >= minLen {
			intervals = append(intervals, SilenceInterval{StartMs: startMs, EndMs: endMs})
		}
		runStart = -1
	}

	for start := 0; start < frames; start += step {
		end := min(start+step, frames)
		quiet := LoudnessDB(RMS(track.Window(start, end))) <= threshDB
		switch {
		case quiet && runStart < 0:
			runStart = start
		case !quiet && runStart >= 0:
			closeRun(start)
		}
	}
	if runStart >= 0 {
		closeRun(frames)
	}

	return intervals
}
