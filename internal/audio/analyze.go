package audio

import "fmt"

// Analysis is the result of running detection and planning over one track.
type Analysis struct {
	DurationMs float64           `json:"duration_ms"`
	Silences   []SilenceInterval `json:"silences"`
	Plan       Plan              `json:"plan"`
}

// Analyze validates cfg, detects silences in track and plans its segments.
// A zero-length track yields an empty analysis, not an error.
func Analyze(track *Track, cfg SplitConfig) (*Analysis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	duration := track.DurationMs()
	silences := DetectSilence(track, cfg.MinSilenceLenMs, cfg.SilenceThreshDB)

	var (
		plan Plan
		err  error
	)
	switch cfg.mode() {
	case ModePacked:
		plan, err = PlanPacked(duration, silences, cfg.MaxDurationMs)
	default:
		plan, err = PlanSegments(duration, silences, cfg.MaxDurationMs)
	}
	if err != nil {
		return nil, fmt.Errorf("plan segments: %w", err)
	}

	if silences == nil {
		silences = []SilenceInterval{}
	}
	return &Analysis{DurationMs: duration, Silences: silences, Plan: plan}, nil
}
