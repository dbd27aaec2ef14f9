package audio

import (
	"errors"
	"fmt"
)

// Documented parameter ranges.
const (
	MinMaxDurationMs = 1_000
	MaxMaxDurationMs = 3_600_000

	MinMinSilenceLenMs = 100
	MaxMinSilenceLenMs = 5_000

	MinSilenceThreshDB = -80.0
	MaxSilenceThreshDB = 0.0
)

// ErrInvalidConfig is matched by every *ConfigError.
var ErrInvalidConfig = errors.New("invalid split configuration")

// ConfigError reports a split parameter outside its documented range.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidConfig) true for any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Mode selects how the planner uses detected silences.
type Mode string

const (
	// ModeSilence cuts at every silence midpoint, then enforces the duration ceiling.
	ModeSilence Mode = "silence"
	// ModePacked makes clips as long as the ceiling allows, ending at the latest
	// reachable silence midpoint.
	ModePacked Mode = "packed"
)

// IsValid returns true if the mode is known.
func (m Mode) IsValid() bool {
	return m == ModeSilence || m == ModePacked
}

// SplitConfig configures one analysis+plan run.
type SplitConfig struct {
	// MaxDurationMs is the hard ceiling for every produced segment.
	MaxDurationMs int `json:"max_duration_ms" msgpack:"max_duration_ms"`

	// MinSilenceLenMs is the shortest quiet run reported as a silence interval.
	MinSilenceLenMs int `json:"min_silence_len_ms" msgpack:"min_silence_len_ms"`

	// SilenceThreshDB is the loudness in dBFS at or below which a window is quiet.
	SilenceThreshDB float64 `json:"silence_thresh_db" msgpack:"silence_thresh_db"`

	// Mode defaults to ModeSilence when empty.
	Mode Mode `json:"mode,omitempty" msgpack:"mode,omitempty"`
}

// DefaultSplitConfig returns the defaults used by the upload form.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		MaxDurationMs:   60_000,
		MinSilenceLenMs: 1_000,
		SilenceThreshDB: -40,
		Mode:            ModeSilence,
	}
}

// Validate checks every field against its documented range.
func (c SplitConfig) Validate() error {
	if c.MaxDurationMs < MinMaxDurationMs || c.MaxDurationMs > MaxMaxDurationMs {
		return &ConfigError{Field: "max_duration_ms", Value: c.MaxDurationMs,
			Reason: fmt.Sprintf("must be between %d and %d", MinMaxDurationMs, MaxMaxDurationMs)}
	}
	if c.MinSilenceLenMs < MinMinSilenceLenMs || c.MinSilenceLenMs > MaxMinSilenceLenMs {
		return &ConfigError{Field: "min_silence_len_ms", Value: c.MinSilenceLenMs,
			Reason: fmt.Sprintf("must be between %d and %d", MinMinSilenceLenMs, MaxMinSilenceLenMs)}
	}
	// Written as a negated range so NaN is rejected too.
	if !(c.SilenceThreshDB >= MinSilenceThreshDB && c.SilenceThreshDB <= MaxSilenceThreshDB) {
		return &ConfigError{Field: "silence_thresh_db", Value: c.SilenceThreshDB,
			Reason: fmt.Sprintf("must be between %.0f and %.0f", MinSilenceThreshDB, MaxSilenceThreshDB)}
	}
	if c.Mode != "" && !c.Mode.IsValid() {
		return &ConfigError{Field: "mode", Value: c.Mode, Reason: "must be silence or packed"}
	}
	return nil
}

func (c SplitConfig) mode() Mode {
	if c.Mode == "" {
		return ModeSilence
	}
	return c.Mode
}
