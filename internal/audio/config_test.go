package audio

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*SplitConfig)
		wantField string
	}{
		{"defaults", func(*SplitConfig) {}, ""},
		{"lower bounds", func(c *SplitConfig) {
			c.MaxDurationMs = 1_000
			c.MinSilenceLenMs = 100
			c.SilenceThreshDB = -80
		}, ""},
		{"upper bounds", func(c *SplitConfig) {
			c.MaxDurationMs = 3_600_000
			c.MinSilenceLenMs = 5_000
			c.SilenceThreshDB = 0
		}, ""},
		{"packed mode", func(c *SplitConfig) { c.Mode = ModePacked }, ""},
		{"empty mode", func(c *SplitConfig) { c.Mode = "" }, ""},
		{"zero max duration", func(c *SplitConfig) { c.MaxDurationMs = 0 }, "max_duration_ms"},
		{"negative max duration", func(c *SplitConfig) { c.MaxDurationMs = -1 }, "max_duration_ms"},
		{"max duration too long", func(c *SplitConfig) { c.MaxDurationMs = 3_600_001 }, "max_duration_ms"},
		{"min silence too short", func(c *SplitConfig) { c.MinSilenceLenMs = 99 }, "min_silence_len_ms"},
		{"min silence too long", func(c *SplitConfig) { c.MinSilenceLenMs = 5_001 }, "min_silence_len_ms"},
		{"threshold too low", func(c *SplitConfig) { c.SilenceThreshDB = -80.5 }, "silence_thresh_db"},
		{"threshold positive", func(c *SplitConfig) { c.SilenceThreshDB = 0.1 }, "silence_thresh_db"},
		{"threshold NaN", func(c *SplitConfig) { c.SilenceThreshDB = math.NaN() }, "silence_thresh_db"},
		{"unknown mode", func(c *SplitConfig) { c.Mode = "fastest" }, "mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSplitConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestDefaultSplitConfig(t *testing.T) {
	cfg := DefaultSplitConfig()

	assert.Equal(t, 60_000, cfg.MaxDurationMs)
	assert.Equal(t, 1_000, cfg.MinSilenceLenMs)
	assert.Equal(t, -40.0, cfg.SilenceThreshDB)
	assert.Equal(t, ModeSilence, cfg.Mode)
}
