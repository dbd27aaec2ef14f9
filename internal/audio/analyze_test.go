package audio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_InvalidConfig(t *testing.T) {
	cfg := DefaultSplitConfig()
	cfg.MaxDurationMs = 0

	_, err := Analyze(buildTrack(8000, tone(1000)), cfg)

	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAnalyze_EmptyTrack(t *testing.T) {
	result, err := Analyze(NewTrack(8000, 1, nil), DefaultSplitConfig())

	require.NoError(t, err)
	assert.Equal(t, 0.0, result.DurationMs)
	assert.Empty(t, result.Silences)
	assert.Empty(t, result.Plan)
}

func TestAnalyze_CutsInsideSilence(t *testing.T) {
	// 4s of sound, 1.2s pause, 4.8s of sound; the cut belongs in the pause.
	track := buildTrack(8000, tone(4000), silence(1200), tone(4800))
	cfg := SplitConfig{MaxDurationMs: 10_000, MinSilenceLenMs: 1000, SilenceThreshDB: -40}

	result, err := Analyze(track, cfg)

	require.NoError(t, err)
	require.Len(t, result.Silences, 1)
	require.Len(t, result.Plan, 2)
	assert.Equal(t, 4600.0, result.Plan[0].EndMs)
	assert.Equal(t, result.Silences[0].Midpoint(), result.Plan[1].StartMs)
	assert.NoError(t, result.Plan.Verify(result.DurationMs, cfg.MaxDurationMs))
}

func TestAnalyze_BoundaryValues(t *testing.T) {
	track := buildTrack(8000, tone(1500), silence(200), tone(2300))
	cfg := SplitConfig{MaxDurationMs: 1_000, MinSilenceLenMs: 100, SilenceThreshDB: 0}

	result, err := Analyze(track, cfg)

	require.NoError(t, err)
	require.Len(t, result.Silences, 1, "at 0 dB the unclipped track is a single silence run")
	assert.Equal(t, SilenceInterval{StartMs: 0, EndMs: 4000}, result.Silences[0])
	assert.NoError(t, result.Plan.Verify(4000, 1_000))
}

func TestAnalyze_PackedMode(t *testing.T) {
	track := buildTrack(8000,
		tone(2000), silence(500), tone(2000), silence(500), tone(2000), silence(500), tone(2500))
	cfg := SplitConfig{MaxDurationMs: 6_000, MinSilenceLenMs: 300, SilenceThreshDB: -40, Mode: ModePacked}

	result, err := Analyze(track, cfg)

	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{0, 4750}, {4750, 10000}}, bounds(result.Plan))

	cfg.Mode = ModeSilence
	result, err = Analyze(track, cfg)
	require.NoError(t, err)
	assert.Len(t, result.Plan, 4)
}

func TestAnalyze_ConcurrentTracks(t *testing.T) {
	tracks := []*Track{
		buildTrack(8000, tone(3000), silence(1000), tone(3000)),
		buildTrack(16000, silence(500), tone(9000)),
		buildTrack(8000, tone(12000)),
	}
	cfg := SplitConfig{MaxDurationMs: 5_000, MinSilenceLenMs: 400, SilenceThreshDB: -40}

	want := make([]*Analysis, len(tracks))
	for i, tr := range tracks {
		res, err := Analyze(tr, cfg)
		require.NoError(t, err)
		want[i] = res
	}

	var wg sync.WaitGroup
	for round := 0; round < 4; round++ {
		for i, tr := range tracks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := Analyze(tr, cfg)
				assert.NoError(t, err)
				assert.Equal(t, want[i], res)
			}()
		}
	}
	wg.Wait()
}

func TestAnalyze_FractionalSilenceEdgeAt44k(t *testing.T) {
	// At 44.1kHz a 1ms window is 44 frames, so the silence ends between milliseconds.
	track := buildTrack(44100, silence(1000), tone(10_000))

	for _, maxMs := range []int{1000, 1234, 2000, 3000, 3333} {
		cfg := SplitConfig{MaxDurationMs: maxMs, MinSilenceLenMs: 100, SilenceThreshDB: -40}

		result, err := Analyze(track, cfg)

		require.NoError(t, err)
		require.Len(t, result.Silences, 1)
		assert.NotEqual(t, 1000.0, result.Silences[0].EndMs)
		require.NoError(t, result.Plan.Verify(result.DurationMs, maxMs), "max=%d", maxMs)
		for _, seg := range result.Plan {
			assert.LessOrEqual(t, seg.Duration(), float64(maxMs))
		}
	}
}
