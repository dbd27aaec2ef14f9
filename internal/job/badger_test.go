package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/audiosplit-api/internal/audio"
	"github.com/maauso/audiosplit-api/internal/codec"
	"github.com/maauso/audiosplit-api/internal/render"
)

func newTestBadger(t *testing.T) *BadgerRepository {
	t.Helper()
	repo, err := NewBadgerRepository(BadgerOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestNewBadgerRepository_RequiresDir(t *testing.T) {
	_, err := NewBadgerRepository(BadgerOptions{})
	assert.Error(t, err)
}

func TestBadgerRepository_RoundTrip(t *testing.T) {
	repo := newTestBadger(t)
	ctx := context.Background()

	job := NewWithID("20240301_141502_talk_3f2a9c1d", "talk.wav")
	job.InputPath = "/tmp/in/talk_1.wav"
	job.Info = codec.Info{DurationSeconds: 12.5, Channels: 2, SampleRate: 44100, SampleWidth: 2}
	job.Params = audio.SplitConfig{MaxDurationMs: 5000, MinSilenceLenMs: 300, SilenceThreshDB: -35.5, Mode: audio.ModePacked}
	require.NoError(t, job.Start())
	require.NoError(t, job.Complete(3, []render.Output{
		{Index: 0, Filename: "talk_part_001.wav", Path: "/tmp/out/talk_part_001.wav", StartMs: 0, EndMs: 4999.5, Bytes: 44},
	}))

	require.NoError(t, repo.Save(ctx, job))

	got, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, job.InputPath, got.InputPath)
	assert.Equal(t, job.Info, got.Info)
	assert.Equal(t, job.Params, got.Params)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 3, got.Silences)
	assert.Equal(t, job.Segments, got.Segments)
	assert.True(t, job.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, job.CompletedAt.Equal(got.CompletedAt))
}

func TestBadgerRepository_NotFound(t *testing.T) {
	repo := newTestBadger(t)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), ErrJobNotFound)
}

func TestBadgerRepository_ListAndDelete(t *testing.T) {
	repo := newTestBadger(t)
	ctx := context.Background()

	jobs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	base := time.Now()
	for i, name := range []string{"z", "m", "a"} {
		job := NewWithID(name, name+".wav")
		job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Save(ctx, job))
	}

	jobs, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"z", "m", "a"}, []string{jobs[0].ID, jobs[1].ID, jobs[2].ID})

	require.NoError(t, repo.Delete(ctx, "m"))
	jobs, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestBadgerRepository_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := NewBadgerRepository(BadgerOptions{Dir: dir})
	require.NoError(t, err)
	job := NewWithID("persisted", "a.wav")
	require.NoError(t, repo.Save(ctx, job))
	require.NoError(t, repo.Close())

	repo, err = NewBadgerRepository(BadgerOptions{Dir: dir})
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.FindByID(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, StatusUploaded, got.Status)
}
