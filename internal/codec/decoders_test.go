package codec

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMP3Reader struct {
	data []byte
	rate int
	err  error
}

func (m *mockMP3Reader) Read(p []byte) (int, error) {
	if len(m.data) == 0 {
		if m.err != nil {
			return 0, m.err
		}
		return 0, io.EOF
	}
	// Odd-sized reads exercise the carry-over of split samples.
	n := copy(p[:min(len(p), 3)], m.data)
	m.data = m.data[n:]
	return n, nil
}

func (m *mockMP3Reader) SampleRate() int { return m.rate }

func pcm16(values ...int16) []byte {
	out := make([]byte, 0, len(values)*2)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint16(out, uint16(v))
	}
	return out
}

func TestReadMP3(t *testing.T) {
	dec := &mockMP3Reader{data: pcm16(16384, -16384, 0, 32767, 1), rate: 44100}

	a, err := readMP3(context.Background(), dec)
	require.NoError(t, err)

	assert.Equal(t, 44100, a.Track.SampleRate)
	assert.Equal(t, 2, a.Track.Channels)
	assert.Equal(t, 16, a.BitDepth)
	// The fifth value is half a frame and is dropped.
	assert.Equal(t, []float32{0.5, -0.5, 0, 32767.0 / 32768}, a.Track.Samples)
}

func TestReadMP3_Error(t *testing.T) {
	dec := &mockMP3Reader{data: pcm16(1, 2), rate: 44100, err: errors.New("bad frame")}
	_, err := readMP3(context.Background(), dec)
	assert.ErrorIs(t, err, ErrDecode)
}

type mockOggReader struct {
	chunks   [][]float32
	rate     int
	channels int
}

func (m *mockOggReader) SampleRate() int { return m.rate }
func (m *mockOggReader) Channels() int   { return m.channels }

func (m *mockOggReader) Read(p []float32) (int, error) {
	if len(m.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.chunks[0])
	m.chunks = m.chunks[1:]
	return n, nil
}

func TestReadVorbis(t *testing.T) {
	dec := &mockOggReader{
		chunks:   [][]float32{{0.1, 0.2}, {0.3, 0.4, 0.5}},
		rate:     48000,
		channels: 2,
	}

	a, err := readVorbis(context.Background(), dec)
	require.NoError(t, err)
	assert.Equal(t, 48000, a.Track.SampleRate)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, a.Track.Samples)
}

func TestReadVorbis_NoChannels(t *testing.T) {
	_, err := readVorbis(context.Background(), &mockOggReader{rate: 48000})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestReadVorbis_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dec := &mockOggReader{chunks: [][]float32{{0.1}}, rate: 8000, channels: 1}
	_, err := readVorbis(ctx, dec)
	assert.ErrorIs(t, err, context.Canceled)
}

type mockAIFFReader struct {
	format *goaudio.Format
	data   []int
}

func (m *mockAIFFReader) Format() *goaudio.Format { return m.format }

func (m *mockAIFFReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if len(m.data) == 0 {
		return 0, nil
	}
	n := copy(buf.Data, m.data)
	m.data = m.data[n:]
	return n, nil
}

func TestReadAIFF(t *testing.T) {
	dec := &mockAIFFReader{
		format: &goaudio.Format{NumChannels: 1, SampleRate: 22050},
		data:   []int{-32768, 16384, 0},
	}

	a, err := readAIFF(context.Background(), dec, 16)
	require.NoError(t, err)
	assert.Equal(t, 22050, a.Track.SampleRate)
	assert.Equal(t, 1, a.Track.Channels)
	assert.Equal(t, []float32{-1, 0.5, 0}, a.Track.Samples)
	assert.Equal(t, 2, a.Info().SampleWidth)
}

func TestReadAIFF_NoFormat(t *testing.T) {
	_, err := readAIFF(context.Background(), &mockAIFFReader{}, 16)
	assert.ErrorIs(t, err, ErrDecode)
}
