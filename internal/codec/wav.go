package codec

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"github.com/maauso/audiosplit-api/internal/audio"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag; compressed and float WAVs are rejected.
const wavFormatPCM = 1

// WAVDecoder decodes integer PCM RIFF/WAVE files.
type WAVDecoder struct{}

// Decode implements Decoder.
func (WAVDecoder) Decode(_ context.Context, r io.Reader) (*Audio, error) {
	rs, err := readSeeker(r)
	if err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrDecode)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV format tag %d is not integer PCM", ErrDecode, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: read WAV samples: %v", ErrDecode, err)
	}
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("%w: WAV file has no format chunk", ErrDecode)
	}

	depth := int(dec.BitDepth)
	samples := normalizeInts(buf.Data, depth, true)
	return &Audio{
		Track:    audio.NewTrack(buf.Format.SampleRate, buf.Format.NumChannels, samples),
		BitDepth: depth,
	}, nil
}
