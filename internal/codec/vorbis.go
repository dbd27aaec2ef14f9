package codec

import (
	"context"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/maauso/audiosplit-api/internal/audio"
)

// oggReader is the part of oggvorbis.Reader used here, split out for tests.
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

// VorbisDecoder decodes Ogg Vorbis files. Output is reported as 16-bit.
type VorbisDecoder struct{}

// Decode implements Decoder.
func (VorbisDecoder) Decode(ctx context.Context, r io.Reader) (*Audio, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open Ogg Vorbis stream: %v", ErrDecode, err)
	}
	return readVorbis(ctx, dec)
}

func readVorbis(ctx context.Context, dec oggReader) (*Audio, error) {
	channels := dec.Channels()
	if channels <= 0 {
		return nil, fmt.Errorf("%w: Ogg Vorbis stream has no channels", ErrDecode)
	}

	buf := make([]float32, 4096*channels)
	var samples []float32
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := dec.Read(buf)
		samples = append(samples, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read Ogg Vorbis packets: %v", ErrDecode, err)
		}
		if n == 0 {
			break
		}
	}

	samples = samples[:len(samples)-len(samples)%channels]
	return &Audio{
		Track:    audio.NewTrack(dec.SampleRate(), channels, samples),
		BitDepth: 16,
	}, nil
}
