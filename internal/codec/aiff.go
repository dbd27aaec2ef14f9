package codec

import (
	"context"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"

	"github.com/maauso/audiosplit-api/internal/audio"
)

// aiffReader is the part of aiff.Decoder used here, split out for tests.
type aiffReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// AIFFDecoder decodes uncompressed AIFF files.
type AIFFDecoder struct{}

// Decode implements Decoder.
func (AIFFDecoder) Decode(ctx context.Context, r io.Reader) (*Audio, error) {
	rs, err := readSeeker(r)
	if err != nil {
		return nil, err
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid AIFF file", ErrDecode)
	}
	dec.ReadInfo()

	return readAIFF(ctx, dec, int(dec.BitDepth))
}

func readAIFF(ctx context.Context, dec aiffReader, bitDepth int) (*Audio, error) {
	format := dec.Format()
	if format == nil || format.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: unsupported AIFF layout", ErrDecode)
	}

	buf := &goaudio.IntBuffer{Data: make([]int, 4096*format.NumChannels), Format: format}
	var samples []float32
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := dec.PCMBuffer(buf)
		if n > 0 {
			samples = append(samples, normalizeInts(buf.Data[:n], bitDepth, false)...)
		}
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("%w: read AIFF samples: %v", ErrDecode, err)
		}
		if n == 0 || err == io.EOF {
			break
		}
	}

	return &Audio{
		Track:    audio.NewTrack(format.SampleRate, format.NumChannels, samples),
		BitDepth: bitDepth,
	}, nil
}
