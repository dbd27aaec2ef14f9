package codec

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/maauso/audiosplit-api/internal/audio"
)

// mp3Reader is the part of gomp3.Decoder used here, split out for tests.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

// go-mp3 always produces 16-bit little-endian stereo.
const (
	mp3Channels = 2
	mp3BitDepth = 16
)

// MP3Decoder decodes MPEG-1/2 layer III files.
type MP3Decoder struct{}

// Decode implements Decoder.
func (MP3Decoder) Decode(ctx context.Context, r io.Reader) (*Audio, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open MP3 stream: %v", ErrDecode, err)
	}
	return readMP3(ctx, dec)
}

func readMP3(ctx context.Context, dec mp3Reader) (*Audio, error) {
	buf := make([]byte, 8192)
	var (
		samples []float32
		pending []byte
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := dec.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			whole := len(pending) &^ 1
			for i := 0; i < whole; i += 2 {
				v := int16(binary.LittleEndian.Uint16(pending[i:]))
				samples = append(samples, float32(v)/32768)
			}
			pending = pending[whole:]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read MP3 frames: %v", ErrDecode, err)
		}
		if n == 0 {
			break
		}
	}

	// Drop a trailing half frame so the buffer stays channel-aligned.
	samples = samples[:len(samples)-len(samples)%mp3Channels]
	return &Audio{
		Track:    audio.NewTrack(dec.SampleRate(), mp3Channels, samples),
		BitDepth: mp3BitDepth,
	}, nil
}
