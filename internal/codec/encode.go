package codec

import (
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrEmptyAudio is returned when asked to write a WAV with no frames.
var ErrEmptyAudio = errors.New("no audio frames to write")

const (
	wavOutBitDepth = 16
	writeChunk     = 8192
)

// WriteWAV encodes interleaved samples in [-1, 1] as 16-bit PCM WAV.
// Values outside the range are clipped.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate, channels int) error {
	if channels <= 0 || sampleRate <= 0 {
		return fmt.Errorf("invalid layout: %d Hz, %d channels", sampleRate, channels)
	}
	if len(samples) < channels {
		return ErrEmptyAudio
	}
	samples = samples[:len(samples)-len(samples)%channels]

	enc := wav.NewEncoder(w, sampleRate, wavOutBitDepth, channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: wavOutBitDepth,
	}

	step := writeChunk * channels
	data := make([]int, 0, min(step, len(samples)))
	for i := 0; i < len(samples); i += step {
		chunk := samples[i:min(i+step, len(samples))]
		data = data[:0]
		for _, s := range chunk {
			data = append(data, toInt16(s))
		}
		buf.Data = data
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("write wav samples: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

func toInt16(s float32) int {
	if s != s {
		return 0
	}
	v := math.Round(float64(s) * 32767)
	return int(max(-32768, min(32767, v)))
}
