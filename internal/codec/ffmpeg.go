package codec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// FFmpegExtensions are the containers handed to ffmpeg when it is installed.
var FFmpegExtensions = []string{"flac", "m4a", "aac", "opus", "webm", "wma"}

// FFmpegDecoder converts any container ffmpeg understands to 16-bit PCM WAV
// and decodes the result with WAVDecoder.
type FFmpegDecoder struct {
	ffmpegPath string
}

// NewFFmpegDecoder creates a new FFmpegDecoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegDecoder(ffmpegPath string) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath}
}

// Available reports whether the ffmpeg binary can be found.
func (d *FFmpegDecoder) Available() bool {
	_, err := exec.LookPath(d.ffmpegPath)
	return err == nil
}

// Decode implements Decoder.
func (d *FFmpegDecoder) Decode(ctx context.Context, r io.Reader) (*Audio, error) {
	dir, err := os.MkdirTemp("", "audiosplit-ffmpeg-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inputPath := filepath.Join(dir, "input")
	outputPath := filepath.Join(dir, "output.wav")

	in, err := os.Create(inputPath)
	if err != nil {
		return nil, fmt.Errorf("create temp input: %w", err)
	}
	if _, err := io.Copy(in, r); err != nil {
		in.Close()
		return nil, fmt.Errorf("write temp input: %w", err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("close temp input: %w", err)
	}

	if err := d.convert(ctx, inputPath, outputPath); err != nil {
		return nil, err
	}

	out, err := os.Open(outputPath)
	if err != nil {
		return nil, fmt.Errorf("open converted wav: %w", err)
	}
	defer out.Close()

	return WAVDecoder{}.Decode(ctx, out)
}

// convert transcodes inputPath to 16-bit PCM WAV, keeping rate and channel layout.
func (d *FFmpegDecoder) convert(ctx context.Context, inputPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-f", "wav",
		outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: ffmpeg error: %v, stderr: %s", ErrDecode, err, stderr.String())
	}
	return nil
}

// RegisterFFmpeg binds FFmpegExtensions to d when the binary is available.
// It reports whether anything was registered.
func (r *Registry) RegisterFFmpeg(d *FFmpegDecoder) bool {
	if d == nil || !d.Available() {
		return false
	}
	r.Register(d, FFmpegExtensions...)
	return true
}
