// Package commands implements the audiosplit CLI.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maauso/audiosplit-api/internal/audio"
	"github.com/maauso/audiosplit-api/internal/codec"
	"github.com/maauso/audiosplit-api/internal/config"
	"github.com/maauso/audiosplit-api/internal/job/id"
)

// options holds the flags shared by every command.
type options struct {
	maxDurationSec float64
	minSilenceMs   int
	silenceThresh  float64
	mode           string
	ffmpegPath     string
	logLevel       string
}

func (o *options) splitConfig() audio.SplitConfig {
	return audio.SplitConfig{
		MaxDurationMs:   int(o.maxDurationSec * 1000),
		MinSilenceLenMs: o.minSilenceMs,
		SilenceThreshDB: o.silenceThresh,
		Mode:            audio.Mode(strings.ToLower(o.mode)),
	}
}

func (o *options) logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: config.ParseLogLevel(o.logLevel)}))
}

func (o *options) registry() *codec.Registry {
	r := codec.DefaultRegistry()
	r.RegisterFFmpeg(codec.NewFFmpegDecoder(o.ffmpegPath))
	return r
}

// decodeFile decodes path with the decoder its extension selects.
func (o *options) decodeFile(ctx context.Context, path string) (*codec.Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return o.registry().Decode(ctx, path, f)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	defaults := audio.DefaultSplitConfig()

	root := &cobra.Command{
		Use:   "audiosplit",
		Short: "Split audio files at silences",
		Long: `audiosplit - cut long recordings into clips at silent passages.

Every clip stays at or under --max-duration seconds. Cuts land in the middle
of silences at least --min-silence ms long; where a stretch has no usable
silence, it is cut exactly at the limit.

Supported formats: wav, aiff, mp3, ogg, plus flac, m4a, aac, opus, webm
and wma when ffmpeg is installed.

Examples:
  # Inspect a file
  audiosplit info interview.mp3

  # Preview the cuts without writing anything
  audiosplit plan interview.mp3 --max-duration 30

  # Render clips and a zip of them
  audiosplit split interview.mp3 --out ./clips --zip clips.zip`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.Float64Var(&opts.maxDurationSec, "max-duration", float64(defaults.MaxDurationMs)/1000, "longest allowed clip in seconds")
	pf.IntVar(&opts.minSilenceMs, "min-silence", defaults.MinSilenceLenMs, "shortest silence that may become a cut, in ms")
	pf.Float64Var(&opts.silenceThresh, "silence-thresh", defaults.SilenceThreshDB, "loudness in dBFS at or below which audio is silent")
	pf.StringVar(&opts.mode, "mode", string(defaults.Mode), "split mode: silence or packed")
	pf.StringVar(&opts.ffmpegPath, "ffmpeg", "", "ffmpeg binary for extra formats (default: look up in PATH)")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newInfoCmd(opts),
		newPlanCmd(opts),
		newSplitCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// baseName is the clip prefix for path: its sanitised name without extension.
func baseName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if safe := id.SafeName(stem); safe != "" {
		return safe
	}
	return "audio"
}

func formatMs(ms float64) string {
	return fmt.Sprintf("%.3fs", ms/1000)
}
