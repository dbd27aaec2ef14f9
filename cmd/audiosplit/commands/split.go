package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/maauso/audiosplit-api/internal/audio"
	"github.com/maauso/audiosplit-api/internal/render"
)

func newSplitCmd(opts *options) *cobra.Command {
	var (
		outDir  string
		zipPath string
	)

	cmd := &cobra.Command{
		Use:   "split <file>",
		Short: "Render each planned segment to a WAV file",
		Long: `Decode a file, plan the cuts and write one 16-bit WAV per segment
into --out, named <name>_part_001.wav, <name>_part_002.wav and so on.
With --zip the clips are also packed into one archive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				return errors.New("--out is required")
			}
			cfg := opts.splitConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}

			decoded, err := opts.decodeFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return splitTrack(cmd.Context(), splitTarget{
				out:     cmd.OutOrStdout(),
				logger:  opts.logger(cmd.ErrOrStderr()),
				outDir:  outDir,
				zipPath: zipPath,
				base:    baseName(args[0]),
			}, decoded.Track, cfg)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory for the rendered clips (required)")
	cmd.Flags().StringVar(&zipPath, "zip", "", "also write all clips into this zip file")
	return cmd
}

func writeZip(path string, outputs []render.Output) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return render.WriteArchive(f, outputs)
}

// splitTarget says where split writes clips and reports them.
type splitTarget struct {
	out     io.Writer
	logger  *slog.Logger
	outDir  string
	zipPath string
	base    string
}

// splitTrack plans track and renders the clips. An empty track is reported, not an error.
func splitTrack(ctx context.Context, t splitTarget, track *audio.Track, cfg audio.SplitConfig) error {
	analysis, err := audio.Analyze(track, cfg)
	if err != nil {
		return err
	}
	if err := analysis.Plan.Verify(analysis.DurationMs, cfg.MaxDurationMs); err != nil {
		return err
	}
	t.logger.Info("plan ready",
		slog.Int("silences", len(analysis.Silences)),
		slog.Int("segments", len(analysis.Plan)),
	)

	if len(analysis.Plan) == 0 {
		fmt.Fprintln(t.out, "no segments: track is empty")
		return nil
	}

	outputs, err := render.NewRenderer(t.outDir, t.logger).Render(ctx, track, analysis.Plan, t.base)
	if err != nil {
		return err
	}

	for _, o := range outputs {
		fmt.Fprintf(t.out, "%s\t%s - %s\n", o.Path, formatMs(o.StartMs), formatMs(o.EndMs))
	}

	if t.zipPath != "" {
		if err := writeZip(t.zipPath, outputs); err != nil {
			return err
		}
		fmt.Fprintf(t.out, "%s\t%d files\n", t.zipPath, len(outputs))
	}
	return nil
}
