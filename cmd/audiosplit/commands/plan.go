package commands

import (
	"github.com/spf13/cobra"

	"github.com/maauso/audiosplit-api/internal/audio"
	"github.com/maauso/audiosplit-api/internal/codec"
)

// planOutput is what the plan command prints.
type planOutput struct {
	File     string            `json:"file"`
	Info     codec.Info        `json:"audio_info"`
	Config   audio.SplitConfig `json:"config"`
	Analysis *audio.Analysis   `json:"analysis"`
}

func newPlanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <file>",
		Short: "Print detected silences and the segment plan as JSON",
		Long: `Decode a file, detect its silences and plan the cuts without
writing any audio. Offsets are in milliseconds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.splitConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}

			decoded, err := opts.decodeFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			analysis, err := audio.Analyze(decoded.Track, cfg)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), planOutput{
				File:     args[0],
				Info:     decoded.Info(),
				Config:   cfg,
				Analysis: analysis,
			})
		},
	}
}
