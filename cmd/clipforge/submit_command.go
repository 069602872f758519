package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		scriptFile     string
		topic          string
		genre          string
		background     string
		voice          string
		preset         string
		noSubtitles    bool
		noSpeedRamp    bool
		progressBar    bool
		partBadge      bool
		normalizeAudio bool
		jsonFlag       bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a single render job",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := queue.Request{
				Topic:        topic,
				Genre:        genre,
				BackgroundID: background,
				Voice:        voice,
				Preset:       preset,
			}
			if scriptFile != "" {
				data, err := os.ReadFile(scriptFile)
				if err != nil {
					return fmt.Errorf("read script: %w", err)
				}
				req.Script = string(data)
			}
			if noSubtitles {
				disabled := false
				req.Options.GenerateSubtitles = &disabled
			}
			if noSpeedRamp {
				disabled := false
				req.Options.SpeedRamp = &disabled
			}
			req.Options.AddProgressBar = progressBar
			req.Options.PartBadge = partBadge
			req.Options.AudioNormalization = normalizeAudio

			var resp api.JobResponse
			if err := ctx.postJSON("/api/jobs", req, &resp); err != nil {
				return err
			}
			if useJSON(jsonFlag) {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s queued\n", resp.Job.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&scriptFile, "script", "", "Path to the narration script")
	cmd.Flags().StringVar(&topic, "topic", "", "Topic for generated narration (used when no script is given)")
	cmd.Flags().StringVar(&genre, "genre", "", "Genre hint for generated narration")
	cmd.Flags().StringVar(&background, "background", "", "Background asset id or path")
	cmd.Flags().StringVar(&voice, "voice", "", "Narration voice id")
	cmd.Flags().StringVar(&preset, "preset", "", "Output preset (1080p, 720p, draft)")
	cmd.Flags().BoolVar(&noSubtitles, "no-subtitles", false, "Skip subtitle generation")
	cmd.Flags().BoolVar(&noSpeedRamp, "no-speed-ramp", false, "Skip the speed ramp effect")
	cmd.Flags().BoolVar(&progressBar, "progress-bar", false, "Overlay a progress bar on the final video")
	cmd.Flags().BoolVar(&partBadge, "part-badge", false, "Overlay a part badge on the final video")
	cmd.Flags().BoolVar(&normalizeAudio, "normalize-audio", false, "Apply loudness normalization")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")

	return cmd
}
