package export

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"clipforge/internal/queue"
	"clipforge/internal/services"
)

// Config captures runtime settings for final compilation and re-encoding.
type Config struct {
	// Binary is the ffmpeg executable name or path.
	Binary string
	// WorkDir receives final artifacts.
	WorkDir string
}

// Service multiplexes processed video, narration audio, and subtitles into
// the final deliverable, and re-encodes finished videos for export batches.
type Service struct {
	cfg Config
}

// NewService constructs an export service.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	return &Service{cfg: cfg}
}

// CompileInput names everything the final mux needs.
type CompileInput struct {
	Video              queue.Artifact
	Audio              queue.Artifact
	Subtitles          *queue.Artifact
	Preset             string
	AddProgressBar     bool
	PartBadge          bool
	AudioNormalization bool
}

// presetArgs maps export presets to encoder settings.
var presetArgs = map[string][]string{
	"1080p": {"-c:v", "libx264", "-preset", "medium", "-crf", "20", "-s", "1080x1920"},
	"720p":  {"-c:v", "libx264", "-preset", "medium", "-crf", "23", "-s", "720x1280"},
	"draft": {"-c:v", "libx264", "-preset", "ultrafast", "-crf", "28", "-s", "540x960"},
}

func argsForPreset(preset string) []string {
	if args, ok := presetArgs[strings.TrimSpace(preset)]; ok {
		return args
	}
	return presetArgs["1080p"]
}

// Compile combines the pipeline's artifacts into the final video.
func (s *Service) Compile(ctx context.Context, input CompileInput, jobID string) (queue.Artifact, error) {
	if input.Video.Path == "" || input.Audio.Path == "" {
		return queue.Artifact{}, services.Wrap(services.ErrValidation, "export", "compile",
			"video and audio artifacts are required", nil)
	}

	output := filepath.Join(s.cfg.WorkDir, fmt.Sprintf("pipeline_%s_final.mp4", jobID))
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input.Video.Path,
		"-i", input.Audio.Path,
	}

	var filters []string
	if input.Subtitles != nil && input.Subtitles.Path != "" {
		filters = append(filters, "subtitles="+escapeFilterPath(input.Subtitles.Path))
	}
	if input.AddProgressBar {
		filters = append(filters, "drawbox=y=ih-12:w=iw*t/duration:h=12:color=white@0.8:t=fill")
	}
	if input.PartBadge {
		filters = append(filters, "drawtext=text='Part 1':x=w-tw-24:y=24:fontsize=48:fontcolor=white")
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}
	if input.AudioNormalization {
		args = append(args, "-af", "loudnorm=I=-16:TP=-1.5:LRA=11")
	}

	args = append(args, argsForPreset(input.Preset)...)
	args = append(args,
		"-c:a", "aac",
		"-shortest",
		output,
	)
	if err := s.run(ctx, "compile", args); err != nil {
		return queue.Artifact{}, err
	}
	return queue.Artifact{ID: uuid.NewString(), Path: output}, nil
}

// Reencode converts an already-produced video to the requested format and
// preset for export batches.
func (s *Service) Reencode(ctx context.Context, spec queue.ExportSpec) (queue.Artifact, error) {
	if strings.TrimSpace(spec.VideoID) == "" {
		return queue.Artifact{}, services.Wrap(services.ErrValidation, "export", "reencode", "videoId is required", nil)
	}
	format := strings.TrimSpace(spec.Format)
	if format == "" {
		format = "mp4"
	}

	source := filepath.Join(s.cfg.WorkDir, spec.VideoID+".mp4")
	output := filepath.Join(s.cfg.WorkDir, fmt.Sprintf("export_%s_%s.%s", spec.VideoID, uuid.NewString()[:8], format))
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
	}
	args = append(args, argsForPreset(spec.Preset)...)
	args = append(args, "-c:a", "aac", output)

	if err := s.run(ctx, "reencode", args); err != nil {
		return queue.Artifact{}, err
	}
	return queue.Artifact{ID: uuid.NewString(), Path: output}, nil
}

func (s *Service) run(ctx context.Context, operation string, args []string) error {
	cmd := exec.CommandContext(ctx, s.cfg.Binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrExternalTool, "export", operation,
			strings.TrimSpace(string(output)), err)
	}
	return nil
}

// escapeFilterPath quotes characters the subtitles filter would otherwise
// interpret.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`)
	return replacer.Replace(path)
}
