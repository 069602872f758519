package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"clipforge/internal/queue"
	"clipforge/internal/services"
)

// Config captures runtime settings for video processing.
type Config struct {
	// Binary is the ffmpeg executable name or path.
	Binary string
	// AssetDir holds background assets addressed by id.
	AssetDir string
	// WorkDir receives intermediate and final artifacts.
	WorkDir string
}

// Service crops backgrounds to the vertical target ratio and applies the
// optional speed ramp effect.
type Service struct {
	cfg Config
}

// NewService constructs a video processing service.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	return &Service{cfg: cfg}
}

// cropFilter scales and center-crops to 1080x1920 (9:16).
const cropFilter = "scale=-2:1920,crop=1080:1920"

// speedRampFilter accelerates playback 1.25x after the opening two seconds.
const speedRampFilter = "setpts=if(lt(T\\,2)\\,PTS\\,2/TB+(PTS-2/TB)/1.25)"

// Crop resolves the background reference and crops it to the vertical
// aspect ratio, returning the intermediate artifact.
func (s *Service) Crop(ctx context.Context, backgroundRef, jobID string) (queue.Artifact, error) {
	source, err := s.resolveBackground(backgroundRef)
	if err != nil {
		return queue.Artifact{}, err
	}

	output := filepath.Join(s.cfg.WorkDir, fmt.Sprintf("pipeline_%s_cropped.mp4", jobID))
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vf", cropFilter,
		"-an",
		output,
	}
	if err := s.run(ctx, "crop", args); err != nil {
		return queue.Artifact{}, err
	}
	return queue.Artifact{ID: uuid.NewString(), Path: output}, nil
}

// SpeedRamp applies the speed ramp effect to an already-cropped video.
func (s *Service) SpeedRamp(ctx context.Context, input queue.Artifact, jobID string) (queue.Artifact, error) {
	output := filepath.Join(s.cfg.WorkDir, fmt.Sprintf("pipeline_%s_ramp.mp4", jobID))
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input.Path,
		"-vf", speedRampFilter,
		"-an",
		output,
	}
	if err := s.run(ctx, "speed ramp", args); err != nil {
		return queue.Artifact{}, err
	}
	return queue.Artifact{ID: uuid.NewString(), Path: output}, nil
}

// resolveBackground maps a background reference to a concrete file. A
// reference containing a path separator is used as a path directly; anything
// else is treated as an asset id under AssetDir.
func (s *Service) resolveBackground(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", services.Wrap(services.ErrValidation, "video", "resolve background", "background reference is required", nil)
	}

	var candidate string
	if strings.ContainsRune(ref, os.PathSeparator) || strings.ContainsRune(ref, '/') {
		candidate = filepath.Clean(ref)
	} else {
		candidate = filepath.Join(s.cfg.AssetDir, "backgrounds", ref+".mp4")
	}

	if _, err := os.Stat(candidate); err != nil {
		return "", services.Wrap(services.ErrNotFound, "video", "resolve background",
			fmt.Sprintf("background %q not found at %s", ref, candidate), err)
	}
	return candidate, nil
}

func (s *Service) run(ctx context.Context, operation string, args []string) error {
	cmd := exec.CommandContext(ctx, s.cfg.Binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrExternalTool, "video", operation,
			strings.TrimSpace(string(output)), err)
	}
	return nil
}
