package whisper

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

// Config captures runtime settings for transcription.
type Config struct {
	// Binary is the whisper executable name or path.
	Binary string
	// Model selects the whisper model (e.g. "base.en").
	Model string
	// WorkDir receives subtitle artifacts.
	WorkDir string
}

// Service produces subtitle tracks aligned to synthesized narration audio.
// Subtitles come from the audio rather than the raw script so their timing
// matches what was actually spoken.
type Service struct {
	cfg Config
}

// NewService constructs a transcription service.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "whisper"
	}
	if cfg.Model == "" {
		cfg.Model = "base.en"
	}
	return &Service{cfg: cfg}
}

// Transcribe generates an SRT subtitle track for the audio artifact.
func (s *Service) Transcribe(ctx context.Context, audio queue.Artifact, jobID string) (queue.Artifact, error) {
	if strings.TrimSpace(audio.Path) == "" {
		return queue.Artifact{}, services.Wrap(services.ErrValidation, "subs", "transcribe", "audio path is required", nil)
	}

	args := []string{
		audio.Path,
		"--model", s.cfg.Model,
		"--language", "en",
		"--output_format", "srt",
		"--output_dir", s.cfg.WorkDir,
	}
	cmd := exec.CommandContext(ctx, s.cfg.Binary, args...) //nolint:gosec
	if out, err := cmd.CombinedOutput(); err != nil {
		return queue.Artifact{}, services.Wrap(services.ErrExternalTool, "subs", "transcribe",
			strings.TrimSpace(string(out)), err)
	}

	base := strings.TrimSuffix(filepath.Base(audio.Path), filepath.Ext(audio.Path))
	output := filepath.Join(s.cfg.WorkDir, fmt.Sprintf("%s.srt", base))
	return queue.Artifact{ID: uuid.NewString(), Path: output}, nil
}
