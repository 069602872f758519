package tts

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

// Config captures runtime settings for speech synthesis.
type Config struct {
	// Binary is the piper executable name or path.
	Binary string
	// VoicesDir holds piper voice models addressed by voice id.
	VoicesDir string
	// WorkDir receives synthesized audio artifacts.
	WorkDir string
}

// Service synthesizes narration audio from script text.
type Service struct {
	cfg Config
}

// NewService constructs a speech synthesis service.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "piper"
	}
	return &Service{cfg: cfg}
}

// Synthesize produces a WAV narration of the script with the given voice.
func (s *Service) Synthesize(ctx context.Context, scriptText, voice, jobID string) (queue.Artifact, error) {
	scriptText = strings.TrimSpace(scriptText)
	if scriptText == "" {
		return queue.Artifact{}, services.Wrap(services.ErrValidation, "tts", "synthesize", "script text is required", nil)
	}
	if voice = strings.TrimSpace(voice); voice == "" {
		return queue.Artifact{}, services.Wrap(services.ErrValidation, "tts", "synthesize", "voice is required", nil)
	}

	model := filepath.Join(s.cfg.VoicesDir, voice+".onnx")
	output := filepath.Join(s.cfg.WorkDir, fmt.Sprintf("pipeline_%s_tts.wav", jobID))
	args := []string{
		"--model", model,
		"--output_file", output,
	}

	cmd := exec.CommandContext(ctx, s.cfg.Binary, args...) //nolint:gosec
	cmd.Stdin = strings.NewReader(scriptText)
	if out, err := cmd.CombinedOutput(); err != nil {
		return queue.Artifact{}, services.Wrap(services.ErrExternalTool, "tts", "synthesize",
			strings.TrimSpace(string(out)), err)
	}
	return queue.Artifact{ID: uuid.NewString(), Path: output}, nil
}
