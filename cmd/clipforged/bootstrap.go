package main

import (
	"log/slog"
	"path/filepath"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/pipeline"
	"clipforge/internal/rendercache"
	"clipforge/internal/services/export"
	"clipforge/internal/services/ffmpeg"
	"clipforge/internal/services/script"
	"clipforge/internal/services/tts"
	"clipforge/internal/services/whisper"
)

func buildExecutors(cfg *config.Config) pipeline.Executors {
	return pipeline.Executors{
		Script: script.NewClient(cfg.LLM),
		Video: ffmpeg.NewService(ffmpeg.Config{
			Binary:   cfg.Tools.FFmpegBinary,
			AssetDir: cfg.Paths.AssetDir,
			WorkDir:  cfg.Paths.WorkDir,
		}),
		TTS: tts.NewService(tts.Config{
			Binary:    cfg.Tools.PiperBinary,
			VoicesDir: cfg.Tools.VoicesDir,
			WorkDir:   cfg.Paths.WorkDir,
		}),
		Subs: whisper.NewService(whisper.Config{
			Binary:  cfg.Tools.WhisperBinary,
			Model:   cfg.Tools.WhisperModel,
			WorkDir: cfg.Paths.WorkDir,
		}),
		Export: buildExporter(cfg),
	}
}

func buildExporter(cfg *config.Config) *export.Service {
	return export.NewService(export.Config{
		Binary:  cfg.Tools.FFmpegBinary,
		WorkDir: cfg.Paths.WorkDir,
	})
}

func buildCache(cfg *config.Config, logger *slog.Logger) *rendercache.Cache {
	if !cfg.Cache.Enabled {
		return nil
	}
	return rendercache.New(
		filepath.Join(cfg.Paths.DataDir, "rendercache.json"),
		cfg.Cache.MaxEntries,
		time.Duration(cfg.Cache.TTLHours)*time.Hour,
		logger,
	)
}
