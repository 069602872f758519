package config

const (
	defaultDataDir              = "~/.local/share/clipforge/data"
	defaultAssetDir             = "~/.local/share/clipforge/assets"
	defaultWorkDir              = "~/.local/share/clipforge/work"
	defaultLogDir               = "~/.local/share/clipforge/logs"
	defaultAPIBind              = "127.0.0.1:7823"
	defaultWorkerWidth          = 2
	defaultExportMaxAttempts    = 3
	defaultJobRetentionHours    = 24
	defaultSweepIntervalSeconds = 300
	defaultScriptTimeout        = 120
	defaultVideoTimeout         = 600
	defaultTTSTimeout           = 300
	defaultSubtitlesTimeout     = 600
	defaultCompileTimeout       = 900
	defaultCacheMaxEntries      = 1000
	defaultCacheTTLHours        = 48
	defaultCacheSweepSeconds    = 600
	defaultFFmpegBinary         = "ffmpeg"
	defaultPiperBinary          = "piper"
	defaultWhisperBinary        = "whisper"
	defaultWhisperModel         = "base.en"
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds    = 60
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			AssetDir: defaultAssetDir,
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Workflow: Workflow{
			WorkerWidth:          defaultWorkerWidth,
			ExportMaxAttempts:    defaultExportMaxAttempts,
			JobRetentionHours:    defaultJobRetentionHours,
			SweepIntervalSeconds: defaultSweepIntervalSeconds,
		},
		StageTimeouts: StageTimeouts{
			Script:    defaultScriptTimeout,
			Video:     defaultVideoTimeout,
			TTS:       defaultTTSTimeout,
			Subtitles: defaultSubtitlesTimeout,
			Compile:   defaultCompileTimeout,
		},
		Cache: Cache{
			Enabled:              true,
			MaxEntries:           defaultCacheMaxEntries,
			TTLHours:             defaultCacheTTLHours,
			SweepIntervalSeconds: defaultCacheSweepSeconds,
		},
		Tools: Tools{
			FFmpegBinary:  defaultFFmpegBinary,
			PiperBinary:   defaultPiperBinary,
			WhisperBinary: defaultWhisperBinary,
			WhisperModel:  defaultWhisperModel,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
