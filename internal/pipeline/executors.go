package pipeline

import (
	"context"

	"clipforge/internal/queue"
	"clipforge/internal/services/export"
)

// ScriptGenerator produces narration text from a topic.
type ScriptGenerator interface {
	Generate(ctx context.Context, topic, genre string) (string, error)
}

// VideoProcessor prepares the background clip: portrait crop first, then an
// optional speed ramp.
type VideoProcessor interface {
	Crop(ctx context.Context, backgroundRef, jobID string) (queue.Artifact, error)
	SpeedRamp(ctx context.Context, input queue.Artifact, jobID string) (queue.Artifact, error)
}

// Narrator synthesizes narration audio from script text.
type Narrator interface {
	Synthesize(ctx context.Context, scriptText, voice, jobID string) (queue.Artifact, error)
}

// Transcriber produces a subtitle file from narration audio.
type Transcriber interface {
	Transcribe(ctx context.Context, audio queue.Artifact, jobID string) (queue.Artifact, error)
}

// Compiler muxes the stage artifacts into the final clip.
type Compiler interface {
	Compile(ctx context.Context, input export.CompileInput, jobID string) (queue.Artifact, error)
}

// Executors bundles every stage dependency the engine needs. Tests substitute
// scripted implementations.
type Executors struct {
	Script ScriptGenerator
	Video  VideoProcessor
	TTS    Narrator
	Subs   Transcriber
	Export Compiler
}
