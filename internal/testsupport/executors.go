package testsupport

import (
	"context"
	"sync/atomic"

	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
	"clipforge/internal/services/export"
)

// StubExecutors provides scripted stage executors with call counters. Every
// stage succeeds unless its error field is set.
type StubExecutors struct {
	ScriptText string
	ScriptErr  error
	CropErr    error
	RampErr    error
	TTSErr     error
	SubsErr    error
	CompileErr error

	ScriptCalls  atomic.Int64
	CropCalls    atomic.Int64
	RampCalls    atomic.Int64
	TTSCalls     atomic.Int64
	SubsCalls    atomic.Int64
	CompileCalls atomic.Int64
}

// NewStubExecutors returns a stub set wired into a pipeline.Executors value.
func NewStubExecutors() *StubExecutors {
	return &StubExecutors{ScriptText: "generated script"}
}

// Executors adapts the stub to the engine's dependency bundle.
func (s *StubExecutors) Executors() pipeline.Executors {
	return pipeline.Executors{
		Script: scriptStub{s},
		Video:  videoStub{s},
		TTS:    ttsStub{s},
		Subs:   subsStub{s},
		Export: compileStub{s},
	}
}

// TotalCalls sums every stage invocation, which cache hit tests assert stays
// at zero.
func (s *StubExecutors) TotalCalls() int64 {
	return s.ScriptCalls.Load() +
		s.CropCalls.Load() +
		s.RampCalls.Load() +
		s.TTSCalls.Load() +
		s.SubsCalls.Load() +
		s.CompileCalls.Load()
}

type scriptStub struct{ s *StubExecutors }

func (st scriptStub) Generate(ctx context.Context, topic, genre string) (string, error) {
	st.s.ScriptCalls.Add(1)
	if st.s.ScriptErr != nil {
		return "", st.s.ScriptErr
	}
	return st.s.ScriptText, nil
}

type videoStub struct{ s *StubExecutors }

func (st videoStub) Crop(ctx context.Context, backgroundRef, jobID string) (queue.Artifact, error) {
	st.s.CropCalls.Add(1)
	if st.s.CropErr != nil {
		return queue.Artifact{}, st.s.CropErr
	}
	return queue.Artifact{ID: "crop-" + jobID, Path: "/tmp/crop-" + jobID + ".mp4"}, nil
}

func (st videoStub) SpeedRamp(ctx context.Context, input queue.Artifact, jobID string) (queue.Artifact, error) {
	st.s.RampCalls.Add(1)
	if st.s.RampErr != nil {
		return queue.Artifact{}, st.s.RampErr
	}
	return queue.Artifact{ID: "ramp-" + jobID, Path: "/tmp/ramp-" + jobID + ".mp4"}, nil
}

type ttsStub struct{ s *StubExecutors }

func (st ttsStub) Synthesize(ctx context.Context, scriptText, voice, jobID string) (queue.Artifact, error) {
	st.s.TTSCalls.Add(1)
	if st.s.TTSErr != nil {
		return queue.Artifact{}, st.s.TTSErr
	}
	return queue.Artifact{ID: "tts-" + jobID, Path: "/tmp/tts-" + jobID + ".wav"}, nil
}

type subsStub struct{ s *StubExecutors }

func (st subsStub) Transcribe(ctx context.Context, audio queue.Artifact, jobID string) (queue.Artifact, error) {
	st.s.SubsCalls.Add(1)
	if st.s.SubsErr != nil {
		return queue.Artifact{}, st.s.SubsErr
	}
	return queue.Artifact{ID: "subs-" + jobID, Path: "/tmp/subs-" + jobID + ".srt"}, nil
}

type compileStub struct{ s *StubExecutors }

func (st compileStub) Compile(ctx context.Context, input export.CompileInput, jobID string) (queue.Artifact, error) {
	st.s.CompileCalls.Add(1)
	if st.s.CompileErr != nil {
		return queue.Artifact{}, st.s.CompileErr
	}
	return queue.Artifact{ID: "final-" + jobID, Path: "/tmp/final-" + jobID + ".mp4"}, nil
}
