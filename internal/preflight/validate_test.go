package preflight_test

import (
	"strings"
	"testing"

	"clipforge/internal/preflight"
)

func TestValidateCompileVideoMissingEverything(t *testing.T) {
	ok, errs := preflight.Validate("export", "compileVideo", preflight.Inputs{})
	if ok {
		t.Fatal("expected validation failure")
	}
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	for _, want := range []string{"video dependency missing", "audio dependency missing", "subtitle dependency missing"} {
		found := false
		for _, err := range errs {
			if strings.Contains(err, want) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("missing %q in %v", want, errs)
		}
	}
}

func TestValidateCompileVideoSatisfied(t *testing.T) {
	ok, errs := preflight.Validate("export", "compileVideo", preflight.Inputs{
		VideoPath:    "/tmp/video.mp4",
		AudioID:      "a1",
		SubtitlePath: "/tmp/subs.srt",
	})
	if !ok || len(errs) != 0 {
		t.Fatalf("expected pass, got %v", errs)
	}
}

func TestValidateAlternativeFields(t *testing.T) {
	cases := []struct {
		name      string
		service   string
		operation string
		inputs    preflight.Inputs
		wantOK    bool
	}{
		{"tracks satisfy audio", "video", "mergeWithAudio", preflight.Inputs{Tracks: []string{"t1"}}, true},
		{"legacy merge alias", "video", "mergeVideoAudio", preflight.Inputs{AudioPath: "/tmp/a.wav"}, true},
		{"background satisfies video", "subs", "extractFromVideo", preflight.Inputs{BackgroundID: "bg"}, true},
		{"script satisfies text", "tts", "generate", preflight.Inputs{Script: "hello"}, true},
		{"whitespace does not satisfy", "tts", "generate", preflight.Inputs{Text: "   "}, false},
		{"pipeline needs text and video", "pipeline", "buildVideo", preflight.Inputs{BackgroundID: "bg"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, errs := preflight.Validate(tc.service, tc.operation, tc.inputs)
			if ok != tc.wantOK {
				t.Fatalf("got ok=%t errs=%v", ok, errs)
			}
		})
	}
}

func TestValidateUnknownOperationPasses(t *testing.T) {
	ok, errs := preflight.Validate("video", "unknownOp", preflight.Inputs{})
	if !ok || len(errs) != 0 {
		t.Fatalf("unknown operations should validate permissively, got %v", errs)
	}
}

func TestRequirementsReturnsCopy(t *testing.T) {
	first := preflight.Requirements("export", "compileVideo")
	first[0] = preflight.Capability("mutated")
	second := preflight.Requirements("export", "compileVideo")
	if second[0] == "mutated" {
		t.Fatal("Requirements must not expose internal state")
	}
}
