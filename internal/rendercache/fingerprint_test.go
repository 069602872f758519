package rendercache_test

import (
	"strings"
	"testing"

	"clipforge/internal/queue"
	"clipforge/internal/rendercache"
)

func baseRequest() queue.Request {
	return queue.Request{
		Script:       "A quick tale about caves.",
		BackgroundID: "minecraft",
		Voice:        "en_US-amy",
		Preset:       "1080p",
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	first := rendercache.Fingerprint(baseRequest())
	second := rendercache.Fingerprint(baseRequest())
	if first != second {
		t.Fatalf("same request produced %q and %q", first, second)
	}
}

func TestFingerprintShape(t *testing.T) {
	fp := rendercache.Fingerprint(baseRequest())
	if !strings.HasPrefix(fp, "pipeline_") {
		t.Fatalf("missing prefix: %q", fp)
	}
	if len(fp) != len("pipeline_")+16 {
		t.Fatalf("unexpected length %d: %q", len(fp), fp)
	}
}

func TestFingerprintIgnoresIncidentalDifferences(t *testing.T) {
	canonical := rendercache.Fingerprint(baseRequest())

	spaced := baseRequest()
	spaced.Script = "  A   quick tale\nabout caves.  "
	spaced.BackgroundID = " minecraft "
	if got := rendercache.Fingerprint(spaced); got != canonical {
		t.Fatalf("whitespace variation changed fingerprint: %q vs %q", got, canonical)
	}

	// "é" composed vs decomposed normalizes to the same key.
	composed := baseRequest()
	composed.Script = "café"
	decomposed := baseRequest()
	decomposed.Script = "café"
	if rendercache.Fingerprint(composed) != rendercache.Fingerprint(decomposed) {
		t.Fatal("unicode normalization forms should digest identically")
	}
}

func TestFingerprintSensitiveToMeaningfulFields(t *testing.T) {
	canonical := rendercache.Fingerprint(baseRequest())

	cases := []struct {
		name   string
		mutate func(*queue.Request)
	}{
		{"script", func(r *queue.Request) { r.Script = "a different story" }},
		{"background", func(r *queue.Request) { r.BackgroundID = "parkour" }},
		{"voice", func(r *queue.Request) { r.Voice = "en_GB-alan" }},
		{"preset", func(r *queue.Request) { r.Preset = "720p" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest()
			tc.mutate(&req)
			if rendercache.Fingerprint(req) == canonical {
				t.Fatalf("changing %s should change the fingerprint", tc.name)
			}
		})
	}
}

func TestFingerprintIgnoresOptions(t *testing.T) {
	canonical := rendercache.Fingerprint(baseRequest())

	withOptions := baseRequest()
	disabled := false
	withOptions.Options.SpeedRamp = &disabled
	withOptions.Options.AddProgressBar = true
	if rendercache.Fingerprint(withOptions) != canonical {
		t.Fatal("option flags must not affect the fingerprint")
	}
}
