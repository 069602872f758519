package rendercache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"golang.org/x/text/unicode/norm"

	"clipforge/internal/queue"
)

// fingerprintFields is the canonical subset of request fields that determine
// pipeline output. Field order is fixed by the struct, so two semantically
// equal requests digest identically regardless of how their input bags were
// populated.
type fingerprintFields struct {
	Background string `json:"background"`
	Script     string `json:"script"`
	Voice      string `json:"voice"`
	Preset     string `json:"preset"`
}

// Fingerprint derives the deterministic cache key for a request.
func Fingerprint(req queue.Request) string {
	fields := fingerprintFields{
		Background: strings.TrimSpace(req.BackgroundID),
		Script:     canonicalScript(req.Script),
		Voice:      strings.TrimSpace(req.Voice),
		Preset:     strings.TrimSpace(req.Preset),
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		// Marshalling a flat string struct cannot fail; keep a stable
		// fallback anyway rather than panicking in the pipeline path.
		payload = []byte(fields.Background + "\x00" + fields.Script + "\x00" + fields.Voice + "\x00" + fields.Preset)
	}
	sum := sha256.Sum256(payload)
	return "pipeline_" + hex.EncodeToString(sum[:])[:16]
}

// canonicalScript normalizes script text so incidental whitespace and
// Unicode form differences do not defeat deduplication.
func canonicalScript(script string) string {
	normalized := norm.NFC.String(script)
	return strings.Join(strings.Fields(normalized), " ")
}
