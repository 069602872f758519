package preflight

import "fmt"

// canonicalOrder is the recommended stage sequence for dependency resolution.
var canonicalOrder = []string{
	"assets",
	"tts",
	"audio",
	"video",
	"subs",
	"export",
	"pipeline",
}

// CanonicalOrder returns the recommended stage sequence.
func CanonicalOrder() []string {
	cp := make([]string, len(canonicalOrder))
	copy(cp, canonicalOrder)
	return cp
}

// CheckStageOrder compares a proposed stage sequence against the canonical
// order and returns non-fatal warnings for inversions. Only adjacent
// canonical pairs are compared, so a sequence that reverses two stages that
// are not canonical neighbors passes without warning. Callers must treat the
// result as advice, never as a gate.
func CheckStageOrder(stages []string) (bool, []string) {
	positions := make(map[string]int, len(stages))
	for idx, stage := range stages {
		if _, seen := positions[stage]; !seen {
			positions[stage] = idx
		}
	}

	var warnings []string
	for i := 0; i < len(canonicalOrder)-1; i++ {
		current := canonicalOrder[i]
		next := canonicalOrder[i+1]
		currentIdx, haveCurrent := positions[current]
		nextIdx, haveNext := positions[next]
		if haveCurrent && haveNext && currentIdx > nextIdx {
			warnings = append(warnings, fmt.Sprintf(
				"stage %q should come after %q for optimal dependency resolution",
				next, current,
			))
		}
	}
	return len(warnings) == 0, warnings
}
