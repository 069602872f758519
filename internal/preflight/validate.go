package preflight

import "strings"

// Inputs is the bag of references a service operation may receive. A
// capability is satisfied when at least one of its acceptable fields is
// populated.
type Inputs struct {
	AudioPath    string
	AudioID      string
	Tracks       []string
	VideoPath    string
	BackgroundID string
	SubtitleID   string
	SubtitlePath string
	Text         string
	Script       string
}

// Validate checks the inputs against the rule table for (service, operation).
// It returns ok=true iff every required capability is satisfied; otherwise
// the error strings name the missing capability and the fields that would
// satisfy it. Unknown service/operation pairs validate permissively.
func Validate(service, operation string, inputs Inputs) (bool, []string) {
	var errs []string
	for _, capability := range Requirements(service, operation) {
		if msg := checkCapability(capability, inputs); msg != "" {
			errs = append(errs, msg)
		}
	}
	return len(errs) == 0, errs
}

func checkCapability(capability Capability, inputs Inputs) string {
	switch capability {
	case CapAudio:
		if hasValue(inputs.AudioPath) || hasValue(inputs.AudioID) || len(inputs.Tracks) > 0 {
			return ""
		}
		return "audio dependency missing: audioPath, audioId, or tracks required"
	case CapVideo:
		if hasValue(inputs.VideoPath) || hasValue(inputs.BackgroundID) {
			return ""
		}
		return "video dependency missing: videoPath or backgroundId required"
	case CapSubs:
		if hasValue(inputs.SubtitleID) || hasValue(inputs.SubtitlePath) {
			return ""
		}
		return "subtitle dependency missing: subtitleId or subtitlePath required"
	case CapText:
		if hasValue(inputs.Text) || hasValue(inputs.Script) {
			return ""
		}
		return "text dependency missing: text or script required"
	default:
		return ""
	}
}

func hasValue(value string) bool {
	return strings.TrimSpace(value) != ""
}
