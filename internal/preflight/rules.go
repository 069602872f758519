package preflight

// Capability names a class of input a service operation depends on.
type Capability string

const (
	CapAudio Capability = "audio"
	CapVideo Capability = "video"
	CapSubs  Capability = "subs"
	CapText  Capability = "text"
)

// rules maps service name to operation name to required capabilities.
// Operations absent from the table have no requirements.
var rules = map[string]map[string][]Capability{
	"video": {
		"mergeWithAudio":  {CapAudio},
		"mergeVideoAudio": {CapAudio},
	},
	"audio": {
		"mixAudio":       {},
		"normalizeAudio": {},
	},
	"subs": {
		"generateSubtitles": {CapAudio},
		"extractFromVideo":  {CapVideo},
	},
	"tts": {
		"generate": {CapText},
	},
	"export": {
		"compileVideo": {CapVideo, CapAudio, CapSubs},
	},
	"pipeline": {
		"buildVideo": {CapVideo, CapText},
	},
}

// Requirements returns the capability list for a service operation. Unknown
// pairs return an empty list.
func Requirements(service, operation string) []Capability {
	ops, ok := rules[service]
	if !ok {
		return nil
	}
	caps := ops[operation]
	cp := make([]Capability, len(caps))
	copy(cp, caps)
	return cp
}
