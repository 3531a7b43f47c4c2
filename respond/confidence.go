package respond

import "strings"

// SentinelToken is the literal marker the assistant embeds when it decides a
// human should take over. It is stripped before the reply is sent.
const SentinelToken = "[HANDOVER_NEEDED]"

var uncertaintyMarkers = []string{
	"i think",
	"maybe",
	"possibly",
	"might",
	"could be",
	"not sure",
	"i believe",
	"perhaps",
	"probably",
}

// ScoreConfidence derives a deterministic confidence value from the reply
// text alone. Baseline 0.8; short replies lose 0.2, each distinct uncertainty
// marker loses 0.1, and a reply with more questions than statements loses 0.1.
// The result is clamped to [0, 1].
func ScoreConfidence(reply string) float64 {
	score := 0.8

	trimmed := strings.TrimSpace(reply)
	if len(trimmed) < 20 {
		score -= 0.2
	}

	lower := strings.ToLower(trimmed)
	for _, marker := range uncertaintyMarkers {
		if strings.Contains(lower, marker) {
			score -= 0.1
		}
	}

	if strings.Count(trimmed, "?") > strings.Count(trimmed, ".") {
		score -= 0.1
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// StripSentinel reports whether the sentinel token appears in the reply and
// returns the reply with every occurrence removed.
func StripSentinel(reply string) (string, bool) {
	if !strings.Contains(reply, SentinelToken) {
		return strings.TrimSpace(reply), false
	}
	cleaned := strings.ReplaceAll(reply, SentinelToken, "")
	return strings.TrimSpace(cleaned), true
}
