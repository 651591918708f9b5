package availability

import "strings"

// StageKind separates tentative bookings from firm ones.
type StageKind int

const (
	StageConfirmed StageKind = iota
	StageHeld
)

func (k StageKind) String() string {
	if k == StageHeld {
		return "held"
	}
	return "confirmed"
}

type stageRule struct {
	marker string
	kind   StageKind
}

// stageRules is checked in order against the lowercased stage text. Anything
// that matches no rule counts as confirmed.
var stageRules = []stageRule{
	{marker: "hold", kind: StageHeld},
	{marker: "pending", kind: StageHeld},
	{marker: "tentative", kind: StageHeld},
}

// ClassifyStage maps free-text lifecycle stage to a StageKind. Matching is a
// case-insensitive substring check, so "On Hold" and "HOLD - 2nd" are held.
func ClassifyStage(stage string) StageKind {
	s := strings.ToLower(stage)
	for _, r := range stageRules {
		if strings.Contains(s, r.marker) {
			return r.kind
		}
	}
	return StageConfirmed
}
