package rules

import "fmt"

// Phase represents the per-turn sub-state governing which operations are
// legal: cards are drawn, a challenge is faced, then its result is resolved.
type Phase int

const (
	PhaseDraw Phase = iota
	PhaseChallenge
	PhaseResolution
)

var phaseNames = map[Phase]string{
	PhaseDraw:       "DRAW",
	PhaseChallenge:  "CHALLENGE",
	PhaseResolution: "RESOLUTION",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}
