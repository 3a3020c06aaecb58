package rules

import "fmt"

// Stage represents the life stage a game is in. Stages only ever move
// forward: youth, then middle age, then fulfillment.
type Stage int

const (
	StageYouth Stage = iota
	StageMiddle
	StageFulfillment
)

var stageNames = map[Stage]string{
	StageYouth:       "YOUTH",
	StageMiddle:      "MIDDLE",
	StageFulfillment: "FULFILLMENT",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STAGE_%d", int(s))
}

// MaxTurns returns the turn budget for the stage.
func (s Stage) MaxTurns() int {
	switch s {
	case StageYouth:
		return 10
	case StageMiddle:
		return 15
	case StageFulfillment:
		return 20
	default:
		return 0
	}
}

// MaxVitality returns the vitality ceiling for the stage. Aging lowers the
// ceiling as the game progresses.
func (s Stage) MaxVitality() int {
	switch s {
	case StageYouth:
		return 35
	case StageMiddle:
		return 30
	case StageFulfillment:
		return 25
	default:
		return 0
	}
}

// cumulativeTurns returns the cumulative turn count at which the stage ends.
func cumulativeTurns(s Stage) int {
	total := 0
	for st := StageYouth; st <= s; st++ {
		total += st.MaxTurns()
	}
	return total
}

// Progression tracks the turn counter and the current stage. The counter is
// global and never resets; the per-stage display value is derived.
type Progression struct {
	stage Stage
	turn  int
}

// NewProgression creates a progression at turn 1 of the youth stage.
func NewProgression() *Progression {
	return &Progression{stage: StageYouth, turn: 1}
}

// Stage returns the current stage.
func (p *Progression) Stage() Stage {
	return p.stage
}

// Turn returns the cumulative turn number (1-based, never reset).
func (p *Progression) Turn() int {
	return p.turn
}

// TurnInStage returns the 1-based turn number within the current stage.
func (p *Progression) TurnInStage() int {
	if p.stage == StageYouth {
		return p.turn
	}
	return p.turn - cumulativeTurns(p.stage-1)
}

// AdvanceTurn increments the turn counter and returns the new value.
func (p *Progression) AdvanceTurn() int {
	p.turn++
	return p.turn
}

// ShouldTransition reports whether the turn counter has crossed the current
// stage's boundary. It returns false once the final stage is reached, and
// false again after the transition fires, so checking twice at the same turn
// count transitions at most once.
func (p *Progression) ShouldTransition() bool {
	if p.stage >= StageFulfillment {
		return false
	}
	return p.turn > cumulativeTurns(p.stage)
}

// Transition advances to the next stage. It refuses to move past the final
// stage; the boolean reports whether a transition happened.
func (p *Progression) Transition() (from, to Stage, ok bool) {
	if p.stage >= StageFulfillment {
		return p.stage, p.stage, false
	}
	from = p.stage
	p.stage++
	return from, p.stage, true
}

// FinalTurnReached reports whether the fulfillment turn budget is exhausted.
func (p *Progression) FinalTurnReached() bool {
	return p.stage == StageFulfillment && p.turn > cumulativeTurns(StageFulfillment)
}
