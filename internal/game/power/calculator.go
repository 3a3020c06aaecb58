// Package power computes the player's effective power for a challenge
// attempt. Every function here is a pure function of its inputs.
package power

import (
	"github.com/lifegame/life-server-go/internal/game/card"
	"github.com/lifegame/life-server-go/internal/game/rules"
)

// Breakdown decomposes the player's effective power for a challenge attempt.
type Breakdown struct {
	Base      int // raw power of the selected cards
	Insurance int // stage-scaled contribution of active policies
	Burden    int // penalty from holding many policies, always <= 0
	Total     int // Base + Insurance + Burden, may be negative
}

// EffectivePower scales an insurance card's power by the stage multiplier:
// youth x1.0, middle x1.5, fulfillment x2.0, floored.
func EffectivePower(p int, stage rules.Stage) int {
	switch stage {
	case rules.StageMiddle:
		return floorDiv(p*3, 2)
	case rules.StageFulfillment:
		return p * 2
	default:
		return p
	}
}

// AgeBonusFor returns the additive age bonus a whole-life policy earns in
// the given stage: none in youth, half the card's bonus in middle age, the
// full bonus in fulfillment. Term policies earn no age bonus.
func AgeBonusFor(c card.Card, stage rules.Stage) int {
	if !c.IsWholeLife() {
		return 0
	}
	switch stage {
	case rules.StageMiddle:
		return floorDiv(c.AgeBonus, 2)
	case rules.StageFulfillment:
		return c.AgeBonus
	default:
		return 0
	}
}

// BurdenFor returns the power penalty for holding count active policies:
// one point per three policies, expressed as a non-positive number.
func BurdenFor(count int) int {
	if count <= 0 {
		return 0
	}
	return -(count / 3)
}

// Calculate computes the full breakdown for a set of selected cards against
// the active insurance policies in the given stage.
//
// Insurance policies contribute through the scaled Insurance term while
// equipped; an insurance card that is itself played as a selected card
// counts its raw power toward Base instead.
func Calculate(selected, activeInsurances []card.Card, stage rules.Stage) Breakdown {
	base := 0
	for _, c := range selected {
		base += c.Power
	}

	insurance := 0
	for _, c := range activeInsurances {
		insurance += EffectivePower(c.Power, stage)
		insurance += AgeBonusFor(c, stage)
	}

	burden := BurdenFor(len(activeInsurances))

	return Breakdown{
		Base:      base,
		Insurance: insurance,
		Burden:    burden,
		Total:     base + insurance + burden,
	}
}

// floorDiv divides rounding toward negative infinity, so the multiplier
// table holds for negative inputs too.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
