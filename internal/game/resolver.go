package game

import (
	"github.com/lifegame/life-server-go/internal/game/card"
	"github.com/lifegame/life-server-go/internal/game/power"
	"github.com/lifegame/life-server-go/internal/game/rules"
)

// Result carries the outcome of a challenge attempt. Failure is a normal
// outcome, not an error.
type Result struct {
	Success           bool
	ChallengeID       string
	ChallengePower    int // printed power of the challenge card
	AdjustedPower     int // after age-based difficulty adjustment
	PlayerPower       int // the total actually compared
	Breakdown         power.Breakdown
	VitalityChange    int
	InsuranceExcluded bool // extreme-risk challenge, insurance did not activate
	BurdenCausedLoss  bool // would have won without the insurance burden
}

// VitalityPolicy decides the vitality reward and penalty magnitudes for
// challenge outcomes. The exact table is configuration, not a rule.
type VitalityPolicy interface {
	// SuccessReward returns the (positive) vitality gain for winning by the
	// given margin.
	SuccessReward(margin int, challenge card.Card) int
	// FailurePenalty returns the (positive) vitality loss for losing by the
	// given deficit. The penalty is at least the deficit.
	FailurePenalty(deficit int, challenge card.Card) int
}

// DefaultVitalityPolicy rewards wins by half the margin on top of a flat
// base, with an extra bonus for dream challenges, and punishes losses by the
// full deficit with a minimum floor.
type DefaultVitalityPolicy struct {
	SuccessBase  int
	DreamBonus   int
	FailureFloor int
}

// NewDefaultVitalityPolicy returns the standard reward table.
func NewDefaultVitalityPolicy() DefaultVitalityPolicy {
	return DefaultVitalityPolicy{SuccessBase: 2, DreamBonus: 2, FailureFloor: 1}
}

func (p DefaultVitalityPolicy) SuccessReward(margin int, challenge card.Card) int {
	reward := p.SuccessBase + margin/2
	if challenge.Type == card.TypeDream {
		reward += p.DreamBonus
	}
	if reward < 1 {
		reward = 1
	}
	return reward
}

func (p DefaultVitalityPolicy) FailurePenalty(deficit int, challenge card.Card) int {
	if deficit < p.FailureFloor {
		return p.FailureFloor
	}
	return deficit
}

// AdjustedChallengePower applies the age-based difficulty adjustment:
// physical challenges get harder with age, knowledge challenges easier,
// balanced ones are unaffected.
func AdjustedChallengePower(c card.Card, stage rules.Stage) int {
	switch c.Category {
	case card.CategoryPhysical:
		switch stage {
		case rules.StageMiddle:
			return c.Power + 3
		case rules.StageFulfillment:
			return c.Power + 6
		}
	case card.CategoryKnowledge:
		switch stage {
		case rules.StageMiddle:
			return c.Power - 2
		case rules.StageFulfillment:
			return c.Power - 4
		}
	}
	return c.Power
}

// resolveChallenge decides success and the vitality change for a challenge
// against a player's power breakdown. Ties win. Extreme-risk challenges
// exclude the insurance contribution from the comparison.
func resolveChallenge(c card.Card, breakdown power.Breakdown, stage rules.Stage, policy VitalityPolicy) Result {
	adjusted := AdjustedChallengePower(c, stage)

	comparable := breakdown.Total
	if c.ExtremeRisk {
		comparable = breakdown.Base + breakdown.Burden
	}

	result := Result{
		ChallengeID:       c.ID,
		ChallengePower:    c.Power,
		AdjustedPower:     adjusted,
		PlayerPower:       comparable,
		Breakdown:         breakdown,
		InsuranceExcluded: c.ExtremeRisk,
	}

	if comparable >= adjusted {
		result.Success = true
		result.VitalityChange = policy.SuccessReward(comparable-adjusted, c)
		return result
	}

	result.VitalityChange = -policy.FailurePenalty(adjusted-comparable, c)
	result.BurdenCausedLoss = breakdown.Base+breakdown.Insurance >= adjusted && breakdown.Total < adjusted
	return result
}
