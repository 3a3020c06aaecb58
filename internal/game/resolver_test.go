package game

import (
	"testing"

	"github.com/lifegame/life-server-go/internal/game/card"
	"github.com/lifegame/life-server-go/internal/game/power"
	"github.com/lifegame/life-server-go/internal/game/rules"
)

func TestAdjustedChallengePowerTable(t *testing.T) {
	cases := []struct {
		category card.Category
		stage    rules.Stage
		power    int
		expected int
	}{
		{card.CategoryPhysical, rules.StageYouth, 10, 10},
		{card.CategoryPhysical, rules.StageMiddle, 10, 13},
		{card.CategoryPhysical, rules.StageFulfillment, 10, 16},
		{card.CategoryKnowledge, rules.StageYouth, 10, 10},
		{card.CategoryKnowledge, rules.StageMiddle, 10, 8},
		{card.CategoryKnowledge, rules.StageFulfillment, 10, 6},
		{card.CategoryBalanced, rules.StageMiddle, 10, 10},
		{card.CategoryBalanced, rules.StageFulfillment, 10, 10},
	}
	for _, tc := range cases {
		c := card.Card{Type: card.TypeChallenge, Power: tc.power, Category: tc.category}
		got := AdjustedChallengePower(c, tc.stage)
		if got != tc.expected {
			t.Errorf("%s in %s: expected %d, got %d", tc.category, tc.stage, tc.expected, got)
		}
	}
}

func TestResolveBoundaryTieWins(t *testing.T) {
	challenge := card.Card{ID: "ch", Type: card.TypeChallenge, Power: 8, Category: card.CategoryBalanced}
	policy := NewDefaultVitalityPolicy()

	tie := resolveChallenge(challenge, power.Breakdown{Base: 8, Total: 8}, rules.StageYouth, policy)
	if !tie.Success {
		t.Fatal("total == power must succeed")
	}
	if tie.VitalityChange <= 0 {
		t.Fatalf("success must gain vitality, got %d", tie.VitalityChange)
	}

	short := resolveChallenge(challenge, power.Breakdown{Base: 7, Total: 7}, rules.StageYouth, policy)
	if short.Success {
		t.Fatal("total == power-1 must fail")
	}
	if short.VitalityChange >= 0 {
		t.Fatalf("failure must lose vitality, got %d", short.VitalityChange)
	}
}

func TestResolveExtremeRiskExcludesInsurance(t *testing.T) {
	challenge := card.Card{ID: "ch", Type: card.TypeChallenge, Power: 10, ExtremeRisk: true}
	policy := NewDefaultVitalityPolicy()

	// Base alone falls short; insurance would cover the gap but must not
	// activate. Varying the insurance term must not flip the outcome.
	for _, insuranceBonus := range []int{0, 5, 50} {
		breakdown := power.Breakdown{
			Base:      8,
			Insurance: insuranceBonus,
			Burden:    0,
			Total:     8 + insuranceBonus,
		}
		result := resolveChallenge(challenge, breakdown, rules.StageYouth, policy)
		if result.Success {
			t.Fatalf("insurance bonus %d changed an extreme-risk outcome", insuranceBonus)
		}
		if !result.InsuranceExcluded {
			t.Fatal("result must report insurance exclusion")
		}
		if result.PlayerPower != 8 {
			t.Fatalf("compared power must exclude insurance, got %d", result.PlayerPower)
		}
	}
}

func TestResolveBurdenCausedLoss(t *testing.T) {
	challenge := card.Card{ID: "ch", Type: card.TypeChallenge, Power: 9}
	breakdown := power.Breakdown{Base: 10, Insurance: 0, Burden: -2, Total: 8}

	result := resolveChallenge(challenge, breakdown, rules.StageYouth, NewDefaultVitalityPolicy())
	if result.Success {
		t.Fatal("expected failure at total 8 vs 9")
	}
	if !result.BurdenCausedLoss {
		t.Fatal("base+insurance cover the challenge; the burden caused this loss")
	}
}

func TestDefaultPolicyPenaltyAtLeastDeficit(t *testing.T) {
	policy := NewDefaultVitalityPolicy()
	challenge := card.Card{Type: card.TypeChallenge}

	if got := policy.FailurePenalty(5, challenge); got != 5 {
		t.Errorf("expected penalty 5, got %d", got)
	}
	if got := policy.FailurePenalty(0, challenge); got != policy.FailureFloor {
		t.Errorf("expected floor %d, got %d", policy.FailureFloor, got)
	}
}

func TestDefaultPolicyDreamBonus(t *testing.T) {
	policy := NewDefaultVitalityPolicy()

	plain := policy.SuccessReward(4, card.Card{Type: card.TypeChallenge})
	dream := policy.SuccessReward(4, card.Card{Type: card.TypeDream})
	if dream != plain+policy.DreamBonus {
		t.Errorf("dream challenges reward extra: plain %d, dream %d", plain, dream)
	}
}
