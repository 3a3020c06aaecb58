package game

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/lifegame/life-server-go/internal/game/card"
	"github.com/lifegame/life-server-go/internal/game/insurance"
	"github.com/lifegame/life-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFactory deals fixed content so scenarios are fully deterministic.
type stubFactory struct {
	deck    []card.Card
	rewards []card.Card
}

func (f *stubFactory) PlayerDeck(difficulty string) []card.Card {
	out := make([]card.Card, len(f.deck))
	copy(out, f.deck)
	return out
}

func (f *stubFactory) ChallengeDeck(stage rules.Stage, dreamCards int) []card.Card {
	deck := make([]card.Card, 0, 20)
	for i := 0; i < 20; i++ {
		deck = append(deck, card.Card{
			ID:       fmt.Sprintf("%s-challenge-%d", stage, i),
			Name:     "Obstacle",
			Type:     card.TypeChallenge,
			Power:    5,
			Category: card.CategoryBalanced,
		})
	}
	return deck
}

func (f *stubFactory) RewardChoices(challenge card.Card, stage rules.Stage) []card.Card {
	out := make([]card.Card, len(f.rewards))
	copy(out, f.rewards)
	return out
}

func lifeCard(id string, power int) card.Card {
	return card.Card{ID: id, Name: "Life " + id, Type: card.TypeLife, Power: power}
}

// noShuffle keeps deck order stable so tests can reason about draws.
type noShuffle struct{}

func (noShuffle) Intn(n int) int { return n - 1 }

func newTestGame(t *testing.T, cfg Config, factory *stubFactory) *Game {
	t.Helper()
	if factory == nil {
		factory = &stubFactory{deck: []card.Card{
			lifeCard("a", 5), lifeCard("b", 3), lifeCard("c", 4),
			lifeCard("d", 2), lifeCard("e", 6), lifeCard("f", 1),
			lifeCard("g", 2), lifeCard("h", 3),
		}}
	}
	if cfg.Rand == nil {
		cfg.Rand = noShuffle{}
	}
	g, err := NewGame(cfg, factory)
	require.NoError(t, err)
	require.NoError(t, g.Start())
	return g
}

func faceChallenge(t *testing.T, g *Game, challenge card.Card, selectIDs ...string) *Result {
	t.Helper()
	require.NoError(t, g.StartChallenge(challenge))
	require.NoError(t, g.SetSelectedCards(selectIDs...))
	result, err := g.ResolveChallenge()
	require.NoError(t, err)
	return result
}

func TestGameStartSeedsHandAndDecks(t *testing.T) {
	g := newTestGame(t, Config{StartingHandSize: 5}, nil)

	assert.Equal(t, 5, g.HandSize())
	assert.Equal(t, 3, g.PlayerDeckSize())
	assert.Equal(t, rules.PhaseDraw, g.Phase())
	assert.Equal(t, StatusInProgress, g.Status())
	assert.True(t, g.IsInProgress())
	assert.Greater(t, g.ChallengeDeckSize(), 0)
}

func TestDrawCardsRespectsHandCap(t *testing.T) {
	g := newTestGame(t, Config{StartingHandSize: 5, MaxHandSize: 6}, nil)

	drawn, err := g.DrawCards(3)
	require.NoError(t, err)
	assert.Len(t, drawn, 1, "hand cap must stop the draw")
	assert.Equal(t, 6, g.HandSize())
}

func TestDrawCardsDeckExhaustion(t *testing.T) {
	factory := &stubFactory{deck: []card.Card{lifeCard("a", 1), lifeCard("b", 2)}}
	g := newTestGame(t, Config{StartingHandSize: 1, MaxHandSize: 7}, factory)

	drawn, err := g.DrawCards(5)
	require.NoError(t, err, "deck exhaustion is not an error")
	assert.Len(t, drawn, 1, "only one card remained")
	assert.Equal(t, 0, g.PlayerDeckSize())
}

func TestScenarioSuccessfulChallenge(t *testing.T) {
	factory := &stubFactory{deck: []card.Card{lifeCard("a", 5), lifeCard("b", 3)}}
	g := newTestGame(t, Config{StartingHandSize: 2}, factory)
	before := g.Vitality()

	challenge := card.Card{ID: "ch", Name: "Obstacle", Type: card.TypeChallenge, Power: 8}
	result := faceChallenge(t, g, challenge, "a", "b")

	assert.True(t, result.Success, "total 8 vs power 8: tie wins")
	assert.Equal(t, 8, result.Breakdown.Base)
	assert.Equal(t, 8, result.PlayerPower)
	assert.Greater(t, g.Vitality(), before, "success increases vitality")
	assert.Equal(t, rules.PhaseResolution, g.Phase())
	assert.Equal(t, 0, g.HandSize(), "used cards leave the hand")
	assert.Equal(t, 3, g.DiscardPileSize(), "used cards and the challenge are discarded")

	stats := g.Stats()
	assert.Equal(t, 1, stats.TotalChallenges)
	assert.Equal(t, 1, stats.SuccessfulChallenges)
	assert.Equal(t, 0, stats.FailedChallenges)
}

func TestScenarioBurdenCausedFailure(t *testing.T) {
	factory := &stubFactory{deck: []card.Card{lifeCard("a", 10)}}
	g := newTestGame(t, Config{StartingHandSize: 1}, factory)

	// Six zero-power policies: insurance bonus 0, burden -2.
	for i := 0; i < 6; i++ {
		require.NoError(t, g.AddInsurance(card.Card{
			ID:           fmt.Sprintf("ins-%d", i),
			Type:         card.TypeInsurance,
			DurationType: card.DurationWholeLife,
			Power:        0,
		}))
	}
	require.Equal(t, -2, g.InsuranceBurden())

	challenge := card.Card{ID: "ch", Type: card.TypeChallenge, Power: 9}
	result := faceChallenge(t, g, challenge, "a")

	assert.False(t, result.Success)
	assert.Equal(t, 10, result.Breakdown.Base)
	assert.Equal(t, 0, result.Breakdown.Insurance)
	assert.Equal(t, -2, result.Breakdown.Burden)
	assert.Equal(t, 8, result.Breakdown.Total)
	assert.True(t, result.BurdenCausedLoss,
		"base+insurance beat the challenge; only the burden lost it")
}

func TestExtremeRiskChallengeIgnoresInsurance(t *testing.T) {
	factory := &stubFactory{deck: []card.Card{lifeCard("a", 8)}}
	g := newTestGame(t, Config{StartingHandSize: 1}, factory)

	require.NoError(t, g.AddInsurance(card.Card{
		ID: "big", Type: card.TypeInsurance, DurationType: card.DurationWholeLife, Power: 50,
	}))

	challenge := card.Card{ID: "ch", Type: card.TypeChallenge, Power: 10, ExtremeRisk: true}
	result := faceChallenge(t, g, challenge, "a")

	assert.False(t, result.Success, "insurance must not activate on extreme risk")
	assert.True(t, result.InsuranceExcluded)
	assert.Equal(t, 8, result.PlayerPower)
}

func TestPhaseGuards(t *testing.T) {
	g := newTestGame(t, Config{}, nil)

	_, err := g.ResolveChallenge()
	assert.ErrorIs(t, err, ErrInvalidPhase, "resolve outside challenge phase")

	err = g.SetSelectedCards("a")
	assert.ErrorIs(t, err, ErrInvalidPhase, "selection outside challenge phase")

	challenge := card.Card{ID: "ch", Type: card.TypeChallenge, Power: 1}
	require.NoError(t, g.StartChallenge(challenge))

	err = g.StartChallenge(challenge)
	assert.ErrorIs(t, err, ErrInvalidPhase, "challenge already in progress")

	_, err = g.DrawCards(1)
	assert.ErrorIs(t, err, ErrInvalidPhase, "draw during challenge phase")

	err = g.NextTurn()
	assert.ErrorIs(t, err, ErrInvalidPhase, "turn cannot end mid-challenge")

	_, err = g.ResolveChallenge()
	assert.ErrorIs(t, err, ErrEmptySelection, "at least one card must be selected")
}

func TestRejectedDrawChallengeKeepsDeckIntact(t *testing.T) {
	g := newTestGame(t, Config{StartingHandSize: 5}, nil)

	challenge, err := g.DrawChallenge()
	require.NoError(t, err)
	require.NoError(t, g.StartChallenge(challenge))
	size := g.ChallengeDeckSize()

	// A draw during the challenge phase is rejected without touching the deck.
	_, err = g.DrawChallenge()
	assert.ErrorIs(t, err, ErrInvalidPhase)
	assert.Equal(t, size, g.ChallengeDeckSize())

	require.NoError(t, g.SetSelectedCards("a", "b"))
	_, err = g.ResolveChallenge()
	require.NoError(t, err)

	g.finish(StatusGameOver, "test")
	_, err = g.DrawChallenge()
	assert.ErrorIs(t, err, ErrGameEnded)
	assert.Equal(t, size, g.ChallengeDeckSize())
}

func TestToggleSelectCard(t *testing.T) {
	g := newTestGame(t, Config{StartingHandSize: 5}, nil)

	err := g.ToggleSelectCard("a")
	assert.ErrorIs(t, err, ErrInvalidPhase, "selection outside challenge phase")

	challenge := card.Card{ID: "ch", Type: card.TypeChallenge, Power: 1}
	require.NoError(t, g.StartChallenge(challenge))

	require.NoError(t, g.ToggleSelectCard("a"))
	require.NoError(t, g.ToggleSelectCard("b"))
	assert.Len(t, g.SelectedCards(), 2)

	// Toggling again deselects.
	require.NoError(t, g.ToggleSelectCard("a"))
	selected := g.SelectedCards()
	require.Len(t, selected, 1)
	assert.Equal(t, "b", selected[0].ID)

	err = g.ToggleSelectCard("nope")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestStartChallengeRejectsNonChallenge(t *testing.T) {
	g := newTestGame(t, Config{}, nil)
	err := g.StartChallenge(lifeCard("x", 3))
	assert.ErrorIs(t, err, ErrNotAChallenge)
}

func TestRewardChoiceFlow(t *testing.T) {
	rewards := []card.Card{
		{ID: "r-ins", Name: "Policy", Type: card.TypeInsurance, DurationType: card.DurationTerm, Power: 2, RemainingTurns: 3},
		{ID: "r-life", Name: "Life", Type: card.TypeLife, Power: 2},
	}
	factory := &stubFactory{deck: []card.Card{lifeCard("a", 9)}, rewards: rewards}
	g := newTestGame(t, Config{StartingHandSize: 1}, factory)

	faceChallenge(t, g, card.Card{ID: "ch", Type: card.TypeChallenge, Power: 5}, "a")
	require.Len(t, g.PendingChoices(), 2)

	require.NoError(t, g.SelectCard("r-ins"))
	assert.Empty(t, g.PendingChoices())
	assert.Len(t, g.ActiveInsurances(), 1)
	assert.True(t, g.ActiveInsurances()[0].ID == "r-ins")

	err := g.SelectCard("r-life")
	assert.ErrorIs(t, err, ErrNoPendingChoice, "choice already resolved")
}

func TestUnchosenRewardForfeitedOnNextTurn(t *testing.T) {
	rewards := []card.Card{{ID: "r", Type: card.TypeLife, Power: 2}}
	factory := &stubFactory{deck: []card.Card{lifeCard("a", 9)}, rewards: rewards}
	g := newTestGame(t, Config{StartingHandSize: 1}, factory)

	faceChallenge(t, g, card.Card{ID: "ch", Type: card.TypeChallenge, Power: 5}, "a")
	require.Len(t, g.PendingChoices(), 1)
	discardBefore := g.DiscardPileSize()

	require.NoError(t, g.NextTurn())
	assert.Empty(t, g.PendingChoices())
	assert.Equal(t, discardBefore+1, g.DiscardPileSize())
	assert.ErrorIs(t, g.SelectCard("r"), ErrNoPendingChoice)
}

func TestNextTurnTicksInsurance(t *testing.T) {
	g := newTestGame(t, Config{}, nil)

	require.NoError(t, g.AddInsurance(card.Card{
		ID: "t1", Type: card.TypeInsurance, DurationType: card.DurationTerm, Power: 2, RemainingTurns: 1,
	}))

	expired := 0
	g.EventBus().SubscribeTyped(rules.EventInsuranceExpired, func(rules.Event) { expired++ })

	require.NoError(t, g.NextTurn())
	assert.Equal(t, 1, expired, "expiration is surfaced, not silently dropped")
	assert.Empty(t, g.ActiveInsurances())
	assert.Equal(t, 0, g.InsuranceBurden())
	assert.Equal(t, 2, g.Turn())
}

func TestDuplicateInsuranceRejected(t *testing.T) {
	g := newTestGame(t, Config{}, nil)
	policy := card.Card{ID: "p", Type: card.TypeInsurance, DurationType: card.DurationWholeLife, Power: 1}

	require.NoError(t, g.AddInsurance(policy))
	err := g.AddInsurance(policy)
	assert.ErrorIs(t, err, insurance.ErrDuplicateInsurance)
}

func TestScenarioStageAgingClampsVitality(t *testing.T) {
	g := newTestGame(t, Config{StartingVitality: 35, VictoryThreshold: 40}, nil)
	require.Equal(t, 35, g.MaxVitality())

	// Play through the youth budget without facing challenges.
	for i := 0; i < 10; i++ {
		require.NoError(t, g.NextTurn())
	}

	assert.Equal(t, rules.StageMiddle, g.Stage())
	assert.Equal(t, 30, g.MaxVitality())
	assert.Equal(t, 30, g.Vitality(), "vitality clamps to the lower ceiling")
	assert.Equal(t, 1, g.TurnInStage())
}

func TestAdvanceStageForced(t *testing.T) {
	g := newTestGame(t, Config{VictoryThreshold: 40}, nil)

	require.NoError(t, g.AdvanceStage())
	assert.Equal(t, rules.StageMiddle, g.Stage())

	require.NoError(t, g.AdvanceStage())
	assert.Equal(t, rules.StageFulfillment, g.Stage())

	err := g.AdvanceStage()
	assert.Error(t, err, "no stage beyond fulfillment")
}

func TestStageTransitionRegeneratesChallengeDeck(t *testing.T) {
	g := newTestGame(t, Config{VictoryThreshold: 40}, nil)

	// Drain some of the youth challenge deck.
	_, err := g.DrawChallenge()
	require.NoError(t, err)
	_, err = g.DrawChallenge()
	require.NoError(t, err)
	before := g.ChallengeDeckSize()

	require.NoError(t, g.AdvanceStage())
	assert.Greater(t, g.ChallengeDeckSize(), before, "deck regenerated for the new stage")
}

func TestVictoryInFulfillment(t *testing.T) {
	g := newTestGame(t, Config{StartingVitality: 25, VictoryThreshold: 20}, nil)

	// Ride out youth and middle; vitality stays above the threshold.
	for g.Stage() != rules.StageFulfillment && g.IsInProgress() {
		require.NoError(t, g.NextTurn())
	}

	assert.Equal(t, StatusVictory, g.Status())
	assert.True(t, g.IsCompleted())
}

func TestGameOverOnVitalityZero(t *testing.T) {
	factory := &stubFactory{deck: []card.Card{lifeCard("a", 0)}}
	g := newTestGame(t, Config{StartingVitality: 1, StartingHandSize: 1}, factory)

	result := faceChallenge(t, g, card.Card{ID: "ch", Type: card.TypeChallenge, Power: 10}, "a")

	assert.False(t, result.Success)
	assert.Equal(t, 0, g.Vitality())
	assert.Equal(t, StatusGameOver, g.Status())
}

func TestTerminalStateGuard(t *testing.T) {
	factory := &stubFactory{deck: []card.Card{lifeCard("a", 0)}}
	g := newTestGame(t, Config{StartingVitality: 1, StartingHandSize: 1}, factory)
	faceChallenge(t, g, card.Card{ID: "ch", Type: card.TypeChallenge, Power: 10}, "a")
	require.True(t, g.IsCompleted())

	snapBefore := g.Snapshot()

	_, err := g.DrawCards(1)
	assert.ErrorIs(t, err, ErrGameEnded)
	assert.ErrorIs(t, g.StartChallenge(card.Card{ID: "x", Type: card.TypeChallenge}), ErrGameEnded)
	_, err = g.ResolveChallenge()
	assert.ErrorIs(t, err, ErrGameEnded)
	assert.ErrorIs(t, g.NextTurn(), ErrGameEnded)
	assert.ErrorIs(t, g.DiscardCard("a"), ErrGameEnded)
	assert.ErrorIs(t, g.AdvanceStage(), ErrGameEnded)
	assert.ErrorIs(t, g.AddInsurance(card.Card{ID: "i", Type: card.TypeInsurance, DurationType: card.DurationWholeLife}), ErrGameEnded)

	snapAfter := g.Snapshot()
	assert.Equal(t, snapBefore.Checksum(), snapAfter.Checksum(), "rejected calls leave state unchanged")
}

func TestDiscardCard(t *testing.T) {
	g := newTestGame(t, Config{StartingHandSize: 3}, nil)
	hand := g.Hand()

	require.NoError(t, g.DiscardCard(hand[0].ID))
	assert.Equal(t, 2, g.HandSize())
	assert.Equal(t, 1, g.DiscardPileSize())

	err := g.DiscardCard("missing")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestCalculateTotalPowerIsPure(t *testing.T) {
	g := newTestGame(t, Config{}, nil)
	cards := []card.Card{lifeCard("x", 4), lifeCard("y", 2)}

	first := g.CalculateTotalPower(cards)
	second := g.CalculateTotalPower(cards)
	assert.Equal(t, first, second)
	assert.Equal(t, 6, first.Base)
	assert.Equal(t, rules.PhaseDraw, g.Phase(), "no mutation")
}

func TestConfigValidation(t *testing.T) {
	factory := &stubFactory{deck: []card.Card{lifeCard("a", 1)}}

	_, err := NewGame(Config{StartingVitality: 99}, factory)
	assert.Error(t, err, "starting vitality above the youth ceiling")

	_, err = NewGame(Config{StartingHandSize: 9, MaxHandSize: 5}, factory)
	assert.Error(t, err, "starting hand above the cap")

	_, err = NewGame(Config{}, nil)
	assert.Error(t, err, "factory required")
}

func TestStartTwice(t *testing.T) {
	g := newTestGame(t, Config{}, nil)
	assert.ErrorIs(t, g.Start(), ErrAlreadyStarted)
}

func TestSeededShuffleReproducible(t *testing.T) {
	factory := &stubFactory{deck: []card.Card{
		lifeCard("a", 1), lifeCard("b", 2), lifeCard("c", 3),
		lifeCard("d", 4), lifeCard("e", 5), lifeCard("f", 6),
	}}

	build := func() *Game {
		g, err := NewGame(Config{StartingHandSize: 3, Rand: rand.New(rand.NewSource(99))}, factory)
		require.NoError(t, err)
		require.NoError(t, g.Start())
		return g
	}

	first, second := build(), build()
	require.Equal(t, first.HandSize(), second.HandSize())
	for i, c := range first.Hand() {
		assert.Equal(t, c.ID, second.Hand()[i].ID, "same seed, same deal")
	}
}

func TestNotStartedGuard(t *testing.T) {
	factory := &stubFactory{deck: []card.Card{lifeCard("a", 1)}}
	g, err := NewGame(Config{}, factory)
	require.NoError(t, err)

	_, err = g.DrawCards(1)
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}
