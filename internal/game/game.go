package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/lifegame/life-server-go/internal/game/card"
	"github.com/lifegame/life-server-go/internal/game/insurance"
	"github.com/lifegame/life-server-go/internal/game/power"
	"github.com/lifegame/life-server-go/internal/game/rules"
)

// Status represents the lifecycle state of a game.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusVictory    Status = "VICTORY"
	StatusGameOver   Status = "GAME_OVER"
)

// CardFactory supplies card content. The engine only dictates when decks are
// built and regenerated; what is in them is the factory's business.
type CardFactory interface {
	// PlayerDeck returns the starter deck for a new game.
	PlayerDeck(difficulty string) []card.Card
	// ChallengeDeck returns the challenge deck for a stage. dreamCards is
	// the number of dream cards to seed (fulfillment only; factories may
	// ignore it for earlier stages).
	ChallengeDeck(stage rules.Stage, dreamCards int) []card.Card
	// RewardChoices returns the cards offered after a successful challenge.
	RewardChoices(challenge card.Card, stage rules.Stage) []card.Card
}

// Config configures a new game.
type Config struct {
	Difficulty       string
	StartingVitality int
	StartingHandSize int
	MaxHandSize      int
	DreamCardCount   int
	VictoryThreshold int

	// Rand is the random source for deck shuffling. Defaults to a
	// time-seeded math/rand source; tests inject a fixed seed.
	Rand card.Rand
	// Policy decides vitality reward/penalty magnitudes. Defaults to
	// NewDefaultVitalityPolicy.
	Policy VitalityPolicy
}

func (c *Config) applyDefaults() {
	if c.Difficulty == "" {
		c.Difficulty = "normal"
	}
	if c.StartingVitality == 0 {
		c.StartingVitality = 20
	}
	if c.StartingHandSize == 0 {
		c.StartingHandSize = 5
	}
	if c.MaxHandSize == 0 {
		c.MaxHandSize = 7
	}
	if c.DreamCardCount == 0 {
		c.DreamCardCount = 3
	}
	if c.VictoryThreshold == 0 {
		c.VictoryThreshold = 20
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.Policy == nil {
		c.Policy = NewDefaultVitalityPolicy()
	}
}

// Stats tracks per-game counters.
type Stats struct {
	TurnsPlayed          int `json:"turns_played"`
	TotalChallenges      int `json:"total_challenges"`
	SuccessfulChallenges int `json:"successful_challenges"`
	FailedChallenges     int `json:"failed_challenges"`
	HighestVitality      int `json:"highest_vitality"`
}

// Game is the aggregate root of a single life-game run. It is a synchronous
// state machine driven by discrete external calls; it performs no I/O and
// holds no locks. The owning engine serializes access.
type Game struct {
	id      string
	cfg     Config
	factory CardFactory

	status      Status
	phase       rules.Phase
	progression *rules.Progression
	started     bool

	vitality    int
	maxVitality int

	hand          []card.Card
	playerDeck    *card.Deck
	challengeDeck *card.Deck
	discardPile   *card.Deck

	ledger         *insurance.Ledger
	currentCh      *card.Card
	selected       []card.Card
	pendingChoices []card.Card

	stats Stats

	bus     *rules.EventBus
	history *rules.HistoryRecorder
}

// NewGame constructs a game from the given config. The game is not started.
func NewGame(cfg Config, factory CardFactory) (*Game, error) {
	if factory == nil {
		return nil, fmt.Errorf("card factory is required")
	}
	cfg.applyDefaults()
	if cfg.StartingVitality > rules.StageYouth.MaxVitality() {
		return nil, fmt.Errorf("starting vitality %d exceeds youth ceiling %d",
			cfg.StartingVitality, rules.StageYouth.MaxVitality())
	}
	if cfg.StartingHandSize > cfg.MaxHandSize {
		return nil, fmt.Errorf("starting hand size %d exceeds max hand size %d",
			cfg.StartingHandSize, cfg.MaxHandSize)
	}

	bus := rules.NewEventBus()
	g := &Game{
		id:            uuid.New().String(),
		cfg:           cfg,
		factory:       factory,
		status:        StatusInProgress,
		phase:         rules.PhaseDraw,
		progression:   rules.NewProgression(),
		vitality:      cfg.StartingVitality,
		maxVitality:   rules.StageYouth.MaxVitality(),
		playerDeck:    card.NewDeck(),
		challengeDeck: card.NewDeck(),
		discardPile:   card.NewDeck(),
		ledger:        insurance.NewLedger(),
		bus:           bus,
		history:       rules.NewHistoryRecorder(bus),
	}
	g.stats.HighestVitality = cfg.StartingVitality
	return g, nil
}

// ID returns the game's unique identifier.
func (g *Game) ID() string { return g.id }

// EventBus exposes the game's event bus for observers (engine, history).
func (g *Game) EventBus() *rules.EventBus { return g.bus }

// History returns the recorded event timeline.
func (g *Game) History() []rules.HistoryEntry { return g.history.Entries() }

// Start seeds the decks and draws the initial hand.
func (g *Game) Start() error {
	if g.started {
		return ErrAlreadyStarted
	}
	g.started = true

	g.playerDeck.Replace(g.factory.PlayerDeck(g.cfg.Difficulty))
	g.playerDeck.Shuffle(g.cfg.Rand)
	g.rebuildChallengeDeck(rules.StageYouth)

	for i := 0; i < g.cfg.StartingHandSize; i++ {
		c, ok := g.playerDeck.Draw()
		if !ok {
			break
		}
		g.hand = append(g.hand, c)
	}

	g.phase = rules.PhaseDraw
	evt := rules.NewEvent(rules.EventGameStarted, g.id, "", g.Turn())
	evt.Amount = len(g.hand)
	evt.Description = fmt.Sprintf("game started with %d cards in hand", len(g.hand))
	g.bus.Publish(evt)
	return nil
}

func (g *Game) rebuildChallengeDeck(stage rules.Stage) {
	g.challengeDeck.Replace(g.factory.ChallengeDeck(stage, g.cfg.DreamCardCount))
	g.challengeDeck.Shuffle(g.cfg.Rand)
}

func (g *Game) guardMutation() error {
	if !g.started {
		return ErrNotStarted
	}
	if g.status != StatusInProgress {
		return fmt.Errorf("%w: status is %s", ErrGameEnded, g.status)
	}
	return nil
}

// DrawCards draws up to n cards from the player deck into the hand. Fewer
// cards are returned when the hand cap or the deck bottom is reached; that
// is an expected condition, never an error.
func (g *Game) DrawCards(n int) ([]card.Card, error) {
	if err := g.guardMutation(); err != nil {
		return nil, err
	}
	if g.phase != rules.PhaseDraw {
		return nil, fmt.Errorf("%w: draw requested in %s", ErrInvalidPhase, g.phase)
	}

	var drawn []card.Card
	for i := 0; i < n; i++ {
		if len(g.hand) >= g.cfg.MaxHandSize {
			break
		}
		c, ok := g.playerDeck.Draw()
		if !ok {
			break
		}
		g.hand = append(g.hand, c)
		drawn = append(drawn, c)

		evt := rules.NewEvent(rules.EventCardDrawn, g.id, c.ID, g.Turn())
		evt.Description = fmt.Sprintf("drew %s", c.Name)
		g.bus.Publish(evt)
	}
	return drawn, nil
}

// DrawChallenge draws the next challenge card from the challenge deck.
// The card is not yet faced; pass it to StartChallenge. The guards run
// before the draw so that a rejected call never loses a card.
func (g *Game) DrawChallenge() (card.Card, error) {
	if err := g.guardMutation(); err != nil {
		return card.Card{}, err
	}
	if g.phase != rules.PhaseDraw {
		return card.Card{}, fmt.Errorf("%w: challenge drawn in %s", ErrInvalidPhase, g.phase)
	}
	c, ok := g.challengeDeck.Draw()
	if !ok {
		return card.Card{}, ErrChallengeDeckEmpty
	}
	return c, nil
}

// StartChallenge sets the current challenge and moves to the challenge phase.
func (g *Game) StartChallenge(c card.Card) error {
	if err := g.guardMutation(); err != nil {
		return err
	}
	if g.phase != rules.PhaseDraw {
		return fmt.Errorf("%w: challenge started in %s", ErrInvalidPhase, g.phase)
	}
	if !c.IsChallenge() {
		return fmt.Errorf("%w: %s", ErrNotAChallenge, c.Type)
	}

	ch := c
	g.currentCh = &ch
	g.selected = nil
	g.phase = rules.PhaseChallenge
	g.stats.TotalChallenges++

	evt := rules.NewEvent(rules.EventChallengeStarted, g.id, c.ID, g.Turn())
	evt.Amount = AdjustedChallengePower(c, g.Stage())
	evt.Description = fmt.Sprintf("facing %s (power %d)", c.Name, c.Power)
	g.bus.Publish(evt)
	return nil
}

// SetSelectedCards replaces the working selection for the current challenge.
// Every id must be in hand.
func (g *Game) SetSelectedCards(ids ...string) error {
	if err := g.guardMutation(); err != nil {
		return err
	}
	if g.phase != rules.PhaseChallenge {
		return fmt.Errorf("%w: selection changed in %s", ErrInvalidPhase, g.phase)
	}

	selected := make([]card.Card, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, ok := g.cardInHand(id)
		if !ok {
			return fmt.Errorf("%w: %s not in hand", ErrCardNotFound, id)
		}
		selected = append(selected, c)
	}
	g.selected = selected
	return nil
}

// ToggleSelectCard adds a hand card to the working selection, or removes it
// if it is already selected.
func (g *Game) ToggleSelectCard(id string) error {
	if err := g.guardMutation(); err != nil {
		return err
	}
	if g.phase != rules.PhaseChallenge {
		return fmt.Errorf("%w: selection changed in %s", ErrInvalidPhase, g.phase)
	}

	for i, c := range g.selected {
		if c.ID == id {
			g.selected = append(g.selected[:i], g.selected[i+1:]...)
			return nil
		}
	}
	c, ok := g.cardInHand(id)
	if !ok {
		return fmt.Errorf("%w: %s not in hand", ErrCardNotFound, id)
	}
	g.selected = append(g.selected, c)
	return nil
}

// SelectedCards returns the current working selection.
func (g *Game) SelectedCards() []card.Card {
	out := make([]card.Card, len(g.selected))
	copy(out, g.selected)
	return out
}

// ResolveChallenge resolves the current challenge against the selection and
// moves to the resolution phase. Used cards go to the discard pile; a
// successful challenge may leave a pending reward choice.
func (g *Game) ResolveChallenge() (*Result, error) {
	if err := g.guardMutation(); err != nil {
		return nil, err
	}
	if g.phase != rules.PhaseChallenge {
		return nil, fmt.Errorf("%w: resolve requested in %s", ErrInvalidPhase, g.phase)
	}
	if g.currentCh == nil {
		return nil, ErrNoCurrentChallenge
	}
	if len(g.selected) == 0 {
		return nil, ErrEmptySelection
	}

	challenge := *g.currentCh
	breakdown := power.Calculate(g.selected, g.ledger.Active(), g.Stage())
	result := resolveChallenge(challenge, breakdown, g.Stage(), g.cfg.Policy)

	if result.Success {
		g.stats.SuccessfulChallenges++
	} else {
		g.stats.FailedChallenges++
	}

	// Used cards leave the hand; the challenge card is spent either way.
	for _, c := range g.selected {
		g.removeFromHand(c.ID)
		g.discardPile.AddCards(c)
	}
	g.discardPile.AddCards(challenge)
	g.selected = nil
	g.currentCh = nil
	g.phase = rules.PhaseResolution

	if result.Success {
		g.pendingChoices = g.factory.RewardChoices(challenge, g.Stage())
	}

	evt := rules.NewEvent(rules.EventChallengeResolved, g.id, challenge.ID, g.Turn())
	evt.Flag = result.Success
	evt.Amount = result.VitalityChange
	evt.Description = fmt.Sprintf("challenge %s: player %d vs %d", challenge.Name,
		result.PlayerPower, result.AdjustedPower)
	g.bus.Publish(evt)

	g.applyVitalityChange(result.VitalityChange, "challenge outcome")
	return &result, nil
}

// PendingChoices returns the reward cards awaiting a SelectCard call.
func (g *Game) PendingChoices() []card.Card {
	out := make([]card.Card, len(g.pendingChoices))
	copy(out, g.pendingChoices)
	return out
}

// SelectCard resolves a pending reward choice. Insurance rewards become
// active policies; anything else joins the hand (or the discard pile when
// the hand is full). Unchosen rewards are discarded.
func (g *Game) SelectCard(id string) error {
	if err := g.guardMutation(); err != nil {
		return err
	}
	if len(g.pendingChoices) == 0 {
		return ErrNoPendingChoice
	}

	idx := -1
	for i, c := range g.pendingChoices {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s not among pending choices", ErrCardNotFound, id)
	}

	chosen := g.pendingChoices[idx]
	for i, c := range g.pendingChoices {
		if i != idx {
			g.discardPile.AddCards(c)
		}
	}
	g.pendingChoices = nil

	evt := rules.NewEvent(rules.EventRewardChosen, g.id, chosen.ID, g.Turn())
	evt.Description = fmt.Sprintf("chose %s", chosen.Name)
	g.bus.Publish(evt)

	if chosen.IsInsurance() {
		if err := g.ledger.Add(chosen); err != nil {
			// A bad offer is the factory's bug; the card is lost, not held.
			g.discardPile.AddCards(chosen)
			return err
		}
		added := rules.NewEvent(rules.EventInsuranceAdded, g.id, chosen.ID, g.Turn())
		added.Amount = g.ledger.Burden()
		added.Description = fmt.Sprintf("activated %s", chosen.Name)
		g.bus.Publish(added)
		return nil
	}

	if len(g.hand) >= g.cfg.MaxHandSize {
		g.discardPile.AddCards(chosen)
		return nil
	}
	g.hand = append(g.hand, chosen)
	return nil
}

// DiscardCard moves a card from the hand to the discard pile.
func (g *Game) DiscardCard(id string) error {
	if err := g.guardMutation(); err != nil {
		return err
	}
	c, ok := g.cardInHand(id)
	if !ok {
		return fmt.Errorf("%w: %s not in hand", ErrCardNotFound, id)
	}
	g.removeFromHand(id)
	g.discardPile.AddCards(c)

	evt := rules.NewEvent(rules.EventCardDiscarded, g.id, id, g.Turn())
	evt.Description = fmt.Sprintf("discarded %s", c.Name)
	g.bus.Publish(evt)
	return nil
}

// NextTurn completes the current turn: the insurance ledger ticks, the stage
// boundary is checked, and end conditions are evaluated. Permitted from the
// draw phase (skipping the challenge) and from the resolution phase.
func (g *Game) NextTurn() error {
	if err := g.guardMutation(); err != nil {
		return err
	}
	if g.phase == rules.PhaseChallenge {
		return fmt.Errorf("%w: turn ended during %s", ErrInvalidPhase, g.phase)
	}

	// A reward left unchosen is forfeited.
	for _, c := range g.pendingChoices {
		g.discardPile.AddCards(c)
	}
	g.pendingChoices = nil

	g.stats.TurnsPlayed++
	turn := g.progression.AdvanceTurn()

	for _, expired := range g.ledger.TickTurn() {
		evt := rules.NewEvent(rules.EventInsuranceExpired, g.id, expired.ID, turn)
		evt.Amount = g.ledger.Burden()
		evt.Description = fmt.Sprintf("%s expired", expired.Name)
		g.bus.Publish(evt)
	}

	if g.progression.ShouldTransition() {
		g.applyStageTransition()
	}
	if g.status != StatusInProgress {
		// The transition ended the game; GAME_ENDED is the final event.
		g.phase = rules.PhaseDraw
		return nil
	}

	evt := rules.NewEvent(rules.EventTurnEnded, g.id, "", turn)
	evt.Description = fmt.Sprintf("turn %d begins (%s)", turn, g.Stage())
	g.bus.Publish(evt)

	g.phase = rules.PhaseDraw
	g.checkEndConditions()
	return nil
}

// AdvanceStage forces a stage transition. The UI calls this after its own
// boundary check; the internal guard still fires transitions at most once
// per stage.
func (g *Game) AdvanceStage() error {
	if err := g.guardMutation(); err != nil {
		return err
	}
	return g.applyStageTransition()
}

func (g *Game) applyStageTransition() error {
	from, to, ok := g.progression.Transition()
	if !ok {
		return fmt.Errorf("no stage beyond %s", from)
	}

	prevMax := g.maxVitality
	g.maxVitality = to.MaxVitality()
	if g.vitality > g.maxVitality {
		g.vitality = g.maxVitality
	}
	g.rebuildChallengeDeck(to)

	evt := rules.NewEvent(rules.EventStageChanged, g.id, "", g.Turn())
	evt.Amount = g.maxVitality
	evt.Metadata["from"] = from.String()
	evt.Metadata["to"] = to.String()
	evt.Description = fmt.Sprintf("stage %s -> %s, max vitality %d -> %d",
		from, to, prevMax, g.maxVitality)
	g.bus.Publish(evt)

	g.checkEndConditions()
	return nil
}

func (g *Game) applyVitalityChange(delta int, reason string) {
	if delta == 0 {
		g.checkEndConditions()
		return
	}
	g.vitality += delta
	if g.vitality > g.maxVitality {
		g.vitality = g.maxVitality
	}
	if g.vitality < 0 {
		g.vitality = 0
	}
	if g.vitality > g.stats.HighestVitality {
		g.stats.HighestVitality = g.vitality
	}

	evt := rules.NewEvent(rules.EventVitalityChanged, g.id, "", g.Turn())
	evt.Amount = delta
	evt.Description = fmt.Sprintf("vitality %+d (%s), now %d/%d", delta, reason,
		g.vitality, g.maxVitality)
	g.bus.Publish(evt)

	g.checkEndConditions()
}

// checkEndConditions runs after every turn advance and vitality mutation.
func (g *Game) checkEndConditions() {
	if g.status != StatusInProgress {
		return
	}

	switch {
	case g.vitality <= 0:
		g.finish(StatusGameOver, "vitality exhausted")
	case g.Stage() == rules.StageFulfillment && g.vitality >= g.cfg.VictoryThreshold:
		g.finish(StatusVictory, "fulfillment reached with enough vitality")
	case g.progression.FinalTurnReached():
		// Out of turns below the threshold.
		g.finish(StatusGameOver, "life ended short of fulfillment")
	}
}

func (g *Game) finish(status Status, reason string) {
	g.status = status

	evt := rules.NewEvent(rules.EventGameEnded, g.id, "", g.Turn())
	evt.Flag = status == StatusVictory
	evt.Description = reason
	g.bus.Publish(evt)
}

// CalculateTotalPower computes a power breakdown for an arbitrary selection
// against the live insurance set and stage. Pure; no mutation.
func (g *Game) CalculateTotalPower(cards []card.Card) power.Breakdown {
	return power.Calculate(cards, g.ledger.Active(), g.Stage())
}

// ActiveInsurances returns a snapshot of the active policies.
func (g *Game) ActiveInsurances() []card.Card { return g.ledger.Active() }

// InsuranceBurden returns the current derived burden.
func (g *Game) InsuranceBurden() int { return g.ledger.Burden() }

// AddInsurance activates an insurance policy directly (new-game carryover,
// shop purchases). Reward flows go through SelectCard instead.
func (g *Game) AddInsurance(c card.Card) error {
	if err := g.guardMutation(); err != nil {
		return err
	}
	if err := g.ledger.Add(c); err != nil {
		return err
	}
	evt := rules.NewEvent(rules.EventInsuranceAdded, g.id, c.ID, g.Turn())
	evt.Amount = g.ledger.Burden()
	evt.Description = fmt.Sprintf("activated %s", c.Name)
	g.bus.Publish(evt)
	return nil
}

// Observable state accessors.

func (g *Game) Vitality() int           { return g.vitality }
func (g *Game) MaxVitality() int        { return g.maxVitality }
func (g *Game) Turn() int               { return g.progression.Turn() }
func (g *Game) TurnInStage() int        { return g.progression.TurnInStage() }
func (g *Game) Stage() rules.Stage      { return g.progression.Stage() }
func (g *Game) Phase() rules.Phase      { return g.phase }
func (g *Game) Status() Status          { return g.status }
func (g *Game) Stats() Stats            { return g.stats }
func (g *Game) HandSize() int           { return len(g.hand) }
func (g *Game) PlayerDeckSize() int     { return g.playerDeck.Size() }
func (g *Game) ChallengeDeckSize() int  { return g.challengeDeck.Size() }
func (g *Game) DiscardPileSize() int    { return g.discardPile.Size() }

// Hand returns a snapshot of the hand.
func (g *Game) Hand() []card.Card {
	out := make([]card.Card, len(g.hand))
	copy(out, g.hand)
	return out
}

// CurrentChallenge returns the challenge being faced, if any.
func (g *Game) CurrentChallenge() (card.Card, bool) {
	if g.currentCh == nil {
		return card.Card{}, false
	}
	return *g.currentCh, true
}

// IsInProgress reports whether the game still accepts moves.
func (g *Game) IsInProgress() bool { return g.status == StatusInProgress }

// IsCompleted reports whether the game reached a terminal status.
func (g *Game) IsCompleted() bool { return g.status != StatusInProgress }

func (g *Game) cardInHand(id string) (card.Card, bool) {
	for _, c := range g.hand {
		if c.ID == id {
			return c, true
		}
	}
	return card.Card{}, false
}

func (g *Game) removeFromHand(id string) {
	for i, c := range g.hand {
		if c.ID == id {
			g.hand = append(g.hand[:i], g.hand[i+1:]...)
			return
		}
	}
}
