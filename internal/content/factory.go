package content

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lifegame/life-server-go/internal/game/card"
	"github.com/lifegame/life-server-go/internal/game/rules"
)

// RewardChoiceCount is how many reward cards a successful challenge offers.
const RewardChoiceCount = 3

// Factory deals cards from a library. It implements the engine's card factory
// contract: the engine decides when decks are built, the factory decides what
// is in them.
type Factory struct {
	lib  *Library
	rand card.Rand
}

// NewFactory creates a factory over the given library. rand drives reward
// pool sampling; pass a seeded source for reproducible deals.
func NewFactory(lib *Library, rand card.Rand) *Factory {
	return &Factory{lib: lib, rand: rand}
}

// instantiate stamps a unique instance id on a template copy, so several
// copies of the same definition stay distinguishable in hands and ledgers.
func (f *Factory) instantiate(template card.Card) card.Card {
	c := template
	c.ID = fmt.Sprintf("%s#%s", template.ID, uuid.New().String()[:8])
	return c
}

func (f *Factory) deal(entries []deckEntry) []card.Card {
	var out []card.Card
	for _, e := range entries {
		template, ok := f.lib.Card(e.ID)
		if !ok {
			continue // validated at load; unreachable for embedded catalogs
		}
		copies := e.Copies
		if copies <= 0 {
			copies = 1
		}
		for i := 0; i < copies; i++ {
			out = append(out, f.instantiate(template))
		}
	}
	return out
}

// PlayerDeck builds the starter deck for a difficulty. Unknown difficulties
// fall back to the normal deck.
func (f *Factory) PlayerDeck(difficulty string) []card.Card {
	entries, ok := f.lib.playerDecks[difficulty]
	if !ok {
		entries = f.lib.playerDecks["normal"]
	}
	return f.deal(entries)
}

// ChallengeDeck builds the challenge deck for a stage. In the fulfillment
// stage up to dreamCards dream cards are mixed in.
func (f *Factory) ChallengeDeck(stage rules.Stage, dreamCards int) []card.Card {
	deck := f.deal(f.lib.challengeDecks[stage])
	if stage != rules.StageFulfillment || dreamCards <= 0 {
		return deck
	}

	for i := 0; i < dreamCards && len(f.lib.dreamCards) > 0; i++ {
		id := f.lib.dreamCards[i%len(f.lib.dreamCards)]
		template, ok := f.lib.Card(id)
		if !ok {
			continue
		}
		deck = append(deck, f.instantiate(template))
	}
	return deck
}

// RewardChoices samples the stage's reward pool after a successful challenge.
// Harder challenges do not change the pool, only the stage does.
func (f *Factory) RewardChoices(challenge card.Card, stage rules.Stage) []card.Card {
	pool := f.lib.rewardPools[stage]
	if len(pool) == 0 {
		return nil
	}

	n := RewardChoiceCount
	if n > len(pool) {
		n = len(pool)
	}

	// Partial Fisher-Yates over a scratch copy of the pool ids.
	ids := make([]string, len(pool))
	copy(ids, pool)
	choices := make([]card.Card, 0, n)
	for i := 0; i < n; i++ {
		j := i
		if f.rand != nil {
			j = i + f.rand.Intn(len(ids)-i)
		}
		ids[i], ids[j] = ids[j], ids[i]
		template, ok := f.lib.Card(ids[i])
		if !ok {
			continue
		}
		choices = append(choices, f.instantiate(template))
	}
	return choices
}
