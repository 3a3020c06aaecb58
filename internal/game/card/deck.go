package card

// Rand is the random source used for shuffling. *math/rand.Rand satisfies it,
// as does content.LCG; tests inject a seeded source for determinism.
type Rand interface {
	Intn(n int) int
}

// Deck is an ordered card collection. Insertion order is preserved until
// Shuffle is called, which keeps tests deterministic.
type Deck struct {
	cards []Card
}

// NewDeck creates a deck containing the given cards in order.
func NewDeck(cards ...Card) *Deck {
	d := &Deck{cards: make([]Card, 0, len(cards))}
	d.cards = append(d.cards, cards...)
	return d
}

// AddCards appends cards to the bottom of the deck.
func (d *Deck) AddCards(cards ...Card) {
	d.cards = append(d.cards, cards...)
}

// Shuffle randomizes the deck order with a Fisher-Yates shuffle.
func (d *Deck) Shuffle(rng Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card. The second return value is false
// when the deck is exhausted; callers treat that as a normal end-game
// condition, not an error.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	top := d.cards[0]
	d.cards = d.cards[1:]
	return top, true
}

// Size returns the number of cards remaining.
func (d *Deck) Size() int {
	return len(d.cards)
}

// Clear removes all cards.
func (d *Deck) Clear() {
	d.cards = d.cards[:0]
}

// Replace swaps the deck contents for a new set of cards. Used when the
// challenge deck is regenerated on a stage transition.
func (d *Deck) Replace(cards []Card) {
	d.cards = append(d.cards[:0], cards...)
}

// List returns a copy of the current order for inspection.
func (d *Deck) List() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
