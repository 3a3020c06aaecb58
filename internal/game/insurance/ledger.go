// Package insurance tracks the active insurance policies a player holds and
// their remaining term durations.
package insurance

import (
	"errors"
	"fmt"

	"github.com/lifegame/life-server-go/internal/game/card"
	"github.com/lifegame/life-server-go/internal/game/power"
)

var (
	// ErrDuplicateInsurance is returned when a policy id is already active.
	ErrDuplicateInsurance = errors.New("insurance already active")
	// ErrInvalidInsuranceState is returned when a card cannot legally become
	// an active policy (wrong type, or a term policy already expired).
	ErrInvalidInsuranceState = errors.New("invalid insurance state")
)

// Ledger owns the set of active insurance policies, unique by card id.
// Iteration order is insertion order so UI rendering stays deterministic.
type Ledger struct {
	order []string
	cards map[string]card.Card
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{cards: make(map[string]card.Card)}
}

// Add activates an insurance policy.
func (l *Ledger) Add(c card.Card) error {
	if !c.IsInsurance() {
		return fmt.Errorf("%w: %s is not an insurance card", ErrInvalidInsuranceState, c.Type)
	}
	if c.IsTerm() && c.RemainingTurns <= 0 {
		return fmt.Errorf("%w: term policy %s has no remaining turns", ErrInvalidInsuranceState, c.ID)
	}
	if _, exists := l.cards[c.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateInsurance, c.ID)
	}
	l.order = append(l.order, c.ID)
	l.cards[c.ID] = c
	return nil
}

// TickTurn decrements the remaining turns of every term policy and removes
// the ones that reach zero. Expired policies are returned so the caller can
// surface them as notifications; they are never silently dropped.
func (l *Ledger) TickTurn() []card.Card {
	var expired []card.Card
	remaining := l.order[:0]
	for _, id := range l.order {
		c := l.cards[id]
		if c.IsTerm() {
			c.RemainingTurns--
			if c.RemainingTurns <= 0 {
				expired = append(expired, c)
				delete(l.cards, id)
				continue
			}
			l.cards[id] = c
		}
		remaining = append(remaining, id)
	}
	l.order = remaining
	return expired
}

// Burden returns the derived power penalty for the current policy count.
// It is always recomputed from the live count, never stored.
func (l *Ledger) Burden() int {
	return power.BurdenFor(len(l.order))
}

// Active returns a snapshot of the active policies in insertion order.
func (l *Ledger) Active() []card.Card {
	out := make([]card.Card, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.cards[id])
	}
	return out
}

// Count returns the number of active policies.
func (l *Ledger) Count() int {
	return len(l.order)
}

// Has reports whether a policy with the given id is active.
func (l *Ledger) Has(id string) bool {
	_, ok := l.cards[id]
	return ok
}
