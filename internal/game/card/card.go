package card

import "fmt"

// Type classifies a card.
type Type string

const (
	TypeLife      Type = "LIFE"
	TypeInsurance Type = "INSURANCE"
	TypePitfall   Type = "PITFALL"
	TypeDream     Type = "DREAM"
	TypeChallenge Type = "CHALLENGE"
)

// DurationType distinguishes insurance policies by how long they stay active.
type DurationType string

const (
	// DurationWholeLife policies never expire and scale with the life stage.
	DurationWholeLife DurationType = "WHOLE_LIFE"
	// DurationTerm policies expire after a fixed number of turns.
	DurationTerm DurationType = "TERM"
)

// Category classifies a challenge for age-based difficulty adjustment.
type Category string

const (
	CategoryPhysical  Category = "PHYSICAL"
	CategoryKnowledge Category = "KNOWLEDGE"
	CategoryBalanced  Category = "BALANCED"
)

// Card is an immutable playable unit. Insurance fields are meaningful only
// when Type is TypeInsurance; challenge fields only when Type is
// TypeChallenge or TypeDream.
type Card struct {
	ID    string
	Name  string
	Type  Type
	Power int // may be negative for pitfall cards
	Cost  int

	// Insurance fields
	DurationType   DurationType
	Coverage       int
	RemainingTurns int // term policies only; the card expires at 0
	AgeBonus       int

	// Challenge fields
	Category    Category
	ExtremeRisk bool // extreme-risk challenges bypass insurance contribution
}

// IsInsurance reports whether the card is an insurance policy.
func (c Card) IsInsurance() bool {
	return c.Type == TypeInsurance
}

// IsTerm reports whether the card is a term insurance policy.
func (c Card) IsTerm() bool {
	return c.Type == TypeInsurance && c.DurationType == DurationTerm
}

// IsWholeLife reports whether the card is a whole-life insurance policy.
func (c Card) IsWholeLife() bool {
	return c.Type == TypeInsurance && c.DurationType == DurationWholeLife
}

// IsChallenge reports whether the card can be faced as a challenge.
// Dream cards are challenges with their own reward handling.
func (c Card) IsChallenge() bool {
	return c.Type == TypeChallenge || c.Type == TypeDream
}

// Expired reports whether a term policy has run out of turns.
// Whole-life policies never expire.
func (c Card) Expired() bool {
	return c.IsTerm() && c.RemainingTurns <= 0
}

func (c Card) String() string {
	return fmt.Sprintf("%s[%s power=%d]", c.Name, c.Type, c.Power)
}
