package content

import (
	"sort"
	"time"

	"github.com/lifegame/life-server-go/internal/game/card"
	"github.com/lifegame/life-server-go/internal/game/rules"
)

// LCG is a 32-bit linear congruential generator (Numerical Recipes
// constants). Every client seeded with the same value sees the same
// sequence, which is what makes daily challenge sets shareable.
type LCG struct {
	state uint32
}

// NewLCG creates a generator with the given seed.
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// Next advances the generator and returns the next raw 32-bit value.
func (l *LCG) Next() uint32 {
	l.state = l.state*1664525 + 1013904223
	return l.state
}

// Intn returns a value in [0, n). Implements the deck shuffling contract, so
// a daily seed can drive deck order too.
func (l *LCG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(l.Next() % uint32(n))
}

// DailySeed derives the shared seed for a calendar date (UTC).
func DailySeed(t time.Time) uint32 {
	t = t.UTC()
	return uint32(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// DailyChallenges picks the challenge lineup of the day: count challenges per
// stage, identical for every player on the same date.
func (lib *Library) DailyChallenges(date time.Time, count int) map[rules.Stage][]card.Card {
	gen := NewLCG(DailySeed(date))
	out := make(map[rules.Stage][]card.Card, 3)

	for _, stage := range []rules.Stage{rules.StageYouth, rules.StageMiddle, rules.StageFulfillment} {
		pool := lib.challengePool(stage)
		if len(pool) == 0 {
			continue
		}
		picks := make([]card.Card, 0, count)
		for i := 0; i < count; i++ {
			picks = append(picks, pool[gen.Intn(len(pool))])
		}
		out[stage] = picks
	}
	return out
}

// challengePool returns the distinct challenge templates of a stage in a
// stable order, so the LCG indexes the same card on every client.
func (lib *Library) challengePool(stage rules.Stage) []card.Card {
	seen := make(map[string]bool)
	var pool []card.Card
	for _, e := range lib.challengeDecks[stage] {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		if c, ok := lib.Card(e.ID); ok {
			pool = append(pool, c)
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	return pool
}
