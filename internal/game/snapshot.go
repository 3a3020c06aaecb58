package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/lifegame/life-server-go/internal/game/card"
	"github.com/lifegame/life-server-go/internal/game/rules"
)

// CardSnapshot is the plain-data form of a card for persistence.
type CardSnapshot struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Power          int    `json:"power"`
	Cost           int    `json:"cost"`
	DurationType   string `json:"duration_type,omitempty"`
	Coverage       int    `json:"coverage,omitempty"`
	RemainingTurns int    `json:"remaining_turns,omitempty"`
	AgeBonus       int    `json:"age_bonus,omitempty"`
	Category       string `json:"category,omitempty"`
	ExtremeRisk    bool   `json:"extreme_risk,omitempty"`
}

// Snapshot is a plain-data view of the whole aggregate, sufficient for an
// external storage collaborator to serialize. No opaque handles.
type Snapshot struct {
	GameID          string `json:"game_id"`
	Status          string `json:"status"`
	Phase           string `json:"phase"`
	Stage           string `json:"stage"`
	Turn            int    `json:"turn"`
	TurnInStage     int    `json:"turn_in_stage"`
	Vitality        int    `json:"vitality"`
	MaxVitality     int    `json:"max_vitality"`
	InsuranceBurden int    `json:"insurance_burden"`

	Hand             []CardSnapshot `json:"hand"`
	PlayerDeck       []CardSnapshot `json:"player_deck"`
	ChallengeDeck    []CardSnapshot `json:"challenge_deck"`
	DiscardPile      []CardSnapshot `json:"discard_pile"`
	ActiveInsurances []CardSnapshot `json:"active_insurances"`
	SelectedCards    []CardSnapshot `json:"selected_cards"`
	PendingChoices   []CardSnapshot `json:"pending_choices"`
	CurrentChallenge *CardSnapshot  `json:"current_challenge,omitempty"`

	Stats   Stats                `json:"stats"`
	History []rules.HistoryEntry `json:"history"`

	TakenAt time.Time `json:"taken_at"`
}

func snapshotCard(c card.Card) CardSnapshot {
	return CardSnapshot{
		ID:             c.ID,
		Name:           c.Name,
		Type:           string(c.Type),
		Power:          c.Power,
		Cost:           c.Cost,
		DurationType:   string(c.DurationType),
		Coverage:       c.Coverage,
		RemainingTurns: c.RemainingTurns,
		AgeBonus:       c.AgeBonus,
		Category:       string(c.Category),
		ExtremeRisk:    c.ExtremeRisk,
	}
}

func snapshotCards(cards []card.Card) []CardSnapshot {
	out := make([]CardSnapshot, len(cards))
	for i, c := range cards {
		out[i] = snapshotCard(c)
	}
	return out
}

// Snapshot produces the plain-data view of the game.
func (g *Game) Snapshot() Snapshot {
	snap := Snapshot{
		GameID:           g.id,
		Status:           string(g.status),
		Phase:            g.phase.String(),
		Stage:            g.Stage().String(),
		Turn:             g.Turn(),
		TurnInStage:      g.TurnInStage(),
		Vitality:         g.vitality,
		MaxVitality:      g.maxVitality,
		InsuranceBurden:  g.ledger.Burden(),
		Hand:             snapshotCards(g.hand),
		PlayerDeck:       snapshotCards(g.playerDeck.List()),
		ChallengeDeck:    snapshotCards(g.challengeDeck.List()),
		DiscardPile:      snapshotCards(g.discardPile.List()),
		ActiveInsurances: snapshotCards(g.ledger.Active()),
		SelectedCards:    snapshotCards(g.selected),
		PendingChoices:   snapshotCards(g.pendingChoices),
		Stats:            g.stats,
		History:          g.history.Entries(),
		TakenAt:          time.Now(),
	}
	if g.currentCh != nil {
		cs := snapshotCard(*g.currentCh)
		snap.CurrentChallenge = &cs
	}
	return snap
}

// Checksum computes a deterministic SHA-256 over a canonical representation
// of the snapshot, excluding timestamps. Two snapshots of identical game
// state always hash the same, guarding against divergent restores.
func (s Snapshot) Checksum() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%s|%s|%s|%d|%d|%d|%d\n",
		s.GameID, s.Status, s.Phase, s.Stage, s.Turn, s.Vitality, s.MaxVitality, s.InsuranceBurden)
	fmt.Fprintf(&buf, "STATS:%d|%d|%d|%d|%d\n",
		s.Stats.TurnsPlayed, s.Stats.TotalChallenges, s.Stats.SuccessfulChallenges,
		s.Stats.FailedChallenges, s.Stats.HighestVitality)

	writeCards := func(label string, cards []CardSnapshot) {
		fmt.Fprintf(&buf, "%s:", label)
		for _, c := range cards {
			fmt.Fprintf(&buf, "%s|%s|%d|%d|%s|%d;", c.ID, c.Type, c.Power, c.Cost,
				c.DurationType, c.RemainingTurns)
		}
		buf.WriteByte('\n')
	}
	writeCards("HAND", s.Hand)
	writeCards("PDECK", s.PlayerDeck)
	writeCards("CDECK", s.ChallengeDeck)
	writeCards("DISCARD", s.DiscardPile)
	writeCards("INSURANCE", s.ActiveInsurances)
	writeCards("SELECTED", s.SelectedCards)
	writeCards("PENDING", s.PendingChoices)
	if s.CurrentChallenge != nil {
		writeCards("CURRENT", []CardSnapshot{*s.CurrentChallenge})
	}

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}
