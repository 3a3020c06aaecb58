// Package content supplies the card catalog: the definitions shipped with the
// binary, the deck lists built from them, and the seeded daily challenge sets.
package content

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/lifegame/life-server-go/internal/game/card"
	"github.com/lifegame/life-server-go/internal/game/rules"
	"gopkg.in/yaml.v3"
)

//go:embed cards.yaml
var defaultCatalog []byte

type cardDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Power       int    `yaml:"power"`
	Cost        int    `yaml:"cost"`
	Duration    string `yaml:"duration"`
	Coverage    int    `yaml:"coverage"`
	Turns       int    `yaml:"turns"`
	AgeBonus    int    `yaml:"age_bonus"`
	Category    string `yaml:"category"`
	ExtremeRisk bool   `yaml:"extreme_risk"`
}

type deckEntry struct {
	ID     string `yaml:"id"`
	Copies int    `yaml:"copies"`
}

type catalog struct {
	Cards          []cardDef              `yaml:"cards"`
	PlayerDecks    map[string][]deckEntry `yaml:"player_decks"`
	ChallengeDecks map[string][]deckEntry `yaml:"challenge_decks"`
	DreamCards     []string               `yaml:"dream_cards"`
	RewardPools    map[string][]string    `yaml:"reward_pools"`
}

// Library holds the parsed card catalog. Lookups return templates; the
// factory stamps instance ids when it deals copies.
type Library struct {
	defs           map[string]card.Card
	playerDecks    map[string][]deckEntry
	challengeDecks map[rules.Stage][]deckEntry
	dreamCards     []string
	rewardPools    map[rules.Stage][]string
}

// LoadLibrary parses the embedded catalog.
func LoadLibrary() (*Library, error) {
	return parseLibrary(defaultCatalog)
}

// LoadLibraryFile parses a catalog from disk, for modded card sets.
func LoadLibraryFile(path string) (*Library, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return parseLibrary(b)
}

func parseLibrary(b []byte) (*Library, error) {
	var cat catalog
	if err := yaml.Unmarshal(b, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(cat.Cards) == 0 {
		return nil, fmt.Errorf("catalog defines no cards")
	}

	lib := &Library{
		defs:           make(map[string]card.Card, len(cat.Cards)),
		playerDecks:    cat.PlayerDecks,
		challengeDecks: make(map[rules.Stage][]deckEntry, len(cat.ChallengeDecks)),
		dreamCards:     cat.DreamCards,
		rewardPools:    make(map[rules.Stage][]string, len(cat.RewardPools)),
	}

	for _, def := range cat.Cards {
		if def.ID == "" {
			return nil, fmt.Errorf("card %q has no id", def.Name)
		}
		if _, dup := lib.defs[def.ID]; dup {
			return nil, fmt.Errorf("duplicate card id %q", def.ID)
		}
		c, err := def.toCard()
		if err != nil {
			return nil, fmt.Errorf("card %q: %w", def.ID, err)
		}
		lib.defs[def.ID] = c
	}

	for name, entries := range cat.ChallengeDecks {
		stage, err := stageByName(name)
		if err != nil {
			return nil, err
		}
		lib.challengeDecks[stage] = entries
	}
	for name, ids := range cat.RewardPools {
		stage, err := stageByName(name)
		if err != nil {
			return nil, err
		}
		lib.rewardPools[stage] = ids
	}

	if err := lib.validateReferences(); err != nil {
		return nil, err
	}
	return lib, nil
}

func (d cardDef) toCard() (card.Card, error) {
	c := card.Card{
		ID:          d.ID,
		Name:        d.Name,
		Power:       d.Power,
		Cost:        d.Cost,
		Coverage:    d.Coverage,
		AgeBonus:    d.AgeBonus,
		ExtremeRisk: d.ExtremeRisk,
	}

	switch card.Type(d.Type) {
	case card.TypeLife, card.TypeInsurance, card.TypePitfall, card.TypeDream, card.TypeChallenge:
		c.Type = card.Type(d.Type)
	default:
		return card.Card{}, fmt.Errorf("unknown card type %q", d.Type)
	}

	if c.Type == card.TypeInsurance {
		switch card.DurationType(d.Duration) {
		case card.DurationTerm:
			if d.Turns <= 0 {
				return card.Card{}, fmt.Errorf("term policy needs positive turns, got %d", d.Turns)
			}
			c.DurationType = card.DurationTerm
			c.RemainingTurns = d.Turns
		case card.DurationWholeLife:
			c.DurationType = card.DurationWholeLife
		default:
			return card.Card{}, fmt.Errorf("unknown duration %q", d.Duration)
		}
	}

	switch card.Category(d.Category) {
	case card.CategoryPhysical, card.CategoryKnowledge:
		c.Category = card.Category(d.Category)
	case "":
		c.Category = card.CategoryBalanced
	case card.CategoryBalanced:
		c.Category = card.CategoryBalanced
	default:
		return card.Card{}, fmt.Errorf("unknown category %q", d.Category)
	}

	return c, nil
}

func stageByName(name string) (rules.Stage, error) {
	switch name {
	case "youth":
		return rules.StageYouth, nil
	case "middle":
		return rules.StageMiddle, nil
	case "fulfillment":
		return rules.StageFulfillment, nil
	default:
		return 0, fmt.Errorf("unknown stage %q", name)
	}
}

func (lib *Library) validateReferences() error {
	check := func(where, id string) error {
		if _, ok := lib.defs[id]; !ok {
			return fmt.Errorf("%s references unknown card %q", where, id)
		}
		return nil
	}

	for difficulty, entries := range lib.playerDecks {
		for _, e := range entries {
			if err := check("player deck "+difficulty, e.ID); err != nil {
				return err
			}
		}
	}
	for stage, entries := range lib.challengeDecks {
		for _, e := range entries {
			if err := check("challenge deck "+stage.String(), e.ID); err != nil {
				return err
			}
		}
	}
	for _, id := range lib.dreamCards {
		if err := check("dream cards", id); err != nil {
			return err
		}
		if lib.defs[id].Type != card.TypeDream {
			return fmt.Errorf("dream card list includes non-dream card %q", id)
		}
	}
	for stage, ids := range lib.rewardPools {
		for _, id := range ids {
			if err := check("reward pool "+stage.String(), id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Card returns the template for a card id.
func (lib *Library) Card(id string) (card.Card, bool) {
	c, ok := lib.defs[id]
	return c, ok
}

// CardCount returns the number of distinct card definitions.
func (lib *Library) CardCount() int { return len(lib.defs) }

// Difficulties lists the player deck variants the catalog defines.
func (lib *Library) Difficulties() []string {
	out := make([]string, 0, len(lib.playerDecks))
	for name := range lib.playerDecks {
		out = append(out, name)
	}
	return out
}
