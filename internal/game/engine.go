package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/lifegame/life-server-go/internal/game/card"
	"github.com/lifegame/life-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// Notification is a game state change pushed to UI/websocket clients.
type Notification struct {
	Type      string
	GameID    string
	Timestamp time.Time
	Data      map[string]interface{}
}

// NotificationHandler is a function that handles game notifications.
type NotificationHandler func(notification Notification)

type gameEntry struct {
	mu   sync.Mutex
	game *Game
}

// Engine manages the live games of a process. Game aggregates are
// single-threaded; the engine serializes access to each one and forwards
// their events to the registered notification handler.
type Engine struct {
	logger  *zap.Logger
	factory CardFactory

	mu      sync.RWMutex
	games   map[string]*gameEntry
	handler NotificationHandler
}

// NewEngine creates an engine backed by the given card factory.
func NewEngine(factory CardFactory, logger *zap.Logger) *Engine {
	return &Engine{
		logger:  logger,
		factory: factory,
		games:   make(map[string]*gameEntry),
	}
}

// SetNotificationHandler sets the handler for game notifications.
func (e *Engine) SetNotificationHandler(handler NotificationHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = handler
}

// emit sends a notification to the registered handler. The handler runs in
// its own goroutine so it can safely call back into the engine.
func (e *Engine) emit(notification Notification) {
	e.mu.RLock()
	handler := e.handler
	e.mu.RUnlock()
	if handler != nil {
		go handler(notification)
	}
}

// CreateGame constructs and starts a new game, returning its id.
func (e *Engine) CreateGame(cfg Config) (string, error) {
	g, err := NewGame(cfg, e.factory)
	if err != nil {
		return "", fmt.Errorf("create game: %w", err)
	}

	// Forward engine-relevant events as notifications before Start so the
	// started event itself is observable.
	g.EventBus().Subscribe(func(evt rules.Event) {
		e.emit(Notification{
			Type:      string(evt.Type),
			GameID:    evt.GameID,
			Timestamp: evt.Timestamp,
			Data: map[string]interface{}{
				"card_id":     evt.CardID,
				"turn":        evt.Turn,
				"amount":      evt.Amount,
				"flag":        evt.Flag,
				"description": evt.Description,
			},
		})
	})

	if err := g.Start(); err != nil {
		return "", fmt.Errorf("start game: %w", err)
	}

	e.mu.Lock()
	e.games[g.ID()] = &gameEntry{game: g}
	e.mu.Unlock()

	if e.logger != nil {
		e.logger.Info("game created",
			zap.String("game_id", g.ID()),
			zap.String("difficulty", cfg.Difficulty),
			zap.Int("starting_vitality", g.Vitality()),
			zap.Int("hand_size", g.HandSize()),
		)
	}
	return g.ID(), nil
}

// RemoveGame drops a finished game from the engine.
func (e *Engine) RemoveGame(gameID string) {
	e.mu.Lock()
	delete(e.games, gameID)
	e.mu.Unlock()
}

// GameCount returns the number of live games.
func (e *Engine) GameCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.games)
}

// With runs fn against the identified game while holding its lock.
// All engine operations funnel through here.
func (e *Engine) With(gameID string, fn func(*Game) error) error {
	e.mu.RLock()
	entry, ok := e.games[gameID]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.game)
}

// DrawCards draws up to n cards into the hand of the identified game.
func (e *Engine) DrawCards(gameID string, n int) ([]card.Card, error) {
	var drawn []card.Card
	err := e.With(gameID, func(g *Game) error {
		var drawErr error
		drawn, drawErr = g.DrawCards(n)
		return drawErr
	})
	return drawn, err
}

// StartNextChallenge draws the next challenge card and faces it.
func (e *Engine) StartNextChallenge(gameID string) (card.Card, error) {
	var challenge card.Card
	err := e.With(gameID, func(g *Game) error {
		c, err := g.DrawChallenge()
		if err != nil {
			return err
		}
		challenge = c
		return g.StartChallenge(c)
	})
	return challenge, err
}

// SetSelectedCards replaces the challenge selection of the identified game.
func (e *Engine) SetSelectedCards(gameID string, ids ...string) error {
	return e.With(gameID, func(g *Game) error {
		return g.SetSelectedCards(ids...)
	})
}

// ToggleSelectCard flips one card in or out of the identified game's selection.
func (e *Engine) ToggleSelectCard(gameID, cardID string) error {
	return e.With(gameID, func(g *Game) error {
		return g.ToggleSelectCard(cardID)
	})
}

// ResolveChallenge resolves the identified game's current challenge.
func (e *Engine) ResolveChallenge(gameID string) (*Result, error) {
	var result *Result
	err := e.With(gameID, func(g *Game) error {
		var resolveErr error
		result, resolveErr = g.ResolveChallenge()
		return resolveErr
	})
	if err != nil {
		return nil, err
	}

	if e.logger != nil {
		e.logger.Debug("challenge resolved",
			zap.String("game_id", gameID),
			zap.Bool("success", result.Success),
			zap.Int("player_power", result.PlayerPower),
			zap.Int("adjusted_power", result.AdjustedPower),
			zap.Int("vitality_change", result.VitalityChange),
		)
	}
	return result, nil
}

// SelectCard resolves a pending reward choice in the identified game.
func (e *Engine) SelectCard(gameID, cardID string) error {
	return e.With(gameID, func(g *Game) error {
		return g.SelectCard(cardID)
	})
}

// DiscardCard discards a card from the identified game's hand.
func (e *Engine) DiscardCard(gameID, cardID string) error {
	return e.With(gameID, func(g *Game) error {
		return g.DiscardCard(cardID)
	})
}

// NextTurn advances the identified game to its next turn.
func (e *Engine) NextTurn(gameID string) error {
	return e.With(gameID, func(g *Game) error {
		return g.NextTurn()
	})
}

// Snapshot returns the plain-data view of the identified game.
func (e *Engine) Snapshot(gameID string) (Snapshot, error) {
	var snap Snapshot
	err := e.With(gameID, func(g *Game) error {
		snap = g.Snapshot()
		return nil
	})
	return snap, err
}
