package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lifegame/life-server-go/internal/game"
)

// SavedGame is a persisted game row.
type SavedGame struct {
	GameID    string    `json:"game_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Stage     string    `json:"stage"`
	Turn      int       `json:"turn"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GameRepository stores game snapshots as JSONB documents.
type GameRepository struct {
	db *DB
}

// NewGameRepository creates a game repository.
func NewGameRepository(db *DB) *GameRepository {
	return &GameRepository{db: db}
}

// SaveSnapshot upserts the snapshot of a game along with its checksum.
func (r *GameRepository) SaveSnapshot(ctx context.Context, userID string, snap game.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO games (game_id, user_id, status, stage, turn, snapshot, checksum, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (game_id) DO UPDATE SET
			status = EXCLUDED.status,
			stage = EXCLUDED.stage,
			turn = EXCLUDED.turn,
			snapshot = EXCLUDED.snapshot,
			checksum = EXCLUDED.checksum,
			updated_at = now()`,
		snap.GameID, userID, snap.Status, snap.Stage, snap.Turn, doc, snap.Checksum())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.GameID, err)
	}
	return nil
}

// LoadSnapshot fetches a snapshot and verifies its checksum against the
// stored value. A mismatch means the row was corrupted or tampered with.
func (r *GameRepository) LoadSnapshot(ctx context.Context, gameID string) (game.Snapshot, error) {
	var doc []byte
	var stored string
	err := r.db.pool.QueryRow(ctx,
		`SELECT snapshot, checksum FROM games WHERE game_id = $1`, gameID,
	).Scan(&doc, &stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.Snapshot{}, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return game.Snapshot{}, fmt.Errorf("load snapshot %s: %w", gameID, err)
	}

	var snap game.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return game.Snapshot{}, fmt.Errorf("unmarshal snapshot %s: %w", gameID, err)
	}
	if sum := snap.Checksum(); sum != stored {
		return game.Snapshot{}, fmt.Errorf("snapshot %s checksum mismatch: stored %s, computed %s",
			gameID, stored, sum)
	}
	return snap, nil
}

// ListGames returns the saved games of a user, most recently updated first.
func (r *GameRepository) ListGames(ctx context.Context, userID string) ([]SavedGame, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT game_id, user_id, status, stage, turn, checksum, updated_at
		FROM games WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list games for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []SavedGame
	for rows.Next() {
		var g SavedGame
		if err := rows.Scan(&g.GameID, &g.UserID, &g.Status, &g.Stage, &g.Turn,
			&g.Checksum, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan game row: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// DeleteGame removes a saved game.
func (r *GameRepository) DeleteGame(ctx context.Context, gameID string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM games WHERE game_id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("delete game %s: %w", gameID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	return nil
}
