package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lifegame/life-server-go/internal/game"
)

// UserStats aggregates lifetime results across a player's finished games.
type UserStats struct {
	UserID               string `json:"user_id"`
	GamesPlayed          int    `json:"games_played"`
	Victories            int    `json:"victories"`
	TotalChallenges      int    `json:"total_challenges"`
	SuccessfulChallenges int    `json:"successful_challenges"`
	HighestVitality      int    `json:"highest_vitality"`
}

// StatsRepository stores lifetime player statistics.
type StatsRepository struct {
	db *DB
}

// NewStatsRepository creates a stats repository.
func NewStatsRepository(db *DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// RecordResult folds a finished game into the user's lifetime totals.
func (r *StatsRepository) RecordResult(ctx context.Context, userID string, victory bool, s game.Stats) error {
	win := 0
	if victory {
		win = 1
	}
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO user_stats (user_id, games_played, victories, total_challenges,
			successful_challenges, highest_vitality)
		VALUES ($1, 1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			games_played = user_stats.games_played + 1,
			victories = user_stats.victories + $2,
			total_challenges = user_stats.total_challenges + $3,
			successful_challenges = user_stats.successful_challenges + $4,
			highest_vitality = GREATEST(user_stats.highest_vitality, $5)`,
		userID, win, s.TotalChallenges, s.SuccessfulChallenges, s.HighestVitality)
	if err != nil {
		return fmt.Errorf("record result for %s: %w", userID, err)
	}
	return nil
}

// Get fetches a user's lifetime statistics. Users with no finished games get
// a zero row, not an error.
func (r *StatsRepository) Get(ctx context.Context, userID string) (UserStats, error) {
	var s UserStats
	err := r.db.pool.QueryRow(ctx, `
		SELECT user_id, games_played, victories, total_challenges,
			successful_challenges, highest_vitality
		FROM user_stats WHERE user_id = $1`, userID,
	).Scan(&s.UserID, &s.GamesPlayed, &s.Victories, &s.TotalChallenges,
		&s.SuccessfulChallenges, &s.HighestVitality)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserStats{UserID: userID}, nil
	}
	if err != nil {
		return UserStats{}, fmt.Errorf("get stats for %s: %w", userID, err)
	}
	return s, nil
}

// Leaderboard returns the top players by victories.
func (r *StatsRepository) Leaderboard(ctx context.Context, limit int) ([]UserStats, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT user_id, games_played, victories, total_challenges,
			successful_challenges, highest_vitality
		FROM user_stats
		ORDER BY victories DESC, highest_vitality DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var out []UserStats
	for rows.Next() {
		var s UserStats
		if err := rows.Scan(&s.UserID, &s.GamesPlayed, &s.Victories, &s.TotalChallenges,
			&s.SuccessfulChallenges, &s.HighestVitality); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
