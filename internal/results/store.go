// internal/results/store.go
//
// Finished rounds and the leaderboard built from them.
// A row is written when a round ends (won or lost); it is a record, not a
// saved game, and nothing reads it back into a session.

package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Outcome of a finished round.
const (
	Won  = "won"
	Lost = "lost"
)

// ErrInvalid is returned for results that cannot be stored.
var ErrInvalid = errors.New("invalid result")

// Result is one finished round.
type Result struct {
	GameID  string `json:"gameId"`
	Level   int    `json:"level"`
	Score   int    `json:"score"`
	Turns   int    `json:"turns"`
	Outcome string `json:"outcome"`
}

// Row is one leaderboard entry.
type Row struct {
	GameID    string `json:"gameId"`
	Level     int    `json:"level"`
	Score     int    `json:"score"`
	Turns     int    `json:"turns"`
	Outcome   string `json:"outcome"`
	CreatedAt string `json:"createdAt"`
}

// Query filters the leaderboard. Zero values mean "any level" and DefaultLimit.
type Query struct {
	Limit int `schema:"limit"`
	Level int `schema:"level"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Insert records r.
func (s *Store) Insert(ctx context.Context, r Result) error {
	if r.GameID == "" || r.Level < 1 || (r.Outcome != Won && r.Outcome != Lost) {
		return fmt.Errorf("%w: %+v", ErrInvalid, r)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results(game_id, level, score, turns, outcome) VALUES(?,?,?,?,?)`,
		r.GameID, r.Level, r.Score, r.Turns, r.Outcome,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// Leaderboard returns the best rounds: highest score first, then fewest turns,
// then earliest.
func (s *Store) Leaderboard(ctx context.Context, q Query) ([]Row, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, level, score, turns, outcome, created_at
		FROM results
		WHERE (? = 0 OR level = ?)
		ORDER BY score DESC, turns ASC, created_at ASC, id ASC
		LIMIT ?`, q.Level, q.Level, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]Row, 0, limit)
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.GameID, &r.Level, &r.Score, &r.Turns, &r.Outcome, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
