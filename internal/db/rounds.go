package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/susu3304/geoguess/internal/game"
	"github.com/susu3304/geoguess/internal/ledger"
)

var _ ledger.Store = (*DB)(nil)

var ErrDuplicateRecord = ledger.ErrDuplicateRecord

// AppendRound writes the guess and score of one round in a single
// transaction so the streams cannot drift apart.
func (db *DB) AppendRound(ctx context.Context, g game.GuessRecord, s game.ScoreRecord) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var guessLat, guessLng *float64
	if g.Guess != nil {
		guessLat, guessLng = &g.Guess.Lat, &g.Guess.Lng
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO guesses (id, player_name, actual_lat, actual_lng, guess_lat, guess_lng,
		                     distance_km, score, difficulty, timed_out, timestamp_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, g.ID, g.PlayerName, g.Actual.Lat, g.Actual.Lng, guessLat, guessLng,
		g.DistanceKm, g.Score, string(g.Difficulty), g.TimedOut, g.TimestampMs)
	if err != nil {
		return mapInsertError(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO scores (id, player_name, score, difficulty, timestamp_ms)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.PlayerName, s.Score, string(s.Difficulty), s.TimestampMs)
	if err != nil {
		return mapInsertError(err)
	}

	return tx.Commit(ctx)
}

func mapInsertError(err error) error {
	// Check for unique constraint violation
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicateRecord, pgErr.ConstraintName)
	}
	return err
}

func (db *DB) Scores(ctx context.Context) ([]game.ScoreRecord, error) {
	return db.queryScores(ctx, `
		SELECT id, player_name, score, difficulty, timestamp_ms
		FROM scores
		ORDER BY timestamp_ms
	`)
}

func (db *DB) ScoresByPlayer(ctx context.Context, player string) ([]game.ScoreRecord, error) {
	return db.queryScores(ctx, `
		SELECT id, player_name, score, difficulty, timestamp_ms
		FROM scores
		WHERE player_name = $1
		ORDER BY timestamp_ms
	`, player)
}

func (db *DB) queryScores(ctx context.Context, query string, args ...any) ([]game.ScoreRecord, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	scores, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (game.ScoreRecord, error) {
		var s game.ScoreRecord
		var difficulty string
		if err := row.Scan(&s.ID, &s.PlayerName, &s.Score, &difficulty, &s.TimestampMs); err != nil {
			return s, err
		}
		s.Difficulty = game.Tier(difficulty)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	if scores == nil {
		scores = []game.ScoreRecord{}
	}
	return scores, nil
}

func (db *DB) Guesses(ctx context.Context) ([]game.GuessRecord, error) {
	return db.queryGuesses(ctx, `
		SELECT id, player_name, actual_lat, actual_lng, guess_lat, guess_lng,
		       distance_km, score, difficulty, timed_out, timestamp_ms
		FROM guesses
		ORDER BY timestamp_ms
	`)
}

func (db *DB) GuessesByPlayer(ctx context.Context, player string) ([]game.GuessRecord, error) {
	return db.queryGuesses(ctx, `
		SELECT id, player_name, actual_lat, actual_lng, guess_lat, guess_lng,
		       distance_km, score, difficulty, timed_out, timestamp_ms
		FROM guesses
		WHERE player_name = $1
		ORDER BY timestamp_ms
	`, player)
}

func (db *DB) queryGuesses(ctx context.Context, query string, args ...any) ([]game.GuessRecord, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	guesses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (game.GuessRecord, error) {
		var g game.GuessRecord
		var guessLat, guessLng *float64
		var difficulty string
		err := row.Scan(&g.ID, &g.PlayerName, &g.Actual.Lat, &g.Actual.Lng, &guessLat, &guessLng,
			&g.DistanceKm, &g.Score, &difficulty, &g.TimedOut, &g.TimestampMs)
		if err != nil {
			return g, err
		}
		if guessLat != nil && guessLng != nil {
			g.Guess = &game.Coordinate{Lat: *guessLat, Lng: *guessLng}
		}
		g.Difficulty = game.Tier(difficulty)
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	if guesses == nil {
		guesses = []game.GuessRecord{}
	}
	return guesses, nil
}

// DeleteScores is the bulk admin wipe of the score stream.
func (db *DB) DeleteScores(ctx context.Context) (int64, error) {
	result, err := db.pool.Exec(ctx, `DELETE FROM scores`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
