package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// RunMigrations creates the score and guess streams.
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS guesses (
			id UUID PRIMARY KEY,
			player_name TEXT NOT NULL,
			actual_lat DOUBLE PRECISION NOT NULL,
			actual_lng DOUBLE PRECISION NOT NULL,
			guess_lat DOUBLE PRECISION,
			guess_lng DOUBLE PRECISION,
			distance_km DOUBLE PRECISION CHECK (distance_km >= 0),
			score INTEGER NOT NULL CHECK (score >= 0),
			difficulty TEXT NOT NULL,
			timed_out BOOLEAN NOT NULL DEFAULT FALSE,
			timestamp_ms BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_guesses_player_name ON guesses(player_name);
		CREATE INDEX IF NOT EXISTS idx_guesses_timestamp ON guesses(timestamp_ms);

		CREATE TABLE IF NOT EXISTS scores (
			id UUID PRIMARY KEY,
			player_name TEXT NOT NULL,
			score INTEGER NOT NULL CHECK (score >= 0),
			difficulty TEXT NOT NULL,
			timestamp_ms BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_scores_player_name ON scores(player_name);
	`)
	return err
}
