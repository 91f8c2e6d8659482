// Package ledger appends finished rounds to the score and guess streams.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/susu3304/geoguess/internal/game"
)

var (
	ErrStorage       = errors.New("storage failure")
	ErrInvalidRecord = errors.New("invalid record")

	// ErrDuplicateRecord is returned by stores when a record id already
	// exists.
	ErrDuplicateRecord = errors.New("record already exists")
)

// StorageError wraps a failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// Store is the persistence collaborator. Both streams are append-only;
// records are keyed by generated ids and never updated.
type Store interface {
	AppendRound(ctx context.Context, g game.GuessRecord, s game.ScoreRecord) error
	Scores(ctx context.Context) ([]game.ScoreRecord, error)
	Guesses(ctx context.Context) ([]game.GuessRecord, error)
	GuessesByPlayer(ctx context.Context, player string) ([]game.GuessRecord, error)
	ScoresByPlayer(ctx context.Context, player string) ([]game.ScoreRecord, error)
	DeleteScores(ctx context.Context) (int64, error)
}

type Ledger struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Append validates and persists one finished round. Missing ids and
// timestamps are filled in. Appending the same records again is a no-op.
// Store failures come back as *StorageError.
func (l *Ledger) Append(ctx context.Context, g game.GuessRecord, s game.ScoreRecord) error {
	now := l.now().UnixMilli()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if g.TimestampMs == 0 {
		g.TimestampMs = now
	}
	if s.TimestampMs == 0 {
		s.TimestampMs = now
	}

	if err := validate(g, s); err != nil {
		return err
	}

	err := l.store.AppendRound(ctx, g, s)
	if errors.Is(err, ErrDuplicateRecord) {
		// both streams are written together, so the round is already stored
		log.WithField("prefix", "ledger").Infof("round %s already recorded", g.ID)
		return nil
	}
	if err != nil {
		log.WithField("prefix", "ledger").Errorf("append round for %s: %v", g.PlayerName, err)
		return &StorageError{Op: "append", Err: err}
	}
	return nil
}

func validate(g game.GuessRecord, s game.ScoreRecord) error {
	switch {
	case strings.TrimSpace(g.PlayerName) == "" || strings.TrimSpace(s.PlayerName) == "":
		return fmt.Errorf("%w: player name is required", ErrInvalidRecord)
	case !g.Difficulty.Valid() || !s.Difficulty.Valid():
		return fmt.Errorf("%w: unknown difficulty", ErrInvalidRecord)
	case g.Score < 0 || s.Score < 0:
		return fmt.Errorf("%w: negative score", ErrInvalidRecord)
	case g.DistanceKm != nil && *g.DistanceKm < 0:
		return fmt.Errorf("%w: negative distance", ErrInvalidRecord)
	case g.TimedOut && (g.DistanceKm != nil || g.Score != 0):
		return fmt.Errorf("%w: timed-out round must have no distance and zero score", ErrInvalidRecord)
	case !g.Actual.Valid() || (g.Guess != nil && !g.Guess.Valid()):
		return fmt.Errorf("%w: coordinate out of range", ErrInvalidRecord)
	}
	return nil
}

// Wrap turns a raw store error into a *StorageError for read paths.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
