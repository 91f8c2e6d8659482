// Package round runs a single guessing round from panorama selection to the
// persisted result.
package round

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/susu3304/geoguess/internal/game"
	"github.com/susu3304/geoguess/internal/geoscore"
)

const DefaultDuration = 180 * time.Second

var (
	ErrRoundNotFound = errors.New("round not found")
	ErrRoundClosed   = errors.New("round already resolved")
	ErrInvalidGuess  = errors.New("guess coordinate out of range")
)

type Status string

const (
	StatusActive   Status = "active"
	StatusGuessed  Status = "guessed"
	StatusTimedOut Status = "timed_out"
)

type State struct {
	ID         string                 `json:"id"`
	PlayerName string                 `json:"player_name"`
	Tier       game.Tier              `json:"tier"`
	Panorama   game.PanoramaCandidate `json:"-"`
	StartedAt  time.Time              `json:"started_at"`
	Deadline   time.Time              `json:"deadline"`
	Status     Status                 `json:"status"`
	ClosedAt   time.Time              `json:"-"`
	Unsaved    bool                   `json:"unsaved,omitempty"`
}

// Open reports whether the round still needs a guess or a save. Unsaved
// rounds are resolved but their records failed to persist; guessing or
// timing them out again retries the save with the same records.
func (s State) Open() bool {
	return s.Status == StatusActive || s.Unsaved
}

// Outcome is a resolved round plus everything the front-ends render.
type Outcome struct {
	Round       State
	GuessRecord game.GuessRecord
	ScoreRecord game.ScoreRecord
	Rank        game.Rank
	Ranked      bool
	Address     string
}

func (o Outcome) TimedOut() bool { return o.GuessRecord.TimedOut }

func (o Outcome) Points() int { return o.ScoreRecord.Score }

func (o Outcome) Title() geoscore.Title { return geoscore.ScoreTitle(o.Points()) }

// Resolve closes an active round. A nil guess or one arriving after the
// deadline is a timeout worth zero points with no distance.
func Resolve(s State, guess *game.Coordinate, now time.Time) (State, Outcome, error) {
	if s.Status != StatusActive {
		return s, Outcome{}, ErrRoundClosed
	}
	if guess != nil && !guess.Valid() {
		return s, Outcome{}, ErrInvalidGuess
	}

	actual := s.Panorama.Coordinate
	g := game.GuessRecord{
		ID:          uuid.NewString(),
		PlayerName:  s.PlayerName,
		Actual:      actual,
		Guess:       guess,
		Difficulty:  s.Tier,
		TimestampMs: now.UnixMilli(),
	}

	if guess == nil || now.After(s.Deadline) {
		s.Status = StatusTimedOut
		g.TimedOut = true
		g.Score = geoscore.TimeoutScore()
	} else {
		s.Status = StatusGuessed
		d := geoscore.DistanceKm(*guess, actual)
		g.DistanceKm = &d
		g.Score = geoscore.ScoreFor(d, s.Tier)
	}
	s.ClosedAt = now

	sc := game.ScoreRecord{
		ID:          uuid.NewString(),
		PlayerName:  s.PlayerName,
		Score:       g.Score,
		Difficulty:  s.Tier,
		TimestampMs: g.TimestampMs,
	}
	return s, Outcome{Round: s, GuessRecord: g, ScoreRecord: sc}, nil
}
