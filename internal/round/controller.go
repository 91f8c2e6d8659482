package round

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/susu3304/geoguess/internal/game"
)

// closedRetention is how long resolved rounds stay around to answer a
// late second guess with ErrRoundClosed instead of ErrRoundNotFound.
const closedRetention = 10 * time.Minute

type Finder interface {
	FindLocation(ctx context.Context, tier game.Tier, reference game.Coordinate) (game.PanoramaCandidate, error)
}

type Recorder interface {
	Append(ctx context.Context, g game.GuessRecord, s game.ScoreRecord) error
}

type Ranker interface {
	RankOf(ctx context.Context, player string, tier game.Tier) (game.Rank, bool, error)
}

type Revealer interface {
	Reveal(ctx context.Context, c game.Coordinate) string
}

type Controller struct {
	finder   Finder
	recorder Recorder
	ranker   Ranker
	revealer Revealer
	duration time.Duration
	now      func() time.Time

	mu      sync.Mutex
	rounds  map[string]*State
	pending map[string]Outcome
}

// NewController wires a round registry. revealer may be nil.
func NewController(f Finder, rec Recorder, rk Ranker, rv Revealer, duration time.Duration) *Controller {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Controller{
		finder:   f,
		recorder: rec,
		ranker:   rk,
		revealer: rv,
		duration: duration,
		now:      time.Now,
		rounds:   make(map[string]*State),
		pending:  make(map[string]Outcome),
	}
}

// Start picks a panorama for the tier and opens a round. The deadline
// starts counting once the panorama is found.
func (c *Controller) Start(ctx context.Context, player string, tier game.Tier, reference game.Coordinate) (State, error) {
	if !tier.Valid() {
		return State{}, game.ErrUnknownTier
	}
	pano, err := c.finder.FindLocation(ctx, tier, reference)
	if err != nil {
		return State{}, err
	}

	now := c.now()
	s := State{
		ID:         uuid.NewString(),
		PlayerName: player,
		Tier:       tier,
		Panorama:   pano,
		StartedAt:  now,
		Deadline:   now.Add(c.duration),
		Status:     StatusActive,
	}

	c.mu.Lock()
	c.rounds[s.ID] = &s
	c.mu.Unlock()

	log.WithField("prefix", "round").Infof("round %s started for %s (%s, pano %s)", s.ID, player, tier, pano.PanoID)
	return s, nil
}

func (c *Controller) Get(id string) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.rounds[id]
	if !ok {
		return State{}, false
	}
	return *s, true
}

func (c *Controller) Guess(ctx context.Context, id, player string, guess game.Coordinate) (Outcome, error) {
	return c.resolve(ctx, id, player, &guess)
}

func (c *Controller) Timeout(ctx context.Context, id, player string) (Outcome, error) {
	return c.resolve(ctx, id, player, nil)
}

// ExpireDue times out every active round past its deadline, retries
// saves that failed earlier and drops rounds that were closed long ago.
func (c *Controller) ExpireDue(ctx context.Context, now time.Time) []Outcome {
	var due []Outcome
	c.mu.Lock()
	for id, s := range c.rounds {
		if s.Unsaved {
			if out, ok := c.pending[id]; ok {
				delete(c.pending, id)
				due = append(due, out)
			}
			continue
		}
		if s.Status != StatusActive {
			if now.Sub(s.ClosedAt) > closedRetention {
				delete(c.rounds, id)
			}
			continue
		}
		if !now.After(s.Deadline) {
			continue
		}
		next, out, err := Resolve(*s, nil, now)
		if err != nil {
			continue
		}
		next.Unsaved = true
		*s = next
		due = append(due, out)
	}
	c.mu.Unlock()

	finished := due[:0]
	for _, out := range due {
		done, err := c.save(ctx, out)
		if err != nil {
			log.WithField("prefix", "round").Errorf("persist expired round %s: %v", out.Round.ID, err)
			continue
		}
		finished = append(finished, done)
	}
	return finished
}

func (c *Controller) resolve(ctx context.Context, id, player string, guess *game.Coordinate) (Outcome, error) {
	c.mu.Lock()
	s, ok := c.rounds[id]
	if !ok || s.PlayerName != player {
		c.mu.Unlock()
		return Outcome{}, ErrRoundNotFound
	}
	if s.Unsaved {
		out, ok := c.pending[id]
		if !ok {
			// another caller is retrying the save right now
			c.mu.Unlock()
			return Outcome{}, ErrRoundClosed
		}
		delete(c.pending, id)
		c.mu.Unlock()
		log.WithField("prefix", "round").Infof("retrying save of round %s", id)
		return c.save(ctx, out)
	}
	next, out, err := Resolve(*s, guess, c.now())
	if err != nil {
		c.mu.Unlock()
		return Outcome{}, err
	}
	next.Unsaved = true
	*s = next
	c.mu.Unlock()

	return c.save(ctx, out)
}

// save persists a resolved round. On failure the outcome is parked so a
// later guess, timeout or expiry sweep can append the same records.
func (c *Controller) save(ctx context.Context, out Outcome) (Outcome, error) {
	out.Round.Unsaved = false
	done, err := c.finish(ctx, out)

	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.rounds[out.Round.ID]
	if err != nil {
		if ok {
			s.Unsaved = true
			c.pending[out.Round.ID] = out
		}
		done.Round.Unsaved = true
		return done, err
	}
	if ok {
		s.Unsaved = false
	}
	return done, nil
}

// finish persists the round and decorates the outcome with rank and
// address.
func (c *Controller) finish(ctx context.Context, out Outcome) (Outcome, error) {
	if err := c.recorder.Append(ctx, out.GuessRecord, out.ScoreRecord); err != nil {
		return out, err
	}

	rank, ok, err := c.ranker.RankOf(ctx, out.Round.PlayerName, out.Round.Tier)
	if err != nil {
		log.WithField("prefix", "round").Warnf("rank lookup for %s: %v", out.Round.PlayerName, err)
	} else {
		out.Rank, out.Ranked = rank, ok
	}

	if c.revealer != nil {
		out.Address = c.revealer.Reveal(ctx, out.Round.Panorama.Coordinate)
	}

	log.WithField("prefix", "round").Infof("round %s %s: %d points", out.Round.ID, out.Round.Status, out.Points())
	return out, nil
}
