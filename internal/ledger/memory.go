package ledger

import (
	"context"
	"sync"

	"github.com/susu3304/geoguess/internal/game"
)

// MemoryStore keeps both streams in process. It backs tests and runs
// without DATABASE_URL.
type MemoryStore struct {
	mu      sync.RWMutex
	scores  []game.ScoreRecord
	guesses []game.GuessRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) AppendRound(ctx context.Context, g game.GuessRecord, s game.ScoreRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.guesses {
		if g.ID != "" && existing.ID == g.ID {
			return ErrDuplicateRecord
		}
	}
	m.guesses = append(m.guesses, g)
	m.scores = append(m.scores, s)
	return nil
}

func (m *MemoryStore) Scores(ctx context.Context) ([]game.ScoreRecord, error) {
	return m.ScoresByPlayer(ctx, "")
}

func (m *MemoryStore) ScoresByPlayer(ctx context.Context, player string) ([]game.ScoreRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]game.ScoreRecord, 0, len(m.scores))
	for _, s := range m.scores {
		if player == "" || s.PlayerName == player {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) Guesses(ctx context.Context) ([]game.GuessRecord, error) {
	return m.GuessesByPlayer(ctx, "")
}

func (m *MemoryStore) GuessesByPlayer(ctx context.Context, player string) ([]game.GuessRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]game.GuessRecord, 0, len(m.guesses))
	for _, g := range m.guesses {
		if player == "" || g.PlayerName == player {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteScores(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.scores))
	m.scores = nil
	return n, nil
}

// AppendScore adds a bare score record; tests use it to seed boards.
func (m *MemoryStore) AppendScore(s game.ScoreRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, s)
}

// AppendGuess adds a bare guess record.
func (m *MemoryStore) AppendGuess(g game.GuessRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guesses = append(m.guesses, g)
}
