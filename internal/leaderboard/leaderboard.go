// Package leaderboard derives per-tier standings from the score stream.
// Nothing here is cached: every call rescans the store.
package leaderboard

import (
	"context"
	"sort"

	"github.com/susu3304/geoguess/internal/game"
	"github.com/susu3304/geoguess/internal/ledger"
)

const DefaultSize = 10

// ScoreReader is the read side of the ledger store.
type ScoreReader interface {
	Scores(ctx context.Context) ([]game.ScoreRecord, error)
}

type Aggregator struct {
	scores ScoreReader
}

func New(scores ScoreReader) *Aggregator {
	return &Aggregator{scores: scores}
}

// TopN returns the n best players on the tier by summed score. Ties go to
// the alphabetically first name.
func (a *Aggregator) TopN(ctx context.Context, tier game.Tier, n int) ([]game.LeaderboardEntry, error) {
	if n <= 0 {
		n = DefaultSize
	}
	records, err := a.scores.Scores(ctx)
	if err != nil {
		return nil, ledger.Wrap("read scores", err)
	}
	board := standings(records, tier)
	if len(board) > n {
		board = board[:n]
	}
	return board, nil
}

// All returns the top n of every tier from a single scan.
func (a *Aggregator) All(ctx context.Context, n int) (map[game.Tier][]game.LeaderboardEntry, error) {
	if n <= 0 {
		n = DefaultSize
	}
	records, err := a.scores.Scores(ctx)
	if err != nil {
		return nil, ledger.Wrap("read scores", err)
	}
	out := make(map[game.Tier][]game.LeaderboardEntry, len(game.Tiers()))
	for _, tier := range game.Tiers() {
		board := standings(records, tier)
		if len(board) > n {
			board = board[:n]
		}
		out[tier] = board
	}
	return out, nil
}

// RankOf finds the player's 1-indexed position on the tier. ok is false
// when the player has no records there.
func (a *Aggregator) RankOf(ctx context.Context, player string, tier game.Tier) (rank game.Rank, ok bool, err error) {
	records, err := a.scores.Scores(ctx)
	if err != nil {
		return game.Rank{}, false, ledger.Wrap("read scores", err)
	}
	board := standings(records, tier)
	for i, e := range board {
		if e.PlayerName == player {
			return game.Rank{Position: i + 1, Total: len(board), Score: e.TotalScore}, true, nil
		}
	}
	return game.Rank{}, false, nil
}

func standings(records []game.ScoreRecord, tier game.Tier) []game.LeaderboardEntry {
	totals := make(map[string]int)
	for _, r := range records {
		if r.Difficulty != tier {
			continue
		}
		totals[r.PlayerName] += r.Score
	}

	board := make([]game.LeaderboardEntry, 0, len(totals))
	for name, total := range totals {
		board = append(board, game.LeaderboardEntry{PlayerName: name, TotalScore: total})
	}
	sort.Slice(board, func(i, j int) bool {
		if board[i].TotalScore != board[j].TotalScore {
			return board[i].TotalScore > board[j].TotalScore
		}
		return board[i].PlayerName < board[j].PlayerName
	})
	return board
}

// RankingMessage is the banner shown after a round for a board position.
func RankingMessage(position, total int) string {
	switch {
	case position == 1:
		return "👑 You're in the lead!"
	case position <= 3:
		return "🏆 Top 3! Excellent!"
	case position <= 5:
		return "🥉 Top 5! Great job!"
	case position <= 10:
		return "⭐ Top 10! Nice!"
	case float64(position) <= float64(total)*0.3:
		return "💪 Climbing the ranks!"
	default:
		return "📈 Keep going!"
	}
}
