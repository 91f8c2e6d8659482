package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/susu3304/geoguess/internal/game"
	"github.com/susu3304/geoguess/internal/round"
	"github.com/susu3304/geoguess/internal/stats"
)

func TestRenderStart(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := RenderStart("99", round.State{
		Tier:      game.Medium,
		Panorama:  game.PanoramaCandidate{PanoID: "abc123"},
		StartedAt: start,
		Deadline:  start.Add(180 * time.Second),
	})
	assert.Contains(t, msg, "<@99>")
	assert.Contains(t, msg, "https://www.google.com/maps/@?api=1&map_action=pano&pano=abc123")
	assert.Contains(t, msg, "180秒")
	assert.Contains(t, msg, "medium")
}

func TestRenderOutcome(t *testing.T) {
	d := 3.2
	out := round.Outcome{
		Round:       round.State{Tier: game.Easy},
		GuessRecord: game.GuessRecord{Actual: game.Coordinate{Lat: 10.5, Lng: 106.25}, DistanceKm: &d, Score: 50},
		ScoreRecord: game.ScoreRecord{Score: 50},
		Rank:        game.Rank{Position: 1, Total: 4, Score: 200},
		Ranked:      true,
		Address:     "District 1, Ho Chi Minh City",
	}
	msg := RenderOutcome("7", out)
	assert.Contains(t, msg, "GOOD")
	assert.Contains(t, msg, "50点")
	assert.Contains(t, msg, "3.2km")
	assert.Contains(t, msg, "Pretty close!")
	assert.Contains(t, msg, "District 1")
	assert.Contains(t, msg, "https://www.google.com/maps/@10.5,106.25,15z")
	assert.Contains(t, msg, "You're in the lead")
	assert.Contains(t, msg, "1位 / 4人")
}

func TestRenderOutcomeTimeout(t *testing.T) {
	out := round.Outcome{GuessRecord: game.GuessRecord{TimedOut: true}}
	msg := RenderOutcome("7", out)
	assert.Contains(t, msg, "時間切れ")
	assert.NotContains(t, msg, "距離")
}

func TestRenderLeaderboard(t *testing.T) {
	assert.Contains(t, RenderLeaderboard(game.Hard, nil), "まだ記録がありません")

	msg := RenderLeaderboard(game.Easy, []game.LeaderboardEntry{{PlayerName: "B", TotalScore: 30}, {PlayerName: "A", TotalScore: 15}})
	lines := strings.Split(msg, "\n")
	assert.Contains(t, lines[2], "🥇")
	assert.Contains(t, lines[2], "B")
	assert.Contains(t, lines[3], "A")
}

func TestRenderRank(t *testing.T) {
	assert.Contains(t, RenderRank(game.Easy, game.Rank{}, false), "ランク外")
	msg := RenderRank(game.Easy, game.Rank{Position: 2, Total: 2, Score: 15}, true)
	assert.Contains(t, msg, "2位")
	assert.Contains(t, msg, "15点")
}

func TestRenderProfile(t *testing.T) {
	assert.Equal(t, "まだプレイ記録がありません", RenderProfile(stats.Profile{}))

	d := 0.5
	msg := RenderProfile(stats.Profile{
		PlayerName:    "alice",
		TotalGames:    2,
		TotalScore:    100,
		BestScore:     100,
		AvgDistanceKm: &d,
		ByTier:        map[game.Tier]stats.TierStats{game.Easy: {Games: 2, Score: 100}},
		Recent: []game.GuessRecord{
			{Difficulty: game.Easy, Score: 100, DistanceKm: &d},
			{Difficulty: game.Easy, TimedOut: true},
		},
	})
	assert.Contains(t, msg, "alice")
	assert.Contains(t, msg, "500m")
	assert.Contains(t, msg, "easy: 2回 100点")
	assert.Contains(t, msg, "hard: 0回 0点")
	assert.Contains(t, msg, "時間切れ")
}
