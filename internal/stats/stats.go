// Package stats answers profile and admin queries over the guess stream.
package stats

import (
	"context"
	"math"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/susu3304/geoguess/internal/game"
	"github.com/susu3304/geoguess/internal/ledger"
)

const recentGames = 5

// Location difficulty thresholds on the average miss distance.
const (
	HardAboveKm   = 50.0
	MediumAboveKm = 10.0
)

type TierStats struct {
	Games int `json:"games"`
	Score int `json:"score"`
}

type Profile struct {
	PlayerName    string                  `json:"player_name"`
	TotalGames    int                     `json:"total_games"`
	TotalScore    int                     `json:"total_score"`
	BestScore     int                     `json:"best_score"`
	AvgDistanceKm *float64                `json:"avg_distance_km"`
	ByTier        map[game.Tier]TierStats `json:"by_tier"`
	Recent        []game.GuessRecord      `json:"recent"`
}

type DayGroup struct {
	Date    string             `json:"date"`
	Guesses []game.GuessRecord `json:"guesses"`
}

type LocationDifficulty struct {
	Location      game.Coordinate `json:"location"`
	Rounds        int             `json:"rounds"`
	AvgDistanceKm float64         `json:"avg_distance_km"`
	Difficulty    game.Tier       `json:"difficulty"`
}

type Service struct {
	store ledger.Store
}

func New(store ledger.Store) *Service {
	return &Service{store: store}
}

func (s *Service) Profile(ctx context.Context, player string) (Profile, error) {
	guesses, err := s.store.GuessesByPlayer(ctx, player)
	if err != nil {
		return Profile{}, ledger.Wrap("read guesses", err)
	}

	p := Profile{
		PlayerName: player,
		TotalGames: len(guesses),
		ByTier:     make(map[game.Tier]TierStats, len(game.Tiers())),
	}
	for _, tier := range game.Tiers() {
		p.ByTier[tier] = TierStats{}
	}

	var distSum float64
	var distCount int
	for _, g := range guesses {
		p.TotalScore += g.Score
		if g.Score > p.BestScore {
			p.BestScore = g.Score
		}
		if g.DistanceKm != nil {
			distSum += *g.DistanceKm
			distCount++
		}
		ts := p.ByTier[g.Difficulty]
		ts.Games++
		ts.Score += g.Score
		p.ByTier[g.Difficulty] = ts
	}
	if distCount > 0 {
		avg := distSum / float64(distCount)
		p.AvgDistanceKm = &avg
	}

	newestFirst(guesses)
	if len(guesses) > recentGames {
		guesses = guesses[:recentGames]
	}
	p.Recent = guesses
	return p, nil
}

// WipeScores clears the score stream. Guess records are kept.
func (s *Service) WipeScores(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteScores(ctx)
	if err != nil {
		return 0, ledger.Wrap("delete scores", err)
	}
	log.WithField("prefix", "stats").Warnf("wiped %d score records", n)
	return n, nil
}

// GuessesByDate groups every guess by calendar day in loc, newest day first.
func (s *Service) GuessesByDate(ctx context.Context, loc *time.Location) ([]DayGroup, error) {
	if loc == nil {
		loc = time.UTC
	}
	guesses, err := s.store.Guesses(ctx)
	if err != nil {
		return nil, ledger.Wrap("read guesses", err)
	}
	newestFirst(guesses)

	groups := []DayGroup{}
	for _, g := range guesses {
		day := time.UnixMilli(g.TimestampMs).In(loc).Format("2006-01-02")
		if n := len(groups); n > 0 && groups[n-1].Date == day {
			groups[n-1].Guesses = append(groups[n-1].Guesses, g)
			continue
		}
		groups = append(groups, DayGroup{Date: day, Guesses: []game.GuessRecord{g}})
	}
	return groups, nil
}

// AnalyzeLocations rates every played location by how far players missed
// it on average. Rounds without a distance are skipped.
func (s *Service) AnalyzeLocations(ctx context.Context) ([]LocationDifficulty, error) {
	guesses, err := s.store.Guesses(ctx)
	if err != nil {
		return nil, ledger.Wrap("read guesses", err)
	}

	type acc struct {
		loc   game.Coordinate
		sum   float64
		count int
	}
	byLoc := make(map[game.Coordinate]*acc)
	for _, g := range guesses {
		if g.DistanceKm == nil {
			continue
		}
		key := game.Coordinate{Lat: round5(g.Actual.Lat), Lng: round5(g.Actual.Lng)}
		a, ok := byLoc[key]
		if !ok {
			a = &acc{loc: key}
			byLoc[key] = a
		}
		a.sum += *g.DistanceKm
		a.count++
	}

	out := make([]LocationDifficulty, 0, len(byLoc))
	for _, a := range byLoc {
		avg := a.sum / float64(a.count)
		out = append(out, LocationDifficulty{
			Location:      a.loc,
			Rounds:        a.count,
			AvgDistanceKm: avg,
			Difficulty:    Classify(avg),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgDistanceKm != out[j].AvgDistanceKm {
			return out[i].AvgDistanceKm > out[j].AvgDistanceKm
		}
		return out[i].Location.String() < out[j].Location.String()
	})
	return out, nil
}

func Classify(avgDistanceKm float64) game.Tier {
	switch {
	case avgDistanceKm > HardAboveKm:
		return game.Hard
	case avgDistanceKm > MediumAboveKm:
		return game.Medium
	default:
		return game.Easy
	}
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

func newestFirst(gs []game.GuessRecord) {
	sort.SliceStable(gs, func(i, j int) bool {
		return gs[i].TimestampMs > gs[j].TimestampMs
	})
}
