package game

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTier = errors.New("unknown difficulty")

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

type Tier string

const (
	Easy   Tier = "easy"
	Medium Tier = "medium"
	Hard   Tier = "hard"
)

// Tiers returns every difficulty in display order.
func Tiers() []Tier {
	return []Tier{Easy, Medium, Hard}
}

func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case Easy, Medium, Hard:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

func (t Tier) Valid() bool {
	_, err := ParseTier(string(t))
	return err == nil
}

type PanoramaCandidate struct {
	Coordinate Coordinate `json:"coordinate"`
	PanoID     string     `json:"pano_id"`
	LinkCount  int        `json:"link_count"`
}

// GuessRecord is written once per finished round. Timed-out rounds have no
// distance and score zero; the guess pin may also be missing.
type GuessRecord struct {
	ID          string      `json:"id"`
	PlayerName  string      `json:"player_name"`
	Actual      Coordinate  `json:"actual"`
	Guess       *Coordinate `json:"guess,omitempty"`
	DistanceKm  *float64    `json:"distance_km,omitempty"`
	Score       int         `json:"score"`
	Difficulty  Tier        `json:"difficulty"`
	TimedOut    bool        `json:"timed_out"`
	TimestampMs int64       `json:"timestamp_ms"`
}

type ScoreRecord struct {
	ID          string `json:"id"`
	PlayerName  string `json:"player_name"`
	Score       int    `json:"score"`
	Difficulty  Tier   `json:"difficulty"`
	TimestampMs int64  `json:"timestamp_ms"`
}

type LeaderboardEntry struct {
	PlayerName string `json:"player_name"`
	TotalScore int    `json:"total_score"`
}

type Rank struct {
	Position int `json:"position"`
	Total    int `json:"total"`
	Score    int `json:"score"`
}

// Percentile is the share of the other ranked players this one is ahead of.
func (r Rank) Percentile() float64 {
	if r.Total <= 1 {
		return 100
	}
	return float64(r.Total-r.Position) / float64(r.Total-1) * 100
}
