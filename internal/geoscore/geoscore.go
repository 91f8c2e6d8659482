package geoscore

import (
	"fmt"
	"math"

	"github.com/susu3304/geoguess/internal/game"
)

const (
	// EarthRadiusKm is the mean Earth radius used by every distance in the game.
	EarthRadiusKm = 6371.0

	// MaxDistanceKm is half the circumference, the antipodal maximum.
	MaxDistanceKm = math.Pi * EarthRadiusKm
)

// Distance bands, checked in ascending order; the first bound the distance
// is strictly below wins.
var bands = []struct {
	below  float64
	points int
}{
	{1, 100},
	{5, 50},
	{25, 25},
	{100, 10},
}

// Haversine distance (km) between two WGS84 points.
func DistanceKm(a, b game.Coordinate) float64 {
	φ1 := a.Lat * math.Pi / 180.0
	φ2 := b.Lat * math.Pi / 180.0
	dφ := (b.Lat - a.Lat) * math.Pi / 180.0
	dλ := (b.Lng - a.Lng) * math.Pi / 180.0

	sinDφ := math.Sin(dφ / 2)
	sinDλ := math.Sin(dλ / 2)

	h := sinDφ*sinDφ + math.Cos(φ1)*math.Cos(φ2)*sinDλ*sinDλ
	// Float error can push h marginally past 1 for antipodes.
	if h > 1 {
		h = 1
	}
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// BasePoints returns the tier-independent points for a distance.
func BasePoints(distanceKm float64) int {
	for _, b := range bands {
		if distanceKm < b.below {
			return b.points
		}
	}
	return 0
}

func Multiplier(tier game.Tier) float64 {
	switch tier {
	case game.Medium:
		return 1.2
	case game.Hard:
		return 1.5
	default:
		return 1.0
	}
}

// ScoreFor converts a distance into points for the tier. Rounding is
// half-up (37.5 becomes 38), never half-to-even.
func ScoreFor(distanceKm float64, tier game.Tier) int {
	if distanceKm < 0 || math.IsNaN(distanceKm) {
		return 0
	}
	raw := float64(BasePoints(distanceKm)) * Multiplier(tier)
	return int(math.Floor(raw + 0.5))
}

// TimeoutScore is what a round that ran out of time is worth, on every tier.
func TimeoutScore() int {
	return 0
}

type Title struct {
	Min   int    `json:"min"`
	Title string `json:"title"`
	Emoji string `json:"emoji"`
}

var titles = []Title{
	{100, "PERFECT!", "🏆"},
	{80, "EXCELLENT", "🥇"},
	{60, "GREAT", "🥈"},
	{50, "GOOD", "🥉"},
	{25, "OKAY", "👍"},
	{10, "MEH", "😐"},
	{5, "BAD", "😕"},
	{0, "TERRIBLE", "😅"},
}

// ScoreTitle picks the banner shown for a round's points.
func ScoreTitle(points int) Title {
	for _, t := range titles {
		if points >= t.Min {
			return t
		}
	}
	return titles[len(titles)-1]
}

func DistanceFeedback(distanceKm float64) string {
	switch {
	case distanceKm < 0.1:
		return "Spot on!"
	case distanceKm < 1:
		return "Very close!"
	case distanceKm < 10:
		return "Pretty close!"
	case distanceKm < 100:
		return "Not too far"
	case distanceKm < 500:
		return "A bit far"
	case distanceKm < 1000:
		return "Too far!"
	default:
		return "Where was that?"
	}
}

// FormatDistance formats distance in a human-readable way.
func FormatDistance(km float64) string {
	switch {
	case km < 1:
		return fmt.Sprintf("%.0fm", math.Round(km*1000))
	case km < 10:
		return fmt.Sprintf("%.1fkm", km)
	default:
		return fmt.Sprintf("%.0fkm", math.Round(km))
	}
}

// MapsURL links to the location on Google Maps.
func MapsURL(c game.Coordinate) string {
	return fmt.Sprintf("https://www.google.com/maps/@%v,%v,15z", c.Lat, c.Lng)
}
