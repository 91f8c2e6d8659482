// Package sampler draws candidate coordinates for a difficulty tier.
package sampler

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/susu3304/geoguess/internal/game"
)

const (
	// KmPerDegree is the flat-earth conversion used for the local disk.
	KmPerDegree = 111.32

	EasyRadiusKm       = 10.0
	EasyNarrowRadiusKm = 5.0
	// EasyNarrowAfter is how many failed attempts it takes to narrow the disk.
	EasyNarrowAfter = 5

	MediumSearchRadiusMeters = 50000
	HardSearchRadiusMeters   = 100000
)

// Bounds is an inclusive lat/lng rectangle.
type Bounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

var (
	// AsiaBounds approximates continental Asia.
	AsiaBounds = Bounds{MinLat: 10, MaxLat: 60, MinLng: 60, MaxLng: 150}
	// WorldBounds excludes the poles, where imagery queries degenerate.
	WorldBounds = Bounds{MinLat: -85, MaxLat: 85, MinLng: -180, MaxLng: 180}
)

type Sampler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func New(rnd *rand.Rand) *Sampler {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sampler{rnd: rnd}
}

// Sample returns a candidate for the tier. attemptIndex is zero-based; it
// only matters for easy, whose disk narrows once EasyNarrowAfter attempts
// have failed. The point may well have no imagery.
func (s *Sampler) Sample(tier game.Tier, reference game.Coordinate, attemptIndex int) game.Coordinate {
	switch tier {
	case game.Easy:
		return s.disk(reference, EasyRadiusKmFor(attemptIndex))
	case game.Medium:
		return s.rect(AsiaBounds)
	default:
		return s.rect(WorldBounds)
	}
}

// EasyRadiusKmFor returns the sampling disk radius for an easy attempt.
func EasyRadiusKmFor(attemptIndex int) float64 {
	if attemptIndex >= EasyNarrowAfter {
		return EasyNarrowRadiusKm
	}
	return EasyRadiusKm
}

// SearchRadiusMeters is how far from a sample the imagery lookup may look.
func SearchRadiusMeters(tier game.Tier, attemptIndex int) int {
	switch tier {
	case game.Easy:
		return int(EasyRadiusKmFor(attemptIndex) * 1000)
	case game.Medium:
		return MediumSearchRadiusMeters
	default:
		return HardSearchRadiusMeters
	}
}

func (s *Sampler) uniform2() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64(), s.rnd.Float64()
}

// disk samples uniformly by area: sqrt(u) keeps the density flat.
func (s *Sampler) disk(center game.Coordinate, radiusKm float64) game.Coordinate {
	u, v := s.uniform2()
	offset := radiusKm * math.Sqrt(u)
	angle := 2 * math.Pi * v

	dLat := offset * math.Cos(angle) / KmPerDegree
	cosLat := math.Cos(center.Lat * math.Pi / 180)
	var dLng float64
	if cosLat > 1e-9 {
		dLng = offset * math.Sin(angle) / (KmPerDegree * cosLat)
	}

	return normalize(game.Coordinate{Lat: center.Lat + dLat, Lng: center.Lng + dLng})
}

func (s *Sampler) rect(b Bounds) game.Coordinate {
	u, v := s.uniform2()
	return game.Coordinate{
		Lat: b.MinLat + u*(b.MaxLat-b.MinLat),
		Lng: b.MinLng + v*(b.MaxLng-b.MinLng),
	}
}

// normalize clamps latitude and wraps longitude into [-180, 180].
func normalize(c game.Coordinate) game.Coordinate {
	c.Lat = math.Max(-90, math.Min(90, c.Lat))
	if c.Lng > 180 || c.Lng < -180 {
		c.Lng = math.Mod(c.Lng+180, 360)
		if c.Lng < 0 {
			c.Lng += 360
		}
		c.Lng -= 180
	}
	return c
}
