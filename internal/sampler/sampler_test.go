package sampler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/susu3304/geoguess/internal/game"
	"github.com/susu3304/geoguess/internal/geoscore"
)

func TestSampleMediumContainment(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)))
	refs := []game.Coordinate{{Lat: 0, Lng: 0}, {Lat: -33.9, Lng: 18.4}, {Lat: 89, Lng: 179}}

	for _, ref := range refs {
		for i := 0; i < 1000; i++ {
			c := s.Sample(game.Medium, ref, i%20)
			assert.True(t, c.Lat >= 10 && c.Lat <= 60, "lat %v", c.Lat)
			assert.True(t, c.Lng >= 60 && c.Lng <= 150, "lng %v", c.Lng)
		}
	}
}

func TestSampleHardContainment(t *testing.T) {
	s := New(rand.New(rand.NewSource(2)))
	for i := 0; i < 1000; i++ {
		c := s.Sample(game.Hard, game.Coordinate{}, i)
		assert.True(t, c.Lat >= -85 && c.Lat <= 85, "lat %v", c.Lat)
		assert.True(t, c.Lng >= -180 && c.Lng <= 180, "lng %v", c.Lng)
	}
}

func TestSampleEasyStaysInDisk(t *testing.T) {
	s := New(rand.New(rand.NewSource(3)))
	ref := game.Coordinate{Lat: 10.8231, Lng: 106.6297}

	tests := []struct {
		name     string
		attempt  int
		radiusKm float64
	}{
		{"first attempt uses 10km", 0, 10},
		{"fifth attempt still 10km", 4, 10},
		{"sixth attempt narrows to 5km", 5, 5},
		{"late attempt stays narrow", 19, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 1000; i++ {
				c := s.Sample(game.Easy, ref, tt.attempt)
				// The flat-earth offset is a hair off the haversine distance.
				assert.LessOrEqual(t, geoscore.DistanceKm(ref, c), tt.radiusKm*1.01)
			}
		})
	}
}

func TestSampleEasyIsUniformByArea(t *testing.T) {
	s := New(rand.New(rand.NewSource(4)))
	ref := game.Coordinate{Lat: 48.8566, Lng: 2.3522}

	inner := 0
	const n = 10000
	for i := 0; i < n; i++ {
		if geoscore.DistanceKm(ref, s.Sample(game.Easy, ref, 0)) < EasyRadiusKm/2 {
			inner++
		}
	}
	// A disk of half the radius holds a quarter of the area.
	assert.InDelta(t, 0.25, float64(inner)/n, 0.03)
}

func TestSampleEasyNearPoleAndAntimeridian(t *testing.T) {
	s := New(rand.New(rand.NewSource(5)))
	refs := []game.Coordinate{{Lat: 90, Lng: 0}, {Lat: -89.99, Lng: 179.99}, {Lat: 0, Lng: -179.999}}
	for _, ref := range refs {
		for i := 0; i < 200; i++ {
			assert.True(t, s.Sample(game.Easy, ref, i).Valid())
		}
	}
}

func TestSearchRadiusMeters(t *testing.T) {
	assert.Equal(t, 10000, SearchRadiusMeters(game.Easy, 0))
	assert.Equal(t, 10000, SearchRadiusMeters(game.Easy, 4))
	assert.Equal(t, 5000, SearchRadiusMeters(game.Easy, 5))
	assert.Equal(t, 50000, SearchRadiusMeters(game.Medium, 0))
	assert.Equal(t, 100000, SearchRadiusMeters(game.Hard, 12))
}

func TestSampleDeterministicWithSeed(t *testing.T) {
	a := New(rand.New(rand.NewSource(99)))
	b := New(rand.New(rand.NewSource(99)))
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Sample(game.Hard, game.Coordinate{}, i), b.Sample(game.Hard, game.Coordinate{}, i))
	}
}
