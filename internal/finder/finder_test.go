package finder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/susu3304/geoguess/internal/game"
	"github.com/susu3304/geoguess/internal/panorama"
)

// fixedSampler records the attempt indexes it was asked for.
type fixedSampler struct {
	attempts []int
}

func (s *fixedSampler) Sample(tier game.Tier, ref game.Coordinate, attempt int) game.Coordinate {
	s.attempts = append(s.attempts, attempt)
	return game.Coordinate{Lat: 1, Lng: 2}
}

func newFinder(s Sampler, l panorama.Lookup) *Finder {
	return New(s, l, Config{RetryDelay: 0})
}

func TestFindLocationGivesUpAfterMaxAttempts(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	lookup := panorama.NewMockLookup(ctl)
	lookup.EXPECT().
		LookupPanorama(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(game.PanoramaCandidate{}, panorama.ErrNotFound).
		Times(DefaultMaxAttempts)

	s := &fixedSampler{}
	_, err := newFinder(s, lookup).FindLocation(context.Background(), game.Hard, game.Coordinate{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocationNotFound))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, DefaultMaxAttempts, nf.Attempts)
	assert.Equal(t, game.Hard, nf.Tier)
	assert.Len(t, s.attempts, DefaultMaxAttempts)
}

func TestFindLocationShortCircuitsOnAccept(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	want := game.PanoramaCandidate{PanoID: "good", LinkCount: 2, Coordinate: game.Coordinate{Lat: 1, Lng: 2}}

	lookup := panorama.NewMockLookup(ctl)
	gomock.InOrder(
		lookup.EXPECT().LookupPanorama(gomock.Any(), gomock.Any(), 10000).
			Return(game.PanoramaCandidate{}, &panorama.ServiceError{Op: "panoIds", StatusCode: 503}),
		lookup.EXPECT().LookupPanorama(gomock.Any(), gomock.Any(), 10000).
			Return(game.PanoramaCandidate{PanoID: "deadend", LinkCount: 1}, nil),
		lookup.EXPECT().LookupPanorama(gomock.Any(), gomock.Any(), 10000).
			Return(want, nil),
	)

	s := &fixedSampler{}
	got, err := newFinder(s, lookup).FindLocation(context.Background(), game.Easy, game.Coordinate{})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []int{0, 1, 2}, s.attempts)
}

func TestFindLocationNarrowsEasyRadius(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	lookup := panorama.NewMockLookup(ctl)
	gomock.InOrder(
		lookup.EXPECT().LookupPanorama(gomock.Any(), gomock.Any(), 10000).
			Return(game.PanoramaCandidate{}, panorama.ErrNotFound).Times(5),
		lookup.EXPECT().LookupPanorama(gomock.Any(), gomock.Any(), 5000).
			Return(game.PanoramaCandidate{PanoID: "x", LinkCount: 4}, nil),
	)

	_, err := newFinder(&fixedSampler{}, lookup).FindLocation(context.Background(), game.Easy, game.Coordinate{})
	require.NoError(t, err)
}

func TestFindLocationTierRadius(t *testing.T) {
	tests := []struct {
		tier   game.Tier
		radius int
	}{
		{game.Medium, 50000},
		{game.Hard, 100000},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			ctl := gomock.NewController(t)
			defer ctl.Finish()

			lookup := panorama.NewMockLookup(ctl)
			lookup.EXPECT().LookupPanorama(gomock.Any(), gomock.Any(), tt.radius).
				Return(game.PanoramaCandidate{PanoID: "x", LinkCount: 1}, nil)

			_, err := newFinder(&fixedSampler{}, lookup).FindLocation(context.Background(), tt.tier, game.Coordinate{})
			require.NoError(t, err)
		})
	}
}

func TestFindLocationStopsOnCancel(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	ctx, cancel := context.WithCancel(context.Background())

	lookup := panorama.NewMockLookup(ctl)
	lookup.EXPECT().LookupPanorama(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, game.Coordinate, int) (game.PanoramaCandidate, error) {
			cancel()
			return game.PanoramaCandidate{}, panorama.ErrNotFound
		}).Times(1)

	f := New(&fixedSampler{}, lookup, Config{RetryDelay: time.Second})
	_, err := f.FindLocation(ctx, game.Hard, game.Coordinate{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindLocationWaitsBetweenAttempts(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	lookup := panorama.NewMockLookup(ctl)
	lookup.EXPECT().LookupPanorama(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(game.PanoramaCandidate{}, panorama.ErrNotFound).Times(3)

	f := New(&fixedSampler{}, lookup, Config{MaxAttempts: 3, RetryDelay: 20 * time.Millisecond})
	start := time.Now()
	_, err := f.FindLocation(context.Background(), game.Hard, game.Coordinate{})
	require.ErrorIs(t, err, ErrLocationNotFound)
	// Two gaps between three attempts, none after the last.
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}
