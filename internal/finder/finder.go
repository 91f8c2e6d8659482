// Package finder picks a playable panorama for a round.
package finder

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/susu3304/geoguess/internal/game"
	"github.com/susu3304/geoguess/internal/panorama"
	"github.com/susu3304/geoguess/internal/sampler"
)

const (
	DefaultMaxAttempts = 20
	DefaultRetryDelay  = 100 * time.Millisecond
)

var ErrLocationNotFound = errors.New("no suitable location found")

// NotFoundError is returned once every attempt has been used up.
type NotFoundError struct {
	Tier     game.Tier
	Attempts int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: tried %d times on %s", ErrLocationNotFound, e.Attempts, e.Tier)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrLocationNotFound
}

// Sampler draws candidate coordinates; *sampler.Sampler implements it.
type Sampler interface {
	Sample(tier game.Tier, reference game.Coordinate, attemptIndex int) game.Coordinate
}

type Config struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

type Finder struct {
	sampler     Sampler
	lookup      panorama.Lookup
	maxAttempts int
	retryDelay  time.Duration
}

func New(s Sampler, l panorama.Lookup, cfg Config) *Finder {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	return &Finder{
		sampler:     s,
		lookup:      l,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
	}
}

// FindLocation samples, looks up and validates until a panorama fits the
// tier. Lookup failures and rejections are retried; callers only ever see
// a candidate, a *NotFoundError or the context's error.
func (f *Finder) FindLocation(ctx context.Context, tier game.Tier, reference game.Coordinate) (game.PanoramaCandidate, error) {
	logger := log.WithFields(log.Fields{"prefix": "finder", "tier": tier})

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, f.retryDelay); err != nil {
				return game.PanoramaCandidate{}, err
			}
		}

		coord := f.sampler.Sample(tier, reference, attempt)
		radius := sampler.SearchRadiusMeters(tier, attempt)

		cand, err := f.lookup.LookupPanorama(ctx, coord, radius)
		switch {
		case err == nil && panorama.IsAcceptable(cand, tier):
			logger.Debugf("accepted %s (%d links) after %d attempts", cand.PanoID, cand.LinkCount, attempt+1)
			return cand, nil
		case err == nil:
			logger.Debugf("attempt %d: %s has %d links, rejected", attempt+1, cand.PanoID, cand.LinkCount)
		case ctx.Err() != nil:
			return game.PanoramaCandidate{}, ctx.Err()
		case errors.Is(err, panorama.ErrNotFound):
			logger.Debugf("attempt %d: no imagery near %s within %dm", attempt+1, coord, radius)
		case panorama.IsServiceError(err):
			logger.Debugf("attempt %d: imagery service error: %v", attempt+1, err)
		default:
			logger.Debugf("attempt %d: lookup failed: %v", attempt+1, err)
		}
	}

	logger.Warnf("giving up after %d attempts", f.maxAttempts)
	return game.PanoramaCandidate{}, &NotFoundError{Tier: tier, Attempts: f.maxAttempts}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
