// Package place reverse-geocodes a round's true location for the reveal.
package place

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"googlemaps.github.io/maps"

	"github.com/susu3304/geoguess/internal/game"
)

var ErrNoAddress = errors.New("no address found")

type Geocoder interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

type Revealer struct {
	geocoder Geocoder
	timeout  time.Duration
}

// NewRevealer returns nil when apiKey is empty; a nil *Revealer reveals
// nothing.
func NewRevealer(apiKey string) (*Revealer, error) {
	if apiKey == "" {
		return nil, nil
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return NewWithGeocoder(client), nil
}

func NewWithGeocoder(g Geocoder) *Revealer {
	return &Revealer{geocoder: g, timeout: 5 * time.Second}
}

func (r *Revealer) Address(ctx context.Context, c game.Coordinate) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results, err := r.geocoder.Geocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: c.Lat, Lng: c.Lng},
		Language: "en",
	})
	if err != nil {
		return "", err
	}
	for _, res := range results {
		if res.FormattedAddress != "" {
			return res.FormattedAddress, nil
		}
	}
	return "", ErrNoAddress
}

// Reveal is Address with failures logged and swallowed.
func (r *Revealer) Reveal(ctx context.Context, c game.Coordinate) string {
	if r == nil {
		return ""
	}
	addr, err := r.Address(ctx, c)
	if err != nil {
		log.WithField("prefix", "place").Debugf("reverse geocode %s: %v", c, err)
		return ""
	}
	return addr
}
