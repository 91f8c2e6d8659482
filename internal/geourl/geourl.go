// Package geourl turns a pasted Google Maps link into a guess coordinate.
package geourl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/susu3304/geoguess/internal/game"
)

var (
	ErrNoCoordinates = errors.New("coordinates not found in URL")
	ErrOutOfRange    = errors.New("coordinates out of range")
)

var (
	reAt     = regexp.MustCompile(`@(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`)
	re3d4d   = regexp.MustCompile(`!3d(-?\d+(?:\.\d+)?)!4d(-?\d+(?:\.\d+)?)`)
	reSearch = regexp.MustCompile(`/search/(-?\d+(?:\.\d+)?),\s*\+?\s*(-?\d+(?:\.\d+)?)`)
	reQ      = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*,\s*\+?\s*(-?\d+(?:\.\d+)?)\s*$`)
)

const maxRedirects = 10

type Expander struct {
	client *http.Client
}

func NewExpander() *Expander {
	return &Expander{client: &http.Client{
		Timeout: 15 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.New("too many redirects")
			}
			return nil
		},
	}}
}

// ExpandAndExtractCoords reads coordinates straight from input when it
// carries them, and otherwise follows its redirects (short links) and reads
// the final URL.
func (e *Expander) ExpandAndExtractCoords(ctx context.Context, input string) (game.Coordinate, string, error) {
	input = strings.TrimSpace(input)
	if c, ok := extractFromURL(input); ok {
		return checked(c, input)
	}
	if mm := reQ.FindStringSubmatch(input); len(mm) == 3 {
		if c, ok := parse2(mm[1], mm[2]); ok {
			return checked(c, input)
		}
	}

	u, err := url.Parse(input)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return game.Coordinate{}, "", fmt.Errorf("%w: %q is not a link", ErrNoCoordinates, input)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input, nil)
	if err != nil {
		return game.Coordinate{}, "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; GeoTools/1.0)")
	req.Header.Set("Accept-Language", "en;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return game.Coordinate{}, "", err
	}
	defer resp.Body.Close()

	if resp.Request == nil || resp.Request.URL == nil {
		return game.Coordinate{}, "", errors.New("failed to determine final URL")
	}
	finalURL := resp.Request.URL.String()

	c, ok := extractFromURL(finalURL)
	if !ok {
		return game.Coordinate{}, finalURL, fmt.Errorf("%w: %s", ErrNoCoordinates, finalURL)
	}
	return checked(c, finalURL)
}

func checked(c game.Coordinate, from string) (game.Coordinate, string, error) {
	if !c.Valid() {
		return game.Coordinate{}, from, fmt.Errorf("%w: %s", ErrOutOfRange, c)
	}
	return c, from, nil
}

func extractFromURL(s string) (game.Coordinate, bool) {
	if un, err := url.PathUnescape(s); err == nil {
		s = un
	}
	// .../@lat,lng,zoom
	if m := reAt.FindStringSubmatch(s); len(m) == 3 {
		return parse2(m[1], m[2])
	}
	// ...!3dlat!4dlng
	if m := re3d4d.FindStringSubmatch(s); len(m) == 3 {
		return parse2(m[1], m[2])
	}
	// /maps/search/lat,+lng
	if m := reSearch.FindStringSubmatch(s); len(m) == 3 {
		return parse2(m[1], m[2])
	}

	u, err := url.Parse(s)
	if err == nil {
		for _, key := range []string{"q", "query"} {
			if v := u.Query().Get(key); v != "" {
				if mm := reQ.FindStringSubmatch(v); len(mm) == 3 {
					return parse2(mm[1], mm[2])
				}
			}
		}
	}

	return game.Coordinate{}, false
}

func parse2(a, b string) (game.Coordinate, bool) {
	la, err1 := strconv.ParseFloat(a, 64)
	lo, err2 := strconv.ParseFloat(b, 64)
	if err1 != nil || err2 != nil {
		return game.Coordinate{}, false
	}
	return game.Coordinate{Lat: la, Lng: lo}, true
}
