// Package refloc resolves the reference point easy rounds are sampled
// around.
package refloc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/susu3304/geoguess/internal/game"
)

const (
	defaultBaseURL = "https://ipapi.co"
	cacheTTL       = 5 * time.Minute
)

// DefaultLocation is Ho Chi Minh City.
var DefaultLocation = game.Coordinate{Lat: 10.8231, Lng: 106.6297}

type ipapiResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Error     bool    `json:"error"`
	Reason    string  `json:"reason"`
}

type cached struct {
	at    time.Time
	coord game.Coordinate
}

type Provider struct {
	baseURL  string
	client   *http.Client
	fallback game.Coordinate
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]cached
}

func New(fallback game.Coordinate) *Provider {
	if !fallback.Valid() || (fallback == game.Coordinate{}) {
		fallback = DefaultLocation
	}
	return &Provider{
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		fallback: fallback,
		now:      time.Now,
		cache:    make(map[string]cached),
	}
}

func (p *Provider) WithBaseURL(u string) *Provider {
	p.baseURL = strings.TrimRight(u, "/")
	return p
}

func (p *Provider) Fallback() game.Coordinate {
	return p.fallback
}

// CurrentApproxLocation never fails. An explicit valid coordinate wins,
// then IP geolocation, then the fallback.
func (p *Provider) CurrentApproxLocation(ctx context.Context, clientIP string, explicit *game.Coordinate) game.Coordinate {
	if explicit != nil && explicit.Valid() {
		return *explicit
	}

	key := publicIP(clientIP)
	p.mu.Lock()
	if c, ok := p.cache[key]; ok && p.now().Sub(c.at) < cacheTTL {
		p.mu.Unlock()
		return c.coord
	}
	p.mu.Unlock()

	coord, err := p.lookup(ctx, key)
	if err != nil {
		log.WithField("prefix", "refloc").Debugf("ip lookup for %q failed, using default: %v", key, err)
		return p.fallback
	}

	p.store(key, coord)
	return coord
}

// store caches coord and evicts entries past their TTL.
func (p *Provider) store(key string, coord game.Coordinate) {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, c := range p.cache {
		if now.Sub(c.at) >= cacheTTL {
			delete(p.cache, k)
		}
	}
	p.cache[key] = cached{at: now, coord: coord}
}

func (p *Provider) lookup(ctx context.Context, ip string) (game.Coordinate, error) {
	u := p.baseURL + "/json/"
	if ip != "" {
		u = p.baseURL + "/" + ip + "/json/"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return game.Coordinate{}, err
	}
	req.Header.Set("User-Agent", "geoguess/1.0 (+https://github.com/susu3304/geoguess)")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return game.Coordinate{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return game.Coordinate{}, fmt.Errorf("ipapi returned status %d", resp.StatusCode)
	}

	var body ipapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return game.Coordinate{}, err
	}
	if body.Error {
		return game.Coordinate{}, fmt.Errorf("ipapi: %s", body.Reason)
	}
	coord := game.Coordinate{Lat: body.Latitude, Lng: body.Longitude}
	if (coord == game.Coordinate{}) || !coord.Valid() {
		return game.Coordinate{}, fmt.Errorf("ipapi returned no usable coordinate")
	}
	return coord, nil
}

// publicIP strips the port and drops addresses ipapi cannot place.
func publicIP(addr string) string {
	host := strings.TrimSpace(addr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
