package panorama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/susu3304/geoguess/internal/game"
)

const (
	DefaultTilesURL = "https://tile.googleapis.com"

	// sessionSlack renews the session token this long before it expires.
	sessionSlack = 5 * time.Minute
)

// StreetViewClient looks panoramas up through the Map Tiles Street View API.
// The panoIds endpoint finds the nearest outdoor panorama and the metadata
// endpoint reports its links.
type StreetViewClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	now     func() time.Time

	mu      sync.Mutex
	session string
	expiry  time.Time
}

func NewStreetViewClient(apiKey string) *StreetViewClient {
	return &StreetViewClient{
		baseURL: DefaultTilesURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

// WithBaseURL points the client at another host, e.g. a test server.
func (c *StreetViewClient) WithBaseURL(u string) *StreetViewClient {
	c.baseURL = u
	return c
}

type sessionResponse struct {
	Session string `json:"session"`
	Expiry  string `json:"expiry"`
}

type panoIDsRequest struct {
	Locations []latLng `json:"locations"`
	Radius    int      `json:"radius"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type panoIDsResponse struct {
	PanoIDs []string `json:"panoIds"`
}

type metadataResponse struct {
	PanoID string  `json:"panoId"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Links  []struct {
		PanoID  string  `json:"panoId"`
		Heading float64 `json:"heading"`
	} `json:"links"`
}

func (c *StreetViewClient) LookupPanorama(ctx context.Context, near game.Coordinate, radiusMeters int) (game.PanoramaCandidate, error) {
	session, err := c.ensureSession(ctx)
	if err != nil {
		return game.PanoramaCandidate{}, err
	}

	var ids panoIDsResponse
	body := panoIDsRequest{
		Locations: []latLng{{Lat: near.Lat, Lng: near.Lng}},
		Radius:    radiusMeters,
	}
	if err := c.do(ctx, "panoIds", http.MethodPost, "/v1/streetview/panoIds", session, nil, body, &ids); err != nil {
		return game.PanoramaCandidate{}, err
	}
	if len(ids.PanoIDs) == 0 || ids.PanoIDs[0] == "" {
		return game.PanoramaCandidate{}, ErrNotFound
	}

	var meta metadataResponse
	q := url.Values{"panoId": {ids.PanoIDs[0]}}
	if err := c.do(ctx, "metadata", http.MethodGet, "/v1/streetview/metadata", session, q, nil, &meta); err != nil {
		return game.PanoramaCandidate{}, err
	}
	if meta.PanoID == "" {
		return game.PanoramaCandidate{}, ErrNotFound
	}

	return game.PanoramaCandidate{
		Coordinate: game.Coordinate{Lat: meta.Lat, Lng: meta.Lng},
		PanoID:     meta.PanoID,
		LinkCount:  len(meta.Links),
	}, nil
}

func (c *StreetViewClient) ensureSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != "" && c.now().Add(sessionSlack).Before(c.expiry) {
		return c.session, nil
	}

	reqBody := map[string]string{
		"mapType":  "streetview",
		"language": "en-US",
		"region":   "US",
	}
	var resp sessionResponse
	if err := c.do(ctx, "createSession", http.MethodPost, "/v1/createSession", "", nil, reqBody, &resp); err != nil {
		return "", err
	}
	if resp.Session == "" {
		return "", &ServiceError{Op: "createSession", Err: fmt.Errorf("empty session token")}
	}

	expiry := c.now().Add(time.Hour)
	if secs, err := strconv.ParseInt(resp.Expiry, 10, 64); err == nil {
		expiry = time.Unix(secs, 0)
	}
	c.session = resp.Session
	c.expiry = expiry
	return c.session, nil
}

func (c *StreetViewClient) do(ctx context.Context, op, method, path, session string, query url.Values, in, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", c.apiKey)
	if session != "" {
		query.Set("session", session)
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query.Encode(), body)
	if err != nil {
		return fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ServiceError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", bytes.TrimSpace(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServiceError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
