package panorama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/susu3304/geoguess/internal/game"
)

type fakeTiles struct {
	sessions int32
	panoID   string
	links    int
	failMeta bool
}

func (f *fakeTiles) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/createSession", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		n := atomic.AddInt32(&f.sessions, 1)
		json.NewEncoder(w).Encode(map[string]string{
			"session": "s" + strconv.Itoa(int(n)),
			"expiry":  strconv.FormatInt(time.Now().Add(2*time.Hour).Unix(), 10),
		})
	})
	mux.HandleFunc("/v1/streetview/panoIds", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.URL.Query().Get("session"))
		var req panoIDsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 5000, req.Radius)
		json.NewEncoder(w).Encode(map[string][]string{"panoIds": {f.panoID}})
	})
	mux.HandleFunc("/v1/streetview/metadata", func(w http.ResponseWriter, r *http.Request) {
		if f.failMeta {
			http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
			return
		}
		links := make([]map[string]any, f.links)
		for i := range links {
			links[i] = map[string]any{"panoId": "n" + strconv.Itoa(i), "heading": 90 * i}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"panoId": r.URL.Query().Get("panoId"),
			"lat":    10.5,
			"lng":    106.25,
			"links":  links,
		})
	})
	return mux
}

func TestStreetViewLookup(t *testing.T) {
	f := &fakeTiles{panoID: "abc", links: 3}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	c := NewStreetViewClient("k").WithBaseURL(srv.URL)

	got, err := c.LookupPanorama(context.Background(), game.Coordinate{Lat: 10, Lng: 106}, 5000)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.PanoID)
	assert.Equal(t, 3, got.LinkCount)
	assert.Equal(t, game.Coordinate{Lat: 10.5, Lng: 106.25}, got.Coordinate)

	// The session is reused while it is fresh.
	_, err = c.LookupPanorama(context.Background(), game.Coordinate{Lat: 10, Lng: 106}, 5000)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.sessions))
}

func TestStreetViewLookupNotFound(t *testing.T) {
	f := &fakeTiles{panoID: ""}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	_, err := NewStreetViewClient("k").WithBaseURL(srv.URL).
		LookupPanorama(context.Background(), game.Coordinate{}, 5000)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, IsServiceError(err))
}

func TestStreetViewLookupServiceError(t *testing.T) {
	f := &fakeTiles{panoID: "abc", failMeta: true}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	_, err := NewStreetViewClient("k").WithBaseURL(srv.URL).
		LookupPanorama(context.Background(), game.Coordinate{}, 5000)
	require.Error(t, err)
	assert.True(t, IsServiceError(err))

	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, "metadata", se.Op)
}

func TestStreetViewSessionRenewal(t *testing.T) {
	f := &fakeTiles{panoID: "abc", links: 1}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	c := NewStreetViewClient("k").WithBaseURL(srv.URL)
	now := time.Now()
	c.now = func() time.Time { return now }

	_, err := c.LookupPanorama(context.Background(), game.Coordinate{}, 5000)
	require.NoError(t, err)

	// Jump to within the renewal slack of the two hour expiry.
	now = now.Add(2*time.Hour - time.Minute)
	_, err = c.LookupPanorama(context.Background(), game.Coordinate{}, 5000)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&f.sessions))
}
