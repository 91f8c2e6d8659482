package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/susu3304/geoguess/internal/config"
	"github.com/susu3304/geoguess/internal/finder"
	"github.com/susu3304/geoguess/internal/game"
	"github.com/susu3304/geoguess/internal/leaderboard"
	"github.com/susu3304/geoguess/internal/ledger"
	"github.com/susu3304/geoguess/internal/refloc"
	"github.com/susu3304/geoguess/internal/round"
	"github.com/susu3304/geoguess/internal/stats"
)

var tokyo = game.PanoramaCandidate{Coordinate: game.Coordinate{Lat: 35.6595, Lng: 139.7005}, PanoID: "shibuya", LinkCount: 4}

type stubFinder struct {
	err error
}

func (f stubFinder) FindLocation(context.Context, game.Tier, game.Coordinate) (game.PanoramaCandidate, error) {
	return tokyo, f.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	api   *API
	store *ledger.MemoryStore
	h     http.Handler
}

func newTestEnv(t *testing.T, f round.Finder) *testEnv {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		AdminUserIDs:     []string{"1"},
		GoogleMapsAPIKey: "browser-key",
		WebBind:          "127.0.0.1:0",
	}
	store := ledger.NewMemoryStore()
	board := leaderboard.New(store)
	a := New(cfg, Services{
		Rounds:    round.NewController(f, ledger.New(store), board, nil, time.Minute),
		Board:     board,
		Stats:     stats.New(store),
		Reference: refloc.New(game.Coordinate{}).WithBaseURL("http://127.0.0.1:1"),
	})
	return &testEnv{api: a, store: store, h: a.Handler()}
}

func (e *testEnv) token(t *testing.T, userID, username string) string {
	t.Helper()
	tok, err := e.api.issueToken(userID, username)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestMapKey(t *testing.T) {
	env := newTestEnv(t, stubFinder{})
	w := env.do("GET", "/api/mapkey", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "browser-key", body["apiKey"])

	env.api.config.GoogleMapsAPIKey = ""
	w = env.do("GET", "/api/mapkey", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, stubFinder{})
	assert.Equal(t, http.StatusOK, env.do("GET", "/healthz", "", "").Code)

	env.api.svc.Health = stubPinger{err: errors.New("down")}
	assert.Equal(t, http.StatusServiceUnavailable, env.do("GET", "/healthz", "", "").Code)
}

func seedScores(store *ledger.MemoryStore) {
	for _, s := range []game.ScoreRecord{
		{PlayerName: "A", Score: 10, Difficulty: game.Easy},
		{PlayerName: "B", Score: 30, Difficulty: game.Easy},
		{PlayerName: "A", Score: 5, Difficulty: game.Easy},
		{PlayerName: "C", Score: 99, Difficulty: game.Hard},
	} {
		store.AppendScore(s)
	}
}

func TestLeaderboardRoutes(t *testing.T) {
	env := newTestEnv(t, stubFinder{})
	seedScores(env.store)

	w := env.do("GET", "/api/leaderboard/easy", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var easy []game.LeaderboardEntry
	decode(t, w, &easy)
	assert.Equal(t, []game.LeaderboardEntry{{PlayerName: "B", TotalScore: 30}, {PlayerName: "A", TotalScore: 15}}, easy)

	w = env.do("GET", "/api/leaderboard/medium", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = env.do("GET", "/api/leaderboard", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var all map[string][]game.LeaderboardEntry
	decode(t, w, &all)
	assert.Len(t, all, 3)
	assert.Equal(t, []game.LeaderboardEntry{{PlayerName: "C", TotalScore: 99}}, all["hard"])

	w = env.do("GET", "/api/leaderboard/easy?n=1", "", "")
	decode(t, w, &easy)
	assert.Len(t, easy, 1)

	assert.Equal(t, http.StatusBadRequest, env.do("GET", "/api/leaderboard/impossible", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do("GET", "/api/leaderboard/easy?n=x", "", "").Code)
}

func TestRankRoute(t *testing.T) {
	env := newTestEnv(t, stubFinder{})
	seedScores(env.store)

	w := env.do("GET", "/api/rank/easy/A", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rank rankResponse
	decode(t, w, &rank)
	assert.Equal(t, 2, rank.Position)
	assert.Equal(t, 2, rank.Total)
	assert.Equal(t, 15, rank.Score)
	assert.Equal(t, 0.0, rank.Percentile)

	w = env.do("GET", "/api/rank/easy/Z", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"ranked":false}`, w.Body.String())
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	env := newTestEnv(t, stubFinder{})
	assert.Equal(t, http.StatusUnauthorized, env.do("POST", "/api/rounds", "", `{"tier":"easy"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do("GET", "/api/me/profile", "garbage", "").Code)

	other := New(&config.Config{JWTSecret: "other"}, Services{})
	forged, err := other.issueToken("2", "mallory")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, env.do("GET", "/api/me/profile", forged, "").Code)
}

func TestRoundTrip(t *testing.T) {
	env := newTestEnv(t, stubFinder{})
	tok := env.token(t, "42", "alice")

	w := env.do("POST", "/api/rounds", tok, `{"tier":"hard","lat":35.0,"lng":139.0}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var started map[string]interface{}
	decode(t, w, &started)
	assert.Equal(t, "shibuya", started["pano_id"])
	assert.Equal(t, float64(60), started["duration_seconds"])
	assert.NotContains(t, w.Body.String(), "35.6595")
	id := started["id"].(string)

	w = env.do("POST", "/api/rounds/"+id+"/guess", tok, `{"lat":35.6595,"lng":139.7005}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out outcomeResponse
	decode(t, w, &out)
	assert.Equal(t, 150, out.Points)
	assert.Equal(t, "PERFECT!", out.Title)
	assert.False(t, out.TimedOut)
	require.NotNil(t, out.Rank)
	assert.Equal(t, 1, out.Rank.Position)
	assert.Equal(t, tokyo.Coordinate, out.Actual)

	scores, _ := env.store.Scores(context.Background())
	guesses, _ := env.store.Guesses(context.Background())
	assert.Len(t, scores, 1)
	assert.Len(t, guesses, 1)

	w = env.do("POST", "/api/rounds/"+id+"/guess", tok, `{"lat":35.6595,"lng":139.7005}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do("GET", "/api/me/profile", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	var profile stats.Profile
	decode(t, w, &profile)
	assert.Equal(t, 1, profile.TotalGames)
	assert.Equal(t, 150, profile.TotalScore)
}

func TestRoundErrors(t *testing.T) {
	env := newTestEnv(t, stubFinder{})
	tok := env.token(t, "42", "alice")

	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/api/rounds", tok, `{"tier":"legendary"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/api/rounds", tok, `{"tier":"easy","lat":100,"lng":0}`).Code)
	assert.Equal(t, http.StatusNotFound, env.do("POST", "/api/rounds/nope/guess", tok, `{"lat":1,"lng":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/api/rounds/nope/guess", tok, `{"lat":1}`).Code)

	w := env.do("POST", "/api/rounds", tok, `{"tier":"easy"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var started map[string]interface{}
	decode(t, w, &started)
	id := started["id"].(string)

	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/api/rounds/"+id+"/guess", tok, `{"lat":-95,"lng":1}`).Code)
	bob := env.token(t, "43", "bob")
	assert.Equal(t, http.StatusNotFound, env.do("POST", "/api/rounds/"+id+"/timeout", bob, "").Code)

	w = env.do("POST", "/api/rounds/"+id+"/timeout", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	var out outcomeResponse
	decode(t, w, &out)
	assert.True(t, out.TimedOut)
	assert.Nil(t, out.DistanceKm)
	assert.Zero(t, out.Points)
}

func TestFinderExhaustionIs503(t *testing.T) {
	env := newTestEnv(t, stubFinder{err: &finder.NotFoundError{Tier: game.Easy, Attempts: 20}})
	w := env.do("POST", "/api/rounds", env.token(t, "42", "alice"), `{"tier":"easy","lat":1,"lng":1}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t, stubFinder{})
	seedScores(env.store)
	d := 12.0
	env.store.AppendGuess(game.GuessRecord{PlayerName: "A", Actual: tokyo.Coordinate, DistanceKm: &d, Difficulty: game.Easy, TimestampMs: 1714521600000})

	user := env.token(t, "42", "alice")
	admin := env.token(t, "1", "root")

	assert.Equal(t, http.StatusForbidden, env.do("DELETE", "/api/admin/scores", user, "").Code)

	w := env.do("GET", "/api/admin/locations/difficulty", admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	var locs []stats.LocationDifficulty
	decode(t, w, &locs)
	require.Len(t, locs, 1)
	assert.Equal(t, game.Medium, locs[0].Difficulty)

	w = env.do("GET", "/api/admin/guesses/by-date?tz=Asia/Tokyo", admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	var days []stats.DayGroup
	decode(t, w, &days)
	require.Len(t, days, 1)
	assert.Equal(t, "2024-05-01", days[0].Date)
	assert.Equal(t, http.StatusBadRequest, env.do("GET", "/api/admin/guesses/by-date?tz=Mars/Olympus", admin, "").Code)

	w = env.do("DELETE", "/api/admin/scores", admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":4}`, w.Body.String())

	w = env.do("GET", "/api/leaderboard/easy", "", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

// failOnce rejects the first append and writes through afterwards.
type failOnce struct {
	failed bool
	next   *ledger.Ledger
}

func (r *failOnce) Append(ctx context.Context, g game.GuessRecord, s game.ScoreRecord) error {
	if !r.failed {
		r.failed = true
		return &ledger.StorageError{Op: "append", Err: context.DeadlineExceeded}
	}
	return r.next.Append(ctx, g, s)
}

func TestGuessStorageFailureCanBeRetried(t *testing.T) {
	env := newTestEnv(t, stubFinder{})
	board := leaderboard.New(env.store)
	env.api.svc.Rounds = round.NewController(stubFinder{}, &failOnce{next: ledger.New(env.store)}, board, nil, time.Minute)
	tok := env.token(t, "42", "alice")

	w := env.do("POST", "/api/rounds", tok, `{"tier":"hard","lat":35.0,"lng":139.0}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var started map[string]interface{}
	decode(t, w, &started)
	id := started["id"].(string)

	w = env.do("POST", "/api/rounds/"+id+"/guess", tok, `{"lat":35.6595,"lng":139.7005}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do("POST", "/api/rounds/"+id+"/guess", tok, `{"lat":35.6595,"lng":139.7005}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out outcomeResponse
	decode(t, w, &out)
	assert.Equal(t, 150, out.Points)

	scores, err := env.store.Scores(context.Background())
	require.NoError(t, err)
	assert.Len(t, scores, 1)

	w = env.do("POST", "/api/rounds/"+id+"/guess", tok, `{"lat":35.6595,"lng":139.7005}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}
