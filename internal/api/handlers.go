package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/susu3304/geoguess/internal/game"
	"github.com/susu3304/geoguess/internal/geoscore"
	"github.com/susu3304/geoguess/internal/leaderboard"
	"github.com/susu3304/geoguess/internal/round"
)

type roundResponse struct {
	ID              string    `json:"id"`
	Tier            game.Tier `json:"tier"`
	PanoID          string    `json:"pano_id"`
	StartedAt       time.Time `json:"started_at"`
	Deadline        time.Time `json:"deadline"`
	DurationSeconds int       `json:"duration_seconds"`
}

type rankResponse struct {
	Position   int     `json:"position"`
	Total      int     `json:"total"`
	Score      int     `json:"score"`
	Percentile float64 `json:"percentile"`
	Message    string  `json:"message"`
}

type outcomeResponse struct {
	RoundID      string           `json:"round_id"`
	Status       round.Status     `json:"status"`
	TimedOut     bool             `json:"timed_out"`
	Points       int              `json:"points"`
	Title        string           `json:"title"`
	Emoji        string           `json:"emoji"`
	DistanceKm   *float64         `json:"distance_km"`
	DistanceText string           `json:"distance_text,omitempty"`
	Feedback     string           `json:"feedback,omitempty"`
	Actual       game.Coordinate  `json:"actual"`
	Guess        *game.Coordinate `json:"guess,omitempty"`
	MapsURL      string           `json:"maps_url"`
	Address      string           `json:"address,omitempty"`
	Rank         *rankResponse    `json:"rank,omitempty"`
}

func toRankResponse(r game.Rank) *rankResponse {
	return &rankResponse{
		Position:   r.Position,
		Total:      r.Total,
		Score:      r.Score,
		Percentile: r.Percentile(),
		Message:    leaderboard.RankingMessage(r.Position, r.Total),
	}
}

func toOutcomeResponse(o round.Outcome) outcomeResponse {
	title := o.Title()
	resp := outcomeResponse{
		RoundID:    o.Round.ID,
		Status:     o.Round.Status,
		TimedOut:   o.TimedOut(),
		Points:     o.Points(),
		Title:      title.Title,
		Emoji:      title.Emoji,
		DistanceKm: o.GuessRecord.DistanceKm,
		Actual:     o.GuessRecord.Actual,
		Guess:      o.GuessRecord.Guess,
		MapsURL:    geoscore.MapsURL(o.GuessRecord.Actual),
		Address:    o.Address,
	}
	if d := o.GuessRecord.DistanceKm; d != nil {
		resp.DistanceText = geoscore.FormatDistance(*d)
		resp.Feedback = geoscore.DistanceFeedback(*d)
	}
	if o.Ranked {
		resp.Rank = toRankResponse(o.Rank)
	}
	return resp
}

// Public handlers
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.svc.Health != nil {
		if err := a.svc.Health.Ping(r.Context()); err != nil {
			writeMessage(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleMapKey(w http.ResponseWriter, r *http.Request) {
	if a.config.GoogleMapsAPIKey == "" {
		logger.Error("GOOGLE_MAPS_API_KEY not configured")
		writeMessage(w, http.StatusInternalServerError, "API key not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"apiKey": a.config.GoogleMapsAPIKey,
		"status": "success",
	})
}

func (a *API) handleLeaderboards(w http.ResponseWriter, r *http.Request) {
	n, err := parseLimit(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid n")
		return
	}
	boards, err := a.svc.Board.All(r.Context(), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	tier, err := game.ParseTier(mux.Vars(r)["tier"])
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := parseLimit(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid n")
		return
	}
	board, err := a.svc.Board.TopN(r.Context(), tier, n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (a *API) handleRank(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tier, err := game.ParseTier(vars["tier"])
	if err != nil {
		writeError(w, err)
		return
	}
	rank, ok, err := a.svc.Board.RankOf(r.Context(), vars["player"], tier)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]bool{"ranked": false})
		return
	}
	writeJSON(w, http.StatusOK, toRankResponse(rank))
}

// Protected handlers
func (a *API) handleStartRound(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req struct {
		Tier string   `json:"tier"`
		Lat  *float64 `json:"lat"`
		Lng  *float64 `json:"lng"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tier, err := game.ParseTier(req.Tier)
	if err != nil {
		writeError(w, err)
		return
	}

	var explicit *game.Coordinate
	if req.Lat != nil && req.Lng != nil {
		explicit = &game.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
		if !explicit.Valid() {
			writeMessage(w, http.StatusBadRequest, "reference coordinate out of range")
			return
		}
	}
	reference := a.svc.Reference.CurrentApproxLocation(r.Context(), clientIP(r, a.config.TrustProxy), explicit)

	s, err := a.svc.Rounds.Start(r.Context(), claims.Username, tier, reference)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, roundResponse{
		ID:              s.ID,
		Tier:            s.Tier,
		PanoID:          s.Panorama.PanoID,
		StartedAt:       s.StartedAt,
		Deadline:        s.Deadline,
		DurationSeconds: int(s.Deadline.Sub(s.StartedAt) / time.Second),
	})
}

func (a *API) handleGuess(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Lat == nil || req.Lng == nil {
		writeMessage(w, http.StatusBadRequest, "lat and lng are required")
		return
	}

	out, err := a.svc.Rounds.Guess(r.Context(), mux.Vars(r)["id"], claims.Username, game.Coordinate{Lat: *req.Lat, Lng: *req.Lng})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeResponse(out))
}

func (a *API) handleTimeout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	out, err := a.svc.Rounds.Timeout(r.Context(), mux.Vars(r)["id"], claims.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeResponse(out))
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	profile, err := a.svc.Stats.Profile(r.Context(), claims.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Admin handlers
func (a *API) handleWipeScores(w http.ResponseWriter, r *http.Request) {
	n, err := a.svc.Stats.WipeScores(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	logger.Warnf("scores wiped by %s", claimsFrom(r).UserID)
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (a *API) handleGuessesByDate(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid tz")
			return
		}
		loc = l
	}
	groups, err := a.svc.Stats.GuessesByDate(r.Context(), loc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (a *API) handleLocationDifficulty(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Stats.AnalyzeLocations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		return leaderboard.DefaultSize, nil
	}
	return strconv.Atoi(raw)
}
