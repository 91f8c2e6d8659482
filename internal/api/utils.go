package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/susu3304/geoguess/internal/finder"
	"github.com/susu3304/geoguess/internal/game"
	"github.com/susu3304/geoguess/internal/ledger"
	"github.com/susu3304/geoguess/internal/round"
)

var logger = log.WithField("prefix", "api")

func generateRandomString(length int) string {
	// base64 encoding increases size by ~4/3, so we need fewer input bytes
	byteLength := (length * 3) / 4
	if byteLength < length {
		byteLength = length
	}

	b := make([]byte, byteLength)
	rand.Read(b)
	encoded := base64.URLEncoding.EncodeToString(b)
	if len(encoded) > length {
		return encoded[:length]
	}
	return encoded
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debugf("write response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, round.ErrRoundNotFound):
		status = http.StatusNotFound
	case errors.Is(err, round.ErrRoundClosed):
		status = http.StatusConflict
	case errors.Is(err, finder.ErrLocationNotFound):
		status = http.StatusServiceUnavailable
	case errors.Is(err, game.ErrUnknownTier),
		errors.Is(err, round.ErrInvalidGuess),
		errors.Is(err, ledger.ErrInvalidRecord):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrStorage),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		logger.Errorf("request failed: %v", err)
	}
	writeMessage(w, status, err.Error())
}

// clientIP is the peer address, or the first X-Forwarded-For hop when
// trustProxy is set.
func clientIP(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
