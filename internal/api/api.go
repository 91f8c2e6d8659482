package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/susu3304/geoguess/internal/config"
	"github.com/susu3304/geoguess/internal/leaderboard"
	"github.com/susu3304/geoguess/internal/refloc"
	"github.com/susu3304/geoguess/internal/round"
	"github.com/susu3304/geoguess/internal/stats"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the game components the HTTP surface drives. Health may be
// nil when running on the in-memory store.
type Services struct {
	Rounds    *round.Controller
	Board     *leaderboard.Aggregator
	Stats     *stats.Service
	Reference *refloc.Provider
	Health    Pinger
}

type API struct {
	router      *mux.Router
	svc         Services
	config      *config.Config
	oauthConfig *oauth2.Config
	discordAPI  string
	jwtSecret   []byte
}

func New(cfg *config.Config, svc Services) *API {
	api := &API{
		router:     mux.NewRouter(),
		svc:        svc,
		config:     cfg,
		discordAPI: "https://discord.com/api",
		jwtSecret:  []byte(cfg.JWTSecret),
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Auth endpoints
	if a.config.OAuthEnabled() {
		a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
		a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
		a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")
	} else {
		log.WithField("prefix", "api").Warn("Discord OAuth not configured, web login disabled")
	}

	// Public endpoints
	a.router.HandleFunc("/healthz", a.handleHealth).Methods("GET")
	a.router.HandleFunc("/api/mapkey", a.handleMapKey).Methods("GET")
	a.router.HandleFunc("/api/leaderboard", a.handleLeaderboards).Methods("GET")
	a.router.HandleFunc("/api/leaderboard/{tier}", a.handleLeaderboard).Methods("GET")
	a.router.HandleFunc("/api/rank/{tier}/{player}", a.handleRank).Methods("GET")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/rounds", a.handleStartRound).Methods("POST")
	protected.HandleFunc("/rounds/{id}/guess", a.handleGuess).Methods("POST")
	protected.HandleFunc("/rounds/{id}/timeout", a.handleTimeout).Methods("POST")
	protected.HandleFunc("/me/profile", a.handleProfile).Methods("GET")

	// Admin endpoints
	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(a.adminMiddleware)

	admin.HandleFunc("/scores", a.handleWipeScores).Methods("DELETE")
	admin.HandleFunc("/guesses/by-date", a.handleGuessesByDate).Methods("GET")
	admin.HandleFunc("/locations/difficulty", a.handleLocationDifficulty).Methods("GET")
}

// Handler is the router wrapped in CORS.
func (a *API) Handler() http.Handler {
	// Note: When AllowedOrigins is "*", AllowCredentials must be false
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

func (a *API) Server() *http.Server {
	log.WithField("prefix", "api").Infof("API server listening on http://%s", a.config.WebBind)
	return &http.Server{Addr: a.config.WebBind, Handler: a.Handler()}
}
