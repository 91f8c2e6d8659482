package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"golang.org/x/sync/errgroup"

	"github.com/susu3304/geoguess/internal/api"
	"github.com/susu3304/geoguess/internal/bot"
	"github.com/susu3304/geoguess/internal/commands"
	"github.com/susu3304/geoguess/internal/config"
	"github.com/susu3304/geoguess/internal/db"
	"github.com/susu3304/geoguess/internal/finder"
	"github.com/susu3304/geoguess/internal/game"
	"github.com/susu3304/geoguess/internal/geourl"
	"github.com/susu3304/geoguess/internal/leaderboard"
	"github.com/susu3304/geoguess/internal/ledger"
	"github.com/susu3304/geoguess/internal/panorama"
	"github.com/susu3304/geoguess/internal/place"
	"github.com/susu3304/geoguess/internal/refloc"
	"github.com/susu3304/geoguess/internal/round"
	"github.com/susu3304/geoguess/internal/sampler"
	"github.com/susu3304/geoguess/internal/stats"
)

func initLog(level string) {
	logLevel, err := log.ParseLevel(level)
	if err != nil {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(logLevel)
	}

	log.SetOutput(os.Stdout)

	log.SetFormatter(&prefixed.TextFormatter{
		ForceFormatting: true,
		FullTimestamp:   true,
	})
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.WithField("prefix", "main").Fatalf("%v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	initLog(cfg.LogLevel)
	logger := log.WithField("prefix", "main")

	// Storage: Postgres when configured, otherwise in memory
	var store ledger.Store
	var health api.Pinger
	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()

		if err := database.RunMigrations(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		store, health = database, database
		logger.Info("connected to postgres")
	} else {
		store = ledger.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, scores are kept in memory only")
	}

	revealer, err := place.NewRevealer(cfg.GoogleMapsAPIKey)
	if err != nil {
		return fmt.Errorf("creating geocoding client: %w", err)
	}

	locFinder := finder.New(
		sampler.New(rand.New(rand.NewSource(time.Now().UnixNano()))),
		panorama.NewStreetViewClient(cfg.StreetViewAPIKey),
		finder.Config{MaxAttempts: cfg.FinderMaxAttempts, RetryDelay: cfg.FinderRetryDelay},
	)
	board := leaderboard.New(store)
	var reveal round.Revealer
	if revealer != nil {
		reveal = revealer
	}
	rounds := round.NewController(locFinder, ledger.New(store), board, reveal, cfg.RoundDuration)
	playerStats := stats.New(store)
	reference := refloc.New(game.Coordinate{Lat: cfg.DefaultRefLat, Lng: cfg.DefaultRefLng})
	sessions := commands.NewSessions()

	apiServer := api.New(cfg, api.Services{
		Rounds:    rounds,
		Board:     board,
		Stats:     playerStats,
		Reference: reference,
		Health:    health,
	})
	srv := apiServer.Server()

	var worker *bot.ExpiryWorker
	if cfg.DiscordToken != "" {
		discordBot, err := bot.New(cfg.DiscordToken, &commands.Geo{
			Rounds:    rounds,
			Board:     board,
			Stats:     playerStats,
			Sessions:  sessions,
			Reference: reference.Fallback(),
			Expander:  geourl.NewExpander(),
		})
		if err != nil {
			return fmt.Errorf("creating discord bot: %w", err)
		}
		if err := discordBot.Start(); err != nil {
			return fmt.Errorf("starting discord bot: %w", err)
		}
		defer discordBot.Stop()
		worker = bot.NewExpiryWorker(rounds, sessions, discordBot.Session())
	} else {
		logger.Warn("DISCORD_TOKEN not set, Discord bot disabled")
		worker = bot.NewExpiryWorker(rounds, sessions, nil)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return worker.Run(gctx)
	})

	return g.Wait()
}
