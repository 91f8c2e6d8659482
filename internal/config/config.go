package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Discord Bot; empty disables the bot
	DiscordToken string `env:"DISCORD_TOKEN"`

	// Discord OAuth2; both empty disables web login
	DiscordClientID     string `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURI  string `env:"DISCORD_REDIRECT_URI" envDefault:"http://localhost:3000/api/auth/callback"`

	// Database; empty keeps everything in memory
	DatabaseURL string `env:"DATABASE_URL"`

	// Web Server
	WebBind      string `env:"WEB_BIND" envDefault:"0.0.0.0:3000"`
	WebUIBaseURL string `env:"-"`

	// Honor X-Forwarded-For only behind a reverse proxy
	TrustProxy bool `env:"TRUST_PROXY"`

	// Session
	JWTSecret    string   `env:"JWT_SECRET" envDefault:"dev-only-change-me"`
	AdminUserIDs []string `env:"ADMIN_USER_IDS" envSeparator:","`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Google
	GoogleMapsAPIKey string `env:"GOOGLE_MAPS_API_KEY"`
	StreetViewAPIKey string `env:"STREETVIEW_API_KEY"`

	// Game
	RoundDuration     time.Duration `env:"ROUND_DURATION" envDefault:"180s"`
	FinderMaxAttempts int           `env:"FINDER_MAX_ATTEMPTS" envDefault:"20"`
	FinderRetryDelay  time.Duration `env:"FINDER_RETRY_DELAY" envDefault:"100ms"`
	DefaultRefLat     float64       `env:"DEFAULT_REF_LAT" envDefault:"10.8231"`
	DefaultRefLng     float64       `env:"DEFAULT_REF_LNG" envDefault:"106.6297"`
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.WebUIBaseURL = extractBaseURL(cfg.DiscordRedirectURI)
	if cfg.StreetViewAPIKey == "" {
		cfg.StreetViewAPIKey = cfg.GoogleMapsAPIKey
	}
	cfg.AdminUserIDs = trimAll(cfg.AdminUserIDs)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.StreetViewAPIKey == "" {
		return fmt.Errorf("STREETVIEW_API_KEY or GOOGLE_MAPS_API_KEY is required")
	}
	if (c.DiscordClientID == "") != (c.DiscordClientSecret == "") {
		return fmt.Errorf("DISCORD_CLIENT_ID and DISCORD_CLIENT_SECRET must be set together")
	}
	if c.FinderMaxAttempts <= 0 {
		return fmt.Errorf("FINDER_MAX_ATTEMPTS must be positive, got %d", c.FinderMaxAttempts)
	}
	if c.FinderRetryDelay < 0 {
		return fmt.Errorf("FINDER_RETRY_DELAY must not be negative")
	}
	if c.RoundDuration <= 0 {
		return fmt.Errorf("ROUND_DURATION must be positive")
	}
	if c.DefaultRefLat < -90 || c.DefaultRefLat > 90 || c.DefaultRefLng < -180 || c.DefaultRefLng > 180 {
		return fmt.Errorf("DEFAULT_REF_LAT/LNG out of range")
	}
	return nil
}

// OAuthEnabled reports whether the Discord login routes can be served.
func (c *Config) OAuthEnabled() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != ""
}

// IsAdmin reports whether the Discord user id is listed in ADMIN_USER_IDS.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func extractBaseURL(redirectURI string) string {
	// e.g., "http://localhost:3000/api/auth/callback" -> "http://localhost:3000"
	parsed, err := url.Parse(redirectURI)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "http://localhost:3000"
	}

	return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
}
