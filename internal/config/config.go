// Package config loads runtime settings from flags and the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bryan-buckman/sentio/internal/gateway"
	"github.com/bryan-buckman/sentio/internal/push"
)

const (
	DefaultAddr           = "127.0.0.1:8080"
	DefaultDatabasePath   = "~/.sentio/sentio.db"
	DefaultContactEmail   = "support@sentio.app"
	defaultRefreshMins    = 5
	defaultHTTPTimeoutSec = 15
)

type Config struct {
	Addr            string
	APIURL          string
	DatabaseURL     string
	RefreshInterval time.Duration
	HTTPTimeout     time.Duration
	PushToken       string
	PushPlatform    string
	AllowedOrigins  []string
	ContactEmail    string
}

// Load parses args, falling back to environment variables and then to
// defaults. Call godotenv.Load first to pick up a .env file.
func Load(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("sentio", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", "", "Listen address for the local UI")
	fs.StringVar(&cfg.APIURL, "api", "", "Polling backend API origin")
	fs.StringVar(&cfg.DatabaseURL, "db", "", "Preference store (SQLite path, postgres:// or redis:// URL)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Addr == "" {
		cfg.Addr = getEnv("ADDR", DefaultAddr)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = getEnv("SENTIO_API_URL", gateway.DefaultBaseURL)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if !strings.HasPrefix(cfg.APIURL, "http://") && !strings.HasPrefix(cfg.APIURL, "https://") {
		return Config{}, fmt.Errorf("invalid API URL %q: must start with http:// or https://", cfg.APIURL)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = getEnv("DATABASE_URL", DefaultDatabasePath)
	}
	path, err := expandHome(cfg.DatabaseURL)
	if err != nil {
		return Config{}, err
	}
	cfg.DatabaseURL = path

	mins, err := getEnvInt("REFRESH_INTERVAL_MINUTES", defaultRefreshMins)
	if err != nil {
		return Config{}, err
	}
	if mins < 1 {
		mins = 1
	}
	cfg.RefreshInterval = time.Duration(mins) * time.Minute

	secs, err := getEnvInt("HTTP_TIMEOUT_SECONDS", defaultHTTPTimeoutSec)
	if err != nil {
		return Config{}, err
	}
	if secs <= 0 {
		return Config{}, errors.New("HTTP_TIMEOUT_SECONDS must be positive")
	}
	cfg.HTTPTimeout = time.Duration(secs) * time.Second

	cfg.PushToken = getEnv("PUSH_TOKEN", "")
	cfg.PushPlatform = getEnv("PUSH_PLATFORM", push.DefaultPlatform)
	cfg.AllowedOrigins = parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:8080"))
	cfg.ContactEmail = getEnv("CONTACT_EMAIL", DefaultContactEmail)

	return cfg, nil
}

// PushSource returns the configured push token source.
func (c Config) PushSource() push.TokenSource {
	return push.Static{Value: c.PushToken, Platform: c.PushPlatform}
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

func parseOrigins(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return n, nil
}
