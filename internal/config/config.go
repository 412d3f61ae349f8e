// Package config reads service configuration once at startup: a local
// secrets file (godotenv), then environment variables, then an optional
// YAML file for map render defaults.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duplicate-link policies for the CSV importer.
const (
	DedupApplEndpoints = "appl-endpoints" // appl_id + site_from + site_to
	DedupEndpoints     = "endpoints"      // site_from + site_to only
)

// RenderSettings are the map defaults; request query parameters may
// override them per call.
type RenderSettings struct {
	SiteSeparationM float64 `yaml:"site_separation_m"`
	LinkOffsetM     float64 `yaml:"link_offset_m"`
	LineWeight      int     `yaml:"line_weight"`
}

type Config struct {
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
	DedupPolicy string
	Render      RenderSettings
}

// DefaultRenderSettings mirrors the dashboard's slider defaults.
func DefaultRenderSettings() RenderSettings {
	return RenderSettings{SiteSeparationM: 18, LinkOffsetM: 25, LineWeight: 8}
}

// Load reads the secrets file and environment. Precedence: environment
// variable > secrets file entry > default.
func Load() (Config, error) {
	secrets := envOr("SECRETS_FILE", ".env")
	if _, err := os.Stat(secrets); err == nil {
		if err := godotenv.Load(secrets); err != nil {
			return Config{}, fmt.Errorf("load secrets file %s: %w", secrets, err)
		}
	}

	cfg := Config{
		HTTPAddr:    envOr("HTTP_ADDR", ":8081"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DedupPolicy: envOr("LINK_DEDUP_POLICY", DedupApplEndpoints),
		Render:      DefaultRenderSettings(),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = databaseURLFromParts()
	}

	switch cfg.DedupPolicy {
	case DedupApplEndpoints, DedupEndpoints:
	default:
		return Config{}, fmt.Errorf("invalid LINK_DEDUP_POLICY %q (want %q or %q)",
			cfg.DedupPolicy, DedupApplEndpoints, DedupEndpoints)
	}

	if path := os.Getenv("RENDER_SETTINGS_PATH"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read render settings %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg.Render); err != nil {
			return Config{}, fmt.Errorf("parse render settings %s: %w", path, err)
		}
	}
	if err := cfg.Render.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (r RenderSettings) validate() error {
	if r.SiteSeparationM < 0 {
		return fmt.Errorf("site_separation_m must be >= 0, got %v", r.SiteSeparationM)
	}
	if r.LinkOffsetM < 0 {
		return fmt.Errorf("link_offset_m must be >= 0, got %v", r.LinkOffsetM)
	}
	if r.LineWeight <= 0 {
		return fmt.Errorf("line_weight must be > 0, got %d", r.LineWeight)
	}
	return nil
}

// databaseURLFromParts assembles a postgres URL from the PG* variables the
// secrets file conventionally carries.
func databaseURLFromParts() string {
	host := envOr("PGHOST", "localhost")
	port := envOr("PGPORT", "5432")
	name := envOr("PGDATABASE", "satelit")
	user := envOr("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + name,
	}
	if pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}
	q := u.Query()
	q.Set("sslmode", envOr("PGSSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
