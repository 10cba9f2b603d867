// Package config loads the server configuration from the environment.
//
// Values are read once at startup and treated as immutable afterwards.
// An optional .env file in the working directory is loaded first; variables
// already present in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Development fallbacks. Production refuses to start with any of them.
const (
	DefaultSecretKey   = "dev-secret-key-change-me"
	DefaultJWTSecret   = "dev-jwt-secret-change-me"
	DefaultAdminSecret = "dev-admin-secret"

	defaultDatabaseURL    = "data/hopon.db"
	defaultFrontendOrigin = "http://localhost:3000"
	defaultRedirectURI    = "http://localhost:8000/auth/google/callback"

	// ProductionOrigin is always allowed, whatever FRONTEND_ORIGINS says.
	ProductionOrigin = "https://hopon-pruebas.vercel.app"
)

// Config holds every setting of the API server.
type Config struct {
	// Runtime
	Env  string
	Port int

	// Database
	DatabaseURL  string
	SeedDemoData bool

	// Secrets
	SecretKey   string // signs OAuth state
	JWTSecret   string // signs access and refresh tokens
	AdminSecret string

	// Tokens
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Cookie
	CookieSameSite http.SameSite
	CookieSecure   bool

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	DevGoogleLogin     bool

	// CORS / handoff
	FrontendOrigins []string

	// Rate limit, requests per minute per client IP on the credential endpoints
	AuthRateLimit int

	// Logging
	LogLevel  string
	LogFormat string
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "production", "prod":
		return true
	}
	return false
}

// GoogleConfigured reports whether both Google client credentials are set.
func (c *Config) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Load reads the configuration from the environment.
// In production, missing required values and development secrets are
// reported together in one error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}

	cfg := &Config{}
	cfg.Env = getEnvString("ENV", "development")
	prod := cfg.IsProduction()

	cfg.Port = getEnvInt("PORT", 8000)

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && !prod {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.SeedDemoData = getEnvBool("SEED_DEMO_DATA", !prod)

	cfg.SecretKey = getEnvString("SECRET_KEY", DefaultSecretKey)
	cfg.JWTSecret = getEnvString("JWT_SECRET", DefaultJWTSecret)
	cfg.AdminSecret = getEnvString("ADMIN_SECRET", DefaultAdminSecret)

	cfg.AccessTTL = time.Duration(getEnvInt("JWT_ACCESS_EXPIRES", 900)) * time.Second
	cfg.RefreshTTL = time.Duration(getEnvInt("JWT_REFRESH_EXPIRES", 604800)) * time.Second

	cfg.CookieSameSite = parseSameSite(getEnvString("SESSION_COOKIE_SAMESITE", "Lax"))
	cfg.CookieSecure = getEnvBool("SESSION_COOKIE_SECURE", false)

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURI = os.Getenv("GOOGLE_REDIRECT_URI")
	if cfg.GoogleRedirectURI == "" && !prod {
		cfg.GoogleRedirectURI = defaultRedirectURI
	}
	cfg.DevGoogleLogin = getEnvBool("DEV_GOOGLE_LOGIN", false)

	cfg.FrontendOrigins = frontendOrigins()
	cfg.AuthRateLimit = getEnvInt("AUTH_RATE_LIMIT", 30)

	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvString("LOG_FORMAT", "text")

	if prod {
		if err := cfg.validateProduction(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) validateProduction() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.GoogleRedirectURI == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URI")
	}
	if c.SecretKey == DefaultSecretKey {
		missing = append(missing, "SECRET_KEY")
	}
	if c.JWTSecret == DefaultJWTSecret {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: required environment variables are not set for production: %v", missing)
	}
	return nil
}

// frontendOrigins reads FRONTEND_ORIGINS (comma separated), falling back to
// FRONTEND_ORIGIN, and appends the production origin.
func frontendOrigins() []string {
	raw := os.Getenv("FRONTEND_ORIGINS")
	if raw == "" {
		raw = getEnvString("FRONTEND_ORIGIN", defaultFrontendOrigin)
	}

	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return append(origins, ProductionOrigin)
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// getEnvBool accepts 1/true/yes/on and 0/false/no/off, case-insensitively.
func getEnvBool(key string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultVal
	}
}
