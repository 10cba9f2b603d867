package config

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "PORT", "DATABASE_URL", "SEED_DEMO_DATA", "SECRET_KEY", "JWT_SECRET",
		"ADMIN_SECRET", "JWT_ACCESS_EXPIRES", "JWT_REFRESH_EXPIRES",
		"SESSION_COOKIE_SAMESITE", "SESSION_COOKIE_SECURE", "GOOGLE_CLIENT_ID",
		"GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URI", "DEV_GOOGLE_LOGIN",
		"FRONTEND_ORIGINS", "FRONTEND_ORIGIN", "AUTH_RATE_LIMIT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_DevelopmentDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.IsProduction() {
		t.Error("IsProduction() = true, want false")
	}
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Port)
	}
	if cfg.DatabaseURL != "data/hopon.db" {
		t.Errorf("DatabaseURL = %q, want data/hopon.db", cfg.DatabaseURL)
	}
	if !cfg.SeedDemoData {
		t.Error("SeedDemoData should default to true in development")
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", cfg.AccessTTL)
	}
	if cfg.RefreshTTL != 7*24*time.Hour {
		t.Errorf("RefreshTTL = %v, want 168h", cfg.RefreshTTL)
	}
	if cfg.CookieSameSite != http.SameSiteLaxMode {
		t.Errorf("CookieSameSite = %v, want Lax", cfg.CookieSameSite)
	}
	if cfg.GoogleRedirectURI != "http://localhost:8000/auth/google/callback" {
		t.Errorf("GoogleRedirectURI = %q", cfg.GoogleRedirectURI)
	}
	if cfg.GoogleConfigured() {
		t.Error("GoogleConfigured() = true without credentials")
	}
	if cfg.AuthRateLimit != 30 {
		t.Errorf("AuthRateLimit = %d, want 30", cfg.AuthRateLimit)
	}
	want := []string{"http://localhost:3000", ProductionOrigin}
	if strings.Join(cfg.FrontendOrigins, ",") != strings.Join(want, ",") {
		t.Errorf("FrontendOrigins = %v, want %v", cfg.FrontendOrigins, want)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/hopon")
	t.Setenv("JWT_ACCESS_EXPIRES", "60")
	t.Setenv("SESSION_COOKIE_SAMESITE", "None")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("DEV_GOOGLE_LOGIN", "1")
	t.Setenv("FRONTEND_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("FRONTEND_ORIGIN", "https://ignored.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://u:p@db/hopon" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.AccessTTL != time.Minute {
		t.Errorf("AccessTTL = %v, want 1m", cfg.AccessTTL)
	}
	if cfg.CookieSameSite != http.SameSiteNoneMode || !cfg.CookieSecure {
		t.Errorf("cookie = %v secure=%v, want None/true", cfg.CookieSameSite, cfg.CookieSecure)
	}
	if !cfg.DevGoogleLogin {
		t.Error("DevGoogleLogin should be enabled")
	}
	if len(cfg.FrontendOrigins) != 3 || cfg.FrontendOrigins[0] != "https://a.example.com" {
		t.Errorf("FrontendOrigins = %v", cfg.FrontendOrigins)
	}
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want default 8000", cfg.Port)
	}
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for production without secrets")
	}
	for _, key := range []string{"DATABASE_URL", "GOOGLE_REDIRECT_URI", "SECRET_KEY", "JWT_SECRET"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q should mention %s", err, key)
		}
	}
}

func TestLoad_ProductionComplete(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/hopon")
	t.Setenv("GOOGLE_REDIRECT_URI", "https://api.example.com/auth/google/callback")
	t.Setenv("SECRET_KEY", "prod-secret-key-value")
	t.Setenv("JWT_SECRET", "prod-jwt-secret-value")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.SeedDemoData {
		t.Error("SeedDemoData should default to false in production")
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"0", true, false},
		{"off", true, false},
		{"", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("HOPON_TEST_BOOL", tt.value)
			if got := getEnvBool("HOPON_TEST_BOOL", tt.def); got != tt.want {
				t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
			}
		})
	}
}
