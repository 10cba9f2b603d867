// Package main is the entry point for the HopOn API server.
//
// The main package is kept minimal. Its job is to:
//  1. Read configuration (environment, optional .env file)
//  2. Create the logger
//  3. Start the application
//
// All actual logic lives in internal/ packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hopon/hopon-api/internal/config"
	"github.com/hopon/hopon-api/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// LOG_FORMAT=json for log shippers, text (the default) for humans.
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// === 3. DATABASE DIRECTORY ===
	// A SQLite file needs its directory to exist; PostgreSQL URLs and
	// in-memory databases need nothing.
	if dir := sqliteDir(cfg.DatabaseURL); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// sqliteDir returns the directory of a SQLite database file, or "" when
// dsn is not a file path.
func sqliteDir(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return ""
	}
	path := strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:///"), "sqlite://")
	if path == "" || strings.Contains(path, ":memory:") {
		return ""
	}
	path, _, _ = strings.Cut(path, "?")
	if dir := filepath.Dir(path); dir != "." {
		return dir
	}
	return ""
}
