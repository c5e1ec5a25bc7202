// Package config handles loading runtime configuration for the Tennis Tracker API.
// Values (database URL, port, log level, undo depth) come from environment variables
// rather than being hardcoded, so the same binary runs in dev, staging, and production
// with only the environment changing.
package config

import (
	"os"
	"strconv"

	// godotenv reads a .env file and loads its key=value pairs into the process environment.
	// Handy in development; in production real environment variables are used instead.
	"github.com/joho/godotenv"

	"github.com/trentd187/tennis-tracker/internal/scoring"
)

// Config holds all runtime configuration values for the application.
type Config struct {
	Port           string // The TCP port the HTTP server listens on (e.g., "8080")
	DatabaseURL    string // "postgres://..." for PostgreSQL, or "sqlite:<path>" for a local SQLite file
	ClerkSecretKey string // Secret key for verifying Clerk authentication tokens server-side
	Env            string // The runtime environment: "development", "staging", or "production"
	LogLevel       string // charmbracelet/log level name: "debug", "info", "warn", "error"
	UndoDepth      int    // How many points each live match can undo; defaults to the engine's limit
}

// Load reads configuration from environment variables and returns a populated Config.
// It first tries to load a .env file for local development. A missing .env is fine:
// in production the deployment platform sets the real variables.
func Load() *Config {
	_ = godotenv.Load()

	env := getenv("ENV", "development")

	// In development, fall back to a local SQLite file so the server starts with no setup.
	// Other environments must set DATABASE_URL explicitly.
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" && env == "development" {
		dbURL = "sqlite:tennis.db"
	}

	return &Config{
		Port:           getenv("PORT", "8080"),
		DatabaseURL:    dbURL,
		ClerkSecretKey: os.Getenv("CLERK_SECRET_KEY"),
		Env:            env,
		LogLevel:       getenv("LOG_LEVEL", "info"),
		UndoDepth:      getenvInt("UNDO_DEPTH", scoring.DefaultHistoryLimit),
	}
}

// getenv returns the value of key, or fallback when it is unset or empty.
func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getenvInt is getenv for positive integers; malformed or non-positive values use fallback.
func getenvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
