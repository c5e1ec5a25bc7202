// cmd/server/main.go
// This is the entry point for the Tennis Tracker API server.
// The cmd/ folder holds executable binaries, and internal/ holds the packages they are
// built from, which other projects cannot import.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	// log is a structured, leveled logger: log.Info("msg", "key", value)
	"github.com/charmbracelet/log"
	// fiber is a fast HTTP web framework inspired by Express.js
	"github.com/gofiber/fiber/v2"
	// cors lets the mobile app call the API from a different origin
	"github.com/gofiber/fiber/v2/middleware/cors"
	// logger prints request details (method, path, status, duration) to stdout
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/trentd187/tennis-tracker/internal/config"
	"github.com/trentd187/tennis-tracker/internal/database"
	"github.com/trentd187/tennis-tracker/internal/handlers"
	"github.com/trentd187/tennis-tracker/internal/live"
	"github.com/trentd187/tennis-tracker/internal/middleware"
	"github.com/trentd187/tennis-tracker/internal/models"
	"github.com/trentd187/tennis-tracker/internal/websocket"
)

func main() {
	cfg := config.Load()

	lg := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "tennis",
	})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		lg.SetLevel(level)
	} else {
		lg.Warn("unknown LOG_LEVEL, using info", "value", cfg.LogLevel)
	}
	log.SetDefault(lg)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		lg.Fatal("failed to connect to database", "err", err)
	}
	// Apply pending migrations on startup so the schema always matches the code.
	if err := database.RunMigrations(db, cfg.DatabaseURL); err != nil {
		lg.Fatal("failed to run migrations", "err", err)
	}

	// ctx is cancelled on Ctrl-C or SIGTERM (what ECS sends before stopping a task).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The Hub fans score updates out to spectators; it runs until ctx is cancelled.
	hub := websocket.NewHub()
	go hub.Run(ctx)

	reg := live.NewRegistry(db, hub, lg, cfg.UndoDepth)

	app := fiber.New(fiber.Config{
		AppName: "Tennis Tracker API",
	})

	// --- Global middleware ---
	app.Use(logger.New())
	// Allow any origin in development; lock this down to the app's domain in production.
	app.Use(cors.New())

	// --- Public routes (no auth required) ---
	app.Get("/health", handlers.HealthCheck(db))
	// Spectators follow a match live; scores are public once the match ID is known.
	app.Get("/ws/matches/:id", handlers.RequireUpgrade, handlers.MatchSocket(hub, reg, lg))

	// --- Authenticated API routes ---
	// Every route under /api/v1 requires a valid Clerk JWT; Auth also syncs the user row.
	api := app.Group("/api/v1", middleware.Auth(cfg, db))

	// GET  /api/v1/formats                  the format catalog
	// GET  /api/v1/matches                  matches the user created (admins see all), ?status=
	// POST /api/v1/matches                  start a match
	// GET  /api/v1/matches/:id              current score
	// POST /api/v1/matches/:id/points       award a point
	// POST /api/v1/matches/:id/undo         revert the last point or forfeit
	// POST /api/v1/matches/:id/forfeit      end by retirement/walkover (admin and manager only)
	// GET  /api/v1/matches/:id/stats        per-player statistics
	api.Get("/formats", handlers.ListFormats)
	api.Get("/matches", handlers.ListMatches(db))
	api.Post("/matches", handlers.CreateMatch(reg))
	api.Get("/matches/:id", handlers.GetMatch(reg))
	api.Post("/matches/:id/points", handlers.RecordPoint(reg))
	api.Post("/matches/:id/undo", handlers.UndoPoint(reg))
	api.Post("/matches/:id/forfeit",
		middleware.RequireRole(models.UserRoleAdmin, models.UserRoleManager),
		handlers.ForfeitMatch(reg))
	api.Get("/matches/:id/stats", handlers.MatchStats(reg))

	go func() {
		<-ctx.Done()
		lg.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			lg.Error("shutdown", "err", err)
		}
	}()

	lg.Info("starting server", "port", cfg.Port, "env", cfg.Env)
	if err := app.Listen(":" + cfg.Port); err != nil {
		lg.Fatal("server stopped", "err", err)
	}
}
