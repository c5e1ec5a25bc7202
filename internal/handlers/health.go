// Package handlers contains the HTTP route handlers for the Tennis Tracker API.
// Each exported function is a handler factory: it takes its dependencies (the database,
// the live registry, ...) and returns a fiber.Handler, so nothing lives in globals.
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HealthCheck returns a handler for GET /health. It needs no authentication and is used
// by container probes and load balancers. It reports 503 when the database is unreachable
// so an instance that lost its database is taken out of rotation.
func HealthCheck(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
				"error":  "database unreachable",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
