package middleware

// roles.go: role-based access control. The app has three roles: admin, manager, user.
// Anyone signed in can create and score matches; closing a match out by forfeit needs an
// admin or manager.

import (
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/tennis-tracker/internal/models"
)

// RequireRole returns a middleware that lets through only users whose role is one of
// roles, answering 403 Forbidden otherwise:
//
//	api.Post("/matches/:id/forfeit", middleware.RequireRole(models.UserRoleAdmin, models.UserRoleManager), ...)
//
// It must run after Auth, which stores the role in c.Locals.
func RequireRole(roles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userRole, ok := c.Locals(LocalUserRole).(string)
		if !ok || userRole == "" {
			// No role means Auth didn't run; 403 rather than 401 because the caller
			// may well be authenticated.
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "forbidden",
			})
		}

		if slices.Contains(roles, models.UserRole(userRole)) {
			return c.Next()
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient permissions",
		})
	}
}
