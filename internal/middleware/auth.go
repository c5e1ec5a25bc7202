// Package middleware contains HTTP middleware for the Tennis Tracker API.
// Middleware runs between the HTTP server and the route handlers, which makes it the place
// for cross-cutting concerns such as authentication and role checks.
package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	// jwt parses the JSON Web Token from the Authorization header
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/tennis-tracker/internal/config"
	"github.com/trentd187/tennis-tracker/internal/models"
)

// Keys under which Auth stores the caller in c.Locals.
const (
	LocalUserID   = "userID"
	LocalUserRole = "userRole"
)

// Claims is the data we expect inside a Clerk JWT payload. Besides the standard fields
// (Subject = Clerk user ID, expiry, ...) the Clerk JWT template adds:
//
//	"role":  "{{user.public_metadata.role}}"
//	"email": "{{user.primary_email_address}}"
//	"name":  "{{user.full_name}}"
//
// Without them the role defaults to "user" and email/name get placeholder values.
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`  // "admin", "manager", or "user"
	Email string `json:"email"` // primary email address
	Name  string `json:"name"`  // full name, shown as the umpire/scorer name
}

// Auth returns a Fiber middleware that:
//  1. Reads the JWT from the "Authorization: Bearer <token>" header
//  2. Finds the matching user in our database, creating it on first visit
//  3. Syncs the user's role from the token
//  4. Stores the user's UUID and role in c.Locals for the handlers
func Auth(cfg *config.Config, db *gorm.DB) fiber.Handler {
	parser := jwt.NewParser()

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid authorization header",
			})
		}

		// TODO: verify the signature against Clerk's JWKS endpoint before going to production.
		// ParseUnverified only decodes the claims.
		token, _, err := parser.ParseUnverified(tokenStr, &Claims{})
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}
		claims, ok := token.Claims.(*Claims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token claims",
			})
		}
		// claims.Subject is the standard "sub" field; Clerk sets it to the Clerk user ID
		if claims.Subject == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "token missing subject",
			})
		}

		user, err := syncUser(db, claims)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load user record",
			})
		}

		// c.Locals is a key-value store scoped to this single request.
		c.Locals(LocalUserID, user.ID.String())
		c.Locals(LocalUserRole, string(user.Role))
		return c.Next()
	}
}

// syncUser is the "lazy user sync": the first authenticated request creates the user row,
// later requests look it up and pick up role changes made in the Clerk dashboard.
func syncUser(db *gorm.DB, claims *Claims) (models.User, error) {
	clerkUserID := claims.Subject
	role := roleFromClaim(claims.Role)

	var user models.User
	err := db.Where("clerk_id = ?", clerkUserID).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		email := claims.Email
		if email == "" {
			// Placeholder like "user_2abc123@clerk.local": clearly not real, unique per user
			email = fmt.Sprintf("%s@clerk.local", clerkUserID)
		}
		name := claims.Name
		if name == "" {
			name = "Player"
		}
		user = models.User{
			ClerkID:     &clerkUserID,
			DisplayName: name,
			Email:       email,
			Role:        role,
		}
		if err := db.Create(&user).Error; err != nil {
			return models.User{}, err
		}
	case err != nil:
		return models.User{}, err
	case user.Role != role && claims.Role != "":
		if err := db.Model(&user).Update("role", role).Error; err != nil {
			return models.User{}, err
		}
		user.Role = role
	}
	return user, nil
}

// roleFromClaim converts the raw role claim into a UserRole. Missing or unknown roles
// become "user", the least privileged.
func roleFromClaim(s string) models.UserRole {
	switch s {
	case "admin":
		return models.UserRoleAdmin
	case "manager":
		return models.UserRoleManager
	default:
		return models.UserRoleUser
	}
}

// CurrentUser returns the caller's ID as stored by Auth. ok is false on routes that
// don't run Auth.
func CurrentUser(c *fiber.Ctx) (id uuid.UUID, ok bool) {
	s, _ := c.Locals(LocalUserID).(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
