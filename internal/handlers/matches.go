// Package handlers contains HTTP route handler functions for the Tennis Tracker API.
// This file handles the /api/v1/matches routes: creating matches, scoring them point by
// point, undoing mistakes, forfeits and statistics.
//
// Scoring itself happens in the live registry, which keeps one engine per match in
// memory, persists every accepted change and broadcasts it to spectators. The handlers
// only parse requests and translate registry errors into HTTP responses.
//
// --- Permission model ---
//   - Any authenticated user can create a match and score it (they act as the umpire).
//   - Listing: admins see every match, everyone else sees the matches they created.
//   - Forfeits need the "admin" or "manager" role (enforced on the route).
package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/tennis-tracker/internal/live"
	"github.com/trentd187/tennis-tracker/internal/middleware"
	"github.com/trentd187/tennis-tracker/internal/models"
	"github.com/trentd187/tennis-tracker/internal/scoring"
)

// MatchSummary is one row of GET /api/v1/matches. Full scores are only returned by the
// single-match endpoints.
type MatchSummary struct {
	ID          string               `json:"id"`
	Format      string               `json:"format"`
	DisplayName string               `json:"displayName"`
	Players     scoring.Pair[string] `json:"players"`
	Status      string               `json:"status"`
	Winner      *string              `json:"winner"`    // null until finished
	StartedAt   *string              `json:"startedAt"` // RFC 3339 or null
	EndedAt     *string              `json:"endedAt"`   // RFC 3339 or null
	CreatedAt   string               `json:"createdAt"`
}

// CreateMatchRequest is the JSON body of POST /api/v1/matches.
type CreateMatchRequest struct {
	Format      string `json:"format"`      // Required: a catalog identifier, e.g. "BEST_OF_3"
	Player1     string `json:"player1"`     // Required: name of PLAYER_1
	Player2     string `json:"player2"`     // Required: name of PLAYER_2
	FirstServer string `json:"firstServer"` // Optional: "PLAYER_1" (default) or "PLAYER_2"
}

// PointRequest is the JSON body of POST /api/v1/matches/:id/points. Everything except
// winner is optional annotation used for statistics.
type PointRequest struct {
	Winner        string `json:"winner"`
	Outcome       string `json:"outcome"` // "WINNER", "UNFORCED_ERROR", "FORCED_ERROR" or ""
	Ace           bool   `json:"ace"`
	DoubleFault   bool   `json:"doubleFault"`
	ServiceWinner bool   `json:"serviceWinner"`
	Serve         int    `json:"serve"` // 1 or 2; 0 when not recorded
	RallyLength   int    `json:"rallyLength"`
	// DecidingPoint marks the sudden-death point of a no-ad game at 40-40. The request is
	// rejected with 409 when the game isn't at that point.
	DecidingPoint bool `json:"decidingPoint"`
}

// ForfeitRequest is the JSON body of POST /api/v1/matches/:id/forfeit.
type ForfeitRequest struct {
	Winner string `json:"winner"` // The player awarded the match
}

// formatOptionalTime converts a *time.Time into an RFC 3339 *string, keeping nil as nil.
func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// CreateMatch returns a handler for POST /api/v1/matches.
func CreateMatch(reg *live.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := middleware.CurrentUser(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}

		var req CreateMatchRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
		if req.Player1 == "" || req.Player2 == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "player1 and player2 are required",
			})
		}
		if req.FirstServer == "" {
			req.FirstServer = string(scoring.Player1)
		}

		snap, err := reg.Create(c.UserContext(), live.NewMatch{
			Format:      scoring.Format(req.Format),
			Player1:     req.Player1,
			Player2:     req.Player2,
			FirstServer: scoring.Player(req.FirstServer),
			CreatedBy:   &userID,
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(snap)
	}
}

// ListMatches returns a handler for GET /api/v1/matches.
// Optional query param: ?status=in_progress, ?status=completed or ?status=forfeited.
func ListMatches(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := middleware.CurrentUser(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}
		userRole, _ := c.Locals(middleware.LocalUserRole).(string)

		// Omit the snapshot column: summaries don't need it.
		query := db.WithContext(c.UserContext()).
			Omit("state").
			Order("created_at DESC").
			Limit(100)

		switch status := models.MatchStatus(c.Query("status")); status {
		case "":
		case models.MatchStatusInProgress, models.MatchStatusCompleted, models.MatchStatusForfeited:
			query = query.Where("status = ?", status)
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "status must be 'in_progress', 'completed', or 'forfeited'",
			})
		}
		if userRole != string(models.UserRoleAdmin) {
			query = query.Where("created_by = ?", userID)
		}

		var matches []models.Match
		if err := query.Find(&matches).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch matches",
			})
		}

		response := make([]MatchSummary, 0, len(matches))
		for _, m := range matches {
			response = append(response, MatchSummary{
				ID:          m.ID.String(),
				Format:      m.Format,
				DisplayName: scoring.DisplayName(scoring.Format(m.Format)),
				Players:     scoring.Pair[string]{Player1: m.Player1Name, Player2: m.Player2Name},
				Status:      string(m.Status),
				Winner:      m.Winner,
				StartedAt:   formatOptionalTime(m.StartedAt),
				EndedAt:     formatOptionalTime(m.EndedAt),
				CreatedAt:   m.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return c.JSON(response)
	}
}

// GetMatch returns a handler for GET /api/v1/matches/:id.
func GetMatch(reg *live.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := matchID(c)
		if !ok {
			return invalidMatchID(c)
		}
		snap, err := reg.Get(c.UserContext(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(snap)
	}
}

// RecordPoint returns a handler for POST /api/v1/matches/:id/points.
func RecordPoint(reg *live.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := matchID(c)
		if !ok {
			return invalidMatchID(c)
		}

		var req PointRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
		switch scoring.Outcome(req.Outcome) {
		case "", scoring.OutcomeWinner, scoring.OutcomeUnforcedError, scoring.OutcomeForcedError:
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "outcome must be 'WINNER', 'UNFORCED_ERROR', or 'FORCED_ERROR'",
			})
		}
		if req.Serve < 0 || req.Serve > 2 || req.RallyLength < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "serve must be 1 or 2 and rallyLength must not be negative",
			})
		}

		detail := &scoring.PointDetail{
			Outcome: scoring.Outcome(req.Outcome),
			Serve: scoring.ServeDetail{
				Ace:           req.Ace,
				DoubleFault:   req.DoubleFault,
				ServiceWinner: req.ServiceWinner,
				Serve:         req.Serve,
			},
			RallyLength: req.RallyLength,
		}
		snap, err := reg.RecordPoint(c.UserContext(), id, scoring.Player(req.Winner), detail, req.DecidingPoint)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(snap)
	}
}

// UndoPoint returns a handler for POST /api/v1/matches/:id/undo.
func UndoPoint(reg *live.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := matchID(c)
		if !ok {
			return invalidMatchID(c)
		}
		snap, err := reg.Undo(c.UserContext(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(snap)
	}
}

// ForfeitMatch returns a handler for POST /api/v1/matches/:id/forfeit.
// Requires "admin" or "manager" role (enforced by RequireRole middleware on the route).
func ForfeitMatch(reg *live.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := matchID(c)
		if !ok {
			return invalidMatchID(c)
		}
		var req ForfeitRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
		snap, err := reg.Forfeit(c.UserContext(), id, scoring.Player(req.Winner))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(snap)
	}
}

// MatchStats returns a handler for GET /api/v1/matches/:id/stats.
func MatchStats(reg *live.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := matchID(c)
		if !ok {
			return invalidMatchID(c)
		}
		stats, err := reg.Stats(c.UserContext(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(stats)
	}
}

// matchID parses the :id route parameter.
func matchID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

func invalidMatchID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid match ID",
	})
}

// writeError maps registry and scoring errors onto status codes.
func writeError(c *fiber.Ctx, err error) error {
	status, msg := fiber.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, live.ErrMatchNotFound):
		status, msg = fiber.StatusNotFound, "match not found"
	case errors.Is(err, scoring.ErrUnsupportedFormat):
		status, msg = fiber.StatusBadRequest, "unsupported format"
	case errors.Is(err, scoring.ErrInvalidPlayer):
		status, msg = fiber.StatusBadRequest, "player must be 'PLAYER_1' or 'PLAYER_2'"
	case errors.Is(err, live.ErrMatchFinished):
		status, msg = fiber.StatusConflict, "match is finished"
	case errors.Is(err, live.ErrNothingToUndo):
		status, msg = fiber.StatusConflict, "nothing to undo"
	case errors.Is(err, live.ErrNotDecidingPoint):
		status, msg = fiber.StatusConflict, "game is not at a deciding point"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
