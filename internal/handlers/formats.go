package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/tennis-tracker/internal/scoring"
)

// FormatResponse describes one entry of the format catalog.
type FormatResponse struct {
	ID           scoring.Format  `json:"id"`
	DisplayName  string          `json:"displayName"`
	DetailedName string          `json:"detailedName"`
	Rules        scoring.Ruleset `json:"rules"`
}

// ListFormats handles GET /api/v1/formats: the catalog in its fixed order, for the
// "new match" picker.
func ListFormats(c *fiber.Ctx) error {
	formats := scoring.Formats()
	response := make([]FormatResponse, 0, len(formats))
	for _, f := range formats {
		rules, err := scoring.Resolve(f)
		if err != nil {
			continue
		}
		response = append(response, FormatResponse{
			ID:           f,
			DisplayName:  scoring.DisplayName(f),
			DetailedName: scoring.DetailedName(f),
			Rules:        rules,
		})
	}
	return c.JSON(response)
}
